package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/reviewpulse/reviewpulse/internal/database"
)

// RemoteClassifier calls an external sentiment inference service over HTTP.
// The service receives {"text": "..."} and answers {"label": "..."} with a
// label in {positive, negative, neutral}; anything else maps to unknown.
type RemoteClassifier struct {
	url    string
	client *http.Client
}

// NewRemoteClassifier creates a classifier backed by an inference endpoint
func NewRemoteClassifier(url string, timeout time.Duration) *RemoteClassifier {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &RemoteClassifier{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

type classifyRequest struct {
	Text string `json:"text"`
}

type classifyResponse struct {
	Label string `json:"label"`
}

// Classify labels one text via the inference service
func (c *RemoteClassifier) Classify(ctx context.Context, text string) (database.SentimentLabel, error) {
	body, err := json.Marshal(classifyRequest{Text: text})
	if err != nil {
		return database.SentimentUnknown, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return database.SentimentUnknown, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return database.SentimentUnknown, fmt.Errorf("inference request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return database.SentimentUnknown, fmt.Errorf("inference service returned status %d", resp.StatusCode)
	}

	var parsed classifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return database.SentimentUnknown, fmt.Errorf("failed to decode inference response: %w", err)
	}

	switch database.SentimentLabel(parsed.Label) {
	case database.SentimentPositive, database.SentimentNegative, database.SentimentNeutral:
		return database.SentimentLabel(parsed.Label), nil
	default:
		return database.SentimentUnknown, nil
	}
}
