// Package classify is the sentiment-model boundary. The pipeline only
// depends on the Classifier interface; the default implementation is a
// lexicon scorer, with an HTTP adapter for an external inference service.
package classify

import (
	"context"

	"github.com/reviewpulse/reviewpulse/internal/database"
	"github.com/reviewpulse/reviewpulse/internal/ingest"
)

// Classifier assigns a sentiment label to one cleaned review text
type Classifier interface {
	Classify(ctx context.Context, text string) (database.SentimentLabel, error)
}

// ClassifyBatch labels every review in a batch. A per-review classifier
// error labels that review unknown rather than failing the batch; unknown
// reviews still count toward a district's total.
func ClassifyBatch(ctx context.Context, c Classifier, reviews []ingest.Review) ([]ingest.Review, error) {
	out := make([]ingest.Review, len(reviews))
	for i, rev := range reviews {
		label, err := c.Classify(ctx, rev.CleanText)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			label = database.SentimentUnknown
		}
		rev.Sentiment = label
		out[i] = rev
	}
	return out, nil
}
