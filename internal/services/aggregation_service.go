package services

import (
	"sort"

	"github.com/reviewpulse/reviewpulse/internal/database"
	"github.com/reviewpulse/reviewpulse/internal/ingest"
)

// DistrictKey identifies a district by value equality of its names
type DistrictKey struct {
	Governorate string
	District    string
}

// SentimentCounts is one batch's contribution to a district's tally.
// Unknown labels count toward Total only, so
// Positive+Negative+Neutral <= Total always holds.
type SentimentCounts struct {
	Total    int64
	Positive int64
	Negative int64
	Neutral  int64
}

// Add folds another contribution into the counts
func (c *SentimentCounts) Add(other SentimentCounts) {
	c.Total += other.Total
	c.Positive += other.Positive
	c.Negative += other.Negative
	c.Neutral += other.Neutral
}

// AggregateBatch folds a batch of classified reviews into per-district
// counts. Pure and deterministic; no store access. An empty batch returns
// ErrEmptyBatch so the caller skips persistence for the run.
func AggregateBatch(reviews []ingest.Review) (map[DistrictKey]SentimentCounts, error) {
	if len(reviews) == 0 {
		return nil, ErrEmptyBatch
	}

	counts := make(map[DistrictKey]SentimentCounts)
	for _, rev := range reviews {
		key := DistrictKey{Governorate: rev.Governorate, District: rev.District}
		c := counts[key]
		c.Total++
		switch rev.Sentiment {
		case database.SentimentPositive:
			c.Positive++
		case database.SentimentNegative:
			c.Negative++
		case database.SentimentNeutral:
			c.Neutral++
		}
		counts[key] = c
	}
	return counts, nil
}

// SortedKeys returns the district keys in a stable order so batch
// processing and log output are deterministic.
func SortedKeys(counts map[DistrictKey]SentimentCounts) []DistrictKey {
	keys := make([]DistrictKey, 0, len(counts))
	for key := range counts {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Governorate != keys[j].Governorate {
			return keys[i].Governorate < keys[j].Governorate
		}
		return keys[i].District < keys[j].District
	})
	return keys
}
