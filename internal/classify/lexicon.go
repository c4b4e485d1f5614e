package classify

import (
	"context"
	"strings"

	"github.com/reviewpulse/reviewpulse/internal/database"
)

// Default term lists for Arabic product reviews. Deployments with their
// own vocabulary pass explicit lists via NewLexiconClassifier.
var (
	defaultPositiveTerms = []string{
		"ممتاز", "رائع", "جميل", "جيد", "سريع", "أنصح", "انصح", "شكرا", "احسن", "أفضل",
	}
	defaultNegativeTerms = []string{
		"سيء", "سئ", "رديء", "بطيء", "تأخر", "تاخر", "مشكلة", "خطأ", "غش", "أسوأ", "اسوا",
	}
)

// LexiconClassifier scores text by counting positive and negative terms.
// Majority wins; a tie with at least one hit is neutral; no hits at all is
// unknown.
type LexiconClassifier struct {
	positive []string
	negative []string
}

// NewLexiconClassifier creates a lexicon classifier. Empty term lists fall
// back to the built-in defaults.
func NewLexiconClassifier(positive, negative []string) *LexiconClassifier {
	if len(positive) == 0 {
		positive = defaultPositiveTerms
	}
	if len(negative) == 0 {
		negative = defaultNegativeTerms
	}
	return &LexiconClassifier{positive: positive, negative: negative}
}

// Classify labels one text. Never returns an error.
func (c *LexiconClassifier) Classify(_ context.Context, text string) (database.SentimentLabel, error) {
	pos := countHits(text, c.positive)
	neg := countHits(text, c.negative)

	switch {
	case pos == 0 && neg == 0:
		return database.SentimentUnknown, nil
	case pos > neg:
		return database.SentimentPositive, nil
	case neg > pos:
		return database.SentimentNegative, nil
	default:
		return database.SentimentNeutral, nil
	}
}

func countHits(text string, terms []string) int {
	hits := 0
	for _, term := range terms {
		hits += strings.Count(text, term)
	}
	return hits
}
