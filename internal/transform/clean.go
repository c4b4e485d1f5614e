package transform

import (
	"log"
	"regexp"
	"strings"

	"github.com/reviewpulse/reviewpulse/internal/ingest"
)

var (
	// Keep Arabic letters and whitespace, drop everything else
	// (latin text, digits, punctuation, emoji).
	nonArabicPattern = regexp.MustCompile(`[^\p{Arabic}\s]`)

	whitespacePattern = regexp.MustCompile(`\s+`)
)

// CleanText normalizes one review text: strips non-Arabic characters and
// collapses runs of whitespace. Returns "" when nothing survives.
func CleanText(text string) string {
	cleaned := nonArabicPattern.ReplaceAllString(text, "")
	cleaned = whitespacePattern.ReplaceAllString(cleaned, " ")
	return strings.TrimSpace(cleaned)
}

// CleanBatch cleans a batch of reviews: drops exact duplicates, fills
// CleanText, and removes rows whose text is empty after cleaning. The
// input slice is not modified.
func CleanBatch(reviews []ingest.Review) []ingest.Review {
	seen := make(map[ingest.Review]struct{}, len(reviews))
	cleaned := make([]ingest.Review, 0, len(reviews))

	for _, rev := range reviews {
		if _, dup := seen[rev]; dup {
			continue
		}
		seen[rev] = struct{}{}

		rev.CleanText = CleanText(rev.Text)
		if rev.CleanText == "" {
			continue
		}
		cleaned = append(cleaned, rev)
	}

	if dropped := len(reviews) - len(cleaned); dropped > 0 {
		log.Printf("Text cleaning dropped %d of %d reviews (duplicates or empty after cleaning)", dropped, len(reviews))
	}
	return cleaned
}
