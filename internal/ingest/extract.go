package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/reviewpulse/reviewpulse/internal/database"
)

// Review is one customer review flowing through the pipeline. Extraction
// fills the raw fields; later stages fill CleanText and Sentiment.
type Review struct {
	Governorate string
	District    string
	Text        string
	Stars       int
	CleanText   string
	Sentiment   database.SentimentLabel
}

// ExtractBatch reads one batch slice out of a review CSV file. Batches are
// numbered from 1; batch n covers rows [(n-1)*size, n*size). A slice past
// the end of the file returns an empty result, which the caller treats as
// end of data.
//
// The CSV must have a header row naming at least the review, governorate
// and district columns (case-insensitive); a stars column is optional.
func ExtractBatch(path string, batchNumber, batchSize int) ([]Review, error) {
	if batchNumber < 1 {
		return nil, fmt.Errorf("batch number must be >= 1, got %d", batchNumber)
	}
	if batchSize < 1 {
		return nil, fmt.Errorf("batch size must be >= 1, got %d", batchSize)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open review file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	cols, err := mapColumns(header)
	if err != nil {
		return nil, err
	}

	start := (batchNumber - 1) * batchSize
	end := start + batchSize

	var reviews []Review
	row := 0
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV row %d: %w", row+1, err)
		}
		if row >= start && row < end {
			reviews = append(reviews, recordToReview(record, cols))
		}
		row++
		if row >= end {
			break
		}
	}

	if len(reviews) == 0 {
		log.Printf("Batch %d of %s is empty (file has %d data rows)", batchNumber, path, row)
	}
	return reviews, nil
}

type columnMap struct {
	review      int
	governorate int
	district    int
	stars       int // -1 when absent
}

func mapColumns(header []string) (*columnMap, error) {
	cols := &columnMap{review: -1, governorate: -1, district: -1, stars: -1}
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "review", "review_text":
			cols.review = i
		case "governorate":
			cols.governorate = i
		case "district":
			cols.district = i
		case "stars", "rating":
			cols.stars = i
		}
	}
	if cols.review < 0 || cols.governorate < 0 || cols.district < 0 {
		return nil, fmt.Errorf("CSV header missing required columns (review, governorate, district): %v", header)
	}
	return cols, nil
}

func recordToReview(record []string, cols *columnMap) Review {
	rev := Review{}
	if cols.review < len(record) {
		rev.Text = record[cols.review]
	}
	if cols.governorate < len(record) {
		rev.Governorate = strings.TrimSpace(record[cols.governorate])
	}
	if cols.district < len(record) {
		rev.District = strings.TrimSpace(record[cols.district])
	}
	if cols.stars >= 0 && cols.stars < len(record) {
		if stars, err := strconv.Atoi(strings.TrimSpace(record[cols.stars])); err == nil {
			rev.Stars = stars
		}
	}
	return rev
}
