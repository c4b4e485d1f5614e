// Package testhelpers provides reusable testing utilities: in-memory
// database setup, record builders, a CSV fixture writer, and a mock
// notifier.
package testhelpers

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/reviewpulse/reviewpulse/internal/database"
	"github.com/reviewpulse/reviewpulse/internal/ingest"
	"github.com/reviewpulse/reviewpulse/internal/notify"
)

// NewTestDB opens an in-memory SQLite database with all migrations applied
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect to test database: %v", err)
	}
	if err := database.AutoMigrateDB(db); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}

// SeedDistrict creates a district stats row and returns it
func SeedDistrict(t *testing.T, db *gorm.DB, governorate, district string, negatives int64) *database.DistrictStats {
	t.Helper()
	stats := &database.DistrictStats{
		Governorate:  governorate,
		District:     district,
		TotalReviews: negatives,
		NumNegative:  negatives,
	}
	if err := db.Create(stats).Error; err != nil {
		t.Fatalf("failed to seed district %s/%s: %v", governorate, district, err)
	}
	return stats
}

// SeedNotification creates a ledger row for a district
func SeedNotification(t *testing.T, db *gorm.DB, districtID uint, cumulative, threshold int64, status database.NotificationStatus, message string) *database.Notification {
	t.Helper()
	row := &database.Notification{
		DistrictID:         districtID,
		CumulativeNegative: cumulative,
		Threshold:          threshold,
		Status:             status,
	}
	if message != "" {
		row.AlertMessage = &message
	}
	if err := db.Create(row).Error; err != nil {
		t.Fatalf("failed to seed notification for district %d: %v", districtID, err)
	}
	return row
}

// ReviewRow is one line of a review CSV fixture
type ReviewRow struct {
	Review      string
	Governorate string
	District    string
	Stars       int
}

// WriteReviewCSV writes a review CSV fixture into a temp dir and returns
// its path
func WriteReviewCSV(t *testing.T, rows []ReviewRow) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "reviews.csv")

	content := "review,governorate,district,stars\n"
	for _, row := range rows {
		content += fmt.Sprintf("%s,%s,%s,%d\n", row.Review, row.Governorate, row.District, row.Stars)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write review CSV fixture: %v", err)
	}
	return path
}

// ClassifiedReview builds a review record as it looks after the classify
// stage
func ClassifiedReview(governorate, district string, label database.SentimentLabel) ingest.Review {
	return ingest.Review{
		Governorate: governorate,
		District:    district,
		Text:        "نص المراجعة",
		CleanText:   "نص المراجعة",
		Sentiment:   label,
	}
}

// MockNotifier records sent alerts and can be configured to fail for
// specific districts
type MockNotifier struct {
	mu      sync.Mutex
	Sent    []notify.Alert
	FailFor map[uint]error
}

// NewMockNotifier creates a mock notifier
func NewMockNotifier() *MockNotifier {
	return &MockNotifier{FailFor: make(map[uint]error)}
}

// Send records the alert, or returns the configured error for its district
func (m *MockNotifier) Send(_ context.Context, alert notify.Alert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.FailFor[alert.DistrictID]; ok {
		return err
	}
	m.Sent = append(m.Sent, alert)
	return nil
}

// SentCount returns how many alerts were delivered
func (m *MockNotifier) SentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Sent)
}
