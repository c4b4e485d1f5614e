package services

import (
	"errors"

	"gorm.io/gorm"

	"github.com/reviewpulse/reviewpulse/internal/database"
)

// StatsService owns the district stats table: get-or-create of district
// identities and additive accumulation of per-batch sentiment counts.
type StatsService struct {
	db *gorm.DB
}

// NewStatsService creates a new stats service
func NewStatsService(db *gorm.DB) *StatsService {
	return &StatsService{db: db}
}

// UpsertStats adds a batch's contribution to a district's cumulative tally,
// creating the row (and assigning its district_id) on first sight. The
// whole read-or-create plus increment runs in one transaction.
func (s *StatsService) UpsertStats(governorate, district string, delta SentimentCounts) (uint, error) {
	var districtID uint
	err := s.db.Transaction(func(tx *gorm.DB) error {
		id, err := s.UpsertStatsTx(tx, governorate, district, delta)
		if err != nil {
			return err
		}
		districtID = id
		return nil
	})
	return districtID, err
}

// UpsertStatsTx is UpsertStats inside an existing transaction, for callers
// that commit stats, reviews and ledger updates as one per-district unit.
func (s *StatsService) UpsertStatsTx(tx *gorm.DB, governorate, district string, delta SentimentCounts) (uint, error) {
	stats, err := getOrCreateStats(tx, governorate, district)
	if err != nil {
		return 0, err
	}

	// Increment via SQL expressions so two concurrent runs touching the
	// same district cannot lose each other's deltas.
	err = tx.Model(&database.DistrictStats{}).
		Where("district_id = ?", stats.DistrictID).
		Updates(map[string]interface{}{
			"total_reviews": gorm.Expr("total_reviews + ?", delta.Total),
			"num_positive":  gorm.Expr("num_positive + ?", delta.Positive),
			"num_negative":  gorm.Expr("num_negative + ?", delta.Negative),
			"num_neutral":   gorm.Expr("num_neutral + ?", delta.Neutral),
		}).Error
	if err != nil {
		return 0, err
	}
	return stats.DistrictID, nil
}

// GetStats returns a district's stats row by identity, or
// ErrUnknownDistrict when it has never been observed.
func (s *StatsService) GetStats(governorate, district string) (*database.DistrictStats, error) {
	var stats database.DistrictStats
	err := s.db.Where("governorate = ? AND district = ?", governorate, district).First(&stats).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUnknownDistrict
	}
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

// getOrCreateStats resolves the stats row for a district identity. The
// unique index on (governorate, district) backstops the create race: on a
// conflict the losing side re-reads the winner's row, so a district_id is
// assigned exactly once and never reassigned.
func getOrCreateStats(tx *gorm.DB, governorate, district string) (*database.DistrictStats, error) {
	var stats database.DistrictStats
	err := tx.Where("governorate = ? AND district = ?", governorate, district).First(&stats).Error
	if err == nil {
		return &stats, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	stats = database.DistrictStats{Governorate: governorate, District: district}
	if createErr := tx.Create(&stats).Error; createErr != nil {
		if ferr := tx.Where("governorate = ? AND district = ?", governorate, district).First(&stats).Error; ferr == nil {
			return &stats, nil
		}
		return nil, createErr
	}
	return &stats, nil
}
