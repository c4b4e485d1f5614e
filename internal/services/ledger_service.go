package services

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/reviewpulse/reviewpulse/internal/database"
)

// LedgerService owns the notification ledger: one row per district holding
// the cumulative negative count, the threshold copied at row creation, and
// the quiet/alerting status. Status is monotonic within the pipeline; only
// Acknowledge moves a row back to quiet.
type LedgerService struct {
	db        *gorm.DB
	threshold int64
}

// NewLedgerService creates a ledger service with the configured global
// threshold. A non-positive threshold is a configuration error.
func NewLedgerService(db *gorm.DB, threshold int64) (*LedgerService, error) {
	if threshold <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidThreshold, threshold)
	}
	return &LedgerService{db: db, threshold: threshold}, nil
}

// ApplyResult reports what the state machine did for one district. All
// outcomes are ordinary values; only infrastructure failures are errors.
type ApplyResult struct {
	Created      bool // ledger row created on first sight
	Transitioned bool // quiet -> alerting happened in this call
	Frozen       bool // row was already alerting, delta not applied
	Row          database.Notification
}

// Apply runs the state machine for one district in its own transaction
func (s *LedgerService) Apply(districtID uint, negativeDelta int64) (*ApplyResult, error) {
	var result *ApplyResult
	err := s.db.Transaction(func(tx *gorm.DB) error {
		r, err := s.ApplyTx(tx, districtID, negativeDelta)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	return result, err
}

// ApplyTx applies one batch's negative-review delta to a district's ledger
// row inside an existing transaction:
//
//   - no row yet: create it, alerting immediately if the initial count
//     already reaches the threshold
//   - quiet: accumulate; transition to alerting (rendering the message
//     exactly once) when the updated count reaches the threshold
//   - alerting: no-op, the count is frozen until acknowledged
//
// Both the increment and the flip are conditional updates guarded by
// status = quiet, so concurrent runs cannot lose a delta or transition the
// same row twice.
func (s *LedgerService) ApplyTx(tx *gorm.DB, districtID uint, negativeDelta int64) (*ApplyResult, error) {
	if s.threshold <= 0 {
		return nil, ErrInvalidThreshold
	}

	// The stats row must exist before the ledger row may reference it.
	var stats database.DistrictStats
	err := tx.First(&stats, districtID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: district_id %d", ErrUnknownDistrict, districtID)
	}
	if err != nil {
		return nil, err
	}

	var row database.Notification
	err = tx.Where("district_id = ?", districtID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return s.createRow(tx, &stats, negativeDelta)
	}
	if err != nil {
		return nil, err
	}

	if row.Status == database.StatusAlerting {
		return &ApplyResult{Frozen: true, Row: row}, nil
	}

	res := tx.Model(&database.Notification{}).
		Where("district_id = ? AND status = ?", districtID, database.StatusQuiet).
		Update("cumulative_negative", gorm.Expr("cumulative_negative + ?", negativeDelta))
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		// A concurrent run flipped the row to alerting between our read
		// and the update; treat the delta as frozen.
		if err := tx.Where("district_id = ?", districtID).First(&row).Error; err != nil {
			return nil, err
		}
		return &ApplyResult{Frozen: true, Row: row}, nil
	}

	if err := tx.Where("district_id = ?", districtID).First(&row).Error; err != nil {
		return nil, err
	}

	if row.Status == database.StatusQuiet && row.CumulativeNegative >= row.Threshold {
		return s.transition(tx, &stats, row)
	}
	return &ApplyResult{Row: row}, nil
}

// createRow inserts the ledger row on a district's first negative count
func (s *LedgerService) createRow(tx *gorm.DB, stats *database.DistrictStats, negativeDelta int64) (*ApplyResult, error) {
	row := database.Notification{
		DistrictID:         stats.DistrictID,
		CumulativeNegative: negativeDelta,
		Threshold:          s.threshold,
		Status:             database.StatusQuiet,
	}
	if negativeDelta >= s.threshold {
		msg := RenderAlertMessage(stats.District, stats.Governorate, negativeDelta)
		now := time.Now()
		row.Status = database.StatusAlerting
		row.AlertMessage = &msg
		row.AlertedAt = &now
	}
	if err := tx.Create(&row).Error; err != nil {
		return nil, err
	}
	return &ApplyResult{Created: true, Transitioned: row.Status == database.StatusAlerting, Row: row}, nil
}

// transition flips a quiet row to alerting and stores the rendered message.
// RowsAffected tells us whether this call performed the flip; losing the
// race to another run means the transition (and its outbound alert) belongs
// to that run, keeping it at-most-once.
func (s *LedgerService) transition(tx *gorm.DB, stats *database.DistrictStats, row database.Notification) (*ApplyResult, error) {
	msg := RenderAlertMessage(stats.District, stats.Governorate, row.CumulativeNegative)
	now := time.Now()

	res := tx.Model(&database.Notification{}).
		Where("district_id = ? AND status = ?", row.DistrictID, database.StatusQuiet).
		Updates(map[string]interface{}{
			"status":        database.StatusAlerting,
			"alert_message": msg,
			"alerted_at":    now,
		})
	if res.Error != nil {
		return nil, res.Error
	}

	if err := tx.Where("district_id = ?", row.DistrictID).First(&row).Error; err != nil {
		return nil, err
	}
	return &ApplyResult{Transitioned: res.RowsAffected == 1, Row: row}, nil
}

// RenderAlertMessage renders the outbound alert text. The template is
// deterministic so the stored message can be reproduced byte-for-byte from
// the row's fields.
func RenderAlertMessage(district, governorate string, negatives int64) string {
	return fmt.Sprintf("Alert: District '%s' in %s has %d negative reviews.", district, governorate, negatives)
}

// PendingAlert is one ledger row ready for delivery
type PendingAlert struct {
	DistrictID uint
	Message    string
}

// PendingAlerts returns every district currently alerting with a rendered
// message, ordered by district_id ascending. Pure read: calling it twice
// with no intervening writes yields the identical list, which is what lets
// dispatch be retried independently of the decision step.
func (s *LedgerService) PendingAlerts() ([]PendingAlert, error) {
	var rows []database.Notification
	err := s.db.Where("status = ? AND alert_message IS NOT NULL", database.StatusAlerting).
		Order("district_id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	alerts := make([]PendingAlert, 0, len(rows))
	for _, row := range rows {
		alerts = append(alerts, PendingAlert{DistrictID: row.DistrictID, Message: *row.AlertMessage})
	}
	return alerts, nil
}

// Acknowledge resets an alerting district back to quiet, zeroing the
// cumulative count so accumulation starts over. This is the out-of-band
// operator action; pipeline runs never call it.
func (s *LedgerService) Acknowledge(districtID uint) error {
	now := time.Now()
	res := s.db.Model(&database.Notification{}).
		Where("district_id = ? AND status = ?", districtID, database.StatusAlerting).
		Updates(map[string]interface{}{
			"status":              database.StatusQuiet,
			"cumulative_negative": 0,
			"alert_message":       nil,
			"alerted_at":          nil,
			"acknowledged_at":     now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("district %d is not alerting", districtID)
	}
	return nil
}
