package database

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BatchRunStatus tracks the lifecycle of one pipeline run over one batch
type BatchRunStatus string

const (
	BatchRunRunning   BatchRunStatus = "running"
	BatchRunCompleted BatchRunStatus = "completed"
	BatchRunFailed    BatchRunStatus = "failed"
)

// BatchRun records one attempt to process a batch. BatchKey is the
// caller-supplied idempotency key (source file + batch number); a completed
// run with the same key makes a replay a no-op, so a naive retry can never
// double-add deltas that were already committed.
type BatchRun struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	UUID         string         `gorm:"type:varchar(36);uniqueIndex;not null" json:"uuid"`
	BatchKey     string         `gorm:"type:varchar(255);uniqueIndex;not null" json:"batch_key"`
	BatchNumber  int            `gorm:"not null" json:"batch_number"`
	Status       BatchRunStatus `gorm:"type:varchar(16);not null" json:"status"`
	RecordsRead  int            `json:"records_read"`
	RecordsClean int            `json:"records_clean"`
	Updated      int            `json:"updated"`
	Transitioned int            `json:"transitioned"`
	Failed       int            `json:"failed"`
	StartedAt    time.Time      `gorm:"not null" json:"started_at"`
	FinishedAt   *time.Time     `json:"finished_at"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

func (BatchRun) TableName() string {
	return "batch_runs"
}

// BatchRunDistrict marks a district whose deltas a run has committed.
// A retried run skips districts already marked for its batch key.
type BatchRunDistrict struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	BatchRunID uint      `gorm:"not null;uniqueIndex:idx_run_district" json:"batch_run_id"`
	DistrictID uint      `gorm:"not null;uniqueIndex:idx_run_district" json:"district_id"`
	CreatedAt  time.Time `json:"created_at"`
}

func (BatchRunDistrict) TableName() string {
	return "batch_run_districts"
}

// FindBatchRun returns the run for a batch key, or nil if none exists
func FindBatchRun(db *gorm.DB, batchKey string) (*BatchRun, error) {
	var run BatchRun
	err := db.Where("batch_key = ?", batchKey).First(&run).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// StartBatchRun creates a running record for a batch key, or returns the
// existing one so a retry can resume where the previous attempt stopped.
func StartBatchRun(db *gorm.DB, batchKey string, batchNumber int) (*BatchRun, error) {
	existing, err := FindBatchRun(db, batchKey)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	run := &BatchRun{
		UUID:        uuid.NewString(),
		BatchKey:    batchKey,
		BatchNumber: batchNumber,
		Status:      BatchRunRunning,
		StartedAt:   time.Now(),
	}
	if err := db.Create(run).Error; err != nil {
		// Lost the create race to a concurrent run; pick up its record.
		if other, ferr := FindBatchRun(db, batchKey); ferr == nil && other != nil {
			return other, nil
		}
		return nil, err
	}
	return run, nil
}

// MarkDistrictCommitted records that a run committed a district's deltas.
// Must be written in the same transaction as the deltas themselves.
func MarkDistrictCommitted(tx *gorm.DB, runID, districtID uint) error {
	return tx.Create(&BatchRunDistrict{BatchRunID: runID, DistrictID: districtID}).Error
}

// DistrictCommitted reports whether a run already committed a district
func DistrictCommitted(db *gorm.DB, runID, districtID uint) (bool, error) {
	var count int64
	err := db.Model(&BatchRunDistrict{}).
		Where("batch_run_id = ? AND district_id = ?", runID, districtID).
		Count(&count).Error
	return count > 0, err
}

// FinishBatchRun stores the final status and counters for a run
func FinishBatchRun(db *gorm.DB, run *BatchRun, status BatchRunStatus) error {
	now := time.Now()
	return db.Model(run).Updates(map[string]interface{}{
		"status":        status,
		"records_read":  run.RecordsRead,
		"records_clean": run.RecordsClean,
		"updated":       run.Updated,
		"transitioned":  run.Transitioned,
		"failed":        run.Failed,
		"finished_at":   now,
	}).Error
}

// MaxCompletedBatchNumber returns the highest batch number with a completed
// run, or 0 when no batch has completed yet.
func MaxCompletedBatchNumber(db *gorm.DB) (int, error) {
	var max *int
	err := db.Model(&BatchRun{}).
		Where("status = ?", BatchRunCompleted).
		Select("MAX(batch_number)").
		Scan(&max).Error
	if err != nil {
		return 0, err
	}
	if max == nil {
		return 0, nil
	}
	return *max, nil
}
