package jobs

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/reviewpulse/reviewpulse/internal/database"
	"github.com/reviewpulse/reviewpulse/internal/notify"
	"github.com/reviewpulse/reviewpulse/internal/pipeline"
	"github.com/reviewpulse/reviewpulse/internal/services"
)

// Runner drives the pipeline on a fixed interval, advancing the batch
// cursor past the highest completed batch each tick. Retries of failed or
// interrupted batches are idempotent through the batch-key records.
type Runner struct {
	db       *gorm.DB
	pipe     *pipeline.Pipeline
	notifier notify.Notifier
}

// NewRunner creates a pipeline runner
func NewRunner(db *gorm.DB, pipe *pipeline.Pipeline, notifier notify.Notifier) *Runner {
	return &Runner{db: db, pipe: pipe, notifier: notifier}
}

// RunNext processes the next unprocessed batch. Returns the report, or
// services.ErrEmptyBatch once the source file is exhausted.
func (r *Runner) RunNext(ctx context.Context) (*pipeline.Report, error) {
	last, err := database.MaxCompletedBatchNumber(r.db)
	if err != nil {
		return nil, fmt.Errorf("failed to determine next batch: %w", err)
	}
	return r.pipe.Run(ctx, last+1)
}

// Start begins periodic pipeline runs. Blocks until the stop channel
// closes.
func (r *Runner) Start(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Printf("Pipeline runner started (interval %s)", interval)
	for {
		select {
		case <-ticker.C:
			r.tick()
		case <-stop:
			log.Println("Pipeline runner stopped")
			return
		}
	}
}

func (r *Runner) tick() {
	ctx := context.Background()
	report, err := r.RunNext(ctx)
	if err == nil {
		return
	}
	if errors.Is(err, services.ErrEmptyBatch) {
		log.Printf("No new review data (batch %d empty), waiting for next interval", report.BatchNumber)
		return
	}

	log.Printf("Pipeline run failed: %v", err)
	r.notifyFailure(ctx, report, err)
}

// notifyFailure sends a run-failure notification through the same delivery
// channel as district alerts, so operators hear about broken runs too.
func (r *Runner) notifyFailure(ctx context.Context, report *pipeline.Report, runErr error) {
	if r.notifier == nil {
		return
	}
	batchKey := "unknown"
	if report != nil {
		batchKey = report.BatchKey
	}
	msg := fmt.Sprintf("Pipeline run failed for batch %s: %v", batchKey, runErr)
	if err := r.notifier.Send(ctx, notify.Alert{Message: msg}); err != nil {
		log.Printf("Failed to send pipeline failure notification: %v", err)
	}
}
