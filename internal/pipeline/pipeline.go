// Package pipeline orchestrates one batch run: extract, clean, classify,
// per-district load + ledger decision, then alert dispatch.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"

	"gorm.io/gorm"

	"github.com/reviewpulse/reviewpulse/internal/classify"
	"github.com/reviewpulse/reviewpulse/internal/config"
	"github.com/reviewpulse/reviewpulse/internal/database"
	"github.com/reviewpulse/reviewpulse/internal/ingest"
	"github.com/reviewpulse/reviewpulse/internal/notify"
	"github.com/reviewpulse/reviewpulse/internal/services"
	"github.com/reviewpulse/reviewpulse/internal/transform"
)

// Report is what one run hands back to the scheduler: per-batch counts
// instead of a single pass/fail flag, so failed districts can be re-run
// selectively.
type Report struct {
	BatchKey     string
	BatchNumber  int
	Skipped      bool // batch key already completed, nothing done
	RecordsRead  int
	RecordsClean int
	Updated      int // districts whose stats and ledger were committed
	Transitioned int // districts that flipped quiet -> alerting this run
	Failed       []*services.DistrictError
	Dispatch     *notify.DispatchResult
}

// Pipeline wires the batch stages over one database handle
type Pipeline struct {
	db         *gorm.DB
	cfg        *config.Config
	stats      *services.StatsService
	ledger     *services.LedgerService
	classifier classify.Classifier
	notifier   notify.Notifier
}

// New creates a pipeline. Fails when the configured threshold is invalid;
// a bad threshold must never be silently defaulted.
func New(db *gorm.DB, cfg *config.Config, classifier classify.Classifier, notifier notify.Notifier) (*Pipeline, error) {
	ledger, err := services.NewLedgerService(db, cfg.AlertThreshold)
	if err != nil {
		return nil, err
	}
	return &Pipeline{
		db:         db,
		cfg:        cfg,
		stats:      services.NewStatsService(db),
		ledger:     ledger,
		classifier: classifier,
		notifier:   notifier,
	}, nil
}

// Ledger exposes the ledger service for operator commands (acknowledge)
func (p *Pipeline) Ledger() *services.LedgerService {
	return p.ledger
}

// Run processes one numbered batch end to end. The batch key (file + batch
// number) makes replays idempotent: a completed key is a no-op, and a
// retried partial run skips districts it already committed.
func (p *Pipeline) Run(ctx context.Context, batchNumber int) (*Report, error) {
	batchKey := fmt.Sprintf("%s#%d", p.cfg.Batch.File, batchNumber)
	report := &Report{BatchKey: batchKey, BatchNumber: batchNumber}

	run, err := database.StartBatchRun(p.db, batchKey, batchNumber)
	if err != nil {
		return report, fmt.Errorf("failed to start batch run %s: %w", batchKey, err)
	}
	if run.Status == database.BatchRunCompleted {
		log.Printf("Batch %s already completed, skipping", batchKey)
		report.Skipped = true
		return report, nil
	}

	reviews, err := ingest.ExtractBatch(p.cfg.Batch.File, batchNumber, p.cfg.Batch.Size)
	if err != nil {
		return report, fmt.Errorf("extraction failed for batch %s: %w", batchKey, err)
	}
	report.RecordsRead = len(reviews)

	cleaned := transform.CleanBatch(reviews)
	report.RecordsClean = len(cleaned)

	classified, err := classify.ClassifyBatch(ctx, p.classifier, cleaned)
	if err != nil {
		return report, fmt.Errorf("classification failed for batch %s: %w", batchKey, err)
	}

	counts, err := services.AggregateBatch(classified)
	if err != nil {
		// Empty batches never reach persistence; the run record stays
		// non-completed so a refilled batch can be replayed later.
		return report, err
	}

	byDistrict := groupByDistrict(classified)

	for _, key := range services.SortedKeys(counts) {
		err := p.commitDistrict(run, key, counts[key], byDistrict[key])
		if err == nil {
			report.Updated++
			continue
		}
		if errors.Is(err, services.ErrInvalidThreshold) {
			return report, err
		}
		var derr *services.DistrictError
		if errors.As(err, &derr) {
			report.Failed = append(report.Failed, derr)
			log.Printf("Batch %s: %v", batchKey, derr)
			continue
		}
		return report, err
	}
	report.Transitioned = p.countTransitions(run)

	run.RecordsRead = report.RecordsRead
	run.RecordsClean = report.RecordsClean
	run.Updated = report.Updated
	run.Transitioned = report.Transitioned
	run.Failed = len(report.Failed)

	status := database.BatchRunCompleted
	if len(report.Failed) > 0 {
		// A failed status keeps the key retryable; committed districts
		// are skipped on the retry.
		status = database.BatchRunFailed
	}
	if err := database.FinishBatchRun(p.db, run, status); err != nil {
		return report, fmt.Errorf("failed to finish batch run %s: %w", batchKey, err)
	}

	alerts, err := p.ledger.PendingAlerts()
	if err != nil {
		return report, fmt.Errorf("failed to read pending alerts: %w", err)
	}
	report.Dispatch = notify.Dispatch(ctx, p.notifier, toAlerts(alerts))

	log.Printf("Batch %s: %d read, %d clean, %d districts updated, %d transitioned, %d failed, %d alerts sent",
		batchKey, report.RecordsRead, report.RecordsClean, report.Updated,
		report.Transitioned, len(report.Failed), report.Dispatch.Sent)
	return report, nil
}

// commitDistrict commits one district's stats delta, its reviews, and the
// ledger decision as a single transaction. No transaction spans districts,
// so one district's store failure leaves the others untouched.
func (p *Pipeline) commitDistrict(run *database.BatchRun, key services.DistrictKey, counts services.SentimentCounts, reviews []ingest.Review) error {
	// Retry of a partially-committed batch: districts marked committed
	// already have their deltas in, so re-applying would double-count.
	// The marker is written in the same transaction as the deltas.
	if stats, err := p.stats.GetStats(key.Governorate, key.District); err == nil {
		committed, cerr := database.DistrictCommitted(p.db, run.ID, stats.DistrictID)
		if cerr != nil {
			return &services.DistrictError{Governorate: key.Governorate, District: key.District, Stage: services.StageStats, Err: cerr}
		}
		if committed {
			log.Printf("District %s/%s already committed for run %s, skipping", key.Governorate, key.District, run.BatchKey)
			return nil
		}
	}

	stage := services.StageStats
	err := p.db.Transaction(func(tx *gorm.DB) error {
		districtID, err := p.stats.UpsertStatsTx(tx, key.Governorate, key.District, counts)
		if err != nil {
			return err
		}

		stage = services.StageReview
		if err := insertReviews(tx, districtID, reviews); err != nil {
			return err
		}

		stage = services.StageLedger
		if _, err := p.ledger.ApplyTx(tx, districtID, counts.Negative); err != nil {
			return err
		}

		return database.MarkDistrictCommitted(tx, run.ID, districtID)
	})
	if err != nil {
		if errors.Is(err, services.ErrInvalidThreshold) {
			return err
		}
		return &services.DistrictError{
			Governorate: key.Governorate,
			District:    key.District,
			Stage:       stage,
			Err:         err,
		}
	}
	return nil
}

// countTransitions counts districts this run flipped to alerting, by
// joining the run's committed districts against alerting ledger rows whose
// alert time falls inside the run window.
func (p *Pipeline) countTransitions(run *database.BatchRun) int {
	var count int64
	err := p.db.Model(&database.Notification{}).
		Joins("JOIN batch_run_districts brd ON brd.district_id = notifications.district_id AND brd.batch_run_id = ?", run.ID).
		Where("notifications.status = ? AND notifications.alerted_at >= ?", database.StatusAlerting, run.StartedAt).
		Count(&count).Error
	if err != nil {
		log.Printf("Failed to count transitions for run %s: %v", run.BatchKey, err)
		return 0
	}
	return int(count)
}

func insertReviews(tx *gorm.DB, districtID uint, reviews []ingest.Review) error {
	if len(reviews) == 0 {
		return nil
	}
	rows := make([]database.Review, 0, len(reviews))
	for _, rev := range reviews {
		rows = append(rows, database.Review{
			DistrictID: districtID,
			ReviewText: rev.Text,
			CleanText:  rev.CleanText,
			Sentiment:  rev.Sentiment,
			Stars:      rev.Stars,
		})
	}
	return tx.Create(&rows).Error
}

func groupByDistrict(reviews []ingest.Review) map[services.DistrictKey][]ingest.Review {
	grouped := make(map[services.DistrictKey][]ingest.Review)
	for _, rev := range reviews {
		key := services.DistrictKey{Governorate: rev.Governorate, District: rev.District}
		grouped[key] = append(grouped[key], rev)
	}
	return grouped
}

func toAlerts(pending []services.PendingAlert) []notify.Alert {
	alerts := make([]notify.Alert, 0, len(pending))
	for _, p := range pending {
		alerts = append(alerts, notify.Alert{DistrictID: p.DistrictID, Message: p.Message})
	}
	return alerts
}
