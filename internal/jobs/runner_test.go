package jobs

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/reviewpulse/reviewpulse/internal/classify"
	"github.com/reviewpulse/reviewpulse/internal/config"
	"github.com/reviewpulse/reviewpulse/internal/notify"
	"github.com/reviewpulse/reviewpulse/internal/pipeline"
	"github.com/reviewpulse/reviewpulse/internal/services"
	"github.com/reviewpulse/reviewpulse/internal/testhelpers"
)

func newTestRunner(t *testing.T) (*Runner, *testhelpers.MockNotifier) {
	t.Helper()
	rows := []testhelpers.ReviewRow{
		{Review: "منتج سيء", Governorate: "Cairo", District: "Maadi", Stars: 1},
		{Review: "توصيل بطيء", Governorate: "Cairo", District: "Maadi", Stars: 1},
		{Review: "منتج ممتاز", Governorate: "Giza", District: "Dokki", Stars: 5},
	}
	path := testhelpers.WriteReviewCSV(t, rows)

	db := testhelpers.NewTestDB(t)
	notifier := testhelpers.NewMockNotifier()
	cfg := &config.Config{
		AlertThreshold: 20,
		Batch:          config.BatchConfig{File: path, Size: 2},
	}
	pipe, err := pipeline.New(db, cfg, classify.NewLexiconClassifier(nil, nil), notifier)
	if err != nil {
		t.Fatalf("failed to create pipeline: %v", err)
	}
	return NewRunner(db, pipe, notifier), notifier
}

func TestRunner_RunNext_AdvancesBatchCursor(t *testing.T) {
	runner, _ := newTestRunner(t)
	ctx := context.Background()

	first, err := runner.RunNext(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.BatchNumber != 1 {
		t.Fatalf("expected batch 1, got %d", first.BatchNumber)
	}

	second, err := runner.RunNext(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second.BatchNumber != 2 {
		t.Fatalf("expected batch 2, got %d", second.BatchNumber)
	}

	// The 3-row file is exhausted after two 2-row batches.
	_, err = runner.RunNext(ctx)
	if !errors.Is(err, services.ErrEmptyBatch) {
		t.Fatalf("expected ErrEmptyBatch at end of data, got %v", err)
	}

	// Still exhausted on the next tick; the cursor does not advance past
	// an empty batch.
	_, err = runner.RunNext(ctx)
	if !errors.Is(err, services.ErrEmptyBatch) {
		t.Fatalf("expected ErrEmptyBatch again, got %v", err)
	}
}

func TestRunner_Start_StopsOnChannelClose(t *testing.T) {
	runner, _ := newTestRunner(t)

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		runner.Start(time.Hour, stop)
		close(done)
	}()

	close(stop)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("runner did not stop after stop channel closed")
	}
}

func TestRunner_NotifyFailureUsesNotifier(t *testing.T) {
	runner, notifier := newTestRunner(t)

	report := &pipeline.Report{BatchKey: "reviews.csv#3"}
	runner.notifyFailure(context.Background(), report, errors.New("store unreachable"))

	if notifier.SentCount() != 1 {
		t.Fatalf("expected 1 failure notification, got %d", notifier.SentCount())
	}
	msg := notifier.Sent[0].Message
	if !strings.Contains(msg, "reviews.csv#3") {
		t.Errorf("expected message to name the batch key, got %q", msg)
	}
}

var _ notify.Notifier = (*testhelpers.MockNotifier)(nil)
