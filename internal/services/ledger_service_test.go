package services

import (
	"errors"
	"testing"

	"gorm.io/gorm"

	"github.com/reviewpulse/reviewpulse/internal/database"
)

func seedDistrict(t *testing.T, db *gorm.DB, gov, district string) *database.DistrictStats {
	t.Helper()
	stats := &database.DistrictStats{Governorate: gov, District: district}
	if err := db.Create(stats).Error; err != nil {
		t.Fatalf("failed to seed district: %v", err)
	}
	return stats
}

func newLedger(t *testing.T, db *gorm.DB, threshold int64) *LedgerService {
	t.Helper()
	svc, err := NewLedgerService(db, threshold)
	if err != nil {
		t.Fatalf("failed to create ledger service: %v", err)
	}
	return svc
}

func TestNewLedgerService_RejectsNonPositiveThreshold(t *testing.T) {
	db := setupTestDB(t)
	for _, threshold := range []int64{0, -1, -20} {
		_, err := NewLedgerService(db, threshold)
		if !errors.Is(err, ErrInvalidThreshold) {
			t.Errorf("threshold %d: expected ErrInvalidThreshold, got %v", threshold, err)
		}
	}
}

func TestLedgerService_Apply_UnknownDistrict(t *testing.T) {
	db := setupTestDB(t)
	svc := newLedger(t, db, 20)

	_, err := svc.Apply(999, 5)
	if !errors.Is(err, ErrUnknownDistrict) {
		t.Fatalf("expected ErrUnknownDistrict, got %v", err)
	}
}

func TestLedgerService_Apply_CreatesQuietRow(t *testing.T) {
	db := setupTestDB(t)
	svc := newLedger(t, db, 20)
	stats := seedDistrict(t, db, "Cairo", "Maadi")

	res, err := svc.Apply(stats.DistrictID, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Created {
		t.Error("expected row to be created")
	}
	if res.Transitioned {
		t.Error("5 < 20 must not transition")
	}
	if res.Row.Status != database.StatusQuiet {
		t.Errorf("expected quiet, got %s", res.Row.Status)
	}
	if res.Row.CumulativeNegative != 5 {
		t.Errorf("expected cumulative 5, got %d", res.Row.CumulativeNegative)
	}
	if res.Row.Threshold != 20 {
		t.Errorf("expected threshold 20 copied onto the row, got %d", res.Row.Threshold)
	}
	if res.Row.AlertMessage != nil {
		t.Error("quiet row must not carry a message")
	}
}

func TestLedgerService_Apply_CreatesAlertingRowWhenInitialCountCrosses(t *testing.T) {
	db := setupTestDB(t)
	svc := newLedger(t, db, 20)
	stats := seedDistrict(t, db, "Cairo", "Nasr City")

	res, err := svc.Apply(stats.DistrictID, 25)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Created || !res.Transitioned {
		t.Errorf("expected created+transitioned, got %+v", res)
	}
	if res.Row.Status != database.StatusAlerting {
		t.Errorf("expected alerting, got %s", res.Row.Status)
	}
	want := "Alert: District 'Nasr City' in Cairo has 25 negative reviews."
	if res.Row.AlertMessage == nil || *res.Row.AlertMessage != want {
		t.Errorf("expected message %q, got %v", want, res.Row.AlertMessage)
	}
}

func TestLedgerService_Apply_ThresholdBoundaryTransitions(t *testing.T) {
	db := setupTestDB(t)
	svc := newLedger(t, db, 20)
	stats := seedDistrict(t, db, "Giza", "Dokki")

	if _, err := svc.Apply(stats.DistrictID, 15); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	res, err := svc.Apply(stats.DistrictID, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Transitioned {
		t.Fatal("15 + 5 = 20 >= 20 must transition")
	}
	if res.Row.CumulativeNegative != 20 {
		t.Errorf("expected cumulative 20, got %d", res.Row.CumulativeNegative)
	}
	want := "Alert: District 'Dokki' in Giza has 20 negative reviews."
	if res.Row.AlertMessage == nil || *res.Row.AlertMessage != want {
		t.Errorf("expected message %q, got %v", want, res.Row.AlertMessage)
	}
}

func TestLedgerService_Apply_ThresholdBoundaryStaysQuiet(t *testing.T) {
	db := setupTestDB(t)
	svc := newLedger(t, db, 20)
	stats := seedDistrict(t, db, "Giza", "Dokki")

	if _, err := svc.Apply(stats.DistrictID, 15); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	res, err := svc.Apply(stats.DistrictID, 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Transitioned {
		t.Fatal("15 + 4 = 19 < 20 must not transition")
	}
	if res.Row.Status != database.StatusQuiet {
		t.Errorf("expected quiet, got %s", res.Row.Status)
	}
	if res.Row.CumulativeNegative != 19 {
		t.Errorf("expected cumulative 19, got %d", res.Row.CumulativeNegative)
	}
	if res.Row.AlertMessage != nil {
		t.Error("no message may be rendered below the threshold")
	}
}

func TestLedgerService_Apply_FrozenWhileAlerting(t *testing.T) {
	db := setupTestDB(t)
	svc := newLedger(t, db, 20)
	stats := seedDistrict(t, db, "Cairo", "Maadi")

	if _, err := svc.Apply(stats.DistrictID, 25); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	res, err := svc.Apply(stats.DistrictID, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Frozen {
		t.Fatal("alerting row must freeze further deltas")
	}
	if res.Transitioned {
		t.Error("an already-alerting row must not transition again")
	}
	if res.Row.CumulativeNegative != 25 {
		t.Errorf("expected frozen cumulative 25, got %d", res.Row.CumulativeNegative)
	}
	want := "Alert: District 'Maadi' in Cairo has 25 negative reviews."
	if res.Row.AlertMessage == nil || *res.Row.AlertMessage != want {
		t.Errorf("message must not be re-rendered, got %v", res.Row.AlertMessage)
	}
}

func TestLedgerService_Apply_StatusMonotonicAcrossBatchSequence(t *testing.T) {
	db := setupTestDB(t)
	svc := newLedger(t, db, 20)
	stats := seedDistrict(t, db, "Cairo", "Maadi")

	transitions := 0
	for _, delta := range []int64{7, 7, 7, 7, 7} {
		res, err := svc.Apply(stats.DistrictID, delta)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.Transitioned {
			transitions++
		}
		if transitions > 0 && res.Row.Status != database.StatusAlerting {
			t.Fatal("status moved back to quiet without acknowledgement")
		}
	}
	if transitions != 1 {
		t.Fatalf("expected exactly one quiet->alerting transition, got %d", transitions)
	}
}

func TestLedgerService_Apply_InterleavedDeltasAreNotLost(t *testing.T) {
	db := setupTestDB(t)
	svc := newLedger(t, db, 20)
	stats := seedDistrict(t, db, "Cairo", "Maadi")

	if _, err := svc.Apply(stats.DistrictID, 10); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.Apply(stats.DistrictID, 3); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	res, err := svc.Apply(stats.DistrictID, 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Row.CumulativeNegative != 17 {
		t.Fatalf("expected cumulative 17, got %d", res.Row.CumulativeNegative)
	}
	if res.Row.Status != database.StatusQuiet {
		t.Fatalf("expected quiet at 17 < 20, got %s", res.Row.Status)
	}
}

func TestLedgerService_PendingAlerts_OrderedAndIdempotent(t *testing.T) {
	db := setupTestDB(t)
	svc := newLedger(t, db, 10)

	// Seed three districts, two of which cross the threshold.
	b := seedDistrict(t, db, "Giza", "Dokki")
	a := seedDistrict(t, db, "Cairo", "Maadi")
	c := seedDistrict(t, db, "Cairo", "Nasr City")

	if _, err := svc.Apply(a.DistrictID, 12); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.Apply(b.DistrictID, 15); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.Apply(c.DistrictID, 3); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	first, err := svc.PendingAlerts()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(first) != 2 {
		t.Fatalf("expected 2 pending alerts, got %d", len(first))
	}
	for i := 1; i < len(first); i++ {
		if first[i-1].DistrictID >= first[i].DistrictID {
			t.Fatal("pending alerts must be ordered by district_id ascending")
		}
	}

	second, err := svc.PendingAlerts()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(second) != len(first) {
		t.Fatal("repeated read without writes must return the identical set")
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("read %d differs: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestLedgerService_Acknowledge_ResetsAndResumesAccumulation(t *testing.T) {
	db := setupTestDB(t)
	svc := newLedger(t, db, 20)
	stats := seedDistrict(t, db, "Cairo", "Maadi")

	if _, err := svc.Apply(stats.DistrictID, 25); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := svc.Acknowledge(stats.DistrictID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	res, err := svc.Apply(stats.DistrictID, 6)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Row.Status != database.StatusQuiet {
		t.Errorf("expected quiet after acknowledgement, got %s", res.Row.Status)
	}
	if res.Row.CumulativeNegative != 6 {
		t.Errorf("expected accumulation to restart at 6, got %d", res.Row.CumulativeNegative)
	}

	pending, err := svc.PendingAlerts()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("acknowledged district must leave the pending set, got %d", len(pending))
	}
}

func TestLedgerService_Acknowledge_QuietDistrictFails(t *testing.T) {
	db := setupTestDB(t)
	svc := newLedger(t, db, 20)
	stats := seedDistrict(t, db, "Cairo", "Maadi")

	if _, err := svc.Apply(stats.DistrictID, 5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := svc.Acknowledge(stats.DistrictID); err == nil {
		t.Fatal("acknowledging a quiet district must fail")
	}
}
