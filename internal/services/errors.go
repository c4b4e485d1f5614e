package services

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyBatch is returned by the aggregator when a batch contains no
	// records; an empty batch must never reach persistence.
	ErrEmptyBatch = errors.New("batch contains no records")

	// ErrUnknownDistrict is returned by the ledger when asked to apply a
	// delta for a district that has no stats row yet.
	ErrUnknownDistrict = errors.New("district not found in stats store")

	// ErrInvalidThreshold is returned for a non-positive alert threshold.
	// This is a configuration error and aborts the whole run.
	ErrInvalidThreshold = errors.New("alert threshold must be positive")
)

// Stage identifies the pipeline stage at which a per-district failure occurred
type Stage string

const (
	StageStats  Stage = "stats"
	StageReview Stage = "reviews"
	StageLedger Stage = "ledger"
)

// DistrictError carries the district identity and stage of a store failure
// so the caller can selectively re-run just the affected districts.
type DistrictError struct {
	Governorate string
	District    string
	Stage       Stage
	Err         error
}

func (e *DistrictError) Error() string {
	return fmt.Sprintf("district %q/%q failed at %s stage: %v", e.Governorate, e.District, e.Stage, e.Err)
}

func (e *DistrictError) Unwrap() error {
	return e.Err
}
