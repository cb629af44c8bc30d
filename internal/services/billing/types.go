package billing

import "time"

// Config tunes dispatching.
type Config struct {
	MinimumAmount float64
	Currency      string
	Descriptor    string
	LifetimeCap   float64
	LockTTL       time.Duration
}

// VerificationGate answers whether billing may start for an upload. The
// verification service implements it; billing must not race ahead of
// pending identity checks.
type VerificationGate interface {
	UploadGateSatisfied(uploadID uint) (bool, error)
}

// RunSummary aggregates an upload-level billing run. Per-debtor failures
// are isolated and counted, never escalated to a run failure.
type RunSummary struct {
	Total    int
	Approved int
	Pending  int
	Declined int
	Errored  int
	Skipped  int
}
