package chargeback

import "errors"

var (
	ErrSyncInProgress = errors.New("chargeback sync already running")
	ErrInvalidRange   = errors.New("invalid chargeback date range")
)
