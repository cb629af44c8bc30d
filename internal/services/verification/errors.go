package verification

import "errors"

var (
	ErrRunInProgress       = errors.New("verification run already in progress for this upload")
	ErrInsufficientCredits = errors.New("insufficient verification credits")
)
