package webhookingest

import "errors"

var (
	// ErrDuplicate means the delivery lost the dedup claim; it is
	// discarded without side effects.
	ErrDuplicate = errors.New("duplicate webhook delivery")

	ErrInvalidToken   = errors.New("invalid webhook token")
	ErrInvalidDigest  = errors.New("invalid callback digest")
	ErrMalformedEvent = errors.New("malformed webhook payload")
	ErrUnknownAttempt = errors.New("no attempt matches the correlation id")
)
