package billing

import "errors"

var (
	// ErrNotEligible wraps the concrete eligibility failure for a debtor.
	ErrNotEligible = errors.New("debtor not eligible for billing")

	ErrValidationNotPassed  = errors.New("field validation not passed")
	ErrVerificationGate     = errors.New("verification not completed for upload")
	ErrVerificationFailed   = errors.New("bank identity verification failed")
	ErrAmountBelowMinimum   = errors.New("amount below configured minimum")
	ErrAttemptAlreadyOpen   = errors.New("an attempt is already pending or approved")
	ErrAccountBlacklisted   = errors.New("bank account or routing code is blacklisted")
	ErrRetryNotAllowed      = errors.New("retries are only allowed from declined or error attempts")
	ErrRunInProgress        = errors.New("billing run already in progress for this upload")
	ErrUnknownGatewayStatus = errors.New("unknown gateway status")
)
