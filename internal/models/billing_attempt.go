package models

import "time"

// Billing attempt statuses.
const (
	AttemptStatusPending      = "pending"
	AttemptStatusApproved     = "approved"
	AttemptStatusDeclined     = "declined"
	AttemptStatusError        = "error"
	AttemptStatusVoided       = "voided"
	AttemptStatusChargebacked = "chargebacked"
)

// BillingAttempt is one payment try against a debtor. The external
// transaction id is generated before the gateway call so a timed-out
// submission can be resolved by re-querying instead of resubmitting.
type BillingAttempt struct {
	ID        uint  `gorm:"primarykey"`
	DebtorID  uint  `gorm:"index;not null"`
	ProfileID *uint `gorm:"index"`

	ExternalTransactionID string  `gorm:"uniqueIndex;not null"`
	CorrelationID         *string `gorm:"uniqueIndex"`
	Amount                float64 `gorm:"not null"`
	Currency              string  `gorm:"default:'EUR'"`
	Status                string  `gorm:"not null;default:'pending'"`
	AttemptNumber         int     `gorm:"not null;default:1"`

	RedirectURL     string
	ResponseCode    string
	ResponseMessage string

	ChargebackAt     *time.Time
	ChargebackReason string

	LastReconciledAt       *time.Time
	ReconciliationAttempts int `gorm:"default:0"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsOpen reports whether the attempt still blocks new dispatches for its
// debtor. At most one open attempt may exist per debtor.
func (a *BillingAttempt) IsOpen() bool {
	return a.Status == AttemptStatusPending || a.Status == AttemptStatusApproved
}

// IsRetryable reports whether a new attempt may be created after this one.
func (a *BillingAttempt) IsRetryable() bool {
	return a.Status == AttemptStatusDeclined || a.Status == AttemptStatusError
}

// IsSettled reports whether the attempt reached a state that webhook and
// reconciliation updates must never move it out of.
func (a *BillingAttempt) IsSettled() bool {
	switch a.Status {
	case AttemptStatusApproved, AttemptStatusVoided, AttemptStatusChargebacked:
		return true
	}
	return false
}

// CanTransitionTo reports whether an asynchronous outcome update may move
// the attempt to next. Only pending attempts are still undecided; a settled
// attempt accepts no further gateway-driven transitions except the
// chargeback reversal of an approval, which is owned by chargeback sync.
func (a *BillingAttempt) CanTransitionTo(next string) bool {
	if a.Status == next {
		return false
	}
	switch a.Status {
	case AttemptStatusPending:
		switch next {
		case AttemptStatusApproved, AttemptStatusDeclined, AttemptStatusError, AttemptStatusVoided:
			return true
		}
		return false
	case AttemptStatusApproved:
		return next == AttemptStatusChargebacked
	}
	return false
}
