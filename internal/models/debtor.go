package models

import "time"

// Debtor collection statuses.
const (
	DebtorStatusUploaded     = "uploaded"
	DebtorStatusPending      = "pending"
	DebtorStatusProcessing   = "processing"
	DebtorStatusRecovered    = "recovered"
	DebtorStatusFailed       = "failed"
	DebtorStatusChargebacked = "chargebacked"
)

// Field validation statuses.
const (
	ValidationStatusPending = "pending"
	ValidationStatusPassed  = "passed"
	ValidationStatusFailed  = "failed"
)

// Bank-identity verification (VOP) statuses.
const (
	VOPStatusPending        = "pending"
	VOPStatusVerified       = "verified"
	VOPStatusLikelyVerified = "likely_verified"
	VOPStatusInconclusive   = "inconclusive"
	VOPStatusMismatch       = "mismatch"
	VOPStatusRejected       = "rejected"
	VOPStatusError          = "error"
)

// debtorStatusRank orders the forward-only collection lifecycle.
var debtorStatusRank = map[string]int{
	DebtorStatusUploaded:     0,
	DebtorStatusPending:      1,
	DebtorStatusProcessing:   2,
	DebtorStatusRecovered:    3,
	DebtorStatusFailed:       3,
	DebtorStatusChargebacked: 4,
}

// Debtor is one person/account to collect from.
type Debtor struct {
	ID        uint  `gorm:"primarykey"`
	UploadID  uint  `gorm:"index;not null"`
	ProfileID *uint `gorm:"index"`

	FirstName string
	LastName  string
	Email     string
	Reference string

	IBAN     string `gorm:"not null"`
	BankCode string
	BIC      string
	Amount   float64 `gorm:"not null"`
	Currency string  `gorm:"default:'EUR'"`

	ValidationStatus string `gorm:"default:'pending'"`
	ValidationErrors JSON   `gorm:"type:jsonb"`
	IBANValid        bool   `gorm:"column:iban_valid;default:false"`
	VOPStatus        string `gorm:"column:vop_status;default:'pending'"`
	Status           string `gorm:"default:'uploaded'"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// FullName returns the debtor's display name.
func (d *Debtor) FullName() string {
	if d.FirstName == "" {
		return d.LastName
	}
	return d.FirstName + " " + d.LastName
}

// CanTransitionTo reports whether the collection status may move to next.
// Transitions only go forward, with one exception: a recovered debtor may
// be reversed to chargebacked.
func (d *Debtor) CanTransitionTo(next string) bool {
	cur, ok := debtorStatusRank[d.Status]
	if !ok {
		return false
	}
	nxt, ok := debtorStatusRank[next]
	if !ok {
		return false
	}
	if next == DebtorStatusChargebacked {
		return d.Status == DebtorStatusRecovered || d.Status == DebtorStatusProcessing
	}
	if d.Status == DebtorStatusRecovered || d.Status == DebtorStatusFailed || d.Status == DebtorStatusChargebacked {
		return false
	}
	return nxt > cur
}

// VerificationSettled reports whether verification finished for this
// debtor, successfully or not. The billing gate counts settled debtors.
func (d *Debtor) VerificationSettled() bool {
	return d.VOPStatus != VOPStatusPending
}

// VerificationPassed reports whether the debtor cleared the identity gate.
func (d *Debtor) VerificationPassed() bool {
	return d.VOPStatus == VOPStatusVerified || d.VOPStatus == VOPStatusLikelyVerified
}
