package models

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Billing cadence models for a bank account profile.
const (
	CadenceImmediate  = "immediate"
	CadenceQuarterly  = "quarterly"
	CadenceSemiannual = "semiannual"
)

// BankAccountProfile is the account-level billing identity. It is keyed by
// a one-way hash of the normalized account number, never the raw number,
// so the same account cannot belong to two cadences at once.
type BankAccountProfile struct {
	ID          uint   `gorm:"primarykey"`
	AccountHash string `gorm:"uniqueIndex;not null"`
	RoutingCode string `gorm:"index"`

	CadenceModel string `gorm:"default:'immediate'"`
	Active       bool   `gorm:"default:true"`

	NextBillAt            *time.Time
	LastSuccessAt         *time.Time
	LifetimeChargedAmount float64 `gorm:"default:0"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// HashAccountNumber derives the profile key from a bank account number.
// The input is normalized (uppercased, spaces stripped) before hashing.
func HashAccountNumber(account string) string {
	normalized := strings.ToUpper(strings.ReplaceAll(account, " ", ""))
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

// UnderCap reports whether another charge of amount fits under cap.
func (p *BankAccountProfile) UnderCap(amount, cap float64) bool {
	return p.LifetimeChargedAmount+amount <= cap
}

// DueAt reports whether the profile is due for billing at the given time.
func (p *BankAccountProfile) DueAt(now time.Time) bool {
	return p.NextBillAt == nil || !p.NextBillAt.After(now)
}
