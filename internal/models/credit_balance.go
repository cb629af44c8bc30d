package models

import "time"

// CreditBalance is one purchased block of identity-check credits.
// Consumption happens through an atomic conditional decrement in the
// repository; used can never exceed total.
type CreditBalance struct {
	ID        uint  `gorm:"primarykey"`
	Total     int64 `gorm:"not null"`
	Used      int64 `gorm:"not null;default:0"`
	ExpiresAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Remaining returns the unconsumed credit count.
func (b *CreditBalance) Remaining() int64 {
	return b.Total - b.Used
}

// ExpiredAt reports whether the balance is unusable at the given time.
func (b *CreditBalance) ExpiredAt(now time.Time) bool {
	return b.ExpiresAt != nil && !b.ExpiresAt.After(now)
}
