package models

import "time"

// ChargebackEvent is one externally reported chargeback. The correlation id
// of the original transaction keys it uniquely, which makes a re-run of the
// same import date range a no-op.
type ChargebackEvent struct {
	ID            uint   `gorm:"primarykey"`
	CorrelationID string `gorm:"uniqueIndex;not null"`
	AttemptID     *uint  `gorm:"index"`

	ReasonCode string
	ReasonText string
	Amount     float64
	Currency   string `gorm:"default:'EUR'"`

	OccurredAt time.Time
	ImportedAt time.Time
	CreatedAt  time.Time
}
