package models

import "time"

// Webhook event processing statuses. A duplicate delivery never becomes a
// row of its own; it bumps DuplicateCount on the first event instead.
const (
	WebhookStatusReceived   = "received"
	WebhookStatusQueued     = "queued"
	WebhookStatusProcessing = "processing"
	WebhookStatusCompleted  = "completed"
	WebhookStatusFailed     = "failed"
)

// WebhookEvent is one inbound gateway callback. The (provider, correlation
// id, event type) triple carries a unique index that is the authoritative
// dedup guard behind the redis fast path.
type WebhookEvent struct {
	ID            uint   `gorm:"primarykey"`
	Provider      string `gorm:"not null;uniqueIndex:idx_webhook_dedup"`
	CorrelationID string `gorm:"not null;uniqueIndex:idx_webhook_dedup"`
	EventType     string `gorm:"not null;uniqueIndex:idx_webhook_dedup"`

	Payload JSON   `gorm:"type:jsonb"`
	Status  string `gorm:"default:'received'"`
	// DuplicateCount records redeliveries of the same event.
	DuplicateCount int `gorm:"default:0"`
	RetryCount     int `gorm:"default:0"`
	ErrorMessage   string
	SourceIP       string

	ReceivedAt  time.Time
	ProcessedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// DedupKey builds the triple key shared by the cache and database guards.
func (e *WebhookEvent) DedupKey() string {
	return e.Provider + ":" + e.CorrelationID + ":" + e.EventType
}
