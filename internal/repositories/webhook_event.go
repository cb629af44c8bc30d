package repositories

import (
	"errors"
	"time"

	"recoup/internal/models"

	"gorm.io/gorm"
)

var (
	ErrWebhookEventNotFound  = errors.New("webhook event not found")
	ErrDuplicateWebhookEvent = errors.New("duplicate webhook event")
)

type WebhookEventRepository interface {
	// Create persists the event; the unique (provider, correlation id,
	// event type) index makes it the authoritative dedup guard.
	Create(event *models.WebhookEvent) error
	GetByID(id uint) (*models.WebhookEvent, error)
	Update(event *models.WebhookEvent) error
	MarkCompleted(eventID uint, at time.Time) error
	MarkFailed(eventID uint, errMsg string) error
	// IncrementDuplicate bumps the duplicate counter on the event that won
	// the dedup race for the triple.
	IncrementDuplicate(provider, correlationID, eventType string) error
}

type webhookEventRepository struct {
	db *gorm.DB
}

func NewWebhookEventRepository(db *gorm.DB) WebhookEventRepository {
	return &webhookEventRepository{db: db}
}

func (r *webhookEventRepository) Create(event *models.WebhookEvent) error {
	if err := r.db.Create(event).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateWebhookEvent
		}
		return err
	}
	return nil
}

func (r *webhookEventRepository) GetByID(id uint) (*models.WebhookEvent, error) {
	var event models.WebhookEvent
	if err := r.db.First(&event, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWebhookEventNotFound
		}
		return nil, err
	}
	return &event, nil
}

func (r *webhookEventRepository) Update(event *models.WebhookEvent) error {
	return r.db.Save(event).Error
}

func (r *webhookEventRepository) MarkCompleted(eventID uint, at time.Time) error {
	return r.db.Model(&models.WebhookEvent{}).Where("id = ?", eventID).
		Updates(map[string]interface{}{
			"status":       models.WebhookStatusCompleted,
			"processed_at": at,
		}).Error
}

func (r *webhookEventRepository) IncrementDuplicate(provider, correlationID, eventType string) error {
	return r.db.Model(&models.WebhookEvent{}).
		Where("provider = ? AND correlation_id = ? AND event_type = ?",
			provider, correlationID, eventType).
		Update("duplicate_count", gorm.Expr("duplicate_count + 1")).Error
}

// MarkFailed records a truncated error message and bumps the retry count.
func (r *webhookEventRepository) MarkFailed(eventID uint, errMsg string) error {
	const maxErrLen = 500
	if len(errMsg) > maxErrLen {
		errMsg = errMsg[:maxErrLen]
	}
	return r.db.Model(&models.WebhookEvent{}).Where("id = ?", eventID).
		Updates(map[string]interface{}{
			"status":        models.WebhookStatusFailed,
			"error_message": errMsg,
			"retry_count":   gorm.Expr("retry_count + 1"),
		}).Error
}
