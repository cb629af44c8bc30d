package repositories

import (
	"errors"

	"recoup/internal/models"

	"gorm.io/gorm"
)

var ErrDuplicateChargeback = errors.New("chargeback event already imported")

type ChargebackEventRepository interface {
	// Create persists the event; the unique correlation id index keeps
	// re-imports of the same date range idempotent.
	Create(event *models.ChargebackEvent) error
	ExistsByCorrelationID(correlationID string) (bool, error)
	ListByDateRange(from, to string) ([]models.ChargebackEvent, error)
}

type chargebackEventRepository struct {
	db *gorm.DB
}

func NewChargebackEventRepository(db *gorm.DB) ChargebackEventRepository {
	return &chargebackEventRepository{db: db}
}

func (r *chargebackEventRepository) Create(event *models.ChargebackEvent) error {
	if err := r.db.Create(event).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateChargeback
		}
		return err
	}
	return nil
}

func (r *chargebackEventRepository) ExistsByCorrelationID(correlationID string) (bool, error) {
	var count int64
	err := r.db.Model(&models.ChargebackEvent{}).
		Where("correlation_id = ?", correlationID).Count(&count).Error
	return count > 0, err
}

func (r *chargebackEventRepository) ListByDateRange(from, to string) ([]models.ChargebackEvent, error) {
	var events []models.ChargebackEvent
	err := r.db.Where("occurred_at >= ? AND occurred_at < ?", from, to).
		Order("occurred_at").Find(&events).Error
	return events, err
}
