package repositories

import (
	"errors"
	"time"

	"recoup/internal/models"

	"gorm.io/gorm"
)

var ErrAttemptNotFound = errors.New("billing attempt not found")

type BillingAttemptRepository interface {
	Create(attempt *models.BillingAttempt) error
	Update(attempt *models.BillingAttempt) error
	GetByID(id uint) (*models.BillingAttempt, error)
	GetByCorrelationID(correlationID string) (*models.BillingAttempt, error)
	GetOpenByDebtor(debtorID uint) (*models.BillingAttempt, error)
	GetLatestByDebtor(debtorID uint) (*models.BillingAttempt, error)
	NextAttemptNumber(debtorID uint) (int, error)
	ListReconcilable(minAge time.Duration, maxAttempts, limit int) ([]models.BillingAttempt, error)
}

type billingAttemptRepository struct {
	db *gorm.DB
}

func NewBillingAttemptRepository(db *gorm.DB) BillingAttemptRepository {
	return &billingAttemptRepository{db: db}
}

func (r *billingAttemptRepository) Create(attempt *models.BillingAttempt) error {
	return r.db.Create(attempt).Error
}

func (r *billingAttemptRepository) Update(attempt *models.BillingAttempt) error {
	return r.db.Save(attempt).Error
}

func (r *billingAttemptRepository) GetByID(id uint) (*models.BillingAttempt, error) {
	var attempt models.BillingAttempt
	if err := r.db.First(&attempt, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAttemptNotFound
		}
		return nil, err
	}
	return &attempt, nil
}

func (r *billingAttemptRepository) GetByCorrelationID(correlationID string) (*models.BillingAttempt, error) {
	var attempt models.BillingAttempt
	err := r.db.Where("correlation_id = ?", correlationID).First(&attempt).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAttemptNotFound
		}
		return nil, err
	}
	return &attempt, nil
}

// GetOpenByDebtor returns the debtor's pending or approved attempt, or
// ErrAttemptNotFound when none is open.
func (r *billingAttemptRepository) GetOpenByDebtor(debtorID uint) (*models.BillingAttempt, error) {
	var attempt models.BillingAttempt
	err := r.db.Where("debtor_id = ? AND status IN ?", debtorID,
		[]string{models.AttemptStatusPending, models.AttemptStatusApproved}).
		First(&attempt).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAttemptNotFound
		}
		return nil, err
	}
	return &attempt, nil
}

// GetLatestByDebtor returns the debtor's most recent attempt.
func (r *billingAttemptRepository) GetLatestByDebtor(debtorID uint) (*models.BillingAttempt, error) {
	var attempt models.BillingAttempt
	err := r.db.Where("debtor_id = ?", debtorID).
		Order("attempt_number DESC").First(&attempt).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAttemptNotFound
		}
		return nil, err
	}
	return &attempt, nil
}

// NextAttemptNumber returns max(attempt_number)+1 for the debtor.
func (r *billingAttemptRepository) NextAttemptNumber(debtorID uint) (int, error) {
	var max int
	err := r.db.Model(&models.BillingAttempt{}).
		Where("debtor_id = ?", debtorID).
		Select("COALESCE(MAX(attempt_number), 0)").
		Scan(&max).Error
	if err != nil {
		return 0, err
	}
	return max + 1, nil
}

// ListReconcilable returns pending attempts with a correlation id, older
// than minAge, with a remaining reconciliation budget, oldest first.
func (r *billingAttemptRepository) ListReconcilable(minAge time.Duration, maxAttempts, limit int) ([]models.BillingAttempt, error) {
	var attempts []models.BillingAttempt
	cutoff := time.Now().Add(-minAge)
	err := r.db.Where(
		"status = ? AND correlation_id IS NOT NULL AND created_at < ? AND reconciliation_attempts < ?",
		models.AttemptStatusPending, cutoff, maxAttempts,
	).Order("created_at").Limit(limit).Find(&attempts).Error
	return attempts, err
}
