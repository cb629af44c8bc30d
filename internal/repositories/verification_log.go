package repositories

import (
	"recoup/internal/models"

	"gorm.io/gorm"
)

type VerificationLogRepository interface {
	Create(entry *models.VerificationLog) error
	ListByDebtor(debtorID uint) ([]models.VerificationLog, error)
	ListByRun(runID string) ([]models.VerificationLog, error)
}

type verificationLogRepository struct {
	db *gorm.DB
}

func NewVerificationLogRepository(db *gorm.DB) VerificationLogRepository {
	return &verificationLogRepository{db: db}
}

func (r *verificationLogRepository) Create(entry *models.VerificationLog) error {
	return r.db.Create(entry).Error
}

func (r *verificationLogRepository) ListByDebtor(debtorID uint) ([]models.VerificationLog, error) {
	var logs []models.VerificationLog
	err := r.db.Where("debtor_id = ?", debtorID).Order("created_at DESC").Find(&logs).Error
	return logs, err
}

func (r *verificationLogRepository) ListByRun(runID string) ([]models.VerificationLog, error) {
	var logs []models.VerificationLog
	err := r.db.Where("run_id = ?", runID).Order("id").Find(&logs).Error
	return logs, err
}
