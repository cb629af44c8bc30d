package repositories

import (
	"errors"

	"recoup/internal/models"

	"gorm.io/gorm"
)

var ErrUploadNotFound = errors.New("upload not found")

type UploadRepository interface {
	Create(upload *models.Upload) error
	GetByID(id uint) (*models.Upload, error)
	Update(upload *models.Upload) error
	SetStageStatus(uploadID uint, stage, status, jobID string) error
	SoftDeleteIfNoAttempts(uploadID uint) (bool, error)
}

type uploadRepository struct {
	db *gorm.DB
}

func NewUploadRepository(db *gorm.DB) UploadRepository {
	return &uploadRepository{db: db}
}

func (r *uploadRepository) Create(upload *models.Upload) error {
	return r.db.Create(upload).Error
}

func (r *uploadRepository) GetByID(id uint) (*models.Upload, error) {
	var upload models.Upload
	if err := r.db.First(&upload, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUploadNotFound
		}
		return nil, err
	}
	return &upload, nil
}

func (r *uploadRepository) Update(upload *models.Upload) error {
	return r.db.Save(upload).Error
}

func (r *uploadRepository) SetStageStatus(uploadID uint, stage, status, jobID string) error {
	upload, err := r.GetByID(uploadID)
	if err != nil {
		return err
	}
	upload.SetStageStatus(stage, status, jobID)
	return r.db.Save(upload).Error
}

// SoftDeleteIfNoAttempts soft-deletes the upload when none of its debtors
// carry a billing attempt. Returns whether a delete happened.
func (r *uploadRepository) SoftDeleteIfNoAttempts(uploadID uint) (bool, error) {
	var count int64
	err := r.db.Model(&models.BillingAttempt{}).
		Joins("JOIN debtors ON debtors.id = billing_attempts.debtor_id").
		Where("debtors.upload_id = ?", uploadID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}
	return true, r.db.Delete(&models.Upload{}, uploadID).Error
}
