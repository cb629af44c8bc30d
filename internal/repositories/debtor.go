package repositories

import (
	"errors"

	"recoup/internal/models"

	"gorm.io/gorm"
)

var (
	ErrDebtorNotFound    = errors.New("debtor not found")
	ErrInvalidTransition = errors.New("invalid debtor status transition")
)

type DebtorRepository interface {
	Create(debtor *models.Debtor) error
	GetByID(id uint) (*models.Debtor, error)
	Update(debtor *models.Debtor) error
	UpdateStatus(debtorID uint, next string) error
	ListByUpload(uploadID uint) ([]models.Debtor, error)
	ListForVerification(uploadID uint) ([]models.Debtor, error)
	ListBillable(uploadID uint) ([]models.Debtor, error)
	ListBillableByProfile(profileID uint) ([]models.Debtor, error)
	CountVerificationEligible(uploadID uint) (int64, error)
	CountVerificationSettled(uploadID uint) (int64, error)
	HasVerifiedDebtor(profileID uint) (bool, error)
}

type debtorRepository struct {
	db *gorm.DB
}

func NewDebtorRepository(db *gorm.DB) DebtorRepository {
	return &debtorRepository{db: db}
}

func (r *debtorRepository) Create(debtor *models.Debtor) error {
	return r.db.Create(debtor).Error
}

func (r *debtorRepository) GetByID(id uint) (*models.Debtor, error) {
	var debtor models.Debtor
	if err := r.db.First(&debtor, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDebtorNotFound
		}
		return nil, err
	}
	return &debtor, nil
}

func (r *debtorRepository) Update(debtor *models.Debtor) error {
	return r.db.Save(debtor).Error
}

// UpdateStatus applies a guarded collection-status transition.
func (r *debtorRepository) UpdateStatus(debtorID uint, next string) error {
	debtor, err := r.GetByID(debtorID)
	if err != nil {
		return err
	}
	if !debtor.CanTransitionTo(next) {
		return ErrInvalidTransition
	}
	return r.db.Model(debtor).Update("status", next).Error
}

func (r *debtorRepository) ListByUpload(uploadID uint) ([]models.Debtor, error) {
	var debtors []models.Debtor
	err := r.db.Where("upload_id = ?", uploadID).Order("id").Find(&debtors).Error
	return debtors, err
}

// ListForVerification returns debtors with a valid account format whose
// verification has not settled yet.
func (r *debtorRepository) ListForVerification(uploadID uint) ([]models.Debtor, error) {
	var debtors []models.Debtor
	err := r.db.Where("upload_id = ? AND iban_valid = ? AND vop_status = ?",
		uploadID, true, models.VOPStatusPending).Order("id").Find(&debtors).Error
	return debtors, err
}

// ListBillable returns debtors that passed validation and verification and
// are not yet in a terminal collection state.
func (r *debtorRepository) ListBillable(uploadID uint) ([]models.Debtor, error) {
	var debtors []models.Debtor
	err := r.db.Where(
		"upload_id = ? AND validation_status = ? AND vop_status IN ? AND status IN ?",
		uploadID, models.ValidationStatusPassed,
		[]string{models.VOPStatusVerified, models.VOPStatusLikelyVerified},
		[]string{models.DebtorStatusUploaded, models.DebtorStatusPending, models.DebtorStatusProcessing},
	).Order("id").Find(&debtors).Error
	return debtors, err
}

// ListBillableByProfile returns the profile's billable debtors, oldest
// first, for cadence-driven billing runs.
func (r *debtorRepository) ListBillableByProfile(profileID uint) ([]models.Debtor, error) {
	var debtors []models.Debtor
	err := r.db.Where(
		"profile_id = ? AND validation_status = ? AND vop_status IN ? AND status IN ?",
		profileID, models.ValidationStatusPassed,
		[]string{models.VOPStatusVerified, models.VOPStatusLikelyVerified},
		[]string{models.DebtorStatusUploaded, models.DebtorStatusPending, models.DebtorStatusProcessing},
	).Order("id").Find(&debtors).Error
	return debtors, err
}

func (r *debtorRepository) CountVerificationEligible(uploadID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.Debtor{}).
		Where("upload_id = ? AND iban_valid = ?", uploadID, true).
		Count(&count).Error
	return count, err
}

func (r *debtorRepository) CountVerificationSettled(uploadID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.Debtor{}).
		Where("upload_id = ? AND iban_valid = ? AND vop_status <> ?",
			uploadID, true, models.VOPStatusPending).
		Count(&count).Error
	return count, err
}

func (r *debtorRepository) HasVerifiedDebtor(profileID uint) (bool, error) {
	var count int64
	err := r.db.Model(&models.Debtor{}).
		Where("profile_id = ? AND validation_status = ? AND vop_status IN ?",
			profileID, models.ValidationStatusPassed,
			[]string{models.VOPStatusVerified, models.VOPStatusLikelyVerified}).
		Count(&count).Error
	return count > 0, err
}
