package repositories

import (
	"errors"
	"time"

	"recoup/internal/models"

	"gorm.io/gorm"
)

var (
	ErrProfileNotFound = errors.New("bank account profile not found")
	ErrCapExceeded     = errors.New("lifetime charge cap exceeded")
)

type ProfileRepository interface {
	GetByID(id uint) (*models.BankAccountProfile, error)
	GetByHash(accountHash string) (*models.BankAccountProfile, error)
	GetOrCreate(accountHash, routingCode string) (*models.BankAccountProfile, error)
	Update(profile *models.BankAccountProfile) error
	AddCharged(profileID uint, amount, cap float64, at time.Time) error
	DeductCharged(profileID uint, amount float64) error
	ListDue(now time.Time, limit int) ([]models.BankAccountProfile, error)
	SwitchCadence(profileID uint, cadence string) error
}

type profileRepository struct {
	db *gorm.DB
}

func NewProfileRepository(db *gorm.DB) ProfileRepository {
	return &profileRepository{db: db}
}

func (r *profileRepository) GetByID(id uint) (*models.BankAccountProfile, error) {
	var profile models.BankAccountProfile
	if err := r.db.First(&profile, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}
	return &profile, nil
}

func (r *profileRepository) GetByHash(accountHash string) (*models.BankAccountProfile, error) {
	var profile models.BankAccountProfile
	err := r.db.Where("account_hash = ?", accountHash).First(&profile).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}
	return &profile, nil
}

// GetOrCreate returns the profile for the hash, creating it lazily on the
// first association. A concurrent create loses the unique-index race and
// falls back to the winner's row.
func (r *profileRepository) GetOrCreate(accountHash, routingCode string) (*models.BankAccountProfile, error) {
	profile, err := r.GetByHash(accountHash)
	if err == nil {
		return profile, nil
	}
	if !errors.Is(err, ErrProfileNotFound) {
		return nil, err
	}

	profile = &models.BankAccountProfile{
		AccountHash:  accountHash,
		RoutingCode:  routingCode,
		CadenceModel: models.CadenceImmediate,
		Active:       true,
	}
	if createErr := r.db.Create(profile).Error; createErr != nil {
		if errors.Is(createErr, gorm.ErrDuplicatedKey) {
			return r.GetByHash(accountHash)
		}
		return nil, createErr
	}
	return profile, nil
}

func (r *profileRepository) Update(profile *models.BankAccountProfile) error {
	return r.db.Save(profile).Error
}

// AddCharged adds a successful charge to the lifetime total in a single
// conditional update so the cap holds under concurrent dispatches.
func (r *profileRepository) AddCharged(profileID uint, amount, cap float64, at time.Time) error {
	res := r.db.Model(&models.BankAccountProfile{}).
		Where("id = ? AND lifetime_charged_amount + ? <= ?", profileID, amount, cap).
		Updates(map[string]interface{}{
			"lifetime_charged_amount": gorm.Expr("lifetime_charged_amount + ?", amount),
			"last_success_at":         at,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrCapExceeded
	}
	return nil
}

// DeductCharged removes a chargebacked amount from the lifetime total,
// flooring at zero.
func (r *profileRepository) DeductCharged(profileID uint, amount float64) error {
	return r.db.Model(&models.BankAccountProfile{}).
		Where("id = ?", profileID).
		Update("lifetime_charged_amount",
			gorm.Expr("GREATEST(lifetime_charged_amount - ?, 0)", amount)).Error
}

func (r *profileRepository) ListDue(now time.Time, limit int) ([]models.BankAccountProfile, error) {
	var profiles []models.BankAccountProfile
	err := r.db.Where("active = ? AND (next_bill_at IS NULL OR next_bill_at <= ?)", true, now).
		Order("id").Limit(limit).Find(&profiles).Error
	return profiles, err
}

// SwitchCadence changes the cadence model and clears the schedule in one
// statement so the account is never on two cadences at once.
func (r *profileRepository) SwitchCadence(profileID uint, cadence string) error {
	res := r.db.Model(&models.BankAccountProfile{}).
		Where("id = ?", profileID).
		Updates(map[string]interface{}{
			"cadence_model": cadence,
			"next_bill_at":  nil,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrProfileNotFound
	}
	return nil
}
