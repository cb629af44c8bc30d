package repositories

import (
	"errors"

	"recoup/internal/models"

	"gorm.io/gorm"
)

var ErrOperatorNotFound = errors.New("operator not found")

type OperatorRepository interface {
	Create(operator *models.Operator) error
	GetByID(id uint) (*models.Operator, error)
	GetByEmail(email string) (*models.Operator, error)
	Update(operator *models.Operator) error
	IncrementTokenVersion(operatorID uint) error
}

type operatorRepository struct {
	db *gorm.DB
}

func NewOperatorRepository(db *gorm.DB) OperatorRepository {
	return &operatorRepository{db: db}
}

func (r *operatorRepository) Create(operator *models.Operator) error {
	return r.db.Create(operator).Error
}

func (r *operatorRepository) GetByID(id uint) (*models.Operator, error) {
	var operator models.Operator
	if err := r.db.First(&operator, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOperatorNotFound
		}
		return nil, err
	}
	return &operator, nil
}

func (r *operatorRepository) GetByEmail(email string) (*models.Operator, error) {
	var operator models.Operator
	err := r.db.Where("email = ?", email).First(&operator).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOperatorNotFound
		}
		return nil, err
	}
	return &operator, nil
}

func (r *operatorRepository) Update(operator *models.Operator) error {
	return r.db.Save(operator).Error
}

// IncrementTokenVersion invalidates all outstanding tokens for the operator.
func (r *operatorRepository) IncrementTokenVersion(operatorID uint) error {
	return r.db.Model(&models.Operator{}).
		Where("id = ?", operatorID).
		Update("token_version", gorm.Expr("token_version + 1")).Error
}
