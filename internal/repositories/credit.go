package repositories

import (
	"errors"
	"time"

	"recoup/internal/models"

	"gorm.io/gorm"
)

var ErrInsufficientCredits = errors.New("insufficient verification credits")

type CreditRepository interface {
	// Consume decrements n credits from the earliest-expiring balance that
	// still has room. The decrement is a single conditional UPDATE, so it
	// fails closed under concurrent consumers and never goes negative.
	Consume(n int64) error
	AddBalance(total int64, expiresAt *time.Time) (*models.CreditBalance, error)
	Remaining() (int64, error)
}

type creditRepository struct {
	db *gorm.DB
}

func NewCreditRepository(db *gorm.DB) CreditRepository {
	return &creditRepository{db: db}
}

func (r *creditRepository) Consume(n int64) error {
	if n <= 0 {
		return nil
	}
	res := r.db.Exec(`
		UPDATE credit_balances
		SET used = used + ?, updated_at = NOW()
		WHERE id = (
			SELECT id FROM credit_balances
			WHERE used + ? <= total
			  AND (expires_at IS NULL OR expires_at > NOW())
			ORDER BY expires_at ASC NULLS LAST
			LIMIT 1
		)
		AND used + ? <= total`, n, n, n)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrInsufficientCredits
	}
	return nil
}

func (r *creditRepository) AddBalance(total int64, expiresAt *time.Time) (*models.CreditBalance, error) {
	balance := &models.CreditBalance{Total: total, ExpiresAt: expiresAt}
	if err := r.db.Create(balance).Error; err != nil {
		return nil, err
	}
	return balance, nil
}

func (r *creditRepository) Remaining() (int64, error) {
	var remaining int64
	err := r.db.Model(&models.CreditBalance{}).
		Where("expires_at IS NULL OR expires_at > NOW()").
		Select("COALESCE(SUM(total - used), 0)").
		Scan(&remaining).Error
	return remaining, err
}
