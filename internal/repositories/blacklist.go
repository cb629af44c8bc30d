package repositories

import (
	"recoup/internal/models"

	"gorm.io/gorm"
)

type BlacklistRepository interface {
	Create(entry *models.BlacklistEntry) error
	Delete(id uint) error
	List(limit, offset int) ([]models.BlacklistEntry, error)
	// IsBlocked checks the account hash exactly and the routing code both
	// exactly and by stored prefixes.
	IsBlocked(accountHash, routingCode string) (bool, error)
	ExistsForHash(accountHash string) (bool, error)
}

type blacklistRepository struct {
	db *gorm.DB
}

func NewBlacklistRepository(db *gorm.DB) BlacklistRepository {
	return &blacklistRepository{db: db}
}

func (r *blacklistRepository) Create(entry *models.BlacklistEntry) error {
	return r.db.Create(entry).Error
}

func (r *blacklistRepository) Delete(id uint) error {
	return r.db.Delete(&models.BlacklistEntry{}, id).Error
}

func (r *blacklistRepository) List(limit, offset int) ([]models.BlacklistEntry, error) {
	var entries []models.BlacklistEntry
	err := r.db.Order("id DESC").Limit(limit).Offset(offset).Find(&entries).Error
	return entries, err
}

func (r *blacklistRepository) IsBlocked(accountHash, routingCode string) (bool, error) {
	var count int64
	query := r.db.Model(&models.BlacklistEntry{}).
		Where("account_hash = ? AND account_hash <> ''", accountHash)
	if routingCode != "" {
		query = query.Or("match_type = ? AND routing_code = ?", models.RoutingMatchExact, routingCode).
			Or("match_type = ? AND routing_code <> '' AND ? LIKE routing_code || '%'",
				models.RoutingMatchPrefix, routingCode)
	}
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *blacklistRepository) ExistsForHash(accountHash string) (bool, error) {
	var count int64
	err := r.db.Model(&models.BlacklistEntry{}).
		Where("account_hash = ?", accountHash).Count(&count).Error
	return count > 0, err
}
