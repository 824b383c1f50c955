package repository

import (
	"time"

	"github.com/ctlabs-oss/authcore/internal/domain"
	"gorm.io/gorm"
)

type RefreshTokenRepository interface {
	Create(token *domain.RefreshToken) error
	// FindByTokenID looks up one token row by its public identifier and
	// preloads the owning user with roles and permissions.
	FindByTokenID(tokenID string) (*domain.RefreshToken, error)
	FindByID(id uint) (*domain.RefreshToken, error)
	ListActiveByUserID(userID uint) ([]domain.RefreshToken, error)
	// DeleteByID removes a single session row.
	DeleteByID(id uint) error
	// RevokeAllForUser marks every unrevoked token of the user as revoked.
	RevokeAllForUser(userID uint) error
	// DeleteExpired removes rows whose expiry is in the past.
	DeleteExpired() (int64, error)
}

type gormRefreshTokenRepository struct {
	db *gorm.DB
}

func NewRefreshTokenRepository(db *gorm.DB) RefreshTokenRepository {
	return &gormRefreshTokenRepository{db: db}
}

func (r *gormRefreshTokenRepository) Create(token *domain.RefreshToken) error {
	return translate(r.db.Create(token).Error)
}

func (r *gormRefreshTokenRepository) FindByTokenID(tokenID string) (*domain.RefreshToken, error) {
	var token domain.RefreshToken
	err := r.db.Preload("User.Roles.Permissions").
		Where("token_id = ?", tokenID).First(&token).Error
	if err != nil {
		return nil, translate(err)
	}
	return &token, nil
}

func (r *gormRefreshTokenRepository) FindByID(id uint) (*domain.RefreshToken, error) {
	var token domain.RefreshToken
	err := r.db.First(&token, id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &token, nil
}

func (r *gormRefreshTokenRepository) ListActiveByUserID(userID uint) ([]domain.RefreshToken, error) {
	var tokens []domain.RefreshToken
	err := r.db.
		Where("user_id = ? AND revoked_at IS NULL AND expires_at > ?", userID, time.Now().UTC()).
		Order("created_at DESC").
		Find(&tokens).Error
	if err != nil {
		return nil, translate(err)
	}
	return tokens, nil
}

func (r *gormRefreshTokenRepository) DeleteByID(id uint) error {
	res := r.db.Delete(&domain.RefreshToken{}, id)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *gormRefreshTokenRepository) RevokeAllForUser(userID uint) error {
	now := time.Now().UTC()
	return translate(r.db.Model(&domain.RefreshToken{}).
		Where("user_id = ? AND revoked_at IS NULL", userID).
		Update("revoked_at", &now).Error)
}

func (r *gormRefreshTokenRepository) DeleteExpired() (int64, error) {
	res := r.db.Where("expires_at <= ?", time.Now().UTC()).Delete(&domain.RefreshToken{})
	return res.RowsAffected, translate(res.Error)
}
