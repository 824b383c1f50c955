package repository

import (
	"time"

	"github.com/ctlabs-oss/authcore/internal/domain"
	"gorm.io/gorm"
)

type VerificationCodeRepository interface {
	Create(code *domain.VerificationCode) error
	// FindByUserTypeAndCode matches the exact code value scoped to one user
	// and purpose.
	FindByUserTypeAndCode(userID uint, codeType, code string) (*domain.VerificationCode, error)
	// DeleteByID removes one code row. Reports ErrNotFound when the row was
	// already consumed, which makes consumption a compare-and-delete.
	DeleteByID(id uint) error
	DeleteAllForUser(userID uint) error
	CountForUser(userID uint) (int64, error)
	// DeleteExpired removes rows whose expiry is in the past.
	DeleteExpired() (int64, error)
}

type gormVerificationCodeRepository struct {
	db *gorm.DB
}

func NewVerificationCodeRepository(db *gorm.DB) VerificationCodeRepository {
	return &gormVerificationCodeRepository{db: db}
}

func (r *gormVerificationCodeRepository) Create(code *domain.VerificationCode) error {
	return translate(r.db.Create(code).Error)
}

func (r *gormVerificationCodeRepository) FindByUserTypeAndCode(userID uint, codeType, code string) (*domain.VerificationCode, error) {
	var vc domain.VerificationCode
	err := r.db.
		Where("user_id = ? AND type = ? AND code = ?", userID, codeType, code).
		First(&vc).Error
	if err != nil {
		return nil, translate(err)
	}
	return &vc, nil
}

func (r *gormVerificationCodeRepository) DeleteByID(id uint) error {
	res := r.db.Delete(&domain.VerificationCode{}, id)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *gormVerificationCodeRepository) DeleteAllForUser(userID uint) error {
	return translate(r.db.Where("user_id = ?", userID).Delete(&domain.VerificationCode{}).Error)
}

func (r *gormVerificationCodeRepository) CountForUser(userID uint) (int64, error) {
	var n int64
	err := r.db.Model(&domain.VerificationCode{}).Where("user_id = ?", userID).Count(&n).Error
	return n, translate(err)
}

func (r *gormVerificationCodeRepository) DeleteExpired() (int64, error) {
	res := r.db.Where("expires_at <= ?", time.Now().UTC()).Delete(&domain.VerificationCode{})
	return res.RowsAffected, translate(res.Error)
}
