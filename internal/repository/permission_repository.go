package repository

import (
	"github.com/ctlabs-oss/authcore/internal/domain"
	"gorm.io/gorm"
)

type PermissionRepository interface {
	Create(permission *domain.Permission) error
	FindBySlug(slug string) (*domain.Permission, error)
}

type gormPermissionRepository struct {
	db *gorm.DB
}

func NewPermissionRepository(db *gorm.DB) PermissionRepository {
	return &gormPermissionRepository{db: db}
}

func (r *gormPermissionRepository) Create(permission *domain.Permission) error {
	return translate(r.db.Create(permission).Error)
}

func (r *gormPermissionRepository) FindBySlug(slug string) (*domain.Permission, error) {
	var permission domain.Permission
	err := r.db.Where("slug = ?", slug).First(&permission).Error
	if err != nil {
		return nil, translate(err)
	}
	return &permission, nil
}
