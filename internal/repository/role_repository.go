package repository

import (
	"github.com/ctlabs-oss/authcore/internal/domain"
	"gorm.io/gorm"
)

type RoleRepository interface {
	Create(role *domain.Role) error
	FindByName(name string) (*domain.Role, error)
	AddPermission(roleID, permissionID uint) error
	RemovePermission(roleID, permissionID uint) error
}

type gormRoleRepository struct {
	db *gorm.DB
}

func NewRoleRepository(db *gorm.DB) RoleRepository {
	return &gormRoleRepository{db: db}
}

func (r *gormRoleRepository) Create(role *domain.Role) error {
	return translate(r.db.Create(role).Error)
}

func (r *gormRoleRepository) FindByName(name string) (*domain.Role, error) {
	var role domain.Role
	err := r.db.Preload("Permissions").Where("name = ?", name).First(&role).Error
	if err != nil {
		return nil, translate(err)
	}
	return &role, nil
}

func (r *gormRoleRepository) AddPermission(roleID, permissionID uint) error {
	err := r.db.Model(&domain.Role{ID: roleID}).
		Association("Permissions").Append(&domain.Permission{ID: permissionID})
	return translate(err)
}

func (r *gormRoleRepository) RemovePermission(roleID, permissionID uint) error {
	err := r.db.Model(&domain.Role{ID: roleID}).
		Association("Permissions").Delete(&domain.Permission{ID: permissionID})
	return translate(err)
}
