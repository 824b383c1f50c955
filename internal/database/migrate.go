package database

import (
	"gorm.io/gorm"

	"github.com/ctlabs-oss/authcore/internal/domain"
)

// Migrate applies the schema for every persisted model. Join tables are
// listed explicitly so their composite primary keys are created.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.User{},
		&domain.Profile{},
		&domain.Role{},
		&domain.Permission{},
		&domain.UserRole{},
		&domain.RolePermission{},
		&domain.RefreshToken{},
		&domain.VerificationCode{},
	)
}
