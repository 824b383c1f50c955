package database

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/ctlabs-oss/authcore/internal/config"
	"github.com/ctlabs-oss/authcore/internal/domain"
	"github.com/ctlabs-oss/authcore/internal/security"
)

// SeedAdmin creates the bootstrap admin account on first startup. The
// account is pre-verified and active so the operator can log in before
// any mail or SMS provider is configured. Rerunning is a no-op once the
// admin email exists.
func SeedAdmin(db *gorm.DB, cfg *config.Config, hasher security.PasswordHasher) error {
	if !cfg.AdminBootstrapEnabled {
		return nil
	}

	return db.Transaction(func(tx *gorm.DB) error {
		var existing domain.User
		err := tx.Where("email = ?", cfg.AdminEmail).First(&existing).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("check admin user: %w", err)
		}

		role := domain.Role{Name: cfg.AdminRole}
		if err := tx.Where("name = ?", cfg.AdminRole).FirstOrCreate(&role).Error; err != nil {
			return fmt.Errorf("ensure admin role: %w", err)
		}

		hash, err := hasher.Hash(cfg.AdminPassword)
		if err != nil {
			return fmt.Errorf("hash admin password: %w", err)
		}

		email := cfg.AdminEmail
		admin := domain.User{
			Email:         &email,
			PasswordHash:  hash,
			EmailVerified: true,
			Status:        domain.StatusActive,
			Roles:         []domain.Role{role},
			Profile: &domain.Profile{
				FirstName: cfg.AdminFirstName,
				LastName:  cfg.AdminLastName,
			},
		}
		if err := tx.Create(&admin).Error; err != nil {
			return fmt.Errorf("create admin user: %w", err)
		}
		return nil
	})
}
