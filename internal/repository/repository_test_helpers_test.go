package repository

import (
	"fmt"
	"strings"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ctlabs-oss/authcore/internal/domain"
)

func newStoreForTest(t *testing.T) *Store {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(
		&domain.User{},
		&domain.Profile{},
		&domain.Role{},
		&domain.Permission{},
		&domain.UserRole{},
		&domain.RolePermission{},
		&domain.RefreshToken{},
		&domain.VerificationCode{},
	); err != nil {
		t.Fatalf("migrate db: %v", err)
	}
	return NewStore(db)
}

func createUserForTest(t *testing.T, store *Store, email string) *domain.User {
	t.Helper()
	user := &domain.User{
		Email:        &email,
		PasswordHash: "x",
		Status:       domain.StatusActive,
		Profile:      &domain.Profile{FirstName: "Test"},
	}
	if err := store.Repos().Users.Create(user); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}
