package repository

import "gorm.io/gorm"

// Repositories bundles every repository bound to one gorm session. Inside
// Store.InTx the bundle is bound to the transaction, so mutations across
// repositories commit or roll back together.
type Repositories struct {
	Users             UserRepository
	Roles             RoleRepository
	Permissions       PermissionRepository
	RefreshTokens     RefreshTokenRepository
	VerificationCodes VerificationCodeRepository
}

// Store is the root access point to the identity store.
type Store struct {
	db *gorm.DB
	Repositories
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db, Repositories: bind(db)}
}

func bind(db *gorm.DB) Repositories {
	return Repositories{
		Users:             NewUserRepository(db),
		Roles:             NewRoleRepository(db),
		Permissions:       NewPermissionRepository(db),
		RefreshTokens:     NewRefreshTokenRepository(db),
		VerificationCodes: NewVerificationCodeRepository(db),
	}
}

// Repos returns repositories outside any transaction.
func (s *Store) Repos() Repositories { return s.Repositories }

// InTx runs fn inside a single database transaction. The Repositories
// handed to fn are bound to that transaction.
func (s *Store) InTx(fn func(Repositories) error) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		return fn(bind(tx))
	})
}
