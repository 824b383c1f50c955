package repository

import (
	"github.com/ctlabs-oss/authcore/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UserRepository interface {
	Create(user *domain.User) error
	// Update persists the user row itself; associations are managed through
	// AddRole/RemoveRole and SaveProfile.
	Update(user *domain.User) error
	SaveProfile(profile *domain.Profile) error
	FindByID(id uint) (*domain.User, error)
	FindByEmail(email string) (*domain.User, error)
	FindByPhoneNumber(phone string) (*domain.User, error)
	AddRole(userID, roleID uint) error
	RemoveRole(userID, roleID uint) error
}

type gormUserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &gormUserRepository{db: db}
}

// Create persists the user together with its profile and role associations
// in one transaction. Uniqueness violations surface as ErrDuplicate.
func (r *gormUserRepository) Create(user *domain.User) error {
	return translate(r.db.Create(user).Error)
}

func (r *gormUserRepository) Update(user *domain.User) error {
	return translate(r.db.Omit(clause.Associations).Save(user).Error)
}

func (r *gormUserRepository) SaveProfile(profile *domain.Profile) error {
	return translate(r.db.Save(profile).Error)
}

func (r *gormUserRepository) FindByID(id uint) (*domain.User, error) {
	var user domain.User
	err := r.db.Preload("Roles.Permissions").Preload("Profile").First(&user, id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (r *gormUserRepository) FindByEmail(email string) (*domain.User, error) {
	return r.findOne("email = ?", email)
}

func (r *gormUserRepository) FindByPhoneNumber(phone string) (*domain.User, error) {
	return r.findOne("phone_number = ?", phone)
}

func (r *gormUserRepository) findOne(query string, arg any) (*domain.User, error) {
	var user domain.User
	err := r.db.Preload("Roles.Permissions").Preload("Profile").Where(query, arg).First(&user).Error
	if err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (r *gormUserRepository) AddRole(userID, roleID uint) error {
	err := r.db.Model(&domain.User{ID: userID}).
		Association("Roles").Append(&domain.Role{ID: roleID})
	return translate(err)
}

func (r *gormUserRepository) RemoveRole(userID, roleID uint) error {
	err := r.db.Model(&domain.User{ID: userID}).
		Association("Roles").Delete(&domain.Role{ID: roleID})
	return translate(err)
}
