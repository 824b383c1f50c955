package domain

import "time"

// User statuses. Anything other than StatusActive blocks login and refresh.
const (
	StatusActive    = "active"
	StatusSuspended = "suspended"
	StatusBanned    = "banned"
	StatusArchived  = "archived"
)

// ValidStatus reports whether s is one of the recognized user statuses.
func ValidStatus(s string) bool {
	switch s {
	case StatusActive, StatusSuspended, StatusBanned, StatusArchived:
		return true
	}
	return false
}

// User is the identity anchor. At least one of Email/PhoneNumber is set;
// each is independently unique. Users are never hard-deleted: archival is
// a status change.
type User struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	Email         *string   `gorm:"uniqueIndex;size:255" json:"email,omitempty"`
	PhoneNumber   *string   `gorm:"uniqueIndex;size:20" json:"phone_number,omitempty"`
	PasswordHash  string    `gorm:"size:128" json:"-"`
	EmailVerified bool      `gorm:"not null;default:false" json:"email_verified"`
	PhoneVerified bool      `gorm:"not null;default:false" json:"phone_verified"`
	Status        string    `gorm:"size:16;not null;default:active;index" json:"status"`
	Roles         []Role    `gorm:"many2many:user_roles" json:"roles,omitempty"`
	Profile       *Profile  `gorm:"constraint:OnDelete:CASCADE" json:"profile,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// EmailValue returns the stored email or "".
func (u *User) EmailValue() string {
	if u.Email == nil {
		return ""
	}
	return *u.Email
}

// PhoneValue returns the stored phone number or "".
func (u *User) PhoneValue() string {
	if u.PhoneNumber == nil {
		return ""
	}
	return *u.PhoneNumber
}

// Profile holds the presentation-level attributes of a user. It is owned
// by exactly one User and created atomically with it.
type Profile struct {
	ID        uint              `gorm:"primaryKey" json:"id"`
	UserID    uint              `gorm:"uniqueIndex;not null" json:"user_id"`
	FirstName string            `gorm:"size:100" json:"first_name"`
	LastName  string            `gorm:"size:100" json:"last_name"`
	AvatarURL string            `gorm:"size:512" json:"avatar_url,omitempty"`
	Metadata  map[string]string `gorm:"serializer:json" json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}
