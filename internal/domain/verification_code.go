package domain

import "time"

// Verification code types.
const (
	CodeEmailVerification = "EMAIL_VERIFICATION"
	CodePhoneVerification = "PHONE_VERIFICATION"
	CodePasswordReset     = "PASSWORD_RESET"
)

// VerificationCode ties a single-use code to a user and a purpose. Issuance
// always creates a new row; consumption deletes the row. Several codes of
// the same type may coexist for one user, lookup matches the exact value.
type VerificationCode struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"index;not null" json:"user_id"`
	Type      string    `gorm:"size:32;index;not null" json:"type"`
	Code      string    `gorm:"size:64;not null" json:"-"`
	ExpiresAt time.Time `gorm:"index;not null" json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// Expired reports whether the code is past its expiry at instant now.
func (c *VerificationCode) Expired(now time.Time) bool {
	return c.ExpiresAt.Before(now)
}
