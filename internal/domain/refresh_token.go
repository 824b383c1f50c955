package domain

import "time"

// RefreshToken represents one active session. TokenID is the public half of
// the composite token handed to the client; only the hash of the private
// secret is stored. A token is usable iff RevokedAt is nil, ExpiresAt is in
// the future and the presented secret hashes to TokenHash.
type RefreshToken struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	TokenID    string     `gorm:"size:36;uniqueIndex;not null" json:"-"`
	TokenHash  string     `gorm:"size:128;not null" json:"-"`
	UserID     uint       `gorm:"index;not null" json:"user_id"`
	User       *User      `json:"-"`
	DeviceInfo string     `gorm:"size:512" json:"device_info"`
	IPAddress  string     `gorm:"size:64" json:"ip_address"`
	ExpiresAt  time.Time  `gorm:"index;not null" json:"expires_at"`
	RevokedAt  *time.Time `gorm:"index" json:"revoked_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}
