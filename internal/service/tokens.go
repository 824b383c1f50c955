package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ctlabs-oss/authcore/internal/domain"
	"github.com/ctlabs-oss/authcore/internal/repository"
	"github.com/ctlabs-oss/authcore/internal/security"
	"github.com/google/uuid"
)

const refreshSecretBytes = 32

// SessionInfo is the client-facing view of one refresh-token session.
type SessionInfo struct {
	ID         uint      `json:"id"`
	DeviceInfo string    `json:"device_info"`
	IPAddress  string    `json:"ip_address"`
	CreatedAt  time.Time `json:"created_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// TokenManager issues and validates composite refresh tokens. The public
// token id is the lookup key; the private secret is hashed at rest, so the
// authorization check is a hash comparison, never a table scan.
type TokenManager struct {
	pepper string
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenManager(pepper string, ttl time.Duration) *TokenManager {
	return &TokenManager{pepper: pepper, ttl: ttl, now: time.Now}
}

// ParseComposite splits "<tokenID>:<secret>". The secret alphabet is
// base64url, so the first ':' is always the separator.
func ParseComposite(composite string) (tokenID, secret string, err error) {
	parts := strings.SplitN(composite, ":", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("%w: malformed refresh token", ErrValidation)
	}
	return parts[0], parts[1], nil
}

// Issue creates a new session row for the user and returns the composite
// token. Each login gets a brand-new row; rows are never updated in place.
func (m *TokenManager) Issue(tokens repository.RefreshTokenRepository, user *domain.User, deviceInfo, ipAddress string) (string, error) {
	secret, err := security.NewRandomSecret(refreshSecretBytes)
	if err != nil {
		return "", fmt.Errorf("generate refresh secret: %w", err)
	}
	row := &domain.RefreshToken{
		TokenID:    uuid.NewString(),
		TokenHash:  security.HashRefreshSecret(secret, m.pepper),
		UserID:     user.ID,
		DeviceInfo: deviceInfo,
		IPAddress:  ipAddress,
		ExpiresAt:  m.now().UTC().Add(m.ttl),
	}
	if err := tokens.Create(row); err != nil {
		return "", err
	}
	return row.TokenID + ":" + secret, nil
}

// Validate resolves a composite token to its session row, enforcing every
// usability condition in order: existence, revocation, expiry, secret
// match, owner status. The returned row has the owning user preloaded with
// roles and permissions.
func (m *TokenManager) Validate(tokens repository.RefreshTokenRepository, composite string) (*domain.RefreshToken, error) {
	tokenID, secret, err := ParseComposite(composite)
	if err != nil {
		return nil, err
	}
	row, err := tokens.FindByTokenID(tokenID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: refresh token", ErrNotFound)
		}
		return nil, err
	}
	if row.RevokedAt != nil {
		return nil, ErrTokenRevoked
	}
	if !row.ExpiresAt.After(m.now().UTC()) {
		return nil, ErrTokenExpired
	}
	if !security.VerifyRefreshSecret(secret, m.pepper, row.TokenHash) {
		return nil, ErrAuthentication
	}
	if row.User == nil || row.User.Status != domain.StatusActive {
		return nil, ErrAuthentication
	}
	return row, nil
}
