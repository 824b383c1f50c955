package service

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ctlabs-oss/authcore/internal/domain"
	"github.com/ctlabs-oss/authcore/internal/repository"
	"github.com/google/uuid"
)

// CodeManager issues and consumes single-use verification codes. Issuance
// always creates a fresh row; consumption is a compare-and-delete, so two
// requests racing on the same code succeed at most once.
type CodeManager struct {
	emailTTL time.Duration
	phoneTTL time.Duration
	now      func() time.Time
}

func NewCodeManager(emailTTL, phoneTTL time.Duration) *CodeManager {
	return &CodeManager{emailTTL: emailTTL, phoneTTL: phoneTTL, now: time.Now}
}

func (m *CodeManager) EmailTTL() time.Duration { return m.emailTTL }
func (m *CodeManager) PhoneTTL() time.Duration { return m.phoneTTL }

// NewEmailCode returns a UUID-shaped code suitable for embedding in a link.
func (m *CodeManager) NewEmailCode() string {
	return uuid.NewString()
}

// NewPhoneCode returns a 6-digit numeric code.
func (m *CodeManager) NewPhoneCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", fmt.Errorf("generate phone code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

// Issue stores a new code row for the user and purpose.
func (m *CodeManager) Issue(codes repository.VerificationCodeRepository, userID uint, codeType, code string, ttl time.Duration) error {
	return codes.Create(&domain.VerificationCode{
		UserID:    userID,
		Type:      codeType,
		Code:      code,
		ExpiresAt: m.now().UTC().Add(ttl),
	})
}

// Consume validates and deletes the exact code scoped to (user, purpose).
// Returns ErrInvalidCode when no such code exists or when another request
// consumed it first, ErrExpiredCode when it is past its expiry.
func (m *CodeManager) Consume(codes repository.VerificationCodeRepository, userID uint, codeType, code string) error {
	vc, err := codes.FindByUserTypeAndCode(userID, codeType, code)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInvalidCode
		}
		return err
	}
	if vc.Expired(m.now().UTC()) {
		return ErrExpiredCode
	}
	if err := codes.DeleteByID(vc.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInvalidCode
		}
		return err
	}
	return nil
}
