package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ctlabs-oss/authcore/internal/domain"
	"github.com/ctlabs-oss/authcore/internal/repository"
	"github.com/ctlabs-oss/authcore/internal/security"
)

var phonePattern = regexp.MustCompile(`^\+[1-9]\d{1,14}$`)

// Store is the identity-store access point consumed by the orchestrator.
type Store interface {
	Repos() repository.Repositories
	InTx(fn func(repository.Repositories) error) error
}

// Notifier dispatches codes off the request path. Sends are fire-and-forget;
// the orchestrator never learns whether delivery succeeded.
type Notifier interface {
	MailEnabled() bool
	PhoneEnabled() bool
	SendVerificationEmail(to, name, code string, ttl time.Duration)
	SendPasswordResetEmail(to, name, code string, ttl time.Duration)
	SendVerificationSMS(to, code string)
	SendPasswordResetSMS(to, code string)
}

type RegisterRequest struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phone_number"`
	Password    string `json:"password"`
}

type LoginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
	DeviceInfo string `json:"-"`
	IPAddress  string `json:"-"`
}

// AuthResponse carries either a signed access token or a human-readable
// status message in Token, plus the composite refresh token when one was
// issued. ExpiresIn is the access-token lifetime in seconds.
type AuthResponse struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresIn    int64  `json:"expires_in,omitempty"`
}

// AuthService composes the identity store, hashing, signing, code and
// token managers and the notifier into the credential-and-session
// lifecycle engine.
type AuthService struct {
	store          Store
	hasher         security.PasswordHasher
	jwt            *security.JWTManager
	tokens         *TokenManager
	codes          *CodeManager
	notifier       Notifier
	defaultRole    string
	passwordPolicy *regexp.Regexp
	logger         *slog.Logger
}

func NewAuthService(
	store Store,
	hasher security.PasswordHasher,
	jwtMgr *security.JWTManager,
	tokens *TokenManager,
	codes *CodeManager,
	notifier Notifier,
	defaultRole string,
	passwordPolicy string,
	logger *slog.Logger,
) (*AuthService, error) {
	policy, err := regexp.Compile(passwordPolicy)
	if err != nil {
		return nil, fmt.Errorf("compile password policy: %w", err)
	}
	return &AuthService{
		store:          store,
		hasher:         hasher,
		jwt:            jwtMgr,
		tokens:         tokens,
		codes:          codes,
		notifier:       notifier,
		defaultRole:    defaultRole,
		passwordPolicy: policy,
		logger:         logger,
	}, nil
}

// Register creates a user with its profile and default role atomically.
// When the contact channel has a real provider a verification code is
// issued inside the same transaction and dispatched after commit; when the
// provider is "none" the channel is marked verified immediately. Email
// takes priority over phone when both are present.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	phone := strings.TrimSpace(req.PhoneNumber)
	hasEmail := email != ""
	hasPhone := phone != ""

	if !hasEmail && !hasPhone {
		return nil, fmt.Errorf("%w: at least one contact method (email or phone) must be provided", ErrValidation)
	}
	if hasPhone && !phonePattern.MatchString(phone) {
		return nil, fmt.Errorf("%w: phone number must be in E.164 format (e.g. +59170712345)", ErrValidation)
	}
	if !s.passwordPolicy.MatchString(req.Password) {
		return nil, fmt.Errorf("%w: password does not satisfy the password policy", ErrValidation)
	}

	repos := s.store.Repos()
	if hasEmail {
		if err := s.checkUnused(repos.Users.FindByEmail, email, "email"); err != nil {
			return nil, err
		}
	}
	if hasPhone {
		if err := s.checkUnused(repos.Users.FindByPhoneNumber, phone, "phone number"); err != nil {
			return nil, err
		}
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		PasswordHash: hash,
		Status:       domain.StatusActive,
		Profile: &domain.Profile{
			FirstName: strings.TrimSpace(req.FirstName),
			LastName:  strings.TrimSpace(req.LastName),
		},
	}
	if hasEmail {
		user.Email = &email
		user.EmailVerified = !s.notifier.MailEnabled()
	}
	if hasPhone {
		user.PhoneNumber = &phone
		user.PhoneVerified = !s.notifier.PhoneEnabled()
	}

	var dispatch func()
	err = s.store.InTx(func(r repository.Repositories) error {
		role, err := s.findOrCreateRole(r.Roles, s.defaultRole)
		if err != nil {
			return err
		}
		user.Roles = []domain.Role{*role}

		if err := r.Users.Create(user); err != nil {
			// The pre-check above is advisory; the store's uniqueness
			// constraint closes the race between concurrent registrations.
			if errors.Is(err, repository.ErrDuplicate) {
				return fmt.Errorf("%w: email or phone number", ErrConflict)
			}
			return err
		}

		switch {
		case hasEmail && s.notifier.MailEnabled():
			code := s.codes.NewEmailCode()
			if err := s.codes.Issue(r.VerificationCodes, user.ID, domain.CodeEmailVerification, code, s.codes.EmailTTL()); err != nil {
				return err
			}
			name := user.Profile.FirstName
			dispatch = func() { s.notifier.SendVerificationEmail(email, name, code, s.codes.EmailTTL()) }
		case hasPhone && s.notifier.PhoneEnabled():
			code, err := s.codes.NewPhoneCode()
			if err != nil {
				return err
			}
			if err := s.codes.Issue(r.VerificationCodes, user.ID, domain.CodePhoneVerification, code, s.codes.PhoneTTL()); err != nil {
				return err
			}
			dispatch = func() { s.notifier.SendVerificationSMS(phone, code) }
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if dispatch != nil {
		dispatch()
	}

	s.logger.InfoContext(ctx, "user registered", "user_id", user.ID)
	return &AuthResponse{Token: "User registered. Please verify your account."}, nil
}

// Login verifies credentials and opens a session. Every failure mode
// resolves to the same ErrAuthentication so callers cannot distinguish an
// unknown identifier from a wrong password, an unverified channel or a
// suspended account.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	identifier := strings.TrimSpace(req.Identifier)
	if identifier == "" || req.Password == "" {
		return nil, fmt.Errorf("%w: identifier and password are required", ErrValidation)
	}

	repos := s.store.Repos()
	isEmail := strings.Contains(identifier, "@")

	var (
		user *domain.User
		err  error
	)
	if isEmail {
		user, err = repos.Users.FindByEmail(strings.ToLower(identifier))
	} else {
		user, err = repos.Users.FindByPhoneNumber(identifier)
	}
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAuthentication
		}
		return nil, err
	}

	verified := user.PhoneVerified
	if isEmail {
		verified = user.EmailVerified
	}
	switch {
	case user.Status != domain.StatusActive,
		!verified,
		!s.hasher.Verify(req.Password, user.PasswordHash):
		s.logger.InfoContext(ctx, "login rejected", "user_id", user.ID)
		return nil, ErrAuthentication
	}

	access, err := s.jwt.SignAccessToken(subject(user.ID), Authorities(user.Roles))
	if err != nil {
		return nil, err
	}
	composite, err := s.tokens.Issue(repos.RefreshTokens, user, req.DeviceInfo, req.IPAddress)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "user authenticated", "user_id", user.ID)
	return &AuthResponse{
		Token:        access,
		RefreshToken: composite,
		ExpiresIn:    int64(s.jwt.AccessTTL().Seconds()),
	}, nil
}

// Refresh exchanges a valid composite refresh token for a new access token
// reflecting the user's current roles and permissions. The refresh token
// itself is not rotated.
func (s *AuthService) Refresh(ctx context.Context, composite string) (*AuthResponse, error) {
	row, err := s.tokens.Validate(s.store.Repos().RefreshTokens, composite)
	if err != nil {
		return nil, err
	}
	access, err := s.jwt.SignAccessToken(subject(row.UserID), Authorities(row.User.Roles))
	if err != nil {
		return nil, err
	}
	return &AuthResponse{Token: access, ExpiresIn: int64(s.jwt.AccessTTL().Seconds())}, nil
}

// Logout deletes the session identified by the composite token. The secret
// must match, so a stolen token id alone cannot terminate a session.
func (s *AuthService) Logout(ctx context.Context, composite string) error {
	row, err := s.tokens.Validate(s.store.Repos().RefreshTokens, composite)
	if err != nil {
		return err
	}
	return s.store.Repos().RefreshTokens.DeleteByID(row.ID)
}

// VerifyEmail flips the email-verified flag after consuming a matching
// code. Verifying an already-verified address succeeds without touching
// any code.
func (s *AuthService) VerifyEmail(ctx context.Context, email, code string) (*AuthResponse, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	var resp *AuthResponse
	err := s.store.InTx(func(r repository.Repositories) error {
		user, err := r.Users.FindByEmail(email)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("%w: no user with the provided email", ErrNotFound)
			}
			return err
		}
		if user.EmailVerified {
			resp = &AuthResponse{Token: "Email is already verified."}
			return nil
		}
		if err := s.codes.Consume(r.VerificationCodes, user.ID, domain.CodeEmailVerification, code); err != nil {
			return err
		}
		user.EmailVerified = true
		if err := r.Users.Update(user); err != nil {
			return err
		}
		resp = &AuthResponse{Token: "Email verified successfully."}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "email verified", "email", email)
	return resp, nil
}

// VerifyPhone is the phone-channel counterpart of VerifyEmail.
func (s *AuthService) VerifyPhone(ctx context.Context, phone, code string) (*AuthResponse, error) {
	phone = strings.TrimSpace(phone)

	var resp *AuthResponse
	err := s.store.InTx(func(r repository.Repositories) error {
		user, err := r.Users.FindByPhoneNumber(phone)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("%w: no user with the provided phone number", ErrNotFound)
			}
			return err
		}
		if user.PhoneVerified {
			resp = &AuthResponse{Token: "Phone is already verified."}
			return nil
		}
		if err := s.codes.Consume(r.VerificationCodes, user.ID, domain.CodePhoneVerification, code); err != nil {
			return err
		}
		user.PhoneVerified = true
		if err := r.Users.Update(user); err != nil {
			return err
		}
		resp = &AuthResponse{Token: "Phone verified successfully."}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "phone verified", "phone", phone)
	return resp, nil
}

// ForgotPassword issues a password-reset code for the resolved account and
// dispatches it over the account's preferred channel. The caller-facing
// message never reveals whether the identifier exists; the HTTP boundary
// collapses ErrNotFound into the same generic response.
func (s *AuthService) ForgotPassword(ctx context.Context, identifier string) (*AuthResponse, error) {
	repos := s.store.Repos()
	user, err := s.resolveUser(repos.Users, identifier)
	if err != nil {
		return nil, err
	}

	var (
		code     string
		ttl      time.Duration
		dispatch func()
	)
	if user.Email != nil {
		code = s.codes.NewEmailCode()
		ttl = s.codes.EmailTTL()
		if s.notifier.MailEnabled() {
			to, name := *user.Email, user.Profile.FirstName
			reset := code
			dispatch = func() { s.notifier.SendPasswordResetEmail(to, name, reset, s.codes.EmailTTL()) }
		}
	} else {
		code, err = s.codes.NewPhoneCode()
		if err != nil {
			return nil, err
		}
		ttl = s.codes.PhoneTTL()
		if s.notifier.PhoneEnabled() {
			to, reset := *user.PhoneNumber, code
			dispatch = func() { s.notifier.SendPasswordResetSMS(to, reset) }
		}
	}

	err = s.store.InTx(func(r repository.Repositories) error {
		return s.codes.Issue(r.VerificationCodes, user.ID, domain.CodePasswordReset, code, ttl)
	})
	if err != nil {
		return nil, err
	}
	if dispatch != nil {
		dispatch()
	}

	s.logger.InfoContext(ctx, "password reset code issued", "user_id", user.ID)
	return &AuthResponse{Token: "Password reset code sent."}, nil
}

// ResetPassword consumes a reset code, overwrites the password hash and
// revokes every outstanding refresh token, forcing re-login everywhere.
func (s *AuthService) ResetPassword(ctx context.Context, identifier, code, newPassword string) (*AuthResponse, error) {
	if !s.passwordPolicy.MatchString(newPassword) {
		return nil, fmt.Errorf("%w: password does not satisfy the password policy", ErrValidation)
	}
	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	err = s.store.InTx(func(r repository.Repositories) error {
		user, err := s.resolveUser(r.Users, identifier)
		if err != nil {
			return err
		}
		if err := s.codes.Consume(r.VerificationCodes, user.ID, domain.CodePasswordReset, code); err != nil {
			return err
		}
		user.PasswordHash = hash
		if err := r.Users.Update(user); err != nil {
			return err
		}
		return r.RefreshTokens.RevokeAllForUser(user.ID)
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "password reset completed")
	return &AuthResponse{Token: "Password reset successfully."}, nil
}

// resolveUser tries email first, then phone, with the same identifier,
// matching the lookup order of the registration uniqueness rules.
func (s *AuthService) resolveUser(users repository.UserRepository, identifier string) (*domain.User, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, fmt.Errorf("%w: identifier is required", ErrValidation)
	}
	lookup := identifier
	if strings.Contains(identifier, "@") {
		lookup = strings.ToLower(identifier)
	}
	user, err := users.FindByEmail(lookup)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	user, err = users.FindByPhoneNumber(identifier)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: user", ErrNotFound)
		}
		return nil, err
	}
	return user, nil
}

func (s *AuthService) checkUnused(find func(string) (*domain.User, error), value, label string) error {
	_, err := find(value)
	if err == nil {
		return fmt.Errorf("%w: %s", ErrConflict, label)
	}
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	return err
}

func (s *AuthService) findOrCreateRole(roles repository.RoleRepository, name string) (*domain.Role, error) {
	role, err := roles.FindByName(name)
	if err == nil {
		return role, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	role = &domain.Role{Name: name}
	if err := roles.Create(role); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return roles.FindByName(name)
		}
		return nil, err
	}
	return role, nil
}

func subject(userID uint) string {
	return strconv.FormatUint(uint64(userID), 10)
}
