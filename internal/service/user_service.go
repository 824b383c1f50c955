package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ctlabs-oss/authcore/internal/domain"
	"github.com/ctlabs-oss/authcore/internal/repository"
)

// UserView is the self-service projection of an account. Credential and
// token material never appears here.
type UserView struct {
	ID            uint              `json:"id"`
	Email         string            `json:"email,omitempty"`
	PhoneNumber   string            `json:"phone_number,omitempty"`
	EmailVerified bool              `json:"email_verified"`
	PhoneVerified bool              `json:"phone_verified"`
	Status        string            `json:"status"`
	FirstName     string            `json:"first_name"`
	LastName      string            `json:"last_name"`
	AvatarURL     string            `json:"avatar_url,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
	Authorities   []string          `json:"authorities"`
}

type UpdateProfileRequest struct {
	FirstName string            `json:"first_name"`
	LastName  string            `json:"last_name"`
	Metadata  map[string]string `json:"metadata"`
}

// UserService serves the authenticated user's own account surface:
// profile reads and edits plus the list of live sessions.
type UserService struct {
	store  Store
	logger *slog.Logger
}

func NewUserService(store Store, logger *slog.Logger) *UserService {
	return &UserService{store: store, logger: logger}
}

// Me returns the caller's account view.
func (s *UserService) Me(ctx context.Context, userID uint) (*UserView, error) {
	user, err := s.findUser(userID)
	if err != nil {
		return nil, err
	}
	return newUserView(user), nil
}

// UpdateProfile overwrites the caller's profile fields.
func (s *UserService) UpdateProfile(ctx context.Context, userID uint, req UpdateProfileRequest) (*UserView, error) {
	first := strings.TrimSpace(req.FirstName)
	last := strings.TrimSpace(req.LastName)
	if first == "" {
		return nil, fmt.Errorf("%w: first name is required", ErrValidation)
	}

	var view *UserView
	err := s.store.InTx(func(r repository.Repositories) error {
		user, err := r.Users.FindByID(userID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("%w: user", ErrNotFound)
			}
			return err
		}
		if user.Profile == nil {
			user.Profile = &domain.Profile{UserID: user.ID}
		}
		user.Profile.FirstName = first
		user.Profile.LastName = last
		user.Profile.Metadata = req.Metadata
		if err := r.Users.SaveProfile(user.Profile); err != nil {
			return err
		}
		view = newUserView(user)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "profile updated", "user_id", userID)
	return view, nil
}

// ActiveSessions lists the caller's unrevoked, unexpired sessions, newest
// first.
func (s *UserService) ActiveSessions(ctx context.Context, userID uint) ([]SessionInfo, error) {
	rows, err := s.store.Repos().RefreshTokens.ListActiveByUserID(userID)
	if err != nil {
		return nil, err
	}
	sessions := make([]SessionInfo, 0, len(rows))
	for _, row := range rows {
		sessions = append(sessions, SessionInfo{
			ID:         row.ID,
			DeviceInfo: row.DeviceInfo,
			IPAddress:  row.IPAddress,
			CreatedAt:  row.CreatedAt,
			ExpiresAt:  row.ExpiresAt,
		})
	}
	return sessions, nil
}

// RevokeSession terminates one of the caller's sessions by id. A session
// belonging to another user is rejected with ErrForbidden, not hidden as
// a missing row, so the caller can tell a stale id from a permissions bug
// in their client.
func (s *UserService) RevokeSession(ctx context.Context, userID, sessionID uint) error {
	tokens := s.store.Repos().RefreshTokens
	row, err := tokens.FindByID(sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: session", ErrNotFound)
		}
		return err
	}
	if row.UserID != userID {
		return fmt.Errorf("%w: session belongs to another user", ErrForbidden)
	}
	if err := tokens.DeleteByID(row.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: session", ErrNotFound)
		}
		return err
	}
	s.logger.InfoContext(ctx, "session revoked", "user_id", userID, "session_id", sessionID)
	return nil
}

func (s *UserService) findUser(userID uint) (*domain.User, error) {
	user, err := s.store.Repos().Users.FindByID(userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: user", ErrNotFound)
		}
		return nil, err
	}
	return user, nil
}

func newUserView(user *domain.User) *UserView {
	view := &UserView{
		ID:            user.ID,
		Email:         user.EmailValue(),
		PhoneNumber:   user.PhoneValue(),
		EmailVerified: user.EmailVerified,
		PhoneVerified: user.PhoneVerified,
		Status:        user.Status,
		Authorities:   Authorities(user.Roles),
	}
	if user.Profile != nil {
		view.FirstName = user.Profile.FirstName
		view.LastName = user.Profile.LastName
		view.AvatarURL = user.Profile.AvatarURL
		view.Metadata = user.Profile.Metadata
	}
	return view
}
