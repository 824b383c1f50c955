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

// AdminService covers operator-only mutations: account status, role and
// permission catalogs, and grants. Callers are assumed to have passed the
// ROLE_ADMIN authority check at the transport layer.
type AdminService struct {
	store  Store
	logger *slog.Logger
}

func NewAdminService(store Store, logger *slog.Logger) *AdminService {
	return &AdminService{store: store, logger: logger}
}

// GetUser returns the admin view of any account.
func (s *AdminService) GetUser(ctx context.Context, userID uint) (*UserView, error) {
	user, err := s.store.Repos().Users.FindByID(userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: user", ErrNotFound)
		}
		return nil, err
	}
	return newUserView(user), nil
}

// ChangeUserStatus moves an account to the given status. Any transition
// away from active revokes every outstanding refresh token and discards
// pending verification codes, so the account loses session access at the
// same moment it loses login access.
func (s *AdminService) ChangeUserStatus(ctx context.Context, userID uint, status string) error {
	if !domain.ValidStatus(status) {
		return fmt.Errorf("%w: unknown status %q", ErrValidation, status)
	}
	err := s.store.InTx(func(r repository.Repositories) error {
		user, err := r.Users.FindByID(userID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("%w: user", ErrNotFound)
			}
			return err
		}
		user.Status = status
		if err := r.Users.Update(user); err != nil {
			return err
		}
		if status != domain.StatusActive {
			if err := r.RefreshTokens.RevokeAllForUser(userID); err != nil {
				return err
			}
			return r.VerificationCodes.DeleteAllForUser(userID)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "user status changed", "user_id", userID, "status", status)
	return nil
}

// DeleteUser soft-deletes an account by archiving it and revoking its
// sessions. Rows stay in place for audit; the archived status blocks both
// login and refresh.
func (s *AdminService) DeleteUser(ctx context.Context, userID uint) error {
	return s.ChangeUserStatus(ctx, userID, domain.StatusArchived)
}

// CreateRole adds a role to the catalog.
func (s *AdminService) CreateRole(ctx context.Context, name string) (*domain.Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: role name is required", ErrValidation)
	}
	role := &domain.Role{Name: name}
	if err := s.store.Repos().Roles.Create(role); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("%w: role %q", ErrConflict, name)
		}
		return nil, err
	}
	s.logger.InfoContext(ctx, "role created", "role", name)
	return role, nil
}

// AssignRole grants a role to a user. Granting an already-held role is a
// no-op at the association level.
func (s *AdminService) AssignRole(ctx context.Context, userID uint, roleName string) error {
	return s.mutateRoleGrant(ctx, userID, roleName, true)
}

// RemoveRole withdraws a role from a user.
func (s *AdminService) RemoveRole(ctx context.Context, userID uint, roleName string) error {
	return s.mutateRoleGrant(ctx, userID, roleName, false)
}

func (s *AdminService) mutateRoleGrant(ctx context.Context, userID uint, roleName string, grant bool) error {
	err := s.store.InTx(func(r repository.Repositories) error {
		if _, err := r.Users.FindByID(userID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("%w: user", ErrNotFound)
			}
			return err
		}
		role, err := r.Roles.FindByName(strings.TrimSpace(roleName))
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("%w: role %q", ErrNotFound, roleName)
			}
			return err
		}
		if grant {
			return r.Users.AddRole(userID, role.ID)
		}
		return r.Users.RemoveRole(userID, role.ID)
	})
	if err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "role grant changed", "user_id", userID, "role", roleName, "granted", grant)
	return nil
}

// CreatePermission adds a permission slug to the catalog.
func (s *AdminService) CreatePermission(ctx context.Context, slug string) (*domain.Permission, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, fmt.Errorf("%w: permission slug is required", ErrValidation)
	}
	perm := &domain.Permission{Slug: slug}
	if err := s.store.Repos().Permissions.Create(perm); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("%w: permission %q", ErrConflict, slug)
		}
		return nil, err
	}
	s.logger.InfoContext(ctx, "permission created", "permission", slug)
	return perm, nil
}

// AssignPermissionToRole attaches a permission to a role. The grant takes
// effect on the next token issued or refreshed; already-signed access
// tokens keep their embedded authorities until expiry.
func (s *AdminService) AssignPermissionToRole(ctx context.Context, roleName, slug string) error {
	return s.mutatePermissionGrant(ctx, roleName, slug, true)
}

// RemovePermissionFromRole detaches a permission from a role.
func (s *AdminService) RemovePermissionFromRole(ctx context.Context, roleName, slug string) error {
	return s.mutatePermissionGrant(ctx, roleName, slug, false)
}

func (s *AdminService) mutatePermissionGrant(ctx context.Context, roleName, slug string, grant bool) error {
	err := s.store.InTx(func(r repository.Repositories) error {
		role, err := r.Roles.FindByName(strings.TrimSpace(roleName))
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("%w: role %q", ErrNotFound, roleName)
			}
			return err
		}
		perm, err := r.Permissions.FindBySlug(strings.TrimSpace(slug))
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("%w: permission %q", ErrNotFound, slug)
			}
			return err
		}
		if grant {
			return r.Roles.AddPermission(role.ID, perm.ID)
		}
		return r.Roles.RemovePermission(role.ID, perm.ID)
	})
	if err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "permission grant changed", "role", roleName, "permission", slug, "granted", grant)
	return nil
}
