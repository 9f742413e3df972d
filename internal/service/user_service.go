package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/fieldworkhq/orgcore/internal/domain"
	"github.com/fieldworkhq/orgcore/internal/hierarchy"
	"github.com/fieldworkhq/orgcore/internal/security/audit"
)

// CreateUserOptions captures a user creation request.
type CreateUserOptions struct {
	TenantID string
	Email    string
	Username string
	Password string
	Roles    []domain.RoleName
}

// UserService manages users within the tenant hierarchy: creation under an
// accessible tenant, relocation between tenants and scoped listing.
type UserService struct {
	users  domain.UserRepository
	scopes *hierarchy.ScopeResolver
	audit  *audit.Logger
	logger *slog.Logger
}

// NewUserService creates a new user service.
func NewUserService(users domain.UserRepository, scopes *hierarchy.ScopeResolver, auditLog *audit.Logger, logger *slog.Logger) *UserService {
	if logger == nil {
		logger = slog.Default()
	}
	return &UserService{users: users, scopes: scopes, audit: auditLog, logger: logger}
}

// CreateUser creates a user under opts.TenantID, which must be inside the
// acting tenant's accessible set. Passwords are stored as bcrypt hashes only.
func (s *UserService) CreateUser(ctx context.Context, actorUserID, actorTenantID string, opts CreateUserOptions) (*domain.User, error) {
	if strings.TrimSpace(opts.Email) == "" || strings.TrimSpace(opts.Username) == "" {
		return nil, fmt.Errorf("%w: email and username required", domain.ErrValidation)
	}
	if len(opts.Password) < 8 {
		return nil, fmt.Errorf("%w: password must be at least 8 characters", domain.ErrValidation)
	}

	accessible, err := s.scopes.Contains(actorTenantID, opts.TenantID)
	if err != nil {
		return nil, err
	}
	if !accessible {
		s.audit.LogDenied(ctx, actorTenantID, actorUserID, "create user under inaccessible tenant "+opts.TenantID)
		return nil, fmt.Errorf("%w: tenant %s not accessible", domain.ErrForbidden, opts.TenantID)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(opts.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	roles := opts.Roles
	if len(roles) == 0 {
		roles = []domain.RoleName{"member"}
	}

	user := &domain.User{
		ID:           uuid.NewString(),
		TenantID:     opts.TenantID,
		Email:        opts.Email,
		Username:     opts.Username,
		PasswordHash: string(hash),
		Roles:        roles,
	}
	if err := s.users.Create(user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.audit.LogAction(ctx, opts.TenantID, actorUserID, "user_create", "user", user.ID, "ok", opts.Username)
	return user, nil
}

// RelocateUser moves a user to a different tenant. The destination must be
// inside the acting tenant's accessible set.
func (s *UserService) RelocateUser(ctx context.Context, actorUserID, actorTenantID, userID, newTenantID string) error {
	accessible, err := s.scopes.Contains(actorTenantID, newTenantID)
	if err != nil {
		return err
	}
	if !accessible {
		s.audit.LogDenied(ctx, actorTenantID, actorUserID, "relocate user to inaccessible tenant "+newTenantID)
		return fmt.Errorf("%w: tenant %s not accessible", domain.ErrForbidden, newTenantID)
	}

	user, err := s.users.GetByID(userID)
	if err != nil {
		return err
	}

	from := user.TenantID
	user.TenantID = newTenantID
	if err := s.users.Update(user); err != nil {
		return fmt.Errorf("failed to relocate user: %w", err)
	}

	s.logger.Info("user relocated",
		slog.String("user_id", userID),
		slog.String("from_tenant", from),
		slog.String("to_tenant", newTenantID),
	)
	s.audit.LogAction(ctx, newTenantID, actorUserID, "user_relocate", "user", userID, "ok", "from "+from)
	return nil
}

// ListUsers returns every user in the acting tenant's accessible set, in
// scope order. An unknown acting tenant yields an empty list.
func (s *UserService) ListUsers(ctx context.Context, actorTenantID string) ([]*domain.User, error) {
	ids, err := s.scopes.AccessibleTenantIDs(actorTenantID)
	if err != nil {
		return nil, err
	}

	var out []*domain.User
	for _, id := range ids {
		users, err := s.users.ListByTenant(id)
		if err != nil {
			return nil, fmt.Errorf("failed to list users of tenant %s: %w", id, err)
		}
		out = append(out, users...)
	}
	return out, nil
}
