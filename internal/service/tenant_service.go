package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/fieldworkhq/orgcore/internal/domain"
	"github.com/fieldworkhq/orgcore/internal/hierarchy"
	"github.com/fieldworkhq/orgcore/internal/observability/metrics"
	"github.com/fieldworkhq/orgcore/internal/security/audit"
)

// TenantService coordinates hierarchy mutations: tenant creation, rename,
// permission grants and the two deletion policies. Every mutation runs inside
// the unit of work so the invariant checks that gate it and the writes it
// gates are one atomic step where storage supports it.
type TenantService struct {
	uow      domain.UnitOfWork
	registry domain.ApplicationRegistry
	scopes   *hierarchy.ScopeResolver
	audit    *audit.Logger
	logger   *slog.Logger
}

// NewTenantService creates a new tenant mutation coordinator.
func NewTenantService(
	uow domain.UnitOfWork,
	registry domain.ApplicationRegistry,
	scopes *hierarchy.ScopeResolver,
	auditLog *audit.Logger,
	logger *slog.Logger,
) *TenantService {
	if logger == nil {
		logger = slog.Default()
	}
	return &TenantService{
		uow:      uow,
		registry: registry,
		scopes:   scopes,
		audit:    auditLog,
		logger:   logger,
	}
}

// CreateRoot creates a new organization root tenant (registration flow).
// Root names must be unique among roots.
func (s *TenantService) CreateRoot(ctx context.Context, actorUserID, name string) (*domain.Tenant, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: tenant name required", domain.ErrValidation)
	}

	tenant := &domain.Tenant{
		ID:             uuid.NewString(),
		Name:           name,
		OwnPermissions: []domain.PermissionKey{},
	}
	// The uniqueness read and the insert are one unit of work so two
	// concurrent registrations cannot both pass the check.
	err := s.uow.WithinTx(func(repos domain.Repositories) error {
		roots, err := repos.Tenants.ListRoots()
		if err != nil {
			return fmt.Errorf("failed to list root tenants: %w", err)
		}
		for _, r := range roots {
			if r.Name == name {
				return fmt.Errorf("%w: %q", domain.ErrDuplicateName, name)
			}
		}
		return repos.Tenants.Create(tenant)
	})
	if err != nil {
		metrics.ObserveCascadeOperation("create_root", "error")
		return nil, err
	}

	metrics.ObserveCascadeOperation("create_root", "ok")
	s.audit.LogTenantMutation(ctx, tenant.ID, actorUserID, "tenant_create", "ok", "root: "+name)
	return tenant, nil
}

// CreateChild creates a sub-tenant under parentID. The parent must be inside
// the acting tenant's accessible set; anything else, including a nonexistent
// parent, is refused as not accessible so callers cannot probe for foreign
// tenant ids. Sibling names must be unique.
func (s *TenantService) CreateChild(ctx context.Context, actorUserID, actorTenantID, parentID, name string) (*domain.Tenant, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: tenant name required", domain.ErrValidation)
	}

	accessible, err := s.scopes.Contains(actorTenantID, parentID)
	if err != nil {
		return nil, err
	}
	if !accessible {
		s.audit.LogDenied(ctx, actorTenantID, actorUserID, "create child under inaccessible parent "+parentID)
		return nil, domain.ErrParentNotAccessible
	}

	tenant := &domain.Tenant{
		ID:             uuid.NewString(),
		Name:           name,
		ParentID:       parentID,
		OwnPermissions: []domain.PermissionKey{},
	}
	err = s.uow.WithinTx(func(repos domain.Repositories) error {
		siblings, err := repos.Tenants.ListByParent(parentID)
		if err != nil {
			return fmt.Errorf("failed to list siblings: %w", err)
		}
		for _, sib := range siblings {
			if sib.Name == name {
				return fmt.Errorf("%w: %q", domain.ErrDuplicateName, name)
			}
		}
		return repos.Tenants.Create(tenant)
	})
	if err != nil {
		metrics.ObserveCascadeOperation("create_child", "error")
		return nil, err
	}

	metrics.ObserveCascadeOperation("create_child", "ok")
	s.audit.LogTenantMutation(ctx, tenant.ID, actorUserID, "tenant_create", "ok", "child of "+parentID)
	return tenant, nil
}

// Rename changes a tenant's name. Names must stay unique within the tenant's
// scope: among its siblings, or among roots for a root tenant.
func (s *TenantService) Rename(ctx context.Context, actorUserID, tenantID, newName string) error {
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return fmt.Errorf("%w: tenant name required", domain.ErrValidation)
	}

	var oldName string
	err := s.uow.WithinTx(func(repos domain.Repositories) error {
		tenant, err := repos.Tenants.GetByID(tenantID)
		if err != nil {
			return err
		}

		var peers []*domain.Tenant
		if tenant.IsRoot() {
			peers, err = repos.Tenants.ListRoots()
		} else {
			peers, err = repos.Tenants.ListByParent(tenant.ParentID)
		}
		if err != nil {
			return fmt.Errorf("failed to list peers: %w", err)
		}
		for _, peer := range peers {
			if peer.ID != tenant.ID && peer.Name == newName {
				return fmt.Errorf("%w: %q", domain.ErrDuplicateName, newName)
			}
		}

		oldName = tenant.Name
		tenant.Name = newName
		return repos.Tenants.Update(tenant)
	})
	if err != nil {
		metrics.ObserveCascadeOperation("rename", "error")
		return err
	}

	metrics.ObserveCascadeOperation("rename", "ok")
	s.audit.LogTenantMutation(ctx, tenantID, actorUserID, "tenant_rename", "ok", oldName+" -> "+newName)
	return nil
}

// UpdatePermissions overwrites the tenant's own grants. Every key must exist
// in the application registry. Although only one tenant record changes, the
// effective permissions of its entire subtree change with it.
func (s *TenantService) UpdatePermissions(ctx context.Context, actorUserID, tenantID string, keys []domain.PermissionKey) error {
	for _, key := range keys {
		valid, err := s.registry.IsValidKey(key)
		if err != nil {
			return fmt.Errorf("failed to validate permission key: %w", err)
		}
		if !valid {
			return fmt.Errorf("%w: %q", domain.ErrUnknownPermission, key)
		}
	}

	err := s.uow.WithinTx(func(repos domain.Repositories) error {
		tenant, err := repos.Tenants.GetByID(tenantID)
		if err != nil {
			return err
		}

		// Overwriting with the grant set already held is a no-op.
		if grantsUnchanged(tenant, keys) {
			return nil
		}

		tenant.OwnPermissions = append([]domain.PermissionKey{}, keys...)
		return repos.Tenants.Update(tenant)
	})
	if err != nil {
		metrics.ObserveCascadeOperation("update_permissions", "error")
		return err
	}

	metrics.ObserveCascadeOperation("update_permissions", "ok")
	s.audit.LogTenantMutation(ctx, tenantID, actorUserID, "tenant_grant", "ok",
		fmt.Sprintf("%d permission keys", len(keys)))
	return nil
}

// grantsUnchanged reports whether keys is exactly the tenant's current own
// grant set, in any order.
func grantsUnchanged(t *domain.Tenant, keys []domain.PermissionKey) bool {
	if len(keys) != len(t.OwnPermissions) {
		return false
	}
	seen := make(map[domain.PermissionKey]bool, len(keys))
	for _, key := range keys {
		if !t.HasOwnPermission(key) || seen[key] {
			return false
		}
		seen[key] = true
	}
	return true
}

// DeleteLeafTenant deletes a tenant only if it has no child tenants and no
// users; otherwise it fails with a Conflict naming the blocking count. The
// counts are read inside the unit of work immediately before the delete, so
// the non-transactional backend still re-validates right before the
// destructive write.
func (s *TenantService) DeleteLeafTenant(ctx context.Context, actorUserID, tenantID string) error {
	err := s.uow.WithinTx(func(repos domain.Repositories) error {
		if _, err := repos.Tenants.GetByID(tenantID); err != nil {
			return err
		}

		children, err := repos.Tenants.CountChildren(tenantID)
		if err != nil {
			return fmt.Errorf("failed to count children: %w", err)
		}
		if children > 0 {
			return domain.Conflictf("%d sub-departments exist", children)
		}

		users, err := repos.Tenants.CountUsers(tenantID)
		if err != nil {
			return fmt.Errorf("failed to count users: %w", err)
		}
		if users > 0 {
			return domain.Conflictf("%d users belong to this department", users)
		}

		return repos.Tenants.Delete(tenantID)
	})
	if err != nil {
		metrics.ObserveCascadeOperation("delete_leaf", "error")
		return err
	}

	metrics.ObserveCascadeOperation("delete_leaf", "ok")
	s.audit.LogTenantMutation(ctx, tenantID, actorUserID, "tenant_delete", "ok", "leaf delete")
	return nil
}

// DeleteRootWithDirectMembers deletes a tenant together with its direct users
// and their task records. Intended for root tenants. It deliberately does not
// inspect or delete child tenants: that asymmetry with DeleteLeafTenant is
// observed behavior of the system and is preserved as-is.
func (s *TenantService) DeleteRootWithDirectMembers(ctx context.Context, actorUserID, tenantID string) error {
	var removedUsers int
	err := s.uow.WithinTx(func(repos domain.Repositories) error {
		if _, err := repos.Tenants.GetByID(tenantID); err != nil {
			return err
		}

		users, err := repos.Users.ListByTenant(tenantID)
		if err != nil {
			return fmt.Errorf("failed to list tenant users: %w", err)
		}
		for _, u := range users {
			if _, err := repos.Tasks.DeleteByUser(u.ID); err != nil {
				return fmt.Errorf("failed to delete tasks of user %s: %w", u.ID, err)
			}
		}

		removedUsers, err = repos.Users.DeleteByTenant(tenantID)
		if err != nil {
			return fmt.Errorf("failed to delete tenant users: %w", err)
		}

		return repos.Tenants.Delete(tenantID)
	})
	if err != nil {
		metrics.ObserveCascadeOperation("delete_root", "error")
		return err
	}

	s.logger.Info("tenant deleted with direct members",
		slog.String("tenant_id", tenantID),
		slog.Int("removed_users", removedUsers),
	)
	metrics.ObserveCascadeOperation("delete_root", "ok")
	s.audit.LogTenantMutation(ctx, tenantID, actorUserID, "tenant_delete", "ok",
		fmt.Sprintf("cascade delete, %d direct users removed", removedUsers))
	return nil
}
