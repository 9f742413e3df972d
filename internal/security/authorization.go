package security

import (
	"log/slog"

	"github.com/fieldworkhq/orgcore/internal/domain"
	"github.com/fieldworkhq/orgcore/internal/hierarchy"
	"github.com/fieldworkhq/orgcore/internal/observability/metrics"
)

// Built-in role names.
const (
	RoleSuperuser domain.RoleName = "superuser"
	RoleOrgAdmin  domain.RoleName = "org_admin"
	RoleDeptAdmin domain.RoleName = "dept_admin"
	RoleMember    domain.RoleName = "member"
)

// Action identifies an operation an actor requests on a target tenant.
type Action string

const (
	ActionViewTenant       Action = "view_tenant"
	ActionCreateTenant     Action = "create_tenant"
	ActionRenameTenant     Action = "rename_tenant"
	ActionGrantPermissions Action = "grant_permissions"
	ActionDeleteTenant     Action = "delete_tenant"
	ActionManageUsers      Action = "manage_users"
	ActionListUsers        Action = "list_users"
)

// RoleActions maps roles to the actions they entitle. The superuser role is
// absent on purpose: it bypasses the table entirely.
var RoleActions = map[domain.RoleName][]Action{
	RoleOrgAdmin: {
		ActionViewTenant,
		ActionCreateTenant,
		ActionRenameTenant,
		ActionGrantPermissions,
		ActionDeleteTenant,
		ActionManageUsers,
		ActionListUsers,
	},
	RoleDeptAdmin: {
		ActionViewTenant,
		ActionCreateTenant,
		ActionRenameTenant,
		ActionManageUsers,
		ActionListUsers,
	},
	RoleMember: {
		ActionViewTenant,
		ActionListUsers,
	},
}

// DenyReason distinguishes why an authorization was refused. Callers may
// collapse both into a generic "forbidden" for end users; the distinction is
// kept for observability.
type DenyReason string

const (
	ReasonRoleInsufficient DenyReason = "role_insufficient"
	ReasonOutOfScope       DenyReason = "out_of_scope"
)

// Decision is the outcome of an authorization check.
type Decision struct {
	Allowed bool
	Reason  DenyReason // empty when Allowed
}

// Actor is an already-authenticated identity, as handed in by the caller.
type Actor struct {
	UserID   string
	TenantID string
	Roles    []domain.RoleName
}

// HasRole reports whether the actor holds the given role.
func (a Actor) HasRole(role domain.RoleName) bool {
	for _, r := range a.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Authorizer combines role entitlement with tenant-scope membership. Both
// checks must pass unless the actor holds the superuser bypass role.
type Authorizer struct {
	scopes *hierarchy.ScopeResolver
	logger *slog.Logger
}

// NewAuthorizer creates a new role-and-scope authorizer.
func NewAuthorizer(scopes *hierarchy.ScopeResolver, logger *slog.Logger) *Authorizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Authorizer{scopes: scopes, logger: logger}
}

// Authorize decides whether actor may perform action on targetTenantID.
// The returned error is reserved for storage failures and hierarchy
// corruption; an ordinary refusal is a Decision with Allowed=false.
func (a *Authorizer) Authorize(actor Actor, action Action, targetTenantID string) (Decision, error) {
	if actor.HasRole(RoleSuperuser) {
		metrics.ObserveAuthorizeDecision("allow", "")
		return Decision{Allowed: true}, nil
	}

	if !a.roleEntitles(actor, action) {
		a.logger.Warn("authorization denied: role insufficient",
			slog.String("user_id", actor.UserID),
			slog.String("action", string(action)),
			slog.String("target_tenant", targetTenantID),
		)
		metrics.ObserveAuthorizeDecision("deny", string(ReasonRoleInsufficient))
		return Decision{Allowed: false, Reason: ReasonRoleInsufficient}, nil
	}

	inScope, err := a.scopes.Contains(actor.TenantID, targetTenantID)
	if err != nil {
		return Decision{}, err
	}
	if !inScope {
		a.logger.Warn("authorization denied: target tenant out of scope",
			slog.String("user_id", actor.UserID),
			slog.String("actor_tenant", actor.TenantID),
			slog.String("action", string(action)),
			slog.String("target_tenant", targetTenantID),
		)
		metrics.ObserveAuthorizeDecision("deny", string(ReasonOutOfScope))
		return Decision{Allowed: false, Reason: ReasonOutOfScope}, nil
	}

	metrics.ObserveAuthorizeDecision("allow", "")
	return Decision{Allowed: true}, nil
}

func (a *Authorizer) roleEntitles(actor Actor, action Action) bool {
	for _, role := range actor.Roles {
		for _, entitled := range RoleActions[role] {
			if entitled == action {
				return true
			}
		}
	}
	return false
}
