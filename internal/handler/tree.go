package handler

import (
	"log/slog"
	"net/http"

	"github.com/fieldworkhq/orgcore/internal/domain"
	"github.com/fieldworkhq/orgcore/internal/hierarchy"
	"github.com/fieldworkhq/orgcore/internal/security"
	"github.com/fieldworkhq/orgcore/internal/security/middleware"
)

// TreeHandler renders the actor's accessible subtree and resolves effective
// permissions, the two read surfaces UI endpoints consume.
type TreeHandler struct {
	tenants     domain.TenantRepository
	scopes      *hierarchy.ScopeResolver
	permissions *hierarchy.PermissionResolver
	authz       *security.Authorizer
	logger      *slog.Logger
}

// NewTreeHandler creates a new tree handler.
func NewTreeHandler(
	tenants domain.TenantRepository,
	scopes *hierarchy.ScopeResolver,
	permissions *hierarchy.PermissionResolver,
	authz *security.Authorizer,
	logger *slog.Logger,
) *TreeHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &TreeHandler{
		tenants:     tenants,
		scopes:      scopes,
		permissions: permissions,
		authz:       authz,
		logger:      logger,
	}
}

type treeNode struct {
	ID       string     `json:"id"`
	Name     string     `json:"name"`
	Children []treeNode `json:"children"`
}

// Tree handles GET /api/tenants/tree: the actor's tenant and everything
// beneath it, as a forest. An actor with an unknown tenant sees an empty
// forest, never someone else's.
func (h *TreeHandler) Tree(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	ids, err := h.scopes.AccessibleTenantIDs(actor.TenantID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	flat := make([]*domain.Tenant, 0, len(ids))
	for _, id := range ids {
		t, err := h.tenants.GetByID(id)
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		flat = append(flat, t)
	}

	forest, err := hierarchy.BuildTree(flat)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toTreeNodes(forest))
}

type effectivePermissionsResponse struct {
	TenantID    string   `json:"tenant_id"`
	Permissions []string `json:"permissions"`
}

// EffectivePermissions handles GET /api/tenants/{id}/permissions: the
// inherited permission set of a tenant in the actor's scope.
func (h *TreeHandler) EffectivePermissions(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	tenantID := r.PathValue("id")

	decision, err := h.authz.Authorize(actor, security.ActionViewTenant, tenantID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if !decision.Allowed {
		writeJSON(w, http.StatusForbidden, errorResponse{Error: "forbidden"})
		return
	}

	keys, err := h.permissions.EffectivePermissions(tenantID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	perms := make([]string, len(keys))
	for i, k := range keys {
		perms[i] = string(k)
	}
	writeJSON(w, http.StatusOK, effectivePermissionsResponse{TenantID: tenantID, Permissions: perms})
}

func toTreeNodes(forest []*domain.TenantNode) []treeNode {
	out := make([]treeNode, 0, len(forest))
	for _, n := range forest {
		out = append(out, treeNode{
			ID:       n.ID,
			Name:     n.Name,
			Children: toTreeNodes(n.Children),
		})
	}
	return out
}
