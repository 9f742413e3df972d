package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/fieldworkhq/orgcore/internal/domain"
	"github.com/fieldworkhq/orgcore/internal/security"
	"github.com/fieldworkhq/orgcore/internal/security/audit"
	"github.com/fieldworkhq/orgcore/internal/security/middleware"
	"github.com/fieldworkhq/orgcore/internal/service"
)

// TenantsHandler exposes tenant mutations: create, rename, permission
// updates and the two deletion policies. Every mutation passes through the
// authorizer before reaching the coordinator.
type TenantsHandler struct {
	tenants *service.TenantService
	authz   *security.Authorizer
	audit   *audit.Logger
	logger  *slog.Logger
}

// NewTenantsHandler creates a new tenants handler.
func NewTenantsHandler(tenants *service.TenantService, authz *security.Authorizer, auditLog *audit.Logger, logger *slog.Logger) *TenantsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &TenantsHandler{tenants: tenants, authz: authz, audit: auditLog, logger: logger}
}

type createTenantRequest struct {
	Name     string `json:"name"`
	ParentID string `json:"parent_id"`
}

type tenantResponse struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	ParentID string `json:"parent_id,omitempty"`
}

// Create handles POST /api/tenants. An empty parent_id registers a new
// organization root, which only superusers may do.
func (h *TenantsHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req createTenantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	var tenant *domain.Tenant
	var err error
	if req.ParentID == "" {
		if !actor.HasRole(security.RoleSuperuser) {
			h.audit.LogDenied(r.Context(), actor.TenantID, actor.UserID, "root tenant registration")
			writeJSON(w, http.StatusForbidden, errorResponse{Error: "forbidden"})
			return
		}
		tenant, err = h.tenants.CreateRoot(r.Context(), actor.UserID, req.Name)
	} else {
		if !h.allow(w, r, actor, security.ActionCreateTenant, req.ParentID) {
			return
		}
		tenant, err = h.tenants.CreateChild(r.Context(), actor.UserID, actor.TenantID, req.ParentID, req.Name)
	}
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, tenantResponse{ID: tenant.ID, Name: tenant.Name, ParentID: tenant.ParentID})
}

type renameRequest struct {
	Name string `json:"name"`
}

// Rename handles PATCH /api/tenants/{id}.
func (h *TenantsHandler) Rename(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	tenantID := r.PathValue("id")

	var req renameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	if !h.allow(w, r, actor, security.ActionRenameTenant, tenantID) {
		return
	}
	if err := h.tenants.Rename(r.Context(), actor.UserID, tenantID, req.Name); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type updatePermissionsRequest struct {
	Permissions []string `json:"permissions"`
}

// UpdatePermissions handles PUT /api/tenants/{id}/permissions.
func (h *TenantsHandler) UpdatePermissions(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	tenantID := r.PathValue("id")

	var req updatePermissionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	if !h.allow(w, r, actor, security.ActionGrantPermissions, tenantID) {
		return
	}

	keys := make([]domain.PermissionKey, len(req.Permissions))
	for i, p := range req.Permissions {
		keys[i] = domain.PermissionKey(p)
	}
	if err := h.tenants.UpdatePermissions(r.Context(), actor.UserID, tenantID, keys); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Delete handles DELETE /api/tenants/{id}. The default policy refuses to
// delete a tenant that still has children or users. Superusers may request
// ?mode=cascade-direct, which removes the tenant's direct users and their
// tasks along with the tenant; child tenants are not touched.
func (h *TenantsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	tenantID := r.PathValue("id")

	if r.URL.Query().Get("mode") == "cascade-direct" {
		if !actor.HasRole(security.RoleSuperuser) {
			h.audit.LogDenied(r.Context(), actor.TenantID, actor.UserID, "cascade delete of tenant "+tenantID)
			writeJSON(w, http.StatusForbidden, errorResponse{Error: "forbidden"})
			return
		}
		if err := h.tenants.DeleteRootWithDirectMembers(r.Context(), actor.UserID, tenantID); err != nil {
			writeError(w, h.logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if !h.allow(w, r, actor, security.ActionDeleteTenant, tenantID) {
		return
	}
	if err := h.tenants.DeleteLeafTenant(r.Context(), actor.UserID, tenantID); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// allow runs the authorizer and writes the refusal if the decision is deny.
func (h *TenantsHandler) allow(w http.ResponseWriter, r *http.Request, actor security.Actor, action security.Action, targetTenantID string) bool {
	decision, err := h.authz.Authorize(actor, action, targetTenantID)
	if err != nil {
		writeError(w, h.logger, err)
		return false
	}
	if !decision.Allowed {
		h.audit.LogDenied(r.Context(), actor.TenantID, actor.UserID, string(decision.Reason))
		writeJSON(w, http.StatusForbidden, errorResponse{Error: "forbidden"})
		return false
	}
	return true
}
