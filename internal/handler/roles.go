package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/fieldworkhq/orgcore/internal/domain"
	"github.com/fieldworkhq/orgcore/internal/hierarchy"
	"github.com/fieldworkhq/orgcore/internal/security"
	"github.com/fieldworkhq/orgcore/internal/security/middleware"
)

// RolesHandler exposes organization-scoped roles. Roles always belong to the
// organization root of the actor, regardless of which department the actor
// sits in.
type RolesHandler struct {
	roles    domain.RoleRepository
	resolver *hierarchy.Resolver
	logger   *slog.Logger
}

// NewRolesHandler creates a new roles handler.
func NewRolesHandler(roles domain.RoleRepository, resolver *hierarchy.Resolver, logger *slog.Logger) *RolesHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &RolesHandler{roles: roles, resolver: resolver, logger: logger}
}

type roleResponse struct {
	ID                 string `json:"id"`
	Name               string `json:"name"`
	OrganizationRootID string `json:"organization_root_id"`
}

// List handles GET /api/roles.
func (h *RolesHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	rootID, err := h.resolver.RootOf(actor.TenantID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	roles, err := h.roles.ListByOrganization(rootID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	out := make([]roleResponse, 0, len(roles))
	for _, role := range roles {
		out = append(out, roleResponse{ID: role.ID, Name: string(role.Name), OrganizationRootID: role.OrganizationRootID})
	}
	writeJSON(w, http.StatusOK, out)
}

type createRoleRequest struct {
	Name string `json:"name"`
}

// Create handles POST /api/roles. Organization admins and superusers only.
func (h *RolesHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if !actor.HasRole(security.RoleSuperuser) && !actor.HasRole(security.RoleOrgAdmin) {
		writeJSON(w, http.StatusForbidden, errorResponse{Error: "forbidden"})
		return
	}

	var req createRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "role name required"})
		return
	}

	rootID, err := h.resolver.RootOf(actor.TenantID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	role := &domain.Role{
		ID:                 uuid.NewString(),
		Name:               domain.RoleName(name),
		OrganizationRootID: rootID,
	}
	if err := h.roles.Create(role); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, roleResponse{ID: role.ID, Name: name, OrganizationRootID: rootID})
}
