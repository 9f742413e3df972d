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

// UsersHandler exposes user management within the actor's tenant scope.
type UsersHandler struct {
	users  *service.UserService
	authz  *security.Authorizer
	audit  *audit.Logger
	logger *slog.Logger
}

// NewUsersHandler creates a new users handler.
func NewUsersHandler(users *service.UserService, authz *security.Authorizer, auditLog *audit.Logger, logger *slog.Logger) *UsersHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &UsersHandler{users: users, authz: authz, audit: auditLog, logger: logger}
}

type createUserRequest struct {
	TenantID string   `json:"tenant_id"`
	Email    string   `json:"email"`
	Username string   `json:"username"`
	Password string   `json:"password"`
	Roles    []string `json:"roles"`
}

type userResponse struct {
	ID       string   `json:"id"`
	TenantID string   `json:"tenant_id"`
	Email    string   `json:"email"`
	Username string   `json:"username"`
	Roles    []string `json:"roles"`
}

// Create handles POST /api/users.
func (h *UsersHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	if !h.allow(w, r, actor, security.ActionManageUsers, req.TenantID) {
		return
	}

	roles := make([]domain.RoleName, len(req.Roles))
	for i, role := range req.Roles {
		roles[i] = domain.RoleName(role)
	}
	user, err := h.users.CreateUser(r.Context(), actor.UserID, actor.TenantID, service.CreateUserOptions{
		TenantID: req.TenantID,
		Email:    req.Email,
		Username: req.Username,
		Password: req.Password,
		Roles:    roles,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, toUserResponse(user))
}

// List handles GET /api/users: every user inside the actor's accessible set.
func (h *UsersHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	if !h.allow(w, r, actor, security.ActionListUsers, actor.TenantID) {
		return
	}

	users, err := h.users.ListUsers(r.Context(), actor.TenantID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toUserResponse(u))
	}
	writeJSON(w, http.StatusOK, out)
}

type relocateRequest struct {
	TenantID string `json:"tenant_id"`
}

// Relocate handles POST /api/users/{id}/relocate.
func (h *UsersHandler) Relocate(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	userID := r.PathValue("id")

	var req relocateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	if !h.allow(w, r, actor, security.ActionManageUsers, req.TenantID) {
		return
	}
	if err := h.users.RelocateUser(r.Context(), actor.UserID, actor.TenantID, userID, req.TenantID); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *UsersHandler) allow(w http.ResponseWriter, r *http.Request, actor security.Actor, action security.Action, targetTenantID string) bool {
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

func toUserResponse(u *domain.User) userResponse {
	roles := make([]string, len(u.Roles))
	for i, r := range u.Roles {
		roles[i] = string(r)
	}
	return userResponse{ID: u.ID, TenantID: u.TenantID, Email: u.Email, Username: u.Username, Roles: roles}
}
