package test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fieldworkhq/orgcore/internal/domain"
	"github.com/fieldworkhq/orgcore/internal/handler"
	"github.com/fieldworkhq/orgcore/internal/hierarchy"
	"github.com/fieldworkhq/orgcore/internal/repository/memory"
	"github.com/fieldworkhq/orgcore/internal/security"
	"github.com/fieldworkhq/orgcore/internal/security/audit"
	"github.com/fieldworkhq/orgcore/internal/security/auth"
	"github.com/fieldworkhq/orgcore/internal/security/middleware"
	"github.com/fieldworkhq/orgcore/internal/service"
)

func newDiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type env struct {
	store  *memory.Store
	tokens *auth.TokenManager
	server *httptest.Server
}

// newEnv wires the full stack over the in-memory backend, exactly as the
// server binary does minus Postgres, Redis and tracing.
func newEnv(t *testing.T) *env {
	t.Helper()
	store := memory.NewStore()
	resolver := hierarchy.NewResolver(store.Tenants(), nil)
	scopes := hierarchy.NewScopeResolver(resolver, nil)
	permissions := hierarchy.NewPermissionResolver(store.Tenants(), nil)
	authorizer := security.NewAuthorizer(scopes, nil)
	auditLogger := audit.NewLogger(nil, nil, 0)

	tenantService := service.NewTenantService(store.UnitOfWork(), store.Applications(), scopes, auditLogger, nil)
	userService := service.NewUserService(store.Users(), scopes, auditLogger, nil)

	tenantsHandler := handler.NewTenantsHandler(tenantService, authorizer, auditLogger, nil)
	treeHandler := handler.NewTreeHandler(store.Tenants(), scopes, permissions, authorizer, nil)
	usersHandler := handler.NewUsersHandler(userService, authorizer, auditLogger, nil)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/tenants", tenantsHandler.Create)
	mux.HandleFunc("PATCH /api/tenants/{id}", tenantsHandler.Rename)
	mux.HandleFunc("PUT /api/tenants/{id}/permissions", tenantsHandler.UpdatePermissions)
	mux.HandleFunc("DELETE /api/tenants/{id}", tenantsHandler.Delete)
	mux.HandleFunc("GET /api/tenants/tree", treeHandler.Tree)
	mux.HandleFunc("GET /api/tenants/{id}/permissions", treeHandler.EffectivePermissions)
	mux.HandleFunc("POST /api/users", usersHandler.Create)
	mux.HandleFunc("GET /api/users", usersHandler.List)

	tokens := auth.NewTokenManager("integration-secret", "orgcore")
	root := middleware.ActorMiddleware(tokens, newDiscardLogger())(mux)

	server := httptest.NewServer(root)
	t.Cleanup(server.Close)
	return &env{store: store, tokens: tokens, server: server}
}

func (e *env) token(t *testing.T, userID, tenantID string, roles ...domain.RoleName) string {
	t.Helper()
	token, err := e.tokens.GenerateToken(userID, tenantID, roles, time.Hour)
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func (e *env) do(t *testing.T, method, path, token string, payload any) (*http.Response, []byte) {
	t.Helper()
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, e.server.URL+path, body)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, path, err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	return resp, raw
}

func TestUnauthenticatedRequestsRejected(t *testing.T) {
	e := newEnv(t)

	resp, _ := e.do(t, http.MethodGet, "/api/tenants/tree", "", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}

	resp, _ = e.do(t, http.MethodGet, "/api/tenants/tree", "garbage.token.here", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for invalid token, got %d", resp.StatusCode)
	}
}

func TestOrganizationLifecycle(t *testing.T) {
	e := newEnv(t)
	super := e.token(t, "su", "", security.RoleSuperuser)

	// Register an organization root; non-superusers may not.
	resp, raw := e.do(t, http.MethodPost, "/api/tenants", super, map[string]string{"name": "Acme"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("root create: expected 201, got %d: %s", resp.StatusCode, raw)
	}
	var created struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &created); err != nil || created.ID == "" {
		t.Fatalf("bad create response: %s", raw)
	}
	rootID := created.ID

	admin := e.token(t, "admin", rootID, security.RoleOrgAdmin)
	resp, _ = e.do(t, http.MethodPost, "/api/tenants", admin, map[string]string{"name": "Rogue Org"})
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("org admin registering a root: expected 403, got %d", resp.StatusCode)
	}

	// Build a small department tree as the org admin.
	resp, raw = e.do(t, http.MethodPost, "/api/tenants", admin, map[string]string{"name": "Engineering", "parent_id": rootID})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("child create: expected 201, got %d: %s", resp.StatusCode, raw)
	}
	if err := json.Unmarshal(raw, &created); err != nil {
		t.Fatalf("bad create response: %s", raw)
	}
	engID := created.ID

	resp, raw = e.do(t, http.MethodPost, "/api/tenants", admin, map[string]string{"name": "Backend", "parent_id": engID})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("grandchild create: expected 201, got %d: %s", resp.StatusCode, raw)
	}
	if err := json.Unmarshal(raw, &created); err != nil {
		t.Fatalf("bad create response: %s", raw)
	}
	backendID := created.ID

	// Duplicate sibling names are conflicts at the API edge too.
	resp, _ = e.do(t, http.MethodPost, "/api/tenants", admin, map[string]string{"name": "Engineering", "parent_id": rootID})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("duplicate sibling: expected 400, got %d", resp.StatusCode)
	}

	// Grant at the root, inherit at the grandchild.
	resp, _ = e.do(t, http.MethodPut, "/api/tenants/"+rootID+"/permissions", admin,
		map[string][]string{"permissions": {"todos"}})
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("grant: expected 204, got %d", resp.StatusCode)
	}
	resp, _ = e.do(t, http.MethodPut, "/api/tenants/"+engID+"/permissions", admin,
		map[string][]string{"permissions": {"photo_posts"}})
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("grant: expected 204, got %d", resp.StatusCode)
	}

	resp, raw = e.do(t, http.MethodGet, "/api/tenants/"+backendID+"/permissions", admin, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("effective permissions: expected 200, got %d", resp.StatusCode)
	}
	var perms struct {
		Permissions []string `json:"permissions"`
	}
	if err := json.Unmarshal(raw, &perms); err != nil {
		t.Fatalf("bad permissions response: %s", raw)
	}
	if len(perms.Permissions) != 2 || perms.Permissions[0] != "photo_posts" || perms.Permissions[1] != "todos" {
		t.Fatalf("expected inherited [photo_posts todos], got %v", perms.Permissions)
	}

	// Unknown permission keys are refused.
	resp, _ = e.do(t, http.MethodPut, "/api/tenants/"+engID+"/permissions", admin,
		map[string][]string{"permissions": {"crypto_mining"}})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("unknown key: expected 400, got %d", resp.StatusCode)
	}

	// The tree endpoint renders the admin's whole organization.
	resp, raw = e.do(t, http.MethodGet, "/api/tenants/tree", admin, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("tree: expected 200, got %d", resp.StatusCode)
	}
	var forest []struct {
		ID       string `json:"id"`
		Children []struct {
			ID       string `json:"id"`
			Children []struct {
				ID string `json:"id"`
			} `json:"children"`
		} `json:"children"`
	}
	if err := json.Unmarshal(raw, &forest); err != nil {
		t.Fatalf("bad tree response: %s", raw)
	}
	if len(forest) != 1 || forest[0].ID != rootID {
		t.Fatalf("expected one root %s, got %s", rootID, raw)
	}
	if len(forest[0].Children) != 1 || forest[0].Children[0].ID != engID {
		t.Fatalf("expected eng under root, got %s", raw)
	}
	if len(forest[0].Children[0].Children) != 1 || forest[0].Children[0].Children[0].ID != backendID {
		t.Fatalf("expected backend under eng, got %s", raw)
	}

	// Deleting a tenant that still has a child is a conflict.
	resp, _ = e.do(t, http.MethodDelete, "/api/tenants/"+engID, admin, nil)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("delete with child: expected 409, got %d", resp.StatusCode)
	}

	// Leaf delete succeeds bottom-up.
	resp, _ = e.do(t, http.MethodDelete, "/api/tenants/"+backendID, admin, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("leaf delete: expected 204, got %d", resp.StatusCode)
	}
	resp, _ = e.do(t, http.MethodDelete, "/api/tenants/"+engID, admin, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("leaf delete: expected 204, got %d", resp.StatusCode)
	}
}

func TestScopeIsolationAcrossDepartments(t *testing.T) {
	e := newEnv(t)

	// Seed directly: one org, two sibling departments with a user each.
	tenants := e.store.Tenants()
	mustCreate := func(tenant *domain.Tenant) {
		if err := tenants.Create(tenant); err != nil {
			t.Fatalf("seed tenant: %v", err)
		}
	}
	mustCreate(&domain.Tenant{ID: "root", Name: "Acme"})
	mustCreate(&domain.Tenant{ID: "eng", Name: "Engineering", ParentID: "root"})
	mustCreate(&domain.Tenant{ID: "ops", Name: "Operations", ParentID: "root"})
	for _, u := range []string{"eng-user", "ops-user"} {
		tenant := "eng"
		if u == "ops-user" {
			tenant = "ops"
		}
		if err := e.store.Users().Create(&domain.User{ID: u, TenantID: tenant, Email: u + "@example.com", Username: u}); err != nil {
			t.Fatalf("seed user: %v", err)
		}
	}

	engAdmin := e.token(t, "eng-admin", "eng", security.RoleDeptAdmin)

	// A department admin cannot create under a sibling department.
	resp, _ := e.do(t, http.MethodPost, "/api/tenants", engAdmin, map[string]string{"name": "Sneaky", "parent_id": "ops"})
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("cross-department create: expected 403, got %d", resp.StatusCode)
	}

	// User listing is scoped to the admin's subtree.
	resp, raw := e.do(t, http.MethodGet, "/api/users", engAdmin, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list users: expected 200, got %d", resp.StatusCode)
	}
	var users []struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &users); err != nil {
		t.Fatalf("bad users response: %s", raw)
	}
	if len(users) != 1 || users[0].ID != "eng-user" {
		t.Fatalf("expected only eng-user, got %s", raw)
	}

	// An actor from a tenant that no longer exists sees nothing at all.
	ghost := e.token(t, "ghost", "vanished", security.RoleOrgAdmin)
	resp, raw = e.do(t, http.MethodGet, "/api/tenants/tree", ghost, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("ghost tree: expected 200, got %d", resp.StatusCode)
	}
	var forest []json.RawMessage
	if err := json.Unmarshal(raw, &forest); err != nil {
		t.Fatalf("bad tree response: %s", raw)
	}
	if len(forest) != 0 {
		t.Fatalf("ghost actor must see an empty forest, got %s", raw)
	}
}
