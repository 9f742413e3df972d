package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/fieldworkhq/orgcore/internal/domain"
	"github.com/fieldworkhq/orgcore/internal/hierarchy"
	"github.com/fieldworkhq/orgcore/internal/repository/memory"
	"github.com/fieldworkhq/orgcore/internal/security/audit"
)

func newUserServiceFixture(t *testing.T) (*UserService, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	scopes := hierarchy.NewScopeResolver(hierarchy.NewResolver(store.Tenants(), nil), nil)
	svc := NewUserService(store.Users(), scopes, audit.NewLogger(nil, nil, 0), nil)

	seedTenant(t, store, "root", "Acme", "")
	seedTenant(t, store, "eng", "Engineering", "root")
	seedTenant(t, store, "ops", "Operations", "root")
	return svc, store
}

func TestCreateUser(t *testing.T) {
	svc, store := newUserServiceFixture(t)
	ctx := context.Background()

	user, err := svc.CreateUser(ctx, "admin", "root", CreateUserOptions{
		TenantID: "eng",
		Email:    "alice@example.com",
		Username: "alice",
		Password: "hunter2hunter2",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, user.ID)
	assert.Equal(t, []domain.RoleName{"member"}, user.Roles)

	// The password is stored as a bcrypt hash, never plaintext.
	stored, err := store.Users().GetByID(user.ID)
	require.NoError(t, err)
	assert.NotEqual(t, "hunter2hunter2", stored.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("hunter2hunter2")))
}

func TestCreateUserValidation(t *testing.T) {
	svc, _ := newUserServiceFixture(t)
	ctx := context.Background()

	cases := []struct {
		name string
		opts CreateUserOptions
	}{
		{"missing email", CreateUserOptions{TenantID: "eng", Username: "x", Password: "longenough"}},
		{"missing username", CreateUserOptions{TenantID: "eng", Email: "x@example.com", Password: "longenough"}},
		{"short password", CreateUserOptions{TenantID: "eng", Email: "x@example.com", Username: "x", Password: "short"}},
	}
	for _, c := range cases {
		_, err := svc.CreateUser(ctx, "admin", "root", c.opts)
		assert.ErrorIs(t, err, domain.ErrValidation, c.name)
	}
}

func TestCreateUserOutOfScope(t *testing.T) {
	svc, _ := newUserServiceFixture(t)
	ctx := context.Background()

	// An eng actor cannot place users in its sibling.
	_, err := svc.CreateUser(ctx, "u1", "eng", CreateUserOptions{
		TenantID: "ops",
		Email:    "mole@example.com",
		Username: "mole",
		Password: "longenough",
	})
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestRelocateUser(t *testing.T) {
	svc, store := newUserServiceFixture(t)
	ctx := context.Background()
	seedUser(t, store, "alice", "eng")

	require.NoError(t, svc.RelocateUser(ctx, "admin", "root", "alice", "ops"))
	user, err := store.Users().GetByID("alice")
	require.NoError(t, err)
	assert.Equal(t, "ops", user.TenantID)

	// Destination outside the actor's scope is refused and nothing moves.
	err = svc.RelocateUser(ctx, "u1", "eng", "alice", "eng")
	require.NoError(t, err)
	err = svc.RelocateUser(ctx, "u1", "eng", "alice", "ops")
	assert.ErrorIs(t, err, domain.ErrForbidden)
	user, err = store.Users().GetByID("alice")
	require.NoError(t, err)
	assert.Equal(t, "eng", user.TenantID)

	assert.ErrorIs(t, svc.RelocateUser(ctx, "admin", "root", "ghost", "ops"), domain.ErrNotFound)
}

func TestListUsersScoped(t *testing.T) {
	svc, store := newUserServiceFixture(t)
	ctx := context.Background()
	seedTenant(t, store, "eng-be", "Backend", "eng")
	seedUser(t, store, "alice", "eng")
	seedUser(t, store, "bob", "eng-be")
	seedUser(t, store, "carol", "ops")

	users, err := svc.ListUsers(ctx, "eng")
	require.NoError(t, err)
	require.Len(t, users, 2)
	ids := []string{users[0].ID, users[1].ID}
	assert.Contains(t, ids, "alice")
	assert.Contains(t, ids, "bob")

	// Unknown actor tenant fails closed: empty, no error.
	users, err = svc.ListUsers(ctx, "ghost")
	require.NoError(t, err)
	assert.Empty(t, users)
}
