package hierarchy

import (
	"errors"
	"testing"

	"github.com/fieldworkhq/orgcore/internal/domain"
	"github.com/fieldworkhq/orgcore/internal/repository/memory"
)

func newScopeFixture(t *testing.T) (*ScopeResolver, domain.TenantRepository) {
	t.Helper()
	repo := memory.NewStore().Tenants()
	seedTenant(t, repo, "root", "Acme", "")
	seedTenant(t, repo, "eng", "Engineering", "root")
	seedTenant(t, repo, "ops", "Operations", "root")
	seedTenant(t, repo, "eng-be", "Backend", "eng")
	return NewScopeResolver(NewResolver(repo, nil), nil), repo
}

func TestAccessibleTenantIDsSubtreeOnly(t *testing.T) {
	scopes, _ := newScopeFixture(t)

	ids, err := scopes.AccessibleTenantIDs("eng")
	if err != nil {
		t.Fatalf("scope resolution failed: %v", err)
	}
	if len(ids) != 2 || ids[0] != "eng" || ids[1] != "eng-be" {
		t.Fatalf("expected [eng eng-be], got %v", ids)
	}

	// A root actor sees the whole organization.
	ids, err = scopes.AccessibleTenantIDs("root")
	if err != nil {
		t.Fatalf("scope resolution failed: %v", err)
	}
	if len(ids) != 4 {
		t.Fatalf("expected 4 ids, got %v", ids)
	}
}

func TestAccessibleTenantIDsFailsClosed(t *testing.T) {
	scopes, _ := newScopeFixture(t)

	for _, actor := range []string{"", "ghost"} {
		ids, err := scopes.AccessibleTenantIDs(actor)
		if err != nil {
			t.Fatalf("actor %q: expected nil error, got %v", actor, err)
		}
		if ids == nil {
			t.Fatalf("actor %q: expected empty set, got nil", actor)
		}
		if len(ids) != 0 {
			t.Fatalf("actor %q: expected no visibility, got %v", actor, ids)
		}
	}
}

func TestAccessibleTenantIDsCyclePropagates(t *testing.T) {
	repo := memory.NewStore().Tenants()
	seedTenant(t, repo, "a", "A", "b")
	seedTenant(t, repo, "b", "B", "a")
	scopes := NewScopeResolver(NewResolver(repo, nil), nil)

	if _, err := scopes.AccessibleTenantIDs("a"); !errors.Is(err, domain.ErrCycleDetected) {
		t.Fatalf("expected cycle error, got %v", err)
	}
}

func TestContains(t *testing.T) {
	scopes, _ := newScopeFixture(t)

	cases := []struct {
		actor, target string
		want          bool
	}{
		{"eng", "eng", true},     // own tenant
		{"eng", "eng-be", true},  // descendant
		{"eng", "root", false},   // ancestor
		{"eng", "ops", false},    // sibling
		{"ghost", "root", false}, // unknown actor fails closed
	}
	for _, c := range cases {
		got, err := scopes.Contains(c.actor, c.target)
		if err != nil {
			t.Fatalf("contains(%s, %s) failed: %v", c.actor, c.target, err)
		}
		if got != c.want {
			t.Fatalf("contains(%s, %s): expected %v, got %v", c.actor, c.target, c.want, got)
		}
	}
}
