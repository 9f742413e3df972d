package hierarchy

import (
	"errors"
	"testing"

	"github.com/fieldworkhq/orgcore/internal/domain"
	"github.com/fieldworkhq/orgcore/internal/repository/memory"
)

func seedTenant(t *testing.T, repo domain.TenantRepository, id, name, parentID string, perms ...domain.PermissionKey) {
	t.Helper()
	if err := repo.Create(&domain.Tenant{ID: id, Name: name, ParentID: parentID, OwnPermissions: perms}); err != nil {
		t.Fatalf("seed tenant %s: %v", id, err)
	}
}

func TestDescendantsOfBreadthFirst(t *testing.T) {
	repo := memory.NewStore().Tenants()
	seedTenant(t, repo, "root", "Acme", "")
	seedTenant(t, repo, "eng", "Engineering", "root")
	seedTenant(t, repo, "ops", "Operations", "root")
	seedTenant(t, repo, "eng-be", "Backend", "eng")
	seedTenant(t, repo, "ops-day", "Day Shift", "ops")
	seedTenant(t, repo, "ops-night", "Night Shift", "ops")

	r := NewResolver(repo, nil)
	ids, err := r.DescendantsOf("root")
	if err != nil {
		t.Fatalf("descendants failed: %v", err)
	}

	want := []string{"root", "eng", "ops", "eng-be", "ops-day", "ops-night"}
	if len(ids) != len(want) {
		t.Fatalf("expected %d ids, got %d: %v", len(want), len(ids), ids)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("position %d: expected %s, got %s (full: %v)", i, want[i], ids[i], ids)
		}
	}

	// A mid-level tenant enumerates only its own subtree.
	ids, err = r.DescendantsOf("ops")
	if err != nil {
		t.Fatalf("descendants failed: %v", err)
	}
	if len(ids) != 3 || ids[0] != "ops" {
		t.Fatalf("expected [ops ops-day ops-night], got %v", ids)
	}
}

func TestDescendantsOfUnknownTenant(t *testing.T) {
	r := NewResolver(memory.NewStore().Tenants(), nil)
	if _, err := r.DescendantsOf("ghost"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDescendantsOfCycleFailsLoudly(t *testing.T) {
	repo := memory.NewStore().Tenants()
	seedTenant(t, repo, "a", "A", "b")
	seedTenant(t, repo, "b", "B", "a")

	r := NewResolver(repo, nil)
	if _, err := r.DescendantsOf("a"); !errors.Is(err, domain.ErrCycleDetected) {
		t.Fatalf("expected cycle error, got %v", err)
	}
}

func TestRootOf(t *testing.T) {
	repo := memory.NewStore().Tenants()
	seedTenant(t, repo, "root", "Acme", "")
	seedTenant(t, repo, "eng", "Engineering", "root")
	seedTenant(t, repo, "eng-be", "Backend", "eng")

	r := NewResolver(repo, nil)
	for _, id := range []string{"root", "eng", "eng-be"} {
		got, err := r.RootOf(id)
		if err != nil {
			t.Fatalf("root of %s failed: %v", id, err)
		}
		if got != "root" {
			t.Fatalf("root of %s: expected root, got %s", id, got)
		}
	}
}

func TestRootOfBrokenChain(t *testing.T) {
	repo := memory.NewStore().Tenants()
	seedTenant(t, repo, "orphan", "Orphan", "ghost")

	r := NewResolver(repo, nil)
	_, err := r.RootOf("orphan")
	if !errors.Is(err, domain.ErrBrokenChain) {
		t.Fatalf("expected broken chain error, got %v", err)
	}
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("broken chain should classify as validation, got %v", err)
	}
}

func TestRootOfCycle(t *testing.T) {
	repo := memory.NewStore().Tenants()
	seedTenant(t, repo, "a", "A", "b")
	seedTenant(t, repo, "b", "B", "a")

	r := NewResolver(repo, nil)
	if _, err := r.RootOf("a"); !errors.Is(err, domain.ErrCycleDetected) {
		t.Fatalf("expected cycle error, got %v", err)
	}
}

func TestBuildTreePartialForest(t *testing.T) {
	// "eng" arrives without its parent: it must become a root of the
	// returned forest rather than being dropped.
	flat := []*domain.Tenant{
		{ID: "eng", Name: "Engineering", ParentID: "root"},
		{ID: "eng-be", Name: "Backend", ParentID: "eng"},
		{ID: "eng-fe", Name: "Frontend", ParentID: "eng"},
	}

	forest, err := BuildTree(flat)
	if err != nil {
		t.Fatalf("BuildTree: %v", err)
	}
	if len(forest) != 1 {
		t.Fatalf("expected 1 root, got %d", len(forest))
	}
	root := forest[0]
	if root.ID != "eng" {
		t.Fatalf("expected eng as root, got %s", root.ID)
	}
	if len(root.Children) != 2 || root.Children[0].ID != "eng-be" || root.Children[1].ID != "eng-fe" {
		t.Fatalf("children out of order: %+v", root.Children)
	}
}

func TestBuildTreeMultipleRoots(t *testing.T) {
	flat := []*domain.Tenant{
		{ID: "acme", Name: "Acme", ParentID: ""},
		{ID: "globex", Name: "Globex", ParentID: ""},
		{ID: "acme-eng", Name: "Engineering", ParentID: "acme"},
	}

	forest, err := BuildTree(flat)
	if err != nil {
		t.Fatalf("BuildTree: %v", err)
	}
	if len(forest) != 2 {
		t.Fatalf("expected 2 roots, got %d", len(forest))
	}
	if forest[0].ID != "acme" || forest[1].ID != "globex" {
		t.Fatalf("roots out of order: %+v", forest)
	}
	if len(forest[0].Children) != 1 || forest[0].Children[0].ID != "acme-eng" {
		t.Fatalf("acme children wrong: %+v", forest[0].Children)
	}
}

func TestBuildTreeSelfParent(t *testing.T) {
	flat := []*domain.Tenant{
		{ID: "root", Name: "Acme", ParentID: ""},
		{ID: "loop", Name: "Loop", ParentID: "loop"},
	}

	if _, err := BuildTree(flat); !errors.Is(err, domain.ErrCycleDetected) {
		t.Fatalf("expected cycle error, got %v", err)
	}
}

func TestBuildTreeMutualParents(t *testing.T) {
	// Both members of the pair are present, so neither becomes a root and
	// the pair would otherwise vanish from the forest.
	flat := []*domain.Tenant{
		{ID: "root", Name: "Acme", ParentID: ""},
		{ID: "a", Name: "A", ParentID: "b"},
		{ID: "b", Name: "B", ParentID: "a"},
	}

	if _, err := BuildTree(flat); !errors.Is(err, domain.ErrCycleDetected) {
		t.Fatalf("expected cycle error, got %v", err)
	}
}

func TestFlattenTreeRoundTrip(t *testing.T) {
	flat := []*domain.Tenant{
		{ID: "root", Name: "Acme", ParentID: ""},
		{ID: "eng", Name: "Engineering", ParentID: "root"},
		{ID: "eng-be", Name: "Backend", ParentID: "eng"},
		{ID: "ops", Name: "Operations", ParentID: "root"},
	}

	forest, err := BuildTree(flat)
	if err != nil {
		t.Fatalf("BuildTree: %v", err)
	}
	nodes := FlattenTree(forest)
	if len(nodes) != len(flat) {
		t.Fatalf("expected %d nodes, got %d", len(flat), len(nodes))
	}
	seen := map[string]bool{}
	for _, n := range nodes {
		seen[n.ID] = true
	}
	for _, tenant := range flat {
		if !seen[tenant.ID] {
			t.Fatalf("tenant %s lost in round trip", tenant.ID)
		}
	}
	// Depth-first: parents precede their children.
	if nodes[0].ID != "root" || nodes[1].ID != "eng" || nodes[2].ID != "eng-be" {
		t.Fatalf("unexpected order: %v", nodes)
	}
}
