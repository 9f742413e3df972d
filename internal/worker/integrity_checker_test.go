package worker

import (
	"testing"

	"github.com/fieldworkhq/orgcore/internal/domain"
	"github.com/fieldworkhq/orgcore/internal/repository/memory"
)

func seedTenant(t *testing.T, repo domain.TenantRepository, id, parentID string) {
	t.Helper()
	if err := repo.Create(&domain.Tenant{ID: id, Name: id, ParentID: parentID}); err != nil {
		t.Fatalf("seed tenant %s: %v", id, err)
	}
}

func TestScanCleanForest(t *testing.T) {
	repo := memory.NewStore().Tenants()
	seedTenant(t, repo, "acme", "")
	seedTenant(t, repo, "eng", "acme")
	seedTenant(t, repo, "eng-be", "eng")
	seedTenant(t, repo, "globex", "")

	checker := NewIntegrityChecker(repo, nil, 0)
	report, err := checker.Scan()
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if !report.Clean() {
		t.Fatalf("expected clean forest, got %+v", report)
	}
	if report.TenantCount != 4 {
		t.Fatalf("expected 4 tenants, got %d", report.TenantCount)
	}
}

func TestScanBrokenChain(t *testing.T) {
	repo := memory.NewStore().Tenants()
	seedTenant(t, repo, "acme", "")
	seedTenant(t, repo, "orphan", "ghost")
	seedTenant(t, repo, "orphan-child", "orphan")

	checker := NewIntegrityChecker(repo, nil, 0)
	report, err := checker.Scan()
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if report.Clean() {
		t.Fatalf("expected broken chain finding")
	}
	found := false
	for _, id := range report.BrokenChains {
		if id == "orphan" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected orphan in broken chains, got %v", report.BrokenChains)
	}
	if len(report.Cycles) != 0 {
		t.Fatalf("expected no cycles, got %v", report.Cycles)
	}
}

func TestScanCycle(t *testing.T) {
	repo := memory.NewStore().Tenants()
	seedTenant(t, repo, "acme", "")
	seedTenant(t, repo, "a", "b")
	seedTenant(t, repo, "b", "a")

	checker := NewIntegrityChecker(repo, nil, 0)
	report, err := checker.Scan()
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if len(report.Cycles) == 0 {
		t.Fatalf("expected a cycle finding, got %+v", report)
	}
	if len(report.BrokenChains) != 0 {
		t.Fatalf("expected no broken chains, got %v", report.BrokenChains)
	}
}

func TestScanEmptyForest(t *testing.T) {
	checker := NewIntegrityChecker(memory.NewStore().Tenants(), nil, 0)
	report, err := checker.Scan()
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if !report.Clean() || report.TenantCount != 0 {
		t.Fatalf("expected clean empty report, got %+v", report)
	}
}
