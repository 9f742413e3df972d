package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fieldworkhq/orgcore/internal/domain"
	"github.com/fieldworkhq/orgcore/internal/observability/metrics"
)

// IntegrityChecker periodically scans the tenant forest for corruption:
// parent pointers referencing missing tenants and parent-link cycles. It is
// read-only; findings are surfaced loudly through logs and metrics, never
// repaired in place.
type IntegrityChecker struct {
	tenants  domain.TenantRepository
	logger   *slog.Logger
	interval time.Duration
}

// Report lists the corruption found by one scan.
type Report struct {
	TenantCount  int
	BrokenChains []string // tenant ids whose parent does not exist
	Cycles       []string // tenant ids on a parent-link cycle
}

// Clean reports whether the scan found nothing wrong.
func (r Report) Clean() bool {
	return len(r.BrokenChains) == 0 && len(r.Cycles) == 0
}

// NewIntegrityChecker creates a new hierarchy integrity checker.
func NewIntegrityChecker(tenants domain.TenantRepository, logger *slog.Logger, interval time.Duration) *IntegrityChecker {
	if logger == nil {
		logger = slog.Default()
	}
	return &IntegrityChecker{tenants: tenants, logger: logger, interval: interval}
}

// Start runs periodic scans until the context is cancelled.
func (w *IntegrityChecker) Start(ctx context.Context) {
	w.logger.Info("integrity checker started", slog.Duration("interval", w.interval))
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("integrity checker stopped")
			return
		case <-ticker.C:
			if _, err := w.Scan(); err != nil {
				w.logger.Error("integrity scan failed", slog.String("error", err.Error()))
			}
		}
	}
}

// Scan walks every tenant once and reports broken chains and cycles.
func (w *IntegrityChecker) Scan() (Report, error) {
	all, err := w.tenants.ListAll()
	if err != nil {
		return Report{}, fmt.Errorf("failed to list tenants: %w", err)
	}

	byID := make(map[string]*domain.Tenant, len(all))
	for _, t := range all {
		byID[t.ID] = t
	}

	report := Report{TenantCount: len(all)}
	metrics.SetTenantCount(len(all))

	// A tenant is "safe" once a walk from it has reached a root or a
	// previously verified tenant, so each parent chain is walked only once.
	safe := make(map[string]bool, len(all))
	for _, t := range all {
		if safe[t.ID] {
			continue
		}

		onPath := map[string]bool{}
		var path []string
		current := t
		for {
			if safe[current.ID] {
				break
			}
			onPath[current.ID] = true
			path = append(path, current.ID)

			if current.ParentID == "" {
				break
			}
			if onPath[current.ParentID] {
				report.Cycles = append(report.Cycles, current.ParentID)
				w.logger.Error("hierarchy cycle detected",
					slog.String("tenant_id", current.ParentID),
				)
				metrics.ObserveIntegrityFault("cycle")
				path = nil // nothing on this chain is safe
				break
			}
			parent, ok := byID[current.ParentID]
			if !ok {
				report.BrokenChains = append(report.BrokenChains, current.ID)
				w.logger.Error("broken parent chain detected",
					slog.String("tenant_id", current.ID),
					slog.String("missing_parent", current.ParentID),
				)
				metrics.ObserveIntegrityFault("broken_chain")
				path = nil
				break
			}
			current = parent
		}
		for _, id := range path {
			safe[id] = true
		}
	}

	if report.Clean() {
		w.logger.Debug("integrity scan clean", slog.Int("tenants", report.TenantCount))
	}
	return report, nil
}
