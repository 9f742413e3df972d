package hierarchy

import (
	"errors"
	"log/slog"
	"time"

	"github.com/fieldworkhq/orgcore/internal/domain"
	"github.com/fieldworkhq/orgcore/internal/observability/metrics"
)

// ScopeResolver computes the set of tenants an actor may see or act upon:
// the actor's own tenant plus its entire subtree, never ancestors or
// siblings. Every domain query intersects its results against this set.
type ScopeResolver struct {
	resolver *Resolver
	logger   *slog.Logger
}

// NewScopeResolver creates a new access-scope resolver.
func NewScopeResolver(resolver *Resolver, logger *slog.Logger) *ScopeResolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &ScopeResolver{resolver: resolver, logger: logger}
}

// AccessibleTenantIDs returns the actor tenant plus all its descendants in
// breadth-first order. A missing or invalid actor tenant yields an empty set
// and no error: this path gates visibility and must fail closed, so callers
// default to "no data visible" instead of leaking global records. A detected
// cycle is still returned as an error, since silently scoping against a
// corrupted hierarchy could leak or hide the wrong records.
func (s *ScopeResolver) AccessibleTenantIDs(actorTenantID string) ([]string, error) {
	start := time.Now()
	defer func() {
		metrics.ObserveScopeResolution(time.Since(start))
	}()

	if actorTenantID == "" {
		return []string{}, nil
	}

	ids, err := s.resolver.DescendantsOf(actorTenantID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.logger.Debug("scope resolution for unknown tenant, failing closed",
				slog.String("tenant_id", actorTenantID),
			)
			return []string{}, nil
		}
		return nil, err
	}
	return ids, nil
}

// Contains reports whether targetTenantID is inside the actor's accessible
// set. A missing actor tenant yields false, matching AccessibleTenantIDs.
func (s *ScopeResolver) Contains(actorTenantID, targetTenantID string) (bool, error) {
	ids, err := s.AccessibleTenantIDs(actorTenantID)
	if err != nil {
		return false, err
	}
	for _, id := range ids {
		if id == targetTenantID {
			return true, nil
		}
	}
	return false, nil
}
