package hierarchy

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/fieldworkhq/orgcore/internal/domain"
	"github.com/fieldworkhq/orgcore/pkg/memo"
)

// PermissionResolver computes a tenant's effective permission set: the union
// of its own grants and every ancestor's grants up to the organization root.
// Inheritance flows strictly downward and is purely additive, so a descendant
// may hold grants none of its ancestors have.
type PermissionResolver struct {
	tenants domain.TenantRepository
	logger  *slog.Logger
}

// NewPermissionResolver creates a new permission-inheritance resolver.
func NewPermissionResolver(tenants domain.TenantRepository, logger *slog.Logger) *PermissionResolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &PermissionResolver{tenants: tenants, logger: logger}
}

// EffectivePermissions returns the tenant's inherited permission set, sorted
// for deterministic output. The ancestor walk carries a visited-set: a
// repeated tenant means the stored hierarchy is corrupted and fails with
// ErrCycleDetected, a dangling parent pointer with ErrBrokenChain.
func (p *PermissionResolver) EffectivePermissions(tenantID string) ([]domain.PermissionKey, error) {
	return p.effective(tenantID, nil)
}

func (p *PermissionResolver) effective(tenantID string, pass *memo.Memo) ([]domain.PermissionKey, error) {
	if pass != nil {
		if v, ok := pass.Get(tenantID); ok {
			return v.([]domain.PermissionKey), nil
		}
	}

	current, err := p.tenants.GetByID(tenantID)
	if err != nil {
		return nil, err
	}

	union := map[domain.PermissionKey]bool{}
	visited := map[string]bool{current.ID: true}
	for {
		for _, key := range current.OwnPermissions {
			union[key] = true
		}
		if current.IsRoot() {
			break
		}
		if visited[current.ParentID] {
			p.logger.Error("tenant hierarchy cycle detected",
				slog.String("tenant_id", current.ParentID),
			)
			return nil, fmt.Errorf("%w: tenant %s reached twice", domain.ErrCycleDetected, current.ParentID)
		}
		parent, err := p.tenants.GetByID(current.ParentID)
		if err != nil {
			if isNotFound(err) {
				return nil, fmt.Errorf("%w: tenant %s references missing parent %s",
					domain.ErrBrokenChain, current.ID, current.ParentID)
			}
			return nil, err
		}
		visited[parent.ID] = true
		current = parent
	}

	keys := make([]domain.PermissionKey, 0, len(union))
	for k := range union {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	if pass != nil {
		pass.Set(tenantID, keys)
	}
	return keys, nil
}

// Resolution is a single memoized resolution pass. Batch callers (bulk import
// validating many rows against the same hierarchy) create one Resolution and
// reuse it so each tenant's effective set is computed at most once; the memo
// dies with the pass, so nothing is cached across requests.
type Resolution struct {
	resolver *PermissionResolver
	pass     *memo.Memo
}

// NewResolution starts a memoized resolution pass.
func (p *PermissionResolver) NewResolution() *Resolution {
	return &Resolution{resolver: p, pass: memo.New()}
}

// EffectivePermissions is EffectivePermissions on the parent resolver, memoized
// within this pass.
func (r *Resolution) EffectivePermissions(tenantID string) ([]domain.PermissionKey, error) {
	return r.resolver.effective(tenantID, r.pass)
}

// HasPermission reports whether key is in the tenant's effective set.
func (r *Resolution) HasPermission(tenantID string, key domain.PermissionKey) (bool, error) {
	keys, err := r.EffectivePermissions(tenantID)
	if err != nil {
		return false, err
	}
	for _, k := range keys {
		if k == key {
			return true, nil
		}
	}
	return false, nil
}
