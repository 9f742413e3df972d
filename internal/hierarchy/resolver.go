package hierarchy

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/fieldworkhq/orgcore/internal/domain"
	"github.com/fieldworkhq/orgcore/internal/observability/metrics"
)

// Resolver answers structural questions about the tenant forest: descendant
// enumeration and root lookup. All traversals carry a visited-set so corrupted
// data (a cycle in parent links) fails loudly instead of looping forever.
type Resolver struct {
	tenants domain.TenantRepository
	logger  *slog.Logger
}

// NewResolver creates a new hierarchy resolver.
func NewResolver(tenants domain.TenantRepository, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{tenants: tenants, logger: logger}
}

// DescendantsOf returns the given tenant plus every tenant reachable by
// following child links transitively, in breadth-first order. Re-encountering
// a tenant during traversal means the stored hierarchy contains a cycle;
// that is surfaced as ErrCycleDetected, never truncated.
func (r *Resolver) DescendantsOf(tenantID string) ([]string, error) {
	if _, err := r.tenants.GetByID(tenantID); err != nil {
		return nil, err
	}

	visited := map[string]bool{tenantID: true}
	order := []string{tenantID}
	queue := []string{tenantID}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		children, err := r.tenants.ListByParent(current)
		if err != nil {
			return nil, fmt.Errorf("failed to list children of %s: %w", current, err)
		}
		for _, child := range children {
			if visited[child.ID] {
				r.logger.Error("tenant hierarchy cycle detected",
					slog.String("tenant_id", child.ID),
					slog.String("reached_from", current),
				)
				metrics.ObserveIntegrityFault("cycle")
				return nil, fmt.Errorf("%w: tenant %s reached twice", domain.ErrCycleDetected, child.ID)
			}
			visited[child.ID] = true
			order = append(order, child.ID)
			queue = append(queue, child.ID)
		}
	}
	return order, nil
}

// RootOf walks parent pointers until a tenant without a parent is found and
// returns that tenant's id. A parent pointer referencing a nonexistent tenant
// fails with ErrBrokenChain; a repeated tenant fails with ErrCycleDetected.
func (r *Resolver) RootOf(tenantID string) (string, error) {
	current, err := r.tenants.GetByID(tenantID)
	if err != nil {
		return "", err
	}

	visited := map[string]bool{current.ID: true}
	for !current.IsRoot() {
		if visited[current.ParentID] {
			r.logger.Error("tenant hierarchy cycle detected",
				slog.String("tenant_id", current.ParentID),
			)
			metrics.ObserveIntegrityFault("cycle")
			return "", fmt.Errorf("%w: tenant %s reached twice", domain.ErrCycleDetected, current.ParentID)
		}
		parent, err := r.tenants.GetByID(current.ParentID)
		if err != nil {
			if isNotFound(err) {
				metrics.ObserveIntegrityFault("broken_chain")
				return "", fmt.Errorf("%w: tenant %s references missing parent %s",
					domain.ErrBrokenChain, current.ID, current.ParentID)
			}
			return "", err
		}
		visited[parent.ID] = true
		current = parent
	}
	return current.ID, nil
}

// BuildTree converts a flat tenant list into a forest of TenantNodes. Tenants
// are grouped under their parent; a tenant whose parent is not present in the
// input list becomes a root of the returned forest even if it has a real
// parent elsewhere, which is what lets callers render partial sub-trees.
// Children keep the insertion order of the input list. Tenants whose parent
// references form a cycle within the input reach no root; that is corrupted
// data and fails with ErrCycleDetected rather than dropping them.
func BuildTree(flat []*domain.Tenant) ([]*domain.TenantNode, error) {
	nodes := make(map[string]*domain.TenantNode, len(flat))
	for _, t := range flat {
		nodes[t.ID] = &domain.TenantNode{ID: t.ID, Name: t.Name}
	}

	var roots []*domain.TenantNode
	for _, t := range flat {
		parent, ok := nodes[t.ParentID]
		if t.ParentID == "" || !ok {
			roots = append(roots, nodes[t.ID])
			continue
		}
		parent.Children = append(parent.Children, nodes[t.ID])
	}

	// Cycle members are never roots, so they stay unreachable.
	reached := len(FlattenTree(roots))
	if reached != len(flat) {
		return nil, fmt.Errorf("%w: %d tenants unreachable from any root",
			domain.ErrCycleDetected, len(flat)-reached)
	}
	return roots, nil
}

// FlattenTree is the inverse of BuildTree for a forest whose tenants are all
// present: a depth-first walk emitting parents before children.
func FlattenTree(forest []*domain.TenantNode) []*domain.TenantNode {
	var out []*domain.TenantNode
	var walk func(n *domain.TenantNode)
	walk = func(n *domain.TenantNode) {
		out = append(out, n)
		for _, c := range n.Children {
			walk(c)
		}
	}
	for _, root := range forest {
		walk(root)
	}
	return out
}

func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound)
}
