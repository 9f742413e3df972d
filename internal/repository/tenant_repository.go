package repository

import (
	"database/sql"
	"errors"
	"log/slog"

	"github.com/lib/pq"

	"github.com/fieldworkhq/orgcore/internal/domain"
)

// dbtx is satisfied by both *sql.DB and *sql.Tx so the same repository code
// serves plain reads and unit-of-work transactions.
type dbtx interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

// PostgresTenantRepository implements domain.TenantRepository using PostgreSQL.
type PostgresTenantRepository struct {
	db     dbtx
	logger *slog.Logger
}

// NewPostgresTenantRepository creates a new tenant repository.
func NewPostgresTenantRepository(db *sql.DB, logger *slog.Logger) *PostgresTenantRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresTenantRepository{db: db, logger: logger}
}

// Create inserts a new tenant. An empty ParentID is stored as NULL (root).
func (r *PostgresTenantRepository) Create(tenant *domain.Tenant) error {
	query := `
		INSERT INTO tenants (id, name, parent_id, own_permissions)
		VALUES ($1, $2, NULLIF($3, '')::uuid, $4)
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRow(query, tenant.ID, tenant.Name, tenant.ParentID, pq.Array(permissionStrings(tenant.OwnPermissions))).Scan(
		&tenant.CreatedAt,
		&tenant.UpdatedAt,
	)
	if err != nil {
		return domain.Internalf("failed to create tenant: %v", err)
	}
	return nil
}

// GetByID retrieves a tenant by ID.
func (r *PostgresTenantRepository) GetByID(id string) (*domain.Tenant, error) {
	query := `
		SELECT id, name, COALESCE(parent_id::text, ''), own_permissions, created_at, updated_at
		FROM tenants
		WHERE id = $1
	`
	return r.scanOne(r.db.QueryRow(query, id), id)
}

// Update persists name and own-permission changes.
func (r *PostgresTenantRepository) Update(tenant *domain.Tenant) error {
	query := `
		UPDATE tenants
		SET name = $1, own_permissions = $2, updated_at = now()
		WHERE id = $3
		RETURNING updated_at
	`
	err := r.db.QueryRow(query, tenant.Name, pq.Array(permissionStrings(tenant.OwnPermissions)), tenant.ID).Scan(&tenant.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.NotFoundf("tenant %s", tenant.ID)
		}
		return domain.Internalf("failed to update tenant: %v", err)
	}
	return nil
}

// Delete removes a tenant record.
func (r *PostgresTenantRepository) Delete(id string) error {
	res, err := r.db.Exec(`DELETE FROM tenants WHERE id = $1`, id)
	if err != nil {
		return domain.Internalf("failed to delete tenant: %v", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return domain.Internalf("failed to check rows affected: %v", err)
	}
	if rows == 0 {
		return domain.NotFoundf("tenant %s", id)
	}
	return nil
}

// ListByParent returns the direct children of a tenant in insertion order.
func (r *PostgresTenantRepository) ListByParent(parentID string) ([]*domain.Tenant, error) {
	query := `
		SELECT id, name, COALESCE(parent_id::text, ''), own_permissions, created_at, updated_at
		FROM tenants
		WHERE parent_id = $1
		ORDER BY created_at, id
	`
	return r.list(query, parentID)
}

// ListRoots returns all tenants without a parent.
func (r *PostgresTenantRepository) ListRoots() ([]*domain.Tenant, error) {
	query := `
		SELECT id, name, COALESCE(parent_id::text, ''), own_permissions, created_at, updated_at
		FROM tenants
		WHERE parent_id IS NULL
		ORDER BY created_at, id
	`
	return r.list(query)
}

// ListAll returns every tenant record.
func (r *PostgresTenantRepository) ListAll() ([]*domain.Tenant, error) {
	query := `
		SELECT id, name, COALESCE(parent_id::text, ''), own_permissions, created_at, updated_at
		FROM tenants
		ORDER BY created_at, id
	`
	return r.list(query)
}

// CountChildren returns the number of direct child tenants.
func (r *PostgresTenantRepository) CountChildren(id string) (int, error) {
	var n int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM tenants WHERE parent_id = $1`, id).Scan(&n); err != nil {
		return 0, domain.Internalf("failed to count children: %v", err)
	}
	return n, nil
}

// CountUsers returns the number of users belonging directly to the tenant.
func (r *PostgresTenantRepository) CountUsers(id string) (int, error) {
	var n int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM users WHERE tenant_id = $1`, id).Scan(&n); err != nil {
		return 0, domain.Internalf("failed to count users: %v", err)
	}
	return n, nil
}

func (r *PostgresTenantRepository) list(query string, args ...any) ([]*domain.Tenant, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, domain.Internalf("failed to list tenants: %v", err)
	}
	defer rows.Close()

	var out []*domain.Tenant
	for rows.Next() {
		t := &domain.Tenant{}
		var perms []string
		if err := rows.Scan(&t.ID, &t.Name, &t.ParentID, pq.Array(&perms), &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, domain.Internalf("failed to scan tenant: %v", err)
		}
		t.OwnPermissions = permissionKeys(perms)
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *PostgresTenantRepository) scanOne(row *sql.Row, id string) (*domain.Tenant, error) {
	t := &domain.Tenant{}
	var perms []string
	err := row.Scan(&t.ID, &t.Name, &t.ParentID, pq.Array(&perms), &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFoundf("tenant %s", id)
		}
		return nil, domain.Internalf("failed to get tenant: %v", err)
	}
	t.OwnPermissions = permissionKeys(perms)
	return t, nil
}

func permissionStrings(keys []domain.PermissionKey) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = string(k)
	}
	return out
}

func permissionKeys(raw []string) []domain.PermissionKey {
	out := make([]domain.PermissionKey, len(raw))
	for i, s := range raw {
		out[i] = domain.PermissionKey(s)
	}
	return out
}
