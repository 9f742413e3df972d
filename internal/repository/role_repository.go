package repository

import (
	"database/sql"
	"log/slog"

	"github.com/fieldworkhq/orgcore/internal/domain"
)

// PostgresRoleRepository implements domain.RoleRepository using PostgreSQL.
// Roles are scoped to an organization root tenant, never to sub-tenants.
type PostgresRoleRepository struct {
	db     dbtx
	logger *slog.Logger
}

// NewPostgresRoleRepository creates a new role repository.
func NewPostgresRoleRepository(db *sql.DB, logger *slog.Logger) *PostgresRoleRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresRoleRepository{db: db, logger: logger}
}

// Create inserts a new role.
func (r *PostgresRoleRepository) Create(role *domain.Role) error {
	query := `
		INSERT INTO roles (id, name, organization_root_id)
		VALUES ($1, $2, $3)
	`
	if _, err := r.db.Exec(query, role.ID, string(role.Name), role.OrganizationRootID); err != nil {
		return domain.Internalf("failed to create role: %v", err)
	}
	return nil
}

// ListByOrganization returns every role scoped to the given organization root.
func (r *PostgresRoleRepository) ListByOrganization(rootTenantID string) ([]*domain.Role, error) {
	query := `
		SELECT id, name, organization_root_id
		FROM roles
		WHERE organization_root_id = $1
		ORDER BY name
	`
	rows, err := r.db.Query(query, rootTenantID)
	if err != nil {
		return nil, domain.Internalf("failed to list roles: %v", err)
	}
	defer rows.Close()

	var out []*domain.Role
	for rows.Next() {
		role := &domain.Role{}
		var name string
		if err := rows.Scan(&role.ID, &name, &role.OrganizationRootID); err != nil {
			return nil, domain.Internalf("failed to scan role: %v", err)
		}
		role.Name = domain.RoleName(name)
		out = append(out, role)
	}
	return out, rows.Err()
}
