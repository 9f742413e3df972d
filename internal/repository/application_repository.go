package repository

import (
	"database/sql"
	"log/slog"

	"github.com/fieldworkhq/orgcore/internal/domain"
)

// PostgresApplicationRegistry implements domain.ApplicationRegistry backed by
// the applications table seeded at migration time.
type PostgresApplicationRegistry struct {
	db     dbtx
	logger *slog.Logger
}

// NewPostgresApplicationRegistry creates a new application registry.
func NewPostgresApplicationRegistry(db *sql.DB, logger *slog.Logger) *PostgresApplicationRegistry {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresApplicationRegistry{db: db, logger: logger}
}

// IsValidKey reports whether key exists in the registry.
func (r *PostgresApplicationRegistry) IsValidKey(key domain.PermissionKey) (bool, error) {
	var exists bool
	err := r.db.QueryRow(`SELECT EXISTS(SELECT 1 FROM applications WHERE permission_key = $1)`, string(key)).Scan(&exists)
	if err != nil {
		return false, domain.Internalf("failed to check permission key: %v", err)
	}
	return exists, nil
}

// List returns the full application catalogue.
func (r *PostgresApplicationRegistry) List() ([]*domain.Application, error) {
	rows, err := r.db.Query(`SELECT permission_key, name FROM applications ORDER BY permission_key`)
	if err != nil {
		return nil, domain.Internalf("failed to list applications: %v", err)
	}
	defer rows.Close()

	var out []*domain.Application
	for rows.Next() {
		a := &domain.Application{}
		var key string
		if err := rows.Scan(&key, &a.Name); err != nil {
			return nil, domain.Internalf("failed to scan application: %v", err)
		}
		a.Key = domain.PermissionKey(key)
		out = append(out, a)
	}
	return out, rows.Err()
}
