package repository

import (
	"database/sql"
	"errors"
	"log/slog"

	"github.com/lib/pq"

	"github.com/fieldworkhq/orgcore/internal/domain"
)

// PostgresUserRepository implements domain.UserRepository using PostgreSQL.
type PostgresUserRepository struct {
	db     dbtx
	logger *slog.Logger
}

// NewPostgresUserRepository creates a new user repository.
func NewPostgresUserRepository(db *sql.DB, logger *slog.Logger) *PostgresUserRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresUserRepository{db: db, logger: logger}
}

// Create inserts a new user.
func (r *PostgresUserRepository) Create(user *domain.User) error {
	query := `
		INSERT INTO users (id, tenant_id, email, username, password_hash, roles)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRow(query, user.ID, user.TenantID, user.Email, user.Username,
		user.PasswordHash, pq.Array(roleStrings(user.Roles))).Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return domain.Internalf("failed to create user: %v", err)
	}
	return nil
}

// GetByID retrieves a user by ID.
func (r *PostgresUserRepository) GetByID(id string) (*domain.User, error) {
	query := `
		SELECT id, tenant_id, email, username, password_hash, roles, created_at, updated_at
		FROM users
		WHERE id = $1
	`
	u := &domain.User{}
	var roles []string
	err := r.db.QueryRow(query, id).Scan(
		&u.ID, &u.TenantID, &u.Email, &u.Username, &u.PasswordHash, pq.Array(&roles), &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFoundf("user %s", id)
		}
		return nil, domain.Internalf("failed to get user: %v", err)
	}
	u.Roles = roleNames(roles)
	return u, nil
}

// Update persists user changes, including tenant relocation.
func (r *PostgresUserRepository) Update(user *domain.User) error {
	query := `
		UPDATE users
		SET tenant_id = $1, email = $2, username = $3, password_hash = $4, roles = $5, updated_at = now()
		WHERE id = $6
		RETURNING updated_at
	`
	err := r.db.QueryRow(query, user.TenantID, user.Email, user.Username, user.PasswordHash,
		pq.Array(roleStrings(user.Roles)), user.ID).Scan(&user.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.NotFoundf("user %s", user.ID)
		}
		return domain.Internalf("failed to update user: %v", err)
	}
	return nil
}

// ListByTenant returns every user belonging directly to the tenant.
func (r *PostgresUserRepository) ListByTenant(tenantID string) ([]*domain.User, error) {
	query := `
		SELECT id, tenant_id, email, username, password_hash, roles, created_at, updated_at
		FROM users
		WHERE tenant_id = $1
		ORDER BY created_at, id
	`
	rows, err := r.db.Query(query, tenantID)
	if err != nil {
		return nil, domain.Internalf("failed to list users: %v", err)
	}
	defer rows.Close()

	var out []*domain.User
	for rows.Next() {
		u := &domain.User{}
		var roles []string
		if err := rows.Scan(&u.ID, &u.TenantID, &u.Email, &u.Username, &u.PasswordHash,
			pq.Array(&roles), &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, domain.Internalf("failed to scan user: %v", err)
		}
		u.Roles = roleNames(roles)
		out = append(out, u)
	}
	return out, rows.Err()
}

// CountByTenant returns the number of users belonging directly to the tenant.
func (r *PostgresUserRepository) CountByTenant(tenantID string) (int, error) {
	var n int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM users WHERE tenant_id = $1`, tenantID).Scan(&n); err != nil {
		return 0, domain.Internalf("failed to count users: %v", err)
	}
	return n, nil
}

// DeleteByTenant removes every user belonging directly to the tenant and
// returns how many were removed.
func (r *PostgresUserRepository) DeleteByTenant(tenantID string) (int, error) {
	res, err := r.db.Exec(`DELETE FROM users WHERE tenant_id = $1`, tenantID)
	if err != nil {
		return 0, domain.Internalf("failed to delete users: %v", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return 0, domain.Internalf("failed to check rows affected: %v", err)
	}
	return int(rows), nil
}

func roleStrings(roles []domain.RoleName) []string {
	out := make([]string, len(roles))
	for i, r := range roles {
		out[i] = string(r)
	}
	return out
}

func roleNames(raw []string) []domain.RoleName {
	out := make([]domain.RoleName, len(raw))
	for i, s := range raw {
		out[i] = domain.RoleName(s)
	}
	return out
}
