package repository

import (
	"database/sql"
	"log/slog"

	"github.com/fieldworkhq/orgcore/internal/domain"
)

// PostgresTaskRepository implements domain.TaskRepository using PostgreSQL.
type PostgresTaskRepository struct {
	db     dbtx
	logger *slog.Logger
}

// NewPostgresTaskRepository creates a new task repository.
func NewPostgresTaskRepository(db *sql.DB, logger *slog.Logger) *PostgresTaskRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresTaskRepository{db: db, logger: logger}
}

// Create inserts a new task.
func (r *PostgresTaskRepository) Create(task *domain.Task) error {
	query := `
		INSERT INTO tasks (id, user_id, tenant_id, title, done)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`
	err := r.db.QueryRow(query, task.ID, task.UserID, task.TenantID, task.Title, task.Done).Scan(&task.CreatedAt)
	if err != nil {
		return domain.Internalf("failed to create task: %v", err)
	}
	return nil
}

// ListByUser returns every task owned by the user.
func (r *PostgresTaskRepository) ListByUser(userID string) ([]*domain.Task, error) {
	query := `
		SELECT id, user_id, tenant_id, title, done, created_at
		FROM tasks
		WHERE user_id = $1
		ORDER BY created_at, id
	`
	rows, err := r.db.Query(query, userID)
	if err != nil {
		return nil, domain.Internalf("failed to list tasks: %v", err)
	}
	defer rows.Close()

	var out []*domain.Task
	for rows.Next() {
		t := &domain.Task{}
		if err := rows.Scan(&t.ID, &t.UserID, &t.TenantID, &t.Title, &t.Done, &t.CreatedAt); err != nil {
			return nil, domain.Internalf("failed to scan task: %v", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// DeleteByUser removes every task owned by the user and returns the count.
func (r *PostgresTaskRepository) DeleteByUser(userID string) (int, error) {
	res, err := r.db.Exec(`DELETE FROM tasks WHERE user_id = $1`, userID)
	if err != nil {
		return 0, domain.Internalf("failed to delete tasks: %v", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return 0, domain.Internalf("failed to check rows affected: %v", err)
	}
	return int(rows), nil
}
