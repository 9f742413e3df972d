package repository

import (
	"database/sql"
	"log/slog"

	"github.com/fieldworkhq/orgcore/internal/domain"
)

// PostgresUnitOfWork implements domain.UnitOfWork with database/sql
// transactions. The function receives repositories bound to the transaction;
// any error rolls the whole transaction back, leaving storage unchanged.
type PostgresUnitOfWork struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresUnitOfWork creates a new transactional unit of work.
func NewPostgresUnitOfWork(db *sql.DB, logger *slog.Logger) *PostgresUnitOfWork {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresUnitOfWork{db: db, logger: logger}
}

// WithinTx runs fn inside a transaction.
func (u *PostgresUnitOfWork) WithinTx(fn func(repos domain.Repositories) error) error {
	tx, err := u.db.Begin()
	if err != nil {
		return domain.Internalf("failed to begin transaction: %v", err)
	}

	repos := domain.Repositories{
		Tenants: &PostgresTenantRepository{db: tx, logger: u.logger},
		Users:   &PostgresUserRepository{db: tx, logger: u.logger},
		Tasks:   &PostgresTaskRepository{db: tx, logger: u.logger},
	}

	if err := fn(repos); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			u.logger.Error("transaction rollback failed", slog.String("error", rbErr.Error()))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return domain.Internalf("failed to commit transaction: %v", err)
	}
	return nil
}
