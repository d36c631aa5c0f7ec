package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/andy/invoicer/internal/db"
	"github.com/andy/invoicer/internal/domain"
	"github.com/guregu/null/v5"
)

// ConnexionLogRepo is a SQLite implementation of ConnexionLogRepository
type ConnexionLogRepo struct {
	db   *db.DB
	hook ChangeHook
}

// NewConnexionLogRepo creates a new ConnexionLogRepo; hook may be nil
func NewConnexionLogRepo(database *db.DB, hook ChangeHook) *ConnexionLogRepo {
	return &ConnexionLogRepo{db: database, hook: hookOrNoop(hook)}
}

// GetByEmail returns the log for email, or nil if none exists
func (r *ConnexionLogRepo) GetByEmail(ctx context.Context, email string) (*domain.ConnexionLog, error) {
	query := `
		SELECT id, email, ip, user_agent, failed_attempts, blocked_until, created_at, updated_at
		FROM connexion_logs
		WHERE email = ?
	`

	log := &domain.ConnexionLog{}
	var blockedUntil null.String
	var createdAt, updatedAt string

	err := r.db.QueryRowContext(ctx, query, domain.NormalizeEmail(email)).Scan(
		&log.ID,
		&log.Email,
		&log.IP,
		&log.UserAgent,
		&log.FailedAttempts,
		&blockedUntil,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get connexion log: %w", err)
	}

	if log.BlockedUntil, err = parseNullTime(blockedUntil); err != nil {
		return nil, fmt.Errorf("failed to parse blocked_until: %w", err)
	}
	if err := parseAudit(createdAt, updatedAt, &log.CreatedAt, &log.UpdatedAt); err != nil {
		return nil, err
	}
	return log, nil
}

// Save inserts or updates a connexion log
func (r *ConnexionLogRepo) Save(ctx context.Context, log *domain.ConnexionLog) error {
	if log.ID == 0 {
		result, err := r.db.ExecContext(ctx, `
			INSERT INTO connexion_logs (email, ip, user_agent, failed_attempts, blocked_until, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`,
			log.Email,
			log.IP,
			log.UserAgent,
			log.FailedAttempts,
			nullTimeValue(log.BlockedUntil),
			formatTime(log.CreatedAt),
			formatTime(log.UpdatedAt),
		)
		if err != nil {
			return fmt.Errorf("failed to create connexion log: %w", err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get connexion log ID: %w", err)
		}
		log.ID = id
		r.hook.Created(ctx, log)
		return nil
	}

	updatedAt := log.Touched()
	if _, err := r.db.ExecContext(ctx, `
		UPDATE connexion_logs
		SET ip = ?, user_agent = ?, failed_attempts = ?, blocked_until = ?, updated_at = ?
		WHERE id = ?
	`,
		log.IP,
		log.UserAgent,
		log.FailedAttempts,
		nullTimeValue(log.BlockedUntil),
		formatTime(updatedAt),
		log.ID,
	); err != nil {
		return fmt.Errorf("failed to update connexion log: %w", err)
	}
	log.UpdatedAt = updatedAt
	return nil
}
