package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/andy/invoicer/internal/db"
	"github.com/andy/invoicer/internal/domain"
)

// SettingRepo is a SQLite implementation of SettingRepository
type SettingRepo struct {
	db *db.DB
}

// NewSettingRepo creates a new SettingRepo
func NewSettingRepo(database *db.DB) *SettingRepo {
	return &SettingRepo{db: database}
}

// Get retrieves a setting by key
func (r *SettingRepo) Get(ctx context.Context, key domain.SettingKey) (*domain.Setting, error) {
	setting := &domain.Setting{}
	var k, createdAt, updatedAt string

	err := r.db.QueryRowContext(ctx,
		`SELECT id, key, value, created_at, updated_at FROM settings WHERE key = ?`, string(key),
	).Scan(&setting.ID, &k, &setting.Value, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", domain.ErrSettingNotFound, key)
		}
		return nil, fmt.Errorf("failed to get setting: %w", err)
	}

	setting.Key = domain.SettingKey(k)
	if err := parseAudit(createdAt, updatedAt, &setting.CreatedAt, &setting.UpdatedAt); err != nil {
		return nil, err
	}
	return setting, nil
}

// NextInvoiceNumber increments the invoice counter and returns the new value
func (r *SettingRepo) NextInvoiceNumber(ctx context.Context) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`UPDATE settings SET value = CAST(value AS INTEGER) + 1, updated_at = ? WHERE key = ?`,
		now(), string(domain.SettingInvoiceNumber),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to increment invoice number: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return 0, fmt.Errorf("%w: %s", domain.ErrSettingNotFound, domain.SettingInvoiceNumber)
	}

	var value string
	if err := tx.QueryRowContext(ctx,
		`SELECT value FROM settings WHERE key = ?`, string(domain.SettingInvoiceNumber),
	).Scan(&value); err != nil {
		return 0, fmt.Errorf("failed to read invoice number: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit invoice number: %w", err)
	}

	number, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid invoice number %q: %w", value, err)
	}
	return number, nil
}
