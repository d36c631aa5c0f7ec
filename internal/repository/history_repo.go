package repository

import (
	"context"
	"encoding/json"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/andy/invoicer/internal/db"
	"github.com/andy/invoicer/internal/history"
	"github.com/guregu/null/v5"
)

// HistoryRepo stores history records as JSON documents
type HistoryRepo struct {
	db *db.DB
}

// NewHistoryRepo creates a new HistoryRepo
func NewHistoryRepo(database *db.DB) *HistoryRepo {
	return &HistoryRepo{db: database}
}

// Insert appends a record. Records are never updated.
func (r *HistoryRepo) Insert(ctx context.Context, record *history.Record) error {
	value, err := json.Marshal(record.Value)
	if err != nil {
		return fmt.Errorf("failed to encode history value: %w", err)
	}

	var changes null.String
	if record.Kind == history.KindUpdate {
		raw, err := json.Marshal(record.Changes)
		if err != nil {
			return fmt.Errorf("failed to encode history changes: %w", err)
		}
		changes = null.StringFrom(string(raw))
	}

	result, err := r.db.ExecContext(ctx, `
		INSERT INTO history (table_name, table_id, kind, value, changes, user_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		record.Table,
		record.TableID,
		string(record.Kind),
		string(value),
		changes,
		record.UserID,
		formatTime(record.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert history record: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get history ID: %w", err)
	}
	record.ID = id
	return nil
}

// List returns records oldest first
func (r *HistoryRepo) List(ctx context.Context, filter HistoryFilter) ([]*history.Record, error) {
	q := builder.
		Select("id", "table_name", "table_id", "kind", "value", "changes", "user_id", "created_at").
		From("history").
		OrderBy("id")

	if filter.Table != "" {
		q = q.Where(sq.Eq{"table_name": filter.Table})
	}
	if filter.TableID > 0 {
		q = q.Where(sq.Eq{"table_id": filter.TableID})
	}
	switch {
	case filter.Limit > 0:
		q = q.Limit(filter.Limit)
		if filter.Offset > 0 {
			q = q.Offset(filter.Offset)
		}
	case filter.Offset > 0:
		// SQLite has no OFFSET without LIMIT
		q = q.Suffix("LIMIT -1 OFFSET ?", filter.Offset)
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build history query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	defer rows.Close()

	records := make([]*history.Record, 0)
	for rows.Next() {
		record := &history.Record{}
		var kind, value, createdAt string
		var changes null.String

		if err := rows.Scan(&record.ID, &record.Table, &record.TableID, &kind, &value, &changes, &record.UserID, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan history record: %w", err)
		}

		record.Kind = history.Kind(kind)
		if err := json.Unmarshal([]byte(value), &record.Value); err != nil {
			return nil, fmt.Errorf("failed to decode history value: %w", err)
		}
		if changes.Valid {
			if err := json.Unmarshal([]byte(changes.String), &record.Changes); err != nil {
				return nil, fmt.Errorf("failed to decode history changes: %w", err)
			}
		}
		if record.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("failed to parse created_at: %w", err)
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating history: %w", err)
	}

	return records, nil
}
