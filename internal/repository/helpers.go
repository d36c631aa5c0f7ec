package repository

import (
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/guregu/null/v5"
)

// timeLayout is the RFC3339 format for storing times in SQLite
const timeLayout = time.RFC3339

// builder produces SQLite statements with ? placeholders
var builder = sq.StatementBuilder.PlaceholderFormat(sq.Question)

// scanner is satisfied by *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...any) error
}

// parseTime parses a time string in RFC3339 format
func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

// formatTime formats t as RFC3339 UTC
func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// now returns the current time formatted as RFC3339
func now() string {
	return formatTime(time.Now())
}

// parseNullTime parses an optional time column
func parseNullTime(s null.String) (null.Time, error) {
	if !s.Valid || s.String == "" {
		return null.Time{}, nil
	}
	t, err := parseTime(s.String)
	if err != nil {
		return null.Time{}, err
	}
	return null.TimeFrom(t), nil
}

// nullTimeValue converts an optional time to a column value
func nullTimeValue(t null.Time) null.String {
	if !t.Valid {
		return null.String{}
	}
	return null.StringFrom(formatTime(t.Time))
}

// parseAudit fills created/updated timestamps
func parseAudit(createdAt, updatedAt string, created, updated *time.Time) error {
	var err error
	if *created, err = parseTime(createdAt); err != nil {
		return fmt.Errorf("failed to parse created_at: %w", err)
	}
	if *updated, err = parseTime(updatedAt); err != nil {
		return fmt.Errorf("failed to parse updated_at: %w", err)
	}
	return nil
}
