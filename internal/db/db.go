package db

import (
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mutecomm/go-sqlcipher/v4"
)

type DB struct {
	*sql.DB
}

// Open opens an encrypted SQLite database with the given password.
// dbPath is the full path to the database file.
func Open(dbPath, password string) (*DB, error) {
	// Create parent directories if they don't exist
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	connStr := fmt.Sprintf("%s?_pragma_key=%s", dbPath, url.QueryEscape(password))

	sqlDB, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// PRAGMAs are per connection; a single connection serializes writers
	// and keeps them applied.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetConnMaxLifetime(0)

	pragmas := []struct {
		stmt string
		what string
	}{
		{"PRAGMA foreign_keys = ON", "enable foreign keys"},
		{"PRAGMA journal_mode = WAL", "enable WAL mode"},
		{fmt.Sprintf("PRAGMA busy_timeout = %d", (5 * time.Second).Milliseconds()), "set busy timeout"},
	}
	for _, p := range pragmas {
		if _, err := sqlDB.Exec(p.stmt); err != nil {
			sqlDB.Close()
			return nil, fmt.Errorf("failed to %s: %w", p.what, err)
		}
	}

	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// A wrong key only surfaces on the first read of the schema.
	var n int
	if err := sqlDB.QueryRow("SELECT count(*) FROM sqlite_master").Scan(&n); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to unlock database: %w", err)
	}

	return &DB{DB: sqlDB}, nil
}

// DefaultPath is ~/.config/invoicer/invoicer.db
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "invoicer", "invoicer.db"), nil
}

// OpenWithDefaults opens the database at DefaultPath
func OpenWithDefaults(password string) (*DB, error) {
	dbPath, err := DefaultPath()
	if err != nil {
		return nil, err
	}
	return Open(dbPath, password)
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.DB.Close()
}
