package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 30, cfg.Invoice.DefaultDueDays)
	assert.Equal(t, 5, cfg.Auth.MaxFailedAttempts)
	assert.Equal(t, 30*time.Minute, cfg.Auth.Lockout)
	assert.Equal(t, int64(1), cfg.Reports.PassiveClientID)
}

func TestLoad_FileAndEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
database:
  path: /tmp/invoicer-test.db
server:
  addr: ":9000"
  allowed_origins: ["https://app.example.ch"]
auth:
  token_ttl: 2h
invoice:
  default_due_days: 10
creditor:
  name: Example Sàrl
  iban: CH4431999123000889012
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	t.Setenv("INVOICER_LOG_LEVEL", "debug")
	t.Setenv("INVOICER_INVOICE_NUMBER_WIDTH", "8")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/invoicer-test.db", cfg.Database.Path)
	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, []string{"https://app.example.ch"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 2*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, 10, cfg.Invoice.DefaultDueDays)
	assert.Equal(t, "Example Sàrl", cfg.Creditor.Name)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 8, cfg.Invoice.NumberWidth)
	// untouched keys keep their defaults
	assert.Equal(t, "CHF", cfg.Invoice.Currency)
}

func TestSaveThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := DefaultConfig()
	cfg.Server.Addr = ":7000"
	cfg.Auth.Lockout = 5 * time.Minute
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":7000", loaded.Server.Addr)
	assert.Equal(t, 5*time.Minute, loaded.Auth.Lockout)
}
