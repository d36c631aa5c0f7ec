package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

type Config struct {
	// Database settings
	Database DatabaseConfig `yaml:"database"`

	// HTTP API
	Server ServerConfig `yaml:"server"`

	// Sessions and login throttling
	Auth AuthConfig `yaml:"auth"`

	// Packet signing shared with the frontend
	Security SecurityConfig `yaml:"security"`

	// Invoice settings
	Invoice InvoiceConfig `yaml:"invoice"`

	// Creditor printed on the QR-bill
	Creditor CreditorConfig `yaml:"creditor"`

	History HistoryConfig `yaml:"history"`
	Reports ReportsConfig `yaml:"reports"`
	Log     LogConfig     `yaml:"log"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"` // Path to SQLite database
}

type ServerConfig struct {
	Addr           string        `yaml:"addr"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
}

type AuthConfig struct {
	TokenTTL          time.Duration `yaml:"token_ttl"`
	MaxFailedAttempts int           `yaml:"max_failed_attempts"`
	Lockout           time.Duration `yaml:"lockout"`
}

type SecurityConfig struct {
	HMACSecret string `yaml:"hmac_secret"` // Empty disables packet signature checks
}

type InvoiceConfig struct {
	DefaultDueDays int    `yaml:"default_due_days"` // Days until invoice due
	NumberWidth    int    `yaml:"number_width"`     // Zero padding of invoice numbers
	OutputDir      string `yaml:"output_dir"`       // Directory for generated PDFs
	Currency       string `yaml:"currency"`
}

type CreditorConfig struct {
	Name           string `yaml:"name"`
	IBAN           string `yaml:"iban"`
	Street         string `yaml:"street"`
	BuildingNumber string `yaml:"building_number"`
	PostalCode     string `yaml:"postal_code"`
	City           string `yaml:"city"`
	Country        string `yaml:"country"`
}

type HistoryConfig struct {
	QueueSize   int  `yaml:"queue_size"`
	Workers     int  `yaml:"workers"`
	MaxAttempts uint `yaml:"max_attempts"`
}

type ReportsConfig struct {
	PassiveClientID int64 `yaml:"passive_client_id"` // Client whose invoices count as expenses
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text or json
}

// EnvPrefix prefixes environment overrides, e.g. INVOICER_SERVER_ADDR.
const EnvPrefix = "INVOICER"

// DefaultConfigPath returns ~/.config/invoicer/config.yaml
func DefaultConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home dir unavailable
		return filepath.Join(".", ".config", "invoicer", "config.yaml")
	}
	return filepath.Join(homeDir, ".config", "invoicer", "config.yaml")
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}

	return &Config{
		Database: DatabaseConfig{
			Path: filepath.Join(homeDir, ".config", "invoicer", "invoicer.db"),
		},
		Server: ServerConfig{
			Addr:           "127.0.0.1:8080",
			AllowedOrigins: []string{"http://localhost:5173"},
			ReadTimeout:    15 * time.Second,
			WriteTimeout:   30 * time.Second,
		},
		Auth: AuthConfig{
			TokenTTL:          24 * time.Hour,
			MaxFailedAttempts: 5,
			Lockout:           30 * time.Minute,
		},
		Invoice: InvoiceConfig{
			DefaultDueDays: 30,
			NumberWidth:    6,
			OutputDir:      filepath.Join(homeDir, ".config", "invoicer", "invoices"),
			Currency:       "CHF",
		},
		Creditor: CreditorConfig{
			Country: "CH",
		},
		History: HistoryConfig{
			QueueSize:   256,
			Workers:     1,
			MaxAttempts: 3,
		},
		Reports: ReportsConfig{
			PassiveClientID: 1,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads the YAML file at path on top of the defaults, then applies
// INVOICER_* environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for _, key := range keys {
		_ = v.BindEnv(key)
	}

	if _, err := os.Stat(path); err == nil {
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	apply(v, cfg)
	return cfg, nil
}

// LoadDefault loads from the default config path
func LoadDefault() (*Config, error) {
	return Load(DefaultConfigPath())
}

var keys = []string{
	"database.path",
	"server.addr", "server.allowed_origins", "server.read_timeout", "server.write_timeout",
	"auth.token_ttl", "auth.max_failed_attempts", "auth.lockout",
	"security.hmac_secret",
	"invoice.default_due_days", "invoice.number_width", "invoice.output_dir", "invoice.currency",
	"creditor.name", "creditor.iban", "creditor.street", "creditor.building_number",
	"creditor.postal_code", "creditor.city", "creditor.country",
	"history.queue_size", "history.workers", "history.max_attempts",
	"reports.passive_client_id",
	"log.level", "log.format",
}

// apply overrides defaults with every key set in the file or environment
func apply(v *viper.Viper, cfg *Config) {
	str := func(key string, dst *string) {
		if v.IsSet(key) {
			*dst = v.GetString(key)
		}
	}
	num := func(key string, dst *int) {
		if v.IsSet(key) {
			*dst = v.GetInt(key)
		}
	}
	dur := func(key string, dst *time.Duration) {
		if v.IsSet(key) {
			*dst = v.GetDuration(key)
		}
	}

	str("database.path", &cfg.Database.Path)

	str("server.addr", &cfg.Server.Addr)
	if v.IsSet("server.allowed_origins") {
		cfg.Server.AllowedOrigins = v.GetStringSlice("server.allowed_origins")
	}
	dur("server.read_timeout", &cfg.Server.ReadTimeout)
	dur("server.write_timeout", &cfg.Server.WriteTimeout)

	dur("auth.token_ttl", &cfg.Auth.TokenTTL)
	num("auth.max_failed_attempts", &cfg.Auth.MaxFailedAttempts)
	dur("auth.lockout", &cfg.Auth.Lockout)

	str("security.hmac_secret", &cfg.Security.HMACSecret)

	num("invoice.default_due_days", &cfg.Invoice.DefaultDueDays)
	num("invoice.number_width", &cfg.Invoice.NumberWidth)
	str("invoice.output_dir", &cfg.Invoice.OutputDir)
	str("invoice.currency", &cfg.Invoice.Currency)

	str("creditor.name", &cfg.Creditor.Name)
	str("creditor.iban", &cfg.Creditor.IBAN)
	str("creditor.street", &cfg.Creditor.Street)
	str("creditor.building_number", &cfg.Creditor.BuildingNumber)
	str("creditor.postal_code", &cfg.Creditor.PostalCode)
	str("creditor.city", &cfg.Creditor.City)
	str("creditor.country", &cfg.Creditor.Country)

	num("history.queue_size", &cfg.History.QueueSize)
	num("history.workers", &cfg.History.Workers)
	if v.IsSet("history.max_attempts") {
		cfg.History.MaxAttempts = v.GetUint("history.max_attempts")
	}

	if v.IsSet("reports.passive_client_id") {
		cfg.Reports.PassiveClientID = v.GetInt64("reports.passive_client_id")
	}

	str("log.level", &cfg.Log.Level)
	str("log.format", &cfg.Log.Format)
}

// Save writes the config to the given path
func (c *Config) Save(path string) error {
	// Create parent directories if they don't exist
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}

// EnsureDirectories creates the database and invoice output directories
func (c *Config) EnsureDirectories() error {
	dbDir := filepath.Dir(c.Database.Path)
	if err := os.MkdirAll(dbDir, 0700); err != nil {
		return err
	}

	if err := os.MkdirAll(c.Invoice.OutputDir, 0755); err != nil {
		return err
	}

	return nil
}
