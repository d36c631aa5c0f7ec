package app

import (
	"context"
	"fmt"
	"log/slog"
	"syscall"
	"time"

	"github.com/andy/invoicer/internal/api"
	"github.com/andy/invoicer/internal/auth"
	"github.com/andy/invoicer/internal/config"
	"github.com/andy/invoicer/internal/crypto"
	"github.com/andy/invoicer/internal/db"
	"github.com/andy/invoicer/internal/domain"
	"github.com/andy/invoicer/internal/export"
	"github.com/andy/invoicer/internal/history"
	"github.com/andy/invoicer/internal/render"
	"github.com/andy/invoicer/internal/repository"
	"github.com/andy/invoicer/internal/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/term"
)

const closeTimeout = 10 * time.Second

// Secrets are the values read from the keyring at startup
type Secrets struct {
	DBKey     string
	JWTSecret string
}

// App is the dependency injection container for all application components
type App struct {
	Config   *config.Config
	DB       *db.DB
	Logger   *slog.Logger
	Metrics  *prometheus.Registry
	Registry *history.Registry
	Recorder *history.Recorder
	Tokens   *auth.Tokens
	Packets  *auth.Packets

	// Repositories
	UserRepo      repository.UserRepository
	ClientRepo    repository.ClientRepository
	ServiceRepo   repository.ServiceRepository
	InvoiceRepo   repository.InvoiceRepository
	SettingRepo   repository.SettingRepository
	ConnexionRepo repository.ConnexionLogRepository
	HistoryRepo   repository.HistoryRepository

	// Services
	AuthService    service.AuthService
	UserService    service.UserService
	ClientService  service.ClientService
	CatalogService service.CatalogService
	InvoiceService service.InvoiceService
	ReportService  service.ReportService
	HistoryService service.HistoryService
}

// New creates a new App instance, initializing all dependencies
// It handles:
// 1. Loading config
// 2. Getting the secrets from the keyring
// 3. Opening database
// 4. Running migrations
// 5. Starting the history recorder
// 6. Creating repositories and services
func New(ctx context.Context, logger *slog.Logger) (*App, error) {
	cfg, err := config.LoadDefault()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return NewWithConfig(ctx, cfg, logger)
}

// NewWithConfig creates an App with a provided config, reading secrets from the keyring
func NewWithConfig(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to create directories: %w", err)
	}

	secrets, err := loadSecrets(crypto.NewKeyring(), logger)
	if err != nil {
		return nil, err
	}

	return Open(ctx, cfg, secrets, logger)
}

// Open wires every component on top of an already resolved set of secrets
func Open(ctx context.Context, cfg *config.Config, secrets Secrets, logger *slog.Logger) (*App, error) {
	database, err := db.Open(cfg.Database.Path, secrets.DBKey)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := database.RunMigrations(); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	registry, err := domain.HistoryRegistry()
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to build history registry: %w", err)
	}

	metrics := prometheus.NewRegistry()
	metrics.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	historyRepo := repository.NewHistoryRepo(database)
	// actors only reads users, its own writes are never audited
	actors := repository.NewUserRepo(database, nil)
	recorder := history.NewRecorder(registry, historyRepo, actors, history.Options{
		QueueSize:   cfg.History.QueueSize,
		Workers:     cfg.History.Workers,
		MaxAttempts: cfg.History.MaxAttempts,
		Logger:      logger,
		Metrics:     history.NewMetrics(metrics),
	})
	recorder.Start(context.WithoutCancel(ctx))

	userRepo := repository.NewUserRepo(database, recorder)
	clientRepo := repository.NewClientRepo(database, recorder)
	serviceRepo := repository.NewServiceRepo(database, recorder)
	invoiceRepo := repository.NewInvoiceRepo(database, recorder)
	settingRepo := repository.NewSettingRepo(database)
	connexionRepo := repository.NewConnexionLogRepo(database, recorder)

	tokens := auth.NewTokens(secrets.JWTSecret, cfg.Auth.TokenTTL)

	invoiceService := service.NewInvoiceService(
		invoiceRepo, clientRepo, serviceRepo, settingRepo, userRepo,
		render.NewPDF(cfg.Invoice, cfg.Creditor),
		export.NewXLSX(),
		service.InvoiceOptions{
			NumberWidth:    cfg.Invoice.NumberWidth,
			DefaultDueDays: cfg.Invoice.DefaultDueDays,
		},
	)

	return &App{
		Config:   cfg,
		DB:       database,
		Logger:   logger,
		Metrics:  metrics,
		Registry: registry,
		Recorder: recorder,
		Tokens:   tokens,
		Packets:  auth.NewPackets(cfg.Security.HMACSecret),

		UserRepo:      userRepo,
		ClientRepo:    clientRepo,
		ServiceRepo:   serviceRepo,
		InvoiceRepo:   invoiceRepo,
		SettingRepo:   settingRepo,
		ConnexionRepo: connexionRepo,
		HistoryRepo:   historyRepo,

		AuthService: service.NewAuthService(userRepo, connexionRepo, tokens, service.LoginPolicy{
			MaxFailedAttempts: cfg.Auth.MaxFailedAttempts,
			Lockout:           cfg.Auth.Lockout,
		}),
		UserService:    service.NewUserService(userRepo),
		ClientService:  service.NewClientService(clientRepo),
		CatalogService: service.NewCatalogService(serviceRepo),
		InvoiceService: invoiceService,
		ReportService:  service.NewReportService(clientRepo, serviceRepo, invoiceRepo, cfg.Reports.PassiveClientID),
		HistoryService: service.NewHistoryService(historyRepo, registry),
	}, nil
}

// Server builds the HTTP API on top of the services
func (a *App) Server() *api.Server {
	return api.NewServer(a.Config.Server, api.Services{
		Auth:     a.AuthService,
		Clients:  a.ClientService,
		Catalog:  a.CatalogService,
		Invoices: a.InvoiceService,
		Reports:  a.ReportService,
		History:  a.HistoryService,
	}, a.Tokens, a.Packets, a.Logger, a.Metrics)
}

// Close drains the history queue, then closes the database
func (a *App) Close() error {
	if a.Recorder != nil {
		ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
		defer cancel()
		if err := a.Recorder.Close(ctx); err != nil {
			a.Logger.Warn("history queue not drained", "error", err.Error())
		}
	}
	if a.DB != nil {
		return a.DB.Close()
	}
	return nil
}

// loadSecrets reads the database key, prompting on first run, and the JWT
// secret, generating it when missing
func loadSecrets(keyring crypto.Keyring, logger *slog.Logger) (Secrets, error) {
	dbKey, err := keyring.Get(crypto.DBKey)
	if err != nil {
		fmt.Println("Setting up database encryption for the first time...")
		dbKey, err = promptForPassword()
		if err != nil {
			return Secrets{}, fmt.Errorf("failed to set password: %w", err)
		}

		if err := keyring.Set(crypto.DBKey, dbKey); err != nil {
			return Secrets{}, fmt.Errorf("failed to store encryption key: %w", err)
		}
	}

	jwtSecret, err := crypto.EnsureSecret(keyring, crypto.JWTSecret)
	if err != nil {
		if jwtSecret == "" {
			return Secrets{}, fmt.Errorf("failed to load jwt secret: %w", err)
		}
		logger.Warn("jwt secret generated for this run only, sessions end on restart",
			"env", crypto.JWTSecret.EnvVar(), "error", err.Error())
	}

	return Secrets{DBKey: dbKey, JWTSecret: jwtSecret}, nil
}

// promptForPassword prompts user for a new database password (first run)
func promptForPassword() (string, error) {
	fmt.Println()
	fmt.Println("Your invoicing data will be encrypted with a password.")
	fmt.Println("This password will be stored securely in your system keyring.")
	fmt.Println()
	fmt.Print("Enter a password for database encryption: ")

	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}

	if len(password) == 0 {
		return "", fmt.Errorf("password cannot be empty")
	}

	fmt.Print("Confirm password: ")
	confirm, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("failed to read confirmation: %w", err)
	}

	if string(password) != string(confirm) {
		return "", fmt.Errorf("passwords do not match")
	}

	fmt.Println()
	fmt.Println("✓ Database encryption configured successfully")
	fmt.Println()

	return string(password), nil
}

// SaveConfig writes the effective configuration to path, or to the default
// location when path is empty
func (a *App) SaveConfig(path string) error {
	if path == "" {
		path = config.DefaultConfigPath()
	}
	return a.Config.Save(path)
}
