// Package api exposes the back-office over an HTTP JSON API.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/andy/invoicer/internal/config"
	"github.com/andy/invoicer/internal/service"
	"github.com/cockroachdb/errors"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const shutdownTimeout = 10 * time.Second

// Services are the application services reachable over HTTP
type Services struct {
	Auth     service.AuthService
	Clients  service.ClientService
	Catalog  service.CatalogService
	Invoices service.InvoiceService
	Reports  service.ReportService
	History  service.HistoryService
}

// Server owns the gin router and the http server around it
type Server struct {
	cfg      config.ServerConfig
	services Services
	tokens   TokenVerifier
	packets  PacketVerifier
	logger   *slog.Logger
	registry *prometheus.Registry
	router   *gin.Engine
}

// NewServer builds the router. reg receives the HTTP collectors and is served on /metrics.
func NewServer(
	cfg config.ServerConfig,
	services Services,
	tokens TokenVerifier,
	packets PacketVerifier,
	logger *slog.Logger,
	reg *prometheus.Registry,
) *Server {
	setupValidators()
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	s := &Server{
		cfg:      cfg,
		services: services,
		tokens:   tokens,
		packets:  packets,
		logger:   logger,
		registry: reg,
	}
	s.router = s.routes(newHTTPMetrics(reg))
	return s
}

func corsOption(cfg config.ServerConfig) cors.Config {
	return cors.Config{
		AllowOrigins: cfg.AllowedOrigins,
		AllowMethods: []string{
			http.MethodOptions, http.MethodHead, http.MethodGet, http.MethodPost,
		},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"X-Request-Id", "Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}
}

func (s *Server) routes(metrics *httpMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if len(s.cfg.AllowedOrigins) > 0 {
		r.Use(cors.New(corsOption(s.cfg)))
	}
	r.Use(metrics.middleware())
	r.Use(accessLog(s.logger, "/api/health", "/metrics"))

	r.GET("/api/health", handleHealth)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))

	router := r.Group("/api", unwrapPacket(s.packets), identify(s.tokens, s.logger))

	router.POST("/auth/login", mustBeAnonymous, s.handleLogin)

	logged := router.Group("", mustBeLogged)

	clients := logged.Group("/clients")
	clients.POST("/list", s.handleListClients)
	clients.POST("/create", s.handleCreateClient)
	clients.POST("/edit", s.handleEditClient)
	clients.POST("/delete", s.handleDeleteClient)

	services := logged.Group("/services")
	services.POST("/list", s.handleListServices)
	services.POST("/create", s.handleCreateService)
	services.POST("/edit", s.handleEditService)
	services.POST("/delete", s.handleDeleteService)

	invoices := logged.Group("/invoices")
	invoices.POST("/list", s.handleListInvoices)
	invoices.POST("/get", s.handleGetInvoice)
	invoices.POST("/create", s.handleCreateInvoice)
	invoices.POST("/edit", s.handleEditInvoice)
	invoices.POST("/delete", s.handleDeleteInvoice)
	invoices.POST("/state", s.handleInvoiceState)
	invoices.POST("/generate", s.handleGenerateInvoice)
	invoices.POST("/logs", s.handleInvoiceLogs)
	invoices.POST("/export", s.handleExportInvoices)

	logged.POST("/history/list", s.handleListHistory)
	logged.POST("/global/load", s.handleGlobalLoad)

	return r
}

// Handler returns the router, mostly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is done, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", s.cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return errors.Wrap(err, "http server failed")
	case <-ctx.Done():
	}

	s.logger.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "http server shutdown")
	}
	return nil
}

func handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
