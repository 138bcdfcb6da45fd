// Package app wires configuration, services, and the HTTP server together.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"popflow/internal/config"
	apierrors "popflow/internal/errors"
	"popflow/internal/infrastructure"
	"popflow/internal/middleware"
	"popflow/internal/services"
	transport "popflow/internal/transport/http"
)

// Version is overridden at build time with -ldflags.
var Version = "dev"

// Application holds the assembled server and its dependencies.
type Application struct {
	Config *config.Config
	Logger *slog.Logger
	Router chi.Router
	Server *http.Server

	Data   *services.DataService
	Health *services.HealthService
}

// NewApplication loads configuration and builds the full dependency graph.
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("initialize logger: %w", err)
	}

	logger.Info("application starting",
		slog.String("version", Version),
		slog.Int("port", cfg.Server.Port),
		slog.Bool("synthetic", cfg.Scraper.Synthetic))

	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	clock := clockwork.NewRealClock()
	data := services.NewDataService(cfg, clock, logger)
	health := services.NewHealthService(cfg, data, clock, Version)

	app := &Application{
		Config: cfg,
		Logger: logger,
		Data:   data,
		Health: health,
	}
	app.setupRouter()
	app.createServer()
	return app, nil
}

// setupRouter assembles the middleware chain and mounts the API.
func (a *Application) setupRouter() {
	logger := a.Logger
	errorHandler := apierrors.NewErrorHandler(logger)
	rateLimiter := middleware.NewRateLimiter(
		a.Config.Server.RateLimitRPS,
		a.Config.Server.RateLimitBurst,
		logger,
	)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.StructuredLogger(logger))
	r.Use(middleware.Recoverer(logger))
	r.Use(middleware.Compress(5))
	r.Use(rateLimiter.Handler)

	r.Route("/api", func(r chi.Router) {
		r.Mount("/data", transport.NewDataHandler(a.Data, logger, errorHandler).Routes())
		r.Mount("/stats", transport.NewStatsHandler(a.Data, logger, errorHandler).Routes())
		r.Mount("/translations", transport.NewI18nHandler(errorHandler).Routes())
		r.Mount("/health", transport.NewHealthHandler(a.Health, logger).Routes())
	})
	r.Handle("/metrics", promhttp.Handler())

	a.Router = r
}

// createServer builds the HTTP server with sane timeouts.
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:      a.Router,
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
		IdleTimeout:  a.Config.Server.IdleTimeout,
	}
}

// Run serves until the context is canceled, then shuts down gracefully.
func (a *Application) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info("http server listening", slog.String("addr", a.Server.Addr))
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	a.Logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout)
	defer cancel()
	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	infrastructure.CloseLogFile()
	return nil
}
