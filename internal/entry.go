// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/nomenclature/internal/api"
	"github.com/starford/nomenclature/internal/diagstore"
	"github.com/starford/nomenclature/internal/processing"
	"github.com/starford/nomenclature/internal/project"
	"github.com/starford/nomenclature/internal/sse"
	"github.com/starford/nomenclature/internal/storage"
)

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	// Initialize structured JSON logger.
	logger := app.logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: cfg.App.LogLevel,
		}))
		slog.SetDefault(logger)
	}

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("project_path", cfg.Project.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	env, err := newEnvironment(cfg, logger, processing.WithPublisher(broker))
	if err != nil {
		return err
	}
	defer env.Close()

	// Load the project up front so that broken definitions show in the log;
	// the server still starts and reports them per request.
	if _, err := env.cache.Get(); err != nil {
		logger.Warn("initial project load failed", slog.String("error", err.Error()))
	}

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: newHandler(cfg, env, broker),
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Start project watcher with SSE callback.
	g.Go(func() error {
		if err := project.Watch(gCtx, env.root, env.cache, logger, broker.PublishProjectChange); err != nil {
			logger.Error("project watcher failed", slog.String("error", err.Error()))
		}
		return nil
	})

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// newHandler builds the root router: health checks plus the API under /api.
func newHandler(cfg *Config, env *environment, events http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if _, err := env.cache.Get(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"project unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", api.NewRouter(env.svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, events))
	return r
}

// environment bundles the components shared by the server and the CLI
// commands.
type environment struct {
	root  string
	cache *project.Cache
	db    *diagstore.DB
	svc   *processing.Service
}

func newEnvironment(cfg *Config, logger *slog.Logger, opts ...processing.Option) (*environment, error) {
	store, err := storage.NewFS(cfg.Project.Path)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	env := &environment{
		root:  store.Root(),
		cache: project.NewCache(store, cfg.Layout(), logger),
	}

	svcOpts := []processing.Option{
		processing.WithTolerance(cfg.Processing.RTol, cfg.Processing.ATol),
		processing.WithWorkers(cfg.Processing.Workers),
		processing.WithLogger(logger),
	}
	if cfg.SQLite.Enabled() {
		env.db, err = diagstore.Open(cfg.SQLite.Path)
		if err != nil {
			return nil, fmt.Errorf("init run store: %w", err)
		}
		svcOpts = append(svcOpts, processing.WithStore(env.db))
	}
	env.svc = processing.NewService(env.cache, append(svcOpts, opts...)...)
	return env, nil
}

func (e *environment) Close() {
	if e.db != nil {
		_ = e.db.Close()
	}
}
