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

	"github.com/starford/valet/internal/api"
	"github.com/starford/valet/internal/history"
	"github.com/starford/valet/internal/inbox"
	"github.com/starford/valet/internal/registry"
	"github.com/starford/valet/internal/sse"
)

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	logger := app.logger
	if logger == nil {
		logger = NewLogger(os.Stdout, cfg.App.LogLevel)
	}
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("data_dir", cfg.Data.Dir),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("timezone", cfg.App.Timezone),
		slog.Bool("inbox", cfg.Inbox.Enabled),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// SSE broker receives every registry change.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	services, err := OpenServices(cfg, registry.WithNotifier(broker.Notify))
	if err != nil {
		return err
	}
	defer services.Close()
	svc := services.Registry

	// Pick up a legacy JSON export left in the data dir.
	legacy, err := svc.MigrateLegacy(ctx)
	if err != nil {
		logger.Warn("legacy migration failed", slog.String("error", err.Error()))
	} else if legacy != nil {
		logger.Info("legacy data migrated",
			slog.Int("clients", legacy.ClientsAdded),
			slog.Int("registros", legacy.RegistrosAdded),
			slog.String("moved_to", legacy.MigratedFilePath))
	}

	sweep(ctx, svc, logger)

	apiRouter := api.NewRouter(svc, history.NewExpandState(), cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

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
	r.Get("/health/ready", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := services.DB.Ping(req.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Import spreadsheets dropped into the inbox.
	if cfg.Inbox.Enabled {
		g.Go(func() error {
			err := inbox.Watch(gCtx, svc, services.Files, logger, inbox.DefaultDebounce, nil)
			if err != nil {
				logger.Error("inbox watcher stopped", slog.String("error", err.Error()))
			}
			return nil
		})
	}

	// Flag registros left open past midnight.
	if every := cfg.App.OvernightSweepInterval; every > 0 {
		g.Go(func() error {
			ticker := time.NewTicker(every)
			defer ticker.Stop()
			for {
				select {
				case <-gCtx.Done():
					return nil
				case <-ticker.C:
					sweep(gCtx, svc, logger)
				}
			}
		})
	}

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
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		// Open event streams never finish on their own.
		broker.Close()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown cancels the group so the watcher and sweeper stop with the
// server.
var errShutdown = errors.New("shutdown")

func sweep(ctx context.Context, svc *registry.Service, logger *slog.Logger) {
	n, err := svc.SweepOvernight(ctx)
	if err != nil {
		logger.Warn("overnight sweep failed", slog.String("error", err.Error()))
		return
	}
	if n > 0 {
		logger.Info("overnight registros flagged", slog.Int("count", n))
	}
}
