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

	"github.com/starford/notebase/internal/api"
	"github.com/starford/notebase/internal/mcpserver"
	"github.com/starford/notebase/internal/sse"
	"github.com/starford/notebase/internal/vault"
)

const trashCleanupInterval = time.Hour

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, logger, err := setup(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	rt, err := open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer rt.Close()

	// SSE broker relays committed changes to connected clients.
	broker := sse.NewBroker(cfg.App.HTTP.RefreshThrottle)
	defer broker.Close()
	defer broker.Attach(rt.bus)()

	apiRouter := api.NewRouter(rt.db, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	// Build chi router.
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
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	if cfg.Settings.Watch {
		g.Go(func() error {
			if err := rt.settings.Watch(gCtx); err != nil {
				logger.Warn("settings watcher stopped", slog.String("error", err.Error()))
			}
			return nil
		})
	}

	if cfg.Vault.Path != "" {
		importer, err := newImporter(rt, cfg.Vault.Path)
		if err != nil {
			return err
		}
		if _, err := importer.Import(ctx); err != nil {
			logger.Warn("initial vault import failed", slog.String("error", err.Error()))
		}
		if cfg.Vault.Watch {
			g.Go(func() error {
				return importer.Watch(gCtx, logVaultEvent(logger))
			})
		}
	}

	// Periodic trash retention.
	if cfg.Trash.Retention > 0 {
		g.Go(func() error {
			ticker := time.NewTicker(trashCleanupInterval)
			defer ticker.Stop()
			for {
				select {
				case <-gCtx.Done():
					return nil
				case <-ticker.C:
					rt.cleanupTrash(gCtx)
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
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		// Stop the watchers as well.
		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

var errShutdown = errors.New("shutdown")

// RunMCP serves the MCP tools on stdin/stdout. Logs go to stderr.
func RunMCP(ctx context.Context, opts ...Option) error {
	opts = append([]Option{WithLogOutput(os.Stderr)}, opts...)
	app, logger, err := setup(opts)
	if err != nil {
		return err
	}
	rt, err := open(ctx, app.config, logger)
	if err != nil {
		return err
	}
	defer rt.Close()

	logger.Info("MCP server starting on stdio")
	return mcpserver.New(rt.db).ServeStdio()
}

// RunImport imports the Markdown vault at dir. With watch set it keeps
// importing changes until ctx is cancelled.
func RunImport(ctx context.Context, dir string, watch bool, opts ...Option) error {
	app, logger, err := setup(opts)
	if err != nil {
		return err
	}
	rt, err := open(ctx, app.config, logger)
	if err != nil {
		return err
	}
	defer rt.Close()

	importer, err := newImporter(rt, dir)
	if err != nil {
		return err
	}
	if _, err := importer.Import(ctx); err != nil {
		return fmt.Errorf("import: %w", err)
	}
	if !watch {
		return nil
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return importer.Watch(ctx, logVaultEvent(logger))
}

// RunExport writes every unlocked note into dir as Markdown.
func RunExport(ctx context.Context, dir string, opts ...Option) error {
	app, logger, err := setup(opts)
	if err != nil {
		return err
	}
	rt, err := open(ctx, app.config, logger)
	if err != nil {
		return err
	}
	defer rt.Close()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}
	target, err := vault.Open(dir)
	if err != nil {
		return err
	}
	if _, err := vault.Export(ctx, rt.db, target, logger); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	return nil
}

func newImporter(rt *runtime, dir string) (*vault.Importer, error) {
	src, err := vault.Open(dir)
	if err != nil {
		return nil, fmt.Errorf("open vault: %w", err)
	}
	return vault.NewImporter(rt.db, src, rt.logger), nil
}

func logVaultEvent(logger *slog.Logger) vault.EventCallback {
	return func(kind, rel string) {
		logger.Debug("vault change", slog.String("kind", kind), slog.String("path", rel))
	}
}
