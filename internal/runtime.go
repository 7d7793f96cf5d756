package internal

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/starford/notebase/internal/core"
	"github.com/starford/notebase/internal/events"
	"github.com/starford/notebase/internal/quota"
	"github.com/starford/notebase/internal/settings"
	"github.com/starford/notebase/internal/storage"
)

// runtime is the opened database and its collaborators, shared by all
// commands.
type runtime struct {
	cfg      *Config
	logger   *slog.Logger
	bus      *events.Bus
	settings *settings.Store
	policy   *quota.Policy
	db       *core.DB
	detach   func()
}

func setup(opts []Option) (*application, *slog.Logger, error) {
	app := &application{logOutput: os.Stdout}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, nil, fmt.Errorf("config is required")
	}

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(app.logOutput, &slog.HandlerOptions{
		Level: app.config.App.LogLevel,
	}))
	slog.SetDefault(logger)
	return app, logger, nil
}

// open wires storage, settings, the quota policy and the core database,
// then purges expired trash.
func open(ctx context.Context, cfg *Config, logger *slog.Logger) (*runtime, error) {
	logger.Info("Configuration loaded",
		slog.String("storage_path", cfg.Storage.Path),
		slog.String("settings_path", cfg.Settings.Path),
		slog.String("plan", cfg.Policy.Plan),
		slog.String("log_level", cfg.App.LogLevel.String()))

	backend, err := storage.OpenSQLite(cfg.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	bus := events.NewBus(logger)

	prefs, err := settings.Open(cfg.Settings.Path,
		settings.WithLogger(logger),
		settings.WithPublisher(bus),
	)
	if err != nil {
		backend.Close()
		return nil, fmt.Errorf("init settings: %w", err)
	}

	policy := quota.New(cfg.Policy.Plan, logger)
	detach := policy.Register(bus)

	db, err := core.Open(ctx, backend,
		core.WithLogger(logger),
		core.WithPublisher(bus),
		core.WithSettings(prefs),
		core.WithNotebookQuota(cfg.Policy.NotebookFreeLimit),
		core.WithLockIterations(cfg.Lock.Iterations),
	)
	if err != nil {
		detach()
		backend.Close()
		return nil, fmt.Errorf("init database: %w", err)
	}

	rt := &runtime{
		cfg:      cfg,
		logger:   logger,
		bus:      bus,
		settings: prefs,
		policy:   policy,
		db:       db,
		detach:   detach,
	}
	rt.cleanupTrash(ctx)
	return rt, nil
}

func (rt *runtime) cleanupTrash(ctx context.Context) {
	if rt.cfg.Trash.Retention <= 0 {
		return
	}
	if _, err := rt.db.Trash.Cleanup(ctx, rt.cfg.Trash.Retention); err != nil {
		rt.logger.Warn("trash cleanup failed", slog.String("error", err.Error()))
	}
}

func (rt *runtime) Close() error {
	rt.detach()
	return rt.db.Close()
}
