// Package app provides the application initialization and lifecycle management
package app

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/verdantlabs/verdant/internal/config"
	"github.com/verdantlabs/verdant/internal/database"
	"github.com/verdantlabs/verdant/internal/facade"
	"github.com/verdantlabs/verdant/internal/interceptor"
	"github.com/verdantlabs/verdant/internal/loggy"
	"github.com/verdantlabs/verdant/internal/netmon"
	"github.com/verdantlabs/verdant/internal/remote"
	"github.com/verdantlabs/verdant/internal/store"
	"github.com/verdantlabs/verdant/internal/sweep"
)

// App represents the application instance with its dependencies
type App struct {
	Config      *config.Config
	Settings    *config.SettingsService
	Store       store.Store
	Client      *remote.Client
	Monitor     *netmon.Monitor
	Interceptor *interceptor.Interceptor
	Facades     *facade.Facades
	Sweeper     *sweep.Sweeper
	SweepLogs   sweep.LogRepository
}

// New initializes a new application instance with all its dependencies
func New() (*App, error) {
	cfg, err := initConfig()
	if err != nil {
		return nil, err
	}

	if err := initLogger(cfg); err != nil {
		return nil, err
	}

	loggy.Info("Application initializing",
		"version", os.Getenv("VERSION"),
		"log_level", cfg.Logging.Level,
	)

	if err := database.InitDB(cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if _, err := database.RunMigrations(); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	db, err := database.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database connection: %w", err)
	}

	app, err := initServices(cfg, db)
	if err != nil {
		return nil, err
	}

	loggy.Info("Application initialized successfully")
	return app, nil
}

// initConfig loads and sets up the application configuration
func initConfig() (*config.Config, error) {
	cfg, err := config.LoadFromEnv("", "")
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	config.Set(cfg)
	return cfg, nil
}

// initLogger initializes the logging system
func initLogger(cfg *config.Config) error {
	err := loggy.Init(loggy.Config{
		Level:      config.ParseLogLevel(cfg.Logging.Level),
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		AddSource:  cfg.Logging.AddSource,
		TimeFormat: cfg.Logging.TimeFormat,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

// initServices wires the sync engine bottom-up: store, remote client,
// connectivity monitor, interceptor, facades, reconciliation sweeper
func initServices(cfg *config.Config, db *sql.DB) (*App, error) {
	logger := loggy.GetGlobalLogger()
	ctx := context.Background()

	settingsService := config.NewSettingsService(db, cfg, logger)
	if err := settingsService.LoadRemoteSettings(ctx); err != nil {
		loggy.Warn("Failed to load remote settings from database", "error", err)
		// Continue anyway, using defaults
	}

	localStore := store.NewSQLStore(db, logger)

	client := remote.NewClient(
		cfg.Remote.URL,
		remote.StaticTokenSource(cfg.Remote.Token),
		cfg.Remote.Timeout,
		cfg.Remote.MaxRetries,
		logger,
	)

	monitor := netmon.New(
		netmon.ProbeFunc(client.Health),
		cfg.Sync.ProbeInterval,
		cfg.Sync.OnlineDebounce,
		logger,
	)

	ic := interceptor.New(localStore, monitor, logger)

	facades := facade.New(
		localStore,
		ic,
		client,
		monitor,
		cfg.Sync.MaxCreateRetries,
		logger,
	)

	sweepLogs := sweep.NewSQLLogRepository(db, logger)

	sweeper := sweep.New(
		localStore,
		sweep.NewRemotePusher(client),
		monitor,
		ic,
		sweepLogs,
		cfg.Sync.SweepInterval,
		cfg.Sync.PushesPerSecond,
		cfg.Sync.PushBurst,
		logger,
	)
	sweeper.SetBatchLimit(cfg.Sync.BatchLimit)

	return &App{
		Config:      cfg,
		Settings:    settingsService,
		Store:       localStore,
		Client:      client,
		Monitor:     monitor,
		Interceptor: ic,
		Facades:     facades,
		Sweeper:     sweeper,
		SweepLogs:   sweepLogs,
	}, nil
}

// StartBackground starts the connectivity monitor and, when enabled,
// the reconciliation sweeper. Both run until Shutdown.
func (app *App) StartBackground(ctx context.Context) {
	app.Monitor.Start(ctx)
	if app.Config.Sync.Enabled {
		app.Sweeper.Start(ctx)
	}
}

// Shutdown gracefully shuts down the application
func (app *App) Shutdown() error {
	loggy.Info("Shutting down application")

	app.Sweeper.Stop()
	app.Monitor.Stop()

	if err := database.CloseDB(); err != nil {
		loggy.Error("Error closing database connection", "error", err)
	}

	return nil
}

// FromContext retrieves the App instance from the CLI context
func FromContext(c *cli.Context) (*App, error) {
	if c.App.Metadata == nil {
		return nil, fmt.Errorf("app metadata not found in context")
	}

	app, ok := c.App.Metadata["app"].(*App)
	if !ok {
		return nil, fmt.Errorf("app instance not found in context")
	}

	return app, nil
}
