// Package app provides the application initialization and lifecycle management
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/tildaslashalef/oplink/internal/bulklink"
	"github.com/tildaslashalef/oplink/internal/config"
	"github.com/tildaslashalef/oplink/internal/database"
	"github.com/tildaslashalef/oplink/internal/loggy"
	"github.com/tildaslashalef/oplink/internal/nextcloud"
	"github.com/tildaslashalef/oplink/internal/openproject"
	"github.com/tildaslashalef/oplink/internal/wizard"
	"github.com/urfave/cli/v2"
)

var (
	// ErrNextcloudNotConfigured is returned when no Nextcloud connection is known
	ErrNextcloudNotConfigured = errors.New("nextcloud connection is not configured, run 'oplink connect' first")
	// ErrOpenProjectNotConfigured is returned when no OpenProject URL is set
	ErrOpenProjectNotConfigured = errors.New("openproject is not configured, set OPLINK_OPENPROJECT_URL")
)

// App represents the application instance with its dependencies
type App struct {
	Config   *config.Config
	Logger   *loggy.Logger
	DB       *sql.DB
	Settings *config.SettingsService
	Jobs     *bulklink.SQLRepository

	mu          sync.Mutex
	nextcloud   *nextcloud.Client
	openProject *openproject.Client
}

// New initializes a new application instance with all its dependencies
func New() (*App, error) {
	cfg, err := config.LoadFromEnv("", "")
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := loggy.New(loggy.Config{
		Level:      config.ParseLogLevel(cfg.Logging.Level),
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		AddSource:  cfg.Logging.AddSource,
		TimeFormat: cfg.Logging.TimeFormat,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.Info("Application initializing",
		"version", os.Getenv("VERSION"),
		"log_level", cfg.Logging.Level,
	)

	db, err := database.Open(cfg.Database, logger)
	if err != nil {
		logger.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := database.RunMigrations(db, logger); err != nil {
		db.Close()
		logger.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	a := &App{
		Config:   cfg,
		Logger:   logger,
		DB:       db,
		Settings: config.NewSettingsService(config.NewSQLSettingsRepository(db, logger), cfg, logger),
		Jobs:     bulklink.NewSQLRepository(db, logger),
	}

	if err := a.Settings.ApplyStoredConnection(context.Background()); err != nil {
		logger.Warn("Failed to apply stored nextcloud connection", "error", err)
	}

	logger.Info("Application initialized successfully")
	return a, nil
}

// Nextcloud returns the Nextcloud client, creating it on first use
func (a *App) Nextcloud() (*nextcloud.Client, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.nextcloud != nil {
		return a.nextcloud, nil
	}

	nc := a.Config.Nextcloud
	if nc.URL == "" || nc.User == "" || nc.AppPassword == "" {
		return nil, ErrNextcloudNotConfigured
	}

	a.nextcloud = nextcloud.NewClient(nc, a.Logger)
	return a.nextcloud, nil
}

// ResetClients drops cached clients so the next call picks up changed settings
func (a *App) ResetClients() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.nextcloud = nil
	a.openProject = nil
}

// OpenProject returns the OpenProject client, creating it on first use
func (a *App) OpenProject(ctx context.Context) (*openproject.Client, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.openProject != nil {
		return a.openProject, nil
	}

	if a.Config.OpenProject.URL == "" {
		return nil, ErrOpenProjectNotConfigured
	}

	client, err := openproject.NewClient(ctx, a.Config.OpenProject, a.Logger)
	if err != nil {
		return nil, err
	}
	a.openProject = client
	return client, nil
}

// LoadWizard fetches the admin config and builds a wizard controller from it
func (a *App) LoadWizard(ctx context.Context) (*wizard.Controller, *nextcloud.AdminConfig, error) {
	client, err := a.Nextcloud()
	if err != nil {
		return nil, nil, err
	}

	adminConfig, err := client.GetAdminConfig(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load admin config: %w", err)
	}

	wc := wizard.NewController(wizard.DefaultSteps(), a.Logger)
	wc.Load(adminConfig)
	return wc, adminConfig, nil
}

// NewOrchestrator creates a bulk link orchestrator backed by the job repository
func (a *App) NewOrchestrator(onProgress func(bulklink.Progress)) (*bulklink.Orchestrator, error) {
	client, err := a.Nextcloud()
	if err != nil {
		return nil, err
	}

	return bulklink.NewOrchestrator(
		bulklink.NewNextcloudLinker(client),
		a.Jobs,
		bulklink.Options{
			Concurrency:       a.Config.Link.Concurrency,
			RequestsPerMinute: a.Config.Link.RequestsPerMinute,
			BurstLimit:        a.Config.Link.BurstLimit,
			OnProgress:        onProgress,
		},
		a.Logger,
	), nil
}

// Shutdown gracefully shuts down the application
func (a *App) Shutdown() error {
	a.Logger.Info("Shutting down application")

	var errs []error
	if err := a.DB.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing database: %w", err))
	}
	if err := a.Logger.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing logger: %w", err))
	}
	return errors.Join(errs...)
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
