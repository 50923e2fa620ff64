package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/labstack/echo/v4"
	"github.com/vk/mosaicflow/internal/config"
	"github.com/vk/mosaicflow/internal/ctxlog"
	"github.com/vk/mosaicflow/internal/publish"
	"github.com/vk/mosaicflow/internal/shell"
	"github.com/vk/mosaicflow/internal/submit"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW    io.Writer
	logger  *slog.Logger
	config  *Config
	model   *config.Model
	runner  shell.Runner
	planner submit.Client
	store   publish.Store
	tracker *submit.Tracker
	server  *echo.Echo
}

// Option replaces one of the App's collaborators, mainly for tests.
type Option func(*App)

// WithRunner sets the runner used for the Montage preparation tools and,
// unless WithPlanner is also given, for the planner clients.
func WithRunner(r shell.Runner) Option {
	return func(a *App) { a.runner = r }
}

// WithPlanner replaces the Pegasus client.
func WithPlanner(c submit.Client) Option {
	return func(a *App) { a.planner = c }
}

// WithStore replaces the object store used for publishing.
func WithStore(s publish.Store) Option {
	return func(a *App) { a.store = s }
}

// NewApp is the constructor for the main application. It builds the
// logger and loads the run description; a configuration that cannot be
// loaded is returned as an error.
func NewApp(outW io.Writer, appConfig *Config, loader config.Loader, opts ...Option) (*App, error) {
	logger := newLogger(appConfig.LogLevel, appConfig.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	model, err := loader.Load(ctx, appConfig.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	logger.Debug("Configuration loaded and translated into unified model.", "mosaic", model.Mosaic.Name)

	a := &App{
		outW:    outW,
		logger:  logger,
		config:  appConfig,
		model:   model,
		runner:  shell.NewExecRunner(),
		tracker: submit.NewTracker(),
	}
	for _, o := range opts {
		o(a)
	}
	return a, nil
}

// Model returns the loaded run description. This is primarily for testing.
func (a *App) Model() *config.Model {
	return a.model
}

// Tracker returns the submission progress tracker.
func (a *App) Tracker() *submit.Tracker {
	return a.tracker
}
