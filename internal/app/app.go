// Package app wires the analytics client, views, dashboard and the
// export, briefing and job components from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/newthinker/gridlens/internal/api"
	"github.com/newthinker/gridlens/internal/api/job"
	"github.com/newthinker/gridlens/internal/briefing"
	"github.com/newthinker/gridlens/internal/client"
	"github.com/newthinker/gridlens/internal/config"
	"github.com/newthinker/gridlens/internal/core"
	"github.com/newthinker/gridlens/internal/dashboard"
	"github.com/newthinker/gridlens/internal/fetch"
	"github.com/newthinker/gridlens/internal/filter"
	"github.com/newthinker/gridlens/internal/llm"
	"github.com/newthinker/gridlens/internal/llm/factory"
	"github.com/newthinker/gridlens/internal/logger"
	"github.com/newthinker/gridlens/internal/metrics"
	"github.com/newthinker/gridlens/internal/snapshot"
	"github.com/newthinker/gridlens/internal/storage/archive"
	"github.com/newthinker/gridlens/internal/view"
	"go.uber.org/zap"
)

// App is the main application orchestrator
type App struct {
	cfg       *config.Config
	logger    *zap.Logger
	client    *client.Client
	dashboard *dashboard.Dashboard
	exporter  *snapshot.Exporter
	format    snapshot.Format
	briefer   *briefing.Briefer
	jobs      *job.Store
	metrics   *metrics.Registry // nil when metrics are disabled

	mu      sync.RWMutex
	running bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// New creates a new application instance from a validated config.
func New(cfg *config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		log = zap.NewNop()
	}
	a := &App{cfg: cfg, logger: log}

	if cfg.Metrics.Enabled {
		a.metrics = metrics.NewRegistry()
	}

	a.client = client.New(cfg.Upstream.BaseURL,
		client.WithTimeout(cfg.Upstream.Timeout),
		client.WithLogger(logger.Component(log, "client")),
	)

	defs, err := a.catalog()
	if err != nil {
		return nil, err
	}

	store, err := filter.NewStore(cfg.Dashboard.DefaultRange.DateRange())
	if err != nil {
		return nil, fmt.Errorf("creating filter store: %w", err)
	}

	policy, err := fetch.ParseRacePolicy(cfg.Dashboard.RacePolicy)
	if err != nil {
		return nil, core.WrapError(core.ErrConfigInvalid, err)
	}
	dashOpts := []dashboard.Option{
		dashboard.WithPolicy(policy),
		dashboard.WithLogger(logger.Component(log, "dashboard")),
	}
	if a.metrics != nil {
		dashOpts = append(dashOpts, dashboard.WithRecorder(a.metrics))
	}
	a.dashboard = dashboard.New(store, defs, dashOpts...)

	if err := a.setupExporter(); err != nil {
		return nil, err
	}
	if err := a.setupBriefer(); err != nil {
		return nil, err
	}

	jobOpts := []job.Option{}
	if a.metrics != nil {
		jobOpts = append(jobOpts, job.WithActiveFunc(a.metrics.SetJobsActive))
	}
	a.jobs = job.NewStore(cfg.Server.MaxJobs, time.Duration(cfg.Server.JobTTLHours)*time.Hour, jobOpts...)

	return a, nil
}

func (a *App) catalog() ([]view.Definition, error) {
	d := a.cfg.Dashboard
	model, err := core.ParseModel(d.Model)
	if err != nil {
		return nil, core.WrapError(core.ErrConfigInvalid, err)
	}
	return view.Catalog(a.client, view.Defaults{
		Model:           model,
		MinTempF:        d.MinTempF,
		MinDays:         d.MinDays,
		HeatPercentile:  d.HeatPercentile,
		StdDevThreshold: d.StdDevThreshold,
		OutlierLimit:    d.OutlierLimit,
	}), nil
}

func (a *App) setupExporter() error {
	e := a.cfg.Export
	storage, err := archive.Open(archive.Options{
		Type: e.Type,
		Path: e.Path,
		S3: archive.S3Config{
			Bucket:    e.S3.Bucket,
			Endpoint:  e.S3.Endpoint,
			Region:    e.S3.Region,
			AccessKey: e.S3.AccessKey,
			SecretKey: e.S3.SecretKey,
			Prefix:    e.S3.Prefix,
		},
	})
	if err != nil {
		return fmt.Errorf("opening export storage: %w", err)
	}

	format, err := snapshot.ParseFormat(e.Format)
	if err != nil {
		return core.WrapError(core.ErrConfigInvalid, err)
	}
	a.format = format

	opts := []snapshot.Option{snapshot.WithLogger(logger.Component(a.logger, "snapshot"))}
	if a.metrics != nil {
		opts = append(opts, snapshot.WithRecorder(a.metrics))
	}
	a.exporter = snapshot.NewExporter(storage, opts...)
	return nil
}

func (a *App) setupBriefer() error {
	var provider llm.Provider
	p, err := factory.New(a.cfg.LLM)
	switch {
	case errors.Is(err, core.ErrLLMDisabled):
		a.logger.Info("no llm provider configured, briefings disabled")
	case err != nil:
		return fmt.Errorf("creating llm provider: %w", err)
	default:
		provider = p
	}

	var opts []briefing.Option
	if a.metrics != nil {
		opts = append(opts, briefing.WithRecorder(a.metrics))
	}
	a.briefer = briefing.New(provider, logger.Component(a.logger, "briefing"), opts...)
	return nil
}

// Open subscribes the dashboard to range commits and marks the app running.
// It returns once the subscription is in place, so a listener opened
// afterwards never sees a commit the dashboard misses.
func (a *App) Open(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.running {
		return fmt.Errorf("app already running")
	}
	a.running = true

	a.ctx, a.cancel = context.WithCancel(ctx)
	a.dashboard.Start(a.ctx)
	return nil
}

// Run optionally loads every view and blocks until the context given to Open
// is cancelled or Stop is called.
func (a *App) Run() error {
	a.mu.RLock()
	ctx := a.ctx
	a.mu.RUnlock()
	if ctx == nil {
		return fmt.Errorf("app not opened")
	}

	a.logger.Info("GridLens starting",
		zap.String("upstream", a.client.BaseURL()),
		zap.String("range", a.dashboard.Store().Committed().String()),
		zap.Int("views", len(a.dashboard.Names())),
	)

	if a.cfg.Dashboard.RefreshOnStart {
		a.loadAll(ctx)
	}

	<-ctx.Done()
	a.logger.Info("GridLens shutting down")
	a.dashboard.Stop()
	a.jobs.Wait()

	a.mu.Lock()
	a.running = false
	a.ctx = nil
	a.mu.Unlock()
	return ctx.Err()
}

// Start opens the app and runs it until ctx is cancelled or Stop is called.
func (a *App) Start(ctx context.Context) error {
	if err := a.Open(ctx); err != nil {
		return err
	}
	return a.Run()
}

// Stop stops the application
func (a *App) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cancel != nil {
		a.cancel()
	}
}

func (a *App) loadAll(ctx context.Context) {
	states := a.dashboard.RefreshAll(ctx)
	failed := 0
	for _, st := range states {
		if st.Error != "" {
			failed++
			a.logger.Warn("initial load failed",
				zap.String("view", st.View),
				zap.String("error", st.Error),
			)
		}
	}
	a.logger.Info("initial load complete",
		zap.Int("views", len(states)),
		zap.Int("failed", failed),
	)
}

// Running reports whether the app has been opened and not yet shut down.
func (a *App) Running() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.running
}

// GetStats returns application statistics
func (a *App) GetStats() map[string]any {
	ready := 0
	for _, st := range a.dashboard.States() {
		if st.Ready() {
			ready++
		}
	}
	return map[string]any{
		"running":  a.Running(),
		"range":    a.dashboard.Store().Committed().String(),
		"views":    len(a.dashboard.Names()),
		"ready":    ready,
		"commits":  a.dashboard.Store().Commits(),
		"briefing": a.briefer.Enabled(),
		"jobs":     len(a.jobs.List()),
	}
}

// Dashboard returns the dashboard.
func (a *App) Dashboard() *dashboard.Dashboard { return a.dashboard }

// Client returns the analytics API client.
func (a *App) Client() *client.Client { return a.client }

// Exporter returns the snapshot exporter.
func (a *App) Exporter() *snapshot.Exporter { return a.exporter }

// ExportFormat returns the configured default snapshot format.
func (a *App) ExportFormat() snapshot.Format { return a.format }

// Briefer returns the briefing generator.
func (a *App) Briefer() *briefing.Briefer { return a.briefer }

// Jobs returns the async job store.
func (a *App) Jobs() *job.Store { return a.jobs }

// Metrics returns the metrics registry, nil when disabled.
func (a *App) Metrics() *metrics.Registry { return a.metrics }

// ServerConfig builds the HTTP server config.
func (a *App) ServerConfig(templatesDir string) api.Config {
	cfg := api.Config{
		Host:         a.cfg.Server.Host,
		Port:         a.cfg.Server.Port,
		APIKey:       a.cfg.Server.APIKey,
		CORSOrigins:  a.cfg.Server.CORSOrigins,
		TemplatesDir: templatesDir,
	}
	if a.metrics != nil {
		cfg.MetricsPath = a.cfg.Metrics.Path
	}
	return cfg
}

// ServerDeps returns the components the HTTP server serves.
func (a *App) ServerDeps() api.Dependencies {
	return api.Dependencies{
		Dashboard:    a.dashboard,
		Client:       a.client,
		Jobs:         a.jobs,
		Exporter:     a.exporter,
		ExportFormat: a.format,
		Briefer:      a.briefer,
		Metrics:      a.metrics,
	}
}
