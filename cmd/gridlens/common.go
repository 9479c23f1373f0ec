package main

import (
	"fmt"

	"github.com/newthinker/gridlens/internal/app"
	"github.com/newthinker/gridlens/internal/config"
	"github.com/newthinker/gridlens/internal/dashboard"
	"go.uber.org/zap"
)

// loadConfig reads --config, or defaults plus environment when unset.
func loadConfig(log *zap.Logger) (*config.Config, error) {
	if cfgFile == "" {
		log.Debug("no config file specified, using defaults")
	}
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func newApp(log *zap.Logger) (*app.App, *config.Config, error) {
	cfg, err := loadConfig(log)
	if err != nil {
		return nil, nil, err
	}
	a, err := app.New(cfg, log)
	if err != nil {
		return nil, nil, fmt.Errorf("creating app: %w", err)
	}
	return a, cfg, nil
}

// commitRange drafts the --start/--end flags and commits them. Unset flags
// keep the configured default range.
func commitRange(d *dashboard.Dashboard, start, end string) error {
	r := d.Store().Draft()
	if start != "" {
		r.Start = start
	}
	if end != "" {
		r.End = end
	}
	if err := d.Store().SetDraft(r); err != nil {
		return err
	}
	d.Commit()
	return nil
}
