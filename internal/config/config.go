package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/newthinker/gridlens/internal/core"
	"github.com/newthinker/gridlens/internal/fetch"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Upstream  UpstreamConfig  `mapstructure:"upstream"`
	Dashboard DashboardConfig `mapstructure:"dashboard"`
	Export    ExportConfig    `mapstructure:"export"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

type ServerConfig struct {
	Host        string   `mapstructure:"host"`
	Port        int      `mapstructure:"port"`
	APIKey      string   `mapstructure:"api_key"`
	CORSOrigins []string `mapstructure:"cors_origins"`
	JobTTLHours int      `mapstructure:"job_ttl_hours"`
	MaxJobs     int      `mapstructure:"max_jobs"`
}

// UpstreamConfig points at the analytics API.
type UpstreamConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"` // 0 means no timeout
}

// DashboardConfig controls the initial range, fetch policy and view defaults.
type DashboardConfig struct {
	DefaultRange    RangeConfig `mapstructure:"default_range"`
	RacePolicy      string      `mapstructure:"race_policy"` // "last-resolved" or "latest-issued"
	RefreshOnStart  bool        `mapstructure:"refresh_on_start"`
	Model           string      `mapstructure:"model"`
	StdDevThreshold float64     `mapstructure:"std_dev_threshold"`
	OutlierLimit    int         `mapstructure:"outlier_limit"`
	MinTempF        float64     `mapstructure:"min_temp_f"`
	MinDays         int         `mapstructure:"min_days"`
	HeatPercentile  float64     `mapstructure:"heat_percentile"`
}

type RangeConfig struct {
	StartDate string `mapstructure:"start_date"`
	EndDate   string `mapstructure:"end_date"`
}

// DateRange converts the configured range.
func (r RangeConfig) DateRange() core.DateRange {
	return core.DateRange{Start: r.StartDate, End: r.EndDate}
}

// ExportConfig selects where dashboard snapshots are written.
type ExportConfig struct {
	Type   string   `mapstructure:"type"` // "localfs" or "s3"
	Path   string   `mapstructure:"path"` // For localfs
	S3     S3Config `mapstructure:"s3"`   // For S3
	Format string   `mapstructure:"format"`
}

type S3Config struct {
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Prefix    string `mapstructure:"prefix"`
}

type LLMConfig struct {
	Provider string       `mapstructure:"provider"`
	Claude   ClaudeConfig `mapstructure:"claude"`
	OpenAI   OpenAIConfig `mapstructure:"openai"`
	Ollama   OllamaConfig `mapstructure:"ollama"`
}

type ClaudeConfig struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"`
}

type OpenAIConfig struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"`
}

type OllamaConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	Model    string `mapstructure:"model"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// envKeys are bound explicitly so they apply even when absent from the file.
var envKeys = []string{
	"server.host",
	"server.port",
	"server.api_key",
	"upstream.base_url",
	"upstream.timeout",
	"dashboard.race_policy",
	"export.type",
	"export.path",
	"llm.provider",
	"llm.claude.api_key",
	"llm.openai.api_key",
}

// Load reads configuration from file. Values missing from the file keep
// their defaults. An empty path loads defaults and environment only.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Support environment variable overrides, e.g. GRIDLENS_UPSTREAM_BASE_URL
	v.SetEnvPrefix("GRIDLENS")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, key := range envKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("binding env for %s: %w", key, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	// Expand environment variables in string values
	for _, key := range v.AllKeys() {
		val := v.GetString(key)
		if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
			envKey := strings.TrimSuffix(strings.TrimPrefix(val, "${"), "}")
			v.Set(key, os.Getenv(envKey))
		}
	}

	cfg := Defaults()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return cfg, nil
}

// Defaults returns a config with sensible defaults
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        8080,
			CORSOrigins: []string{"*"},
			JobTTLHours: 1,
			MaxJobs:     100,
		},
		Upstream: UpstreamConfig{
			BaseURL: "http://localhost:8000",
		},
		Dashboard: DashboardConfig{
			DefaultRange: RangeConfig{
				StartDate: "2010-06-01",
				EndDate:   "2011-01-01",
			},
			RacePolicy:      "last-resolved",
			RefreshOnStart:  true,
			Model:           string(core.ModelStatistical),
			StdDevThreshold: 3,
			OutlierLimit:    1000,
			MinTempF:        100,
			MinDays:         3,
			HeatPercentile:  99,
		},
		Export: ExportConfig{
			Type:   "localfs",
			Path:   "./snapshots",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	// Server validation
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("port must be between 1 and 65535, got %d", c.Server.Port))
	}
	if c.Server.MaxJobs < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("max_jobs cannot be negative, got %d", c.Server.MaxJobs))
	}

	// Upstream validation
	if c.Upstream.BaseURL == "" {
		return core.WrapError(core.ErrConfigMissing, fmt.Errorf("upstream base_url required"))
	}
	if c.Upstream.Timeout < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("upstream timeout cannot be negative, got %s", c.Upstream.Timeout))
	}

	if err := c.Dashboard.validate(); err != nil {
		return err
	}

	// Export validation
	switch c.Export.Type {
	case "localfs":
		if c.Export.Path == "" {
			return core.WrapError(core.ErrConfigMissing, fmt.Errorf("export path required for localfs"))
		}
	case "s3":
		if c.Export.S3.Bucket == "" {
			return core.WrapError(core.ErrConfigMissing, fmt.Errorf("export s3 bucket required"))
		}
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("export type must be localfs or s3, got %q", c.Export.Type))
	}
	switch c.Export.Format {
	case "json", "yaml", "csv":
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("export format must be json, yaml or csv, got %q", c.Export.Format))
	}

	// LLM validation - if provider set, check config exists
	if c.LLM.Provider != "" {
		switch c.LLM.Provider {
		case "claude":
			if c.LLM.Claude.APIKey == "" {
				return core.WrapError(core.ErrConfigMissing,
					fmt.Errorf("claude api_key required when provider is claude"))
			}
		case "openai":
			if c.LLM.OpenAI.APIKey == "" {
				return core.WrapError(core.ErrConfigMissing,
					fmt.Errorf("openai api_key required when provider is openai"))
			}
		case "ollama":
			if c.LLM.Ollama.Endpoint == "" {
				return core.WrapError(core.ErrConfigMissing,
					fmt.Errorf("ollama endpoint required when provider is ollama"))
			}
		default:
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("unknown llm provider %q", c.LLM.Provider))
		}
	}

	return nil
}

func (d DashboardConfig) validate() error {
	if err := d.DefaultRange.DateRange().Validate(); err != nil {
		return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("default_range: %w", err))
	}
	// Drafts may be reversed while editing; the configured seed may not.
	if d.DefaultRange.EndDate < d.DefaultRange.StartDate {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("default_range end_date %s precedes start_date %s", d.DefaultRange.EndDate, d.DefaultRange.StartDate))
	}
	if _, err := fetch.ParseRacePolicy(d.RacePolicy); err != nil {
		return core.WrapError(core.ErrConfigInvalid, err)
	}
	if _, err := core.ParseModel(d.Model); err != nil {
		return core.WrapError(core.ErrConfigInvalid, err)
	}
	if d.StdDevThreshold < 1 || d.StdDevThreshold > 5 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("std_dev_threshold must be between 1 and 5, got %g", d.StdDevThreshold))
	}
	if d.OutlierLimit < 1 || d.OutlierLimit > 10000 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("outlier_limit must be between 1 and 10000, got %d", d.OutlierLimit))
	}
	if d.MinDays < 1 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("min_days must be at least 1, got %d", d.MinDays))
	}
	if d.HeatPercentile < 0 || d.HeatPercentile > 100 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("heat_percentile must be between 0 and 100, got %g", d.HeatPercentile))
	}
	return nil
}
