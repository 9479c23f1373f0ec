// Package view defines the dashboard's views. Each view pairs one analytics
// API endpoint with an aggregation over the shared region mapping.
package view

import (
	"github.com/newthinker/gridlens/internal/aggregate"
	"github.com/newthinker/gridlens/internal/client"
	"github.com/newthinker/gridlens/internal/core"
	"github.com/newthinker/gridlens/internal/fetch"
)

// View names.
const (
	HourlyLoad      = "hourly-load"
	Precipitation   = "precipitation"
	Heatwaves       = "heatwaves"
	ExtremeHeat     = "extreme-heat"
	Comparison      = "comparison"
	ForecastMetrics = "forecast-metrics"
	Outliers        = "outliers"
	OutlierWeather  = "outlier-weather"
)

// Kind describes the shape of a view's data.
type Kind string

const (
	KindSummary Kind = "summary"
	KindSeries  Kind = "series"
	KindTable   Kind = "table"
)

// Column labels one statistic of a summary row.
type Column struct {
	Key   string `json:"key" yaml:"key"`
	Label string `json:"label" yaml:"label"`
	Unit  string `json:"unit,omitempty" yaml:"unit,omitempty"`
}

// SummaryData is the output of a summary view: one row per region.
type SummaryData struct {
	Columns []Column        `json:"columns" yaml:"columns"`
	Rows    []aggregate.Row `json:"rows" yaml:"rows"`
	Skipped int             `json:"skipped,omitempty" yaml:"skipped,omitempty"`
}

// NamedSeries is one measure plotted per region.
type NamedSeries struct {
	Name  string           `json:"name" yaml:"name"`
	Label string           `json:"label" yaml:"label"`
	Lines []aggregate.Line `json:"lines" yaml:"lines"`
}

// SeriesData is the output of a time-series view.
type SeriesData struct {
	Unit   string        `json:"unit" yaml:"unit"`
	Series []NamedSeries `json:"series" yaml:"series"`
}

// OutlierData is the output of the outliers view.
type OutlierData struct {
	Summary  SummaryData        `json:"summary" yaml:"summary"`
	Records  []core.LoadOutlier `json:"records" yaml:"records"`
	Metadata map[string]any     `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// GroupRow summarizes the weather on one group of outlier days.
type GroupRow struct {
	Group  core.OutlierType   `json:"group" yaml:"group"`
	Days   int                `json:"days" yaml:"days"`
	Values map[string]float64 `json:"values" yaml:"values"`
}

// MonthlyData is the output of the outlier-weather view.
type MonthlyData struct {
	Columns  []Column              `json:"columns" yaml:"columns"`
	Months   []core.OutlierWeather `json:"months" yaml:"months"`
	Groups   []GroupRow            `json:"groups" yaml:"groups"`
	Metadata map[string]any        `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// Definition describes one view and how to load it.
type Definition struct {
	Name        string
	Title       string
	Description string
	Kind        Kind
	Endpoint    string
	Params      []string // accepted parameter keys besides region
	Loader      fetch.Loader
}

// Defaults are the parameter values used when a request leaves them unset.
type Defaults struct {
	Model           core.Model
	MinTempF        float64
	MinDays         int
	HeatPercentile  float64
	StdDevThreshold float64
	OutlierLimit    int
}

// DefaultParams mirrors the analytics API's own defaults.
func DefaultParams() Defaults {
	return Defaults{
		Model:           core.ModelStatistical,
		MinTempF:        100,
		MinDays:         3,
		HeatPercentile:  99,
		StdDevThreshold: 3,
		OutlierLimit:    1000,
	}
}

// Catalog builds every view against c, in display order.
func Catalog(c *client.Client, d Defaults) []Definition {
	return []Definition{
		hourlyLoad(c),
		comparison(c, d),
		forecastMetrics(c, d),
		precipitation(c),
		heatwaves(c, d),
		extremeHeat(c, d),
		outliers(c, d),
		outlierWeather(c, d),
	}
}
