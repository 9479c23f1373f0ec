package client

import (
	"context"
	"strconv"

	"github.com/newthinker/gridlens/internal/core"
)

// HourlyLoad fetches /load/hourly. The range is sent as day-boundary timestamps.
func (c *Client) HourlyLoad(ctx context.Context, r core.DateRange) ([]core.HourlyLoad, error) {
	var out []core.HourlyLoad
	q := new(Query).TimestampRange(r)
	if err := c.get(ctx, "/load/hourly", q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ComparisonQuery holds /load/comparison parameters.
type ComparisonQuery struct {
	Regions string // comma-separated zones, empty for all
	Model   core.Model
}

// LoadComparison fetches /load/comparison: actual vs expected load per zone.
func (c *Client) LoadComparison(ctx context.Context, r core.DateRange, cq ComparisonQuery) ([]core.LoadComparison, error) {
	var out []core.LoadComparison
	q := new(Query).TimestampRange(r).
		Set("region", cq.Regions).
		Set("model", string(cq.Model))
	if err := c.get(ctx, "/load/comparison", q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// MetricsQuery holds /forecast/metrics parameters.
type MetricsQuery struct {
	Regions string
	Model   core.Model
}

// ForecastMetrics fetches /forecast/metrics: per-zone forecast accuracy.
func (c *Client) ForecastMetrics(ctx context.Context, r core.DateRange, mq MetricsQuery) ([]core.ForecastMetric, error) {
	var out []core.ForecastMetric
	q := new(Query).TimestampRange(r).
		Set("region", mq.Regions).
		Set("model", string(mq.Model))
	if err := c.get(ctx, "/forecast/metrics", q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// HeatwaveQuery holds /weather/heatwaves parameters.
type HeatwaveQuery struct {
	Zones    string
	MinTempF float64
	MinDays  int
}

// Heatwaves fetches /weather/heatwaves: consecutive hot-day streaks per zone.
func (c *Client) Heatwaves(ctx context.Context, r core.DateRange, hq HeatwaveQuery) ([]core.HeatwaveStreak, error) {
	var out []core.HeatwaveStreak
	q := new(Query).Set("zone", hq.Zones)
	// 0°F is a valid threshold, so it is always sent.
	q.Set("min_temp_f", formatFloat(hq.MinTempF))
	if hq.MinDays != 0 {
		q.Set("min_days", strconv.Itoa(hq.MinDays))
	}
	q.DateRange(r)
	if err := c.get(ctx, "/weather/heatwaves", q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Precipitation fetches /weather/precipitation: rainy vs dry day load per zone.
func (c *Client) Precipitation(ctx context.Context, r core.DateRange, zones string) ([]core.PrecipitationImpact, error) {
	var out []core.PrecipitationImpact
	q := new(Query).Set("zone", zones).DateRange(r)
	if err := c.get(ctx, "/weather/precipitation", q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ExtremeHeatQuery holds /load/peak-load-extreme-heat parameters.
type ExtremeHeatQuery struct {
	Zones     string
	Threshold float64 // temperature percentile, 0-100
}

// ExtremeHeat fetches /load/peak-load-extreme-heat: median peak load on extreme heat days.
func (c *Client) ExtremeHeat(ctx context.Context, r core.DateRange, eq ExtremeHeatQuery) ([]core.ExtremeHeatLoad, error) {
	var out []core.ExtremeHeatLoad
	q := new(Query).Set("zone", eq.Zones).DateRange(r)
	q.Set("threshold", formatFloat(eq.Threshold))
	if err := c.get(ctx, "/load/peak-load-extreme-heat", q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// OutlierQuery holds /load/outliers parameters.
type OutlierQuery struct {
	Regions         string
	Type            core.OutlierType
	StdDevThreshold float64
	Limit           int
}

// Outliers fetches /load/outliers: hourly loads beyond N standard deviations.
func (c *Client) Outliers(ctx context.Context, r core.DateRange, oq OutlierQuery) (*core.Envelope[core.LoadOutlier], error) {
	var out core.Envelope[core.LoadOutlier]
	q := new(Query).TimestampRange(r).
		Set("region", oq.Regions).
		Set("outlier_type", string(oq.Type))
	if oq.StdDevThreshold != 0 {
		q.Set("std_dev_threshold", formatFloat(oq.StdDevThreshold))
	}
	if oq.Limit != 0 {
		q.Set("limit", strconv.Itoa(oq.Limit))
	}
	if err := c.get(ctx, "/load/outliers", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// OutlierWeatherQuery holds /load/outliers/weather-conditions parameters.
type OutlierWeatherQuery struct {
	Months          string // comma-separated YYYY-MM
	Type            core.OutlierType
	StdDevThreshold float64
}

// OutlierWeather fetches /load/outliers/weather-conditions: weather on outlier days by month.
func (c *Client) OutlierWeather(ctx context.Context, r core.DateRange, wq OutlierWeatherQuery) (*core.Envelope[core.OutlierWeather], error) {
	var out core.Envelope[core.OutlierWeather]
	q := new(Query).DateRange(r).
		Set("month", wq.Months).
		Set("outlier_type", string(wq.Type))
	if wq.StdDevThreshold != 0 {
		q.Set("std_dev_threshold", formatFloat(wq.StdDevThreshold))
	}
	if err := c.get(ctx, "/load/outliers/weather-conditions", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// HealthStatus is the /health response.
type HealthStatus struct {
	Status   string `json:"status"`
	Database string `json:"database,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Healthy reports whether the upstream and its database are up.
func (h HealthStatus) Healthy() bool {
	return h.Status == "healthy"
}

// Health fetches /health.
func (c *Client) Health(ctx context.Context) (*HealthStatus, error) {
	var out HealthStatus
	if err := c.get(ctx, "/health", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
