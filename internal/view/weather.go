package view

import (
	"context"
	"math"

	"github.com/newthinker/gridlens/internal/aggregate"
	"github.com/newthinker/gridlens/internal/client"
	"github.com/newthinker/gridlens/internal/core"
	"github.com/newthinker/gridlens/internal/fetch"
	"github.com/newthinker/gridlens/internal/region"
)

var precipitationColumns = []Column{
	{Key: "rainy_avg_load_mw", Label: "Rainy-day load", Unit: "MW"},
	{Key: "dry_avg_load_mw", Label: "Dry-day load", Unit: "MW"},
	{Key: "rain_effect_pct", Label: "Rain effect", Unit: "%"},
	{Key: "rainy_days", Label: "Rainy days"},
	{Key: "dry_days", Label: "Dry days"},
}

func precipitation(c *client.Client) Definition {
	return Definition{
		Name:        Precipitation,
		Title:       "Precipitation Impact",
		Description: "Average load on rainy versus dry days.",
		Kind:        KindSummary,
		Endpoint:    "/weather/precipitation",
		Params:      []string{ParamSort},
		Loader: fetch.LoaderFunc(func(ctx context.Context, r core.DateRange, p core.Params) (fetch.Result, error) {
			f, opts, err := rowOptions(p)
			if err != nil {
				return fetch.Result{}, err
			}
			rows, err := c.Precipitation(ctx, r, f.ZoneParam())
			if err != nil {
				return fetch.Result{}, err
			}
			return fetch.Result{
				Data:    PrecipitationSummary(rows, opts...),
				Records: len(rows),
			}, nil
		}),
	}
}

// PrecipitationSummary weights each zone's average load by its day count.
func PrecipitationSummary(rows []core.PrecipitationImpact, opts ...aggregate.Option) SummaryData {
	load := func(p core.PrecipitationImpact) float64 { return p.AvgLoadMW }
	days := func(p core.PrecipitationImpact) float64 { return float64(p.NumDays) }
	rainy := func(p core.PrecipitationImpact) bool { return p.RainyDay }
	dry := func(p core.PrecipitationImpact) bool { return !p.RainyDay }

	s := aggregate.NewSummary(func(p core.PrecipitationImpact) string { return p.Zone },
		aggregate.Metric[core.PrecipitationImpact]{Name: "rainy_avg_load_mw", Value: load, Weight: days, Strategy: aggregate.WeightedMean, Include: rainy},
		aggregate.Metric[core.PrecipitationImpact]{Name: "dry_avg_load_mw", Value: load, Weight: days, Strategy: aggregate.WeightedMean, Include: dry},
		aggregate.Metric[core.PrecipitationImpact]{Name: "rainy_days", Value: days, Strategy: aggregate.Sum, Include: rainy},
		aggregate.Metric[core.PrecipitationImpact]{Name: "dry_days", Value: days, Strategy: aggregate.Sum, Include: dry},
	)
	s.Add(rows...)

	out := s.Rows(opts...)
	for _, row := range out {
		row.Values["rain_effect_pct"] = percentChange(row.Values["dry_avg_load_mw"], row.Values["rainy_avg_load_mw"])
	}
	return SummaryData{Columns: precipitationColumns, Rows: out, Skipped: s.Skipped()}
}

// percentChange is the change from base to v, 0 when base is 0.
func percentChange(base, v float64) float64 {
	if base == 0 || v == 0 {
		return 0
	}
	return (v - base) / base * 100
}

var heatwaveColumns = []Column{
	{Key: "streaks", Label: "Heatwaves"},
	{Key: "total_days", Label: "Heatwave days"},
	{Key: "avg_streak_days", Label: "Avg length", Unit: "days"},
	{Key: "max_streak_days", Label: "Longest", Unit: "days"},
	{Key: "avg_peak_load_mw", Label: "Avg peak load", Unit: "MW"},
}

func heatwaves(c *client.Client, d Defaults) Definition {
	return Definition{
		Name:        Heatwaves,
		Title:       "Heatwaves",
		Description: "Streaks of consecutive days above a temperature threshold.",
		Kind:        KindSummary,
		Endpoint:    "/weather/heatwaves",
		Params:      []string{ParamMinTempF, ParamMinDays, ParamSort},
		Loader: fetch.LoaderFunc(func(ctx context.Context, r core.DateRange, p core.Params) (fetch.Result, error) {
			f, opts, err := rowOptions(p)
			if err != nil {
				return fetch.Result{}, err
			}
			minTemp, err := floatParam(p, ParamMinTempF, d.MinTempF, -100, 200)
			if err != nil {
				return fetch.Result{}, err
			}
			minDays, err := intParam(p, ParamMinDays, d.MinDays, 1, 366)
			if err != nil {
				return fetch.Result{}, err
			}
			rows, err := c.Heatwaves(ctx, r, client.HeatwaveQuery{
				Zones:    f.ZoneParam(),
				MinTempF: minTemp,
				MinDays:  minDays,
			})
			if err != nil {
				return fetch.Result{}, err
			}
			return fetch.Result{
				Data:    HeatwaveSummary(rows, opts...),
				Records: len(rows),
			}, nil
		}),
	}
}

// HeatwaveSummary counts streaks per region. Streaks with no recorded peak
// load do not contribute to the peak load average.
func HeatwaveSummary(rows []core.HeatwaveStreak, opts ...aggregate.Option) SummaryData {
	length := func(h core.HeatwaveStreak) float64 { return float64(h.StreakDays) }
	s := aggregate.NewSummary(func(h core.HeatwaveStreak) string { return h.Zone },
		aggregate.Metric[core.HeatwaveStreak]{Name: "streaks", Value: length, Strategy: aggregate.Count},
		aggregate.Metric[core.HeatwaveStreak]{Name: "total_days", Value: length, Strategy: aggregate.Sum},
		aggregate.Metric[core.HeatwaveStreak]{Name: "avg_streak_days", Value: length, Strategy: aggregate.Mean},
		aggregate.Metric[core.HeatwaveStreak]{
			Name:     "avg_peak_load_mw",
			Value:    func(h core.HeatwaveStreak) float64 { return *h.AvgPeakLoadMW },
			Strategy: aggregate.Mean,
			Include:  func(h core.HeatwaveStreak) bool { return h.AvgPeakLoadMW != nil },
		},
	)
	s.Add(rows...)

	out := s.Rows(opts...)
	longest := make(map[core.Region]float64)
	for _, h := range rows {
		if r, ok := region.Map(h.Zone); ok {
			longest[r] = math.Max(longest[r], float64(h.StreakDays))
		}
	}
	for _, row := range out {
		row.Values["max_streak_days"] = longest[row.Region]
	}
	return SummaryData{Columns: heatwaveColumns, Rows: out, Skipped: s.Skipped()}
}

var extremeHeatColumns = []Column{
	{Key: "median_peak_load_mw", Label: "Median peak load", Unit: "MW"},
	{Key: "extreme_heat_days", Label: "Extreme heat days"},
	{Key: "threshold_temp_f", Label: "Threshold", Unit: "°F"},
}

func extremeHeat(c *client.Client, d Defaults) Definition {
	return Definition{
		Name:        ExtremeHeat,
		Title:       "Peak Load in Extreme Heat",
		Description: "Median daily peak load on days above a temperature percentile.",
		Kind:        KindSummary,
		Endpoint:    "/load/peak-load-extreme-heat",
		Params:      []string{ParamThreshold, ParamSort},
		Loader: fetch.LoaderFunc(func(ctx context.Context, r core.DateRange, p core.Params) (fetch.Result, error) {
			f, opts, err := rowOptions(p)
			if err != nil {
				return fetch.Result{}, err
			}
			threshold, err := floatParam(p, ParamThreshold, d.HeatPercentile, 0, 100)
			if err != nil {
				return fetch.Result{}, err
			}
			rows, err := c.ExtremeHeat(ctx, r, client.ExtremeHeatQuery{
				Zones:     f.ZoneParam(),
				Threshold: threshold,
			})
			if err != nil {
				return fetch.Result{}, err
			}
			return fetch.Result{
				Data:    ExtremeHeatSummary(rows, opts...),
				Records: len(rows),
			}, nil
		}),
	}
}

// ExtremeHeatSummary weights each zone's median peak by its day count.
func ExtremeHeatSummary(rows []core.ExtremeHeatLoad, opts ...aggregate.Option) SummaryData {
	days := func(e core.ExtremeHeatLoad) float64 { return float64(e.NumExtremeHeatDays) }
	s := aggregate.NewSummary(func(e core.ExtremeHeatLoad) string { return e.Zone },
		aggregate.Metric[core.ExtremeHeatLoad]{Name: "median_peak_load_mw", Value: func(e core.ExtremeHeatLoad) float64 { return e.MedianPeakLoadMW }, Weight: days, Strategy: aggregate.WeightedMean},
		aggregate.Metric[core.ExtremeHeatLoad]{Name: "extreme_heat_days", Value: days, Strategy: aggregate.Sum},
		aggregate.Metric[core.ExtremeHeatLoad]{Name: "threshold_temp_f", Value: func(e core.ExtremeHeatLoad) float64 { return e.ThresholdTempF }, Strategy: aggregate.Mean},
	)
	s.Add(rows...)
	return SummaryData{Columns: extremeHeatColumns, Rows: s.Rows(opts...), Skipped: s.Skipped()}
}
