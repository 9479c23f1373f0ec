package view

import (
	"context"
	"math"

	"github.com/newthinker/gridlens/internal/aggregate"
	"github.com/newthinker/gridlens/internal/client"
	"github.com/newthinker/gridlens/internal/core"
	"github.com/newthinker/gridlens/internal/fetch"
)

var forecastColumns = []Column{
	{Key: "n", Label: "Samples"},
	{Key: "mae", Label: "MAE", Unit: "MW"},
	{Key: "rmse", Label: "RMSE", Unit: "MW"},
	{Key: "mape_pct", Label: "MAPE", Unit: "%"},
	{Key: "r2", Label: "R²"},
}

func forecastMetrics(c *client.Client, d Defaults) Definition {
	return Definition{
		Name:        ForecastMetrics,
		Title:       "Forecast Accuracy",
		Description: "Forecast error per region, weighted by sample count.",
		Kind:        KindSummary,
		Endpoint:    "/forecast/metrics",
		Params:      []string{ParamModel},
		Loader: fetch.LoaderFunc(func(ctx context.Context, r core.DateRange, p core.Params) (fetch.Result, error) {
			f, opts, err := rowOptions(p)
			if err != nil {
				return fetch.Result{}, err
			}
			model, err := modelParam(p, d.Model)
			if err != nil {
				return fetch.Result{}, err
			}
			rows, err := c.ForecastMetrics(ctx, r, client.MetricsQuery{
				Regions: f.ZoneParam(),
				Model:   model,
			})
			if err != nil {
				return fetch.Result{}, err
			}
			return fetch.Result{
				Data:    ForecastSummary(rows, opts...),
				Records: len(rows),
			}, nil
		}),
	}
}

// ForecastSummary weights each zone's error metrics by its sample count.
// Rows are sorted by region name.
func ForecastSummary(rows []core.ForecastMetric, opts ...aggregate.Option) SummaryData {
	n := func(m core.ForecastMetric) float64 { return float64(m.N) }
	s := aggregate.NewSummary(func(m core.ForecastMetric) string { return m.Region },
		aggregate.Metric[core.ForecastMetric]{Name: "n", Value: n, Strategy: aggregate.Sum},
		aggregate.Metric[core.ForecastMetric]{Name: "mae", Value: func(m core.ForecastMetric) float64 { return m.MAE }, Weight: n, Strategy: aggregate.WeightedMean},
		aggregate.Metric[core.ForecastMetric]{Name: "mse", Value: func(m core.ForecastMetric) float64 { return m.MSE }, Weight: n, Strategy: aggregate.WeightedMean},
		aggregate.Metric[core.ForecastMetric]{Name: "mape_pct", Value: func(m core.ForecastMetric) float64 { return m.MAPEPct }, Weight: n, Strategy: aggregate.WeightedMean},
		aggregate.Metric[core.ForecastMetric]{Name: "r2", Value: func(m core.ForecastMetric) float64 { return m.R2 }, Weight: n, Strategy: aggregate.WeightedMean},
	)
	s.Add(rows...)

	out := s.Rows(append(opts, aggregate.SortByName())...)
	for _, row := range out {
		row.Values["rmse"] = math.Sqrt(row.Values["mse"])
	}
	return SummaryData{Columns: forecastColumns, Rows: out, Skipped: s.Skipped()}
}
