package view

import (
	"context"
	"time"

	"github.com/newthinker/gridlens/internal/aggregate"
	"github.com/newthinker/gridlens/internal/client"
	"github.com/newthinker/gridlens/internal/core"
	"github.com/newthinker/gridlens/internal/fetch"
)

func hourlyLoad(c *client.Client) Definition {
	return Definition{
		Name:        HourlyLoad,
		Title:       "Hourly Load",
		Description: "Hourly electricity demand summed per region.",
		Kind:        KindSeries,
		Endpoint:    "/load/hourly",
		Params:      []string{ParamSort},
		Loader: fetch.LoaderFunc(func(ctx context.Context, r core.DateRange, p core.Params) (fetch.Result, error) {
			_, opts, err := rowOptions(p)
			if err != nil {
				return fetch.Result{}, err
			}
			rows, err := c.HourlyLoad(ctx, r)
			if err != nil {
				return fetch.Result{}, err
			}
			return fetch.Result{
				Data:    HourlyLoadSeries(rows, opts...),
				Records: len(rows),
			}, nil
		}),
	}
}

// HourlyLoadSeries sums zone demand into one line per observed region.
func HourlyLoadSeries(rows []core.HourlyLoad, opts ...aggregate.Option) SeriesData {
	s := aggregate.NewSeries(
		func(z core.ZoneReading) string { return z.Zone },
		func(z core.ZoneReading) time.Time { return z.At },
		func(z core.ZoneReading) (float64, bool) { return z.Value, true },
		aggregate.Sum,
	)
	s.Add(aggregate.Flatten(rows, core.HourlyLoad.Readings)...)

	return SeriesData{
		Unit: "MW",
		Series: []NamedSeries{
			{Name: "load_mw", Label: "Load", Lines: s.Lines(opts...)},
		},
	}
}

func comparison(c *client.Client, d Defaults) Definition {
	return Definition{
		Name:        Comparison,
		Title:       "Actual vs Forecast Load",
		Description: "Historical load compared with the selected model's expected load.",
		Kind:        KindSeries,
		Endpoint:    "/load/comparison",
		Params:      []string{ParamModel, ParamSort},
		Loader: fetch.LoaderFunc(func(ctx context.Context, r core.DateRange, p core.Params) (fetch.Result, error) {
			f, opts, err := rowOptions(p)
			if err != nil {
				return fetch.Result{}, err
			}
			model, err := modelParam(p, d.Model)
			if err != nil {
				return fetch.Result{}, err
			}
			rows, err := c.LoadComparison(ctx, r, client.ComparisonQuery{
				Regions: f.ZoneParam(),
				Model:   model,
			})
			if err != nil {
				return fetch.Result{}, err
			}
			return fetch.Result{
				Data:    ComparisonSeries(rows, opts...),
				Records: len(rows),
			}, nil
		}),
	}
}

// ComparisonSeries builds actual and expected lines per region. Null values
// are skipped, so a region with no forecast has no expected line.
func ComparisonSeries(rows []core.LoadComparison, opts ...aggregate.Option) SeriesData {
	zone := func(c core.ComparisonReading) string { return c.Zone }
	at := func(c core.ComparisonReading) time.Time { return c.At }
	deref := func(v *float64) (float64, bool) {
		if v == nil {
			return 0, false
		}
		return *v, true
	}

	actual := aggregate.NewSeries(zone, at,
		func(c core.ComparisonReading) (float64, bool) { return deref(c.Actual) },
		aggregate.Sum)
	expected := aggregate.NewSeries(zone, at,
		func(c core.ComparisonReading) (float64, bool) { return deref(c.Expected) },
		aggregate.Sum)

	readings := aggregate.Flatten(rows, core.LoadComparison.Readings)
	actual.Add(readings...)
	expected.Add(readings...)

	return SeriesData{
		Unit: "MW",
		Series: []NamedSeries{
			{Name: "actual", Label: "Actual", Lines: actual.Lines(opts...)},
			{Name: "expected", Label: "Expected", Lines: expected.Lines(opts...)},
		},
	}
}
