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

var outlierColumns = []Column{
	{Key: "high", Label: "High outliers"},
	{Key: "low", Label: "Low outliers"},
	{Key: "mean_abs_z", Label: "Mean |z|"},
	{Key: "max_abs_z", Label: "Max |z|"},
	{Key: "mean_load_mw", Label: "Mean outlier load", Unit: "MW"},
}

func outliers(c *client.Client, d Defaults) Definition {
	return Definition{
		Name:        Outliers,
		Title:       "Load Outliers",
		Description: "Hours whose load deviates from the zone mean by more than N standard deviations.",
		Kind:        KindTable,
		Endpoint:    "/load/outliers",
		Params:      []string{ParamStdDevThreshold, ParamOutlierType, ParamLimit, ParamSort},
		Loader: fetch.LoaderFunc(func(ctx context.Context, r core.DateRange, p core.Params) (fetch.Result, error) {
			f, opts, err := rowOptions(p)
			if err != nil {
				return fetch.Result{}, err
			}
			std, err := floatParam(p, ParamStdDevThreshold, d.StdDevThreshold, 1, 5)
			if err != nil {
				return fetch.Result{}, err
			}
			limit, err := intParam(p, ParamLimit, d.OutlierLimit, 1, 10000)
			if err != nil {
				return fetch.Result{}, err
			}
			typ, err := core.ParseOutlierType(p.Get(ParamOutlierType, ""))
			if err != nil {
				return fetch.Result{}, err
			}
			env, err := c.Outliers(ctx, r, client.OutlierQuery{
				Regions:         f.ZoneParam(),
				Type:            typ,
				StdDevThreshold: std,
				Limit:           limit,
			})
			if err != nil {
				return fetch.Result{}, err
			}
			return fetch.Result{
				Data:    OutlierSummary(env, f, opts...),
				Records: len(env.Data),
			}, nil
		}),
	}
}

// OutlierSummary counts outliers per region and keeps the records that
// fall inside f, in upstream order. opts order the summary rows.
func OutlierSummary(env *core.Envelope[core.LoadOutlier], f region.Filter, opts ...aggregate.Option) OutlierData {
	absZ := func(o core.LoadOutlier) float64 { return math.Abs(o.ZScore) }
	s := aggregate.NewSummary(func(o core.LoadOutlier) string { return o.Region },
		aggregate.Metric[core.LoadOutlier]{Name: "high", Value: absZ, Strategy: aggregate.Count,
			Include: func(o core.LoadOutlier) bool { return o.OutlierType == core.OutlierHigh }},
		aggregate.Metric[core.LoadOutlier]{Name: "low", Value: absZ, Strategy: aggregate.Count,
			Include: func(o core.LoadOutlier) bool { return o.OutlierType == core.OutlierLow }},
		aggregate.Metric[core.LoadOutlier]{Name: "mean_abs_z", Value: absZ, Strategy: aggregate.Mean},
		aggregate.Metric[core.LoadOutlier]{Name: "mean_load_mw", Value: func(o core.LoadOutlier) float64 { return o.LoadMW }, Strategy: aggregate.Mean},
	)

	records := make([]core.LoadOutlier, 0, len(env.Data))
	maxZ := make(map[core.Region]float64)
	for _, o := range env.Data {
		r, ok := region.Map(o.Region)
		if !ok || !f.Match(r) {
			continue
		}
		records = append(records, o)
		maxZ[r] = math.Max(maxZ[r], absZ(o))
	}
	s.Add(env.Data...)

	rows := s.Rows(append([]aggregate.Option{aggregate.WithFilter(f)}, opts...)...)
	for _, row := range rows {
		row.Values["max_abs_z"] = maxZ[row.Region]
	}
	return OutlierData{
		Summary:  SummaryData{Columns: outlierColumns, Rows: rows, Skipped: s.Skipped()},
		Records:  records,
		Metadata: env.Metadata,
	}
}

var outlierWeatherColumns = []Column{
	{Key: "avg_temp_c", Label: "Temperature", Unit: "°C"},
	{Key: "avg_rh_pct", Label: "Humidity", Unit: "%"},
	{Key: "avg_precip_mm", Label: "Precipitation", Unit: "mm"},
	{Key: "avg_wind_kmh", Label: "Wind", Unit: "km/h"},
	{Key: "avg_pressure_hpa", Label: "Pressure", Unit: "hPa"},
	{Key: "avg_cloud_cover_pct", Label: "Cloud cover", Unit: "%"},
}

func outlierWeather(c *client.Client, d Defaults) Definition {
	return Definition{
		Name:        OutlierWeather,
		Title:       "Weather on Outlier Days",
		Description: "Monthly weather conditions on days with high or low load outliers.",
		Kind:        KindTable,
		Endpoint:    "/load/outliers/weather-conditions",
		Params:      []string{ParamMonth, ParamOutlierType, ParamStdDevThreshold},
		Loader: fetch.LoaderFunc(func(ctx context.Context, r core.DateRange, p core.Params) (fetch.Result, error) {
			months, err := monthsParam(p)
			if err != nil {
				return fetch.Result{}, err
			}
			std, err := floatParam(p, ParamStdDevThreshold, d.StdDevThreshold, 1, 5)
			if err != nil {
				return fetch.Result{}, err
			}
			typ, err := core.ParseOutlierType(p.Get(ParamOutlierType, ""))
			if err != nil {
				return fetch.Result{}, err
			}
			env, err := c.OutlierWeather(ctx, r, client.OutlierWeatherQuery{
				Months:          months,
				Type:            typ,
				StdDevThreshold: std,
			})
			if err != nil {
				return fetch.Result{}, err
			}
			return fetch.Result{
				Data:    OutlierWeatherSummary(env),
				Records: len(env.Data),
			}, nil
		}),
	}
}

// OutlierWeatherSummary keeps the monthly rows and adds one day-weighted
// average per outlier group. The rows are grid-wide, so no region filter
// applies.
func OutlierWeatherSummary(env *core.Envelope[core.OutlierWeather]) MonthlyData {
	fields := []func(core.OutlierWeather) float64{
		func(w core.OutlierWeather) float64 { return w.AvgTempC },
		func(w core.OutlierWeather) float64 { return w.AvgRHPct },
		func(w core.OutlierWeather) float64 { return w.AvgPrecipMM },
		func(w core.OutlierWeather) float64 { return w.AvgWindKMH },
		func(w core.OutlierWeather) float64 { return w.AvgPressureHPA },
		func(w core.OutlierWeather) float64 { return w.AvgCloudCoverPct },
	}

	type groupAcc struct {
		days int
		accs []aggregate.Accumulator
	}
	groups := make(map[core.OutlierType]*groupAcc)
	for _, w := range env.Data {
		g, ok := groups[w.OutlierGroup]
		if !ok {
			g = &groupAcc{accs: make([]aggregate.Accumulator, len(fields))}
			groups[w.OutlierGroup] = g
		}
		g.days += w.NumDays
		for i, field := range fields {
			g.accs[i].Add(field(w), float64(w.NumDays))
		}
	}

	var rows []GroupRow
	for _, t := range []core.OutlierType{core.OutlierHigh, core.OutlierLow} {
		g, ok := groups[t]
		if !ok {
			continue
		}
		row := GroupRow{Group: t, Days: g.days, Values: make(map[string]float64, len(fields))}
		for i, col := range outlierWeatherColumns {
			row.Values[col.Key] = g.accs[i].Result(aggregate.WeightedMean)
		}
		rows = append(rows, row)
	}

	return MonthlyData{
		Columns:  outlierWeatherColumns,
		Months:   env.Data,
		Groups:   rows,
		Metadata: env.Metadata,
	}
}
