// Package chart renders view data as go-echarts HTML pages.
package chart

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/newthinker/gridlens/internal/aggregate"
	"github.com/newthinker/gridlens/internal/core"
	"github.com/newthinker/gridlens/internal/dashboard"
	"github.com/newthinker/gridlens/internal/view"
)

const (
	width  = "960px"
	height = "420px"
)

// Render writes a chart page for one view. Views without data return
// core.ErrNoData.
func Render(w io.Writer, info dashboard.Info) error {
	if !info.State.Ready() {
		return core.WrapError(core.ErrNoData, fmt.Errorf("view %s has nothing to chart", info.Name))
	}

	switch data := info.State.Data.(type) {
	case view.SummaryData:
		return SummaryBar(info.Title, data.Columns, data.Rows).Render(w)
	case view.OutlierData:
		return SummaryBar(info.Title, data.Summary.Columns, data.Summary.Rows).Render(w)
	case view.SeriesData:
		return SeriesLine(info.Title, data).Render(w)
	case view.MonthlyData:
		return GroupBar(info.Title, data).Render(w)
	}
	return fmt.Errorf("view %s: unsupported data %T", info.Name, info.State.Data)
}

func globals(title, subtitle string) []charts.GlobalOpts {
	return []charts.GlobalOpts{
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Width: width, Height: height}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "bottom"}),
	}
}

// SummaryBar plots one bar series per column, grouped by region.
func SummaryBar(title string, cols []view.Column, rows []aggregate.Row) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(globals(title, "per region")...)

	regions := make([]string, len(rows))
	for i, r := range rows {
		regions[i] = string(r.Region)
	}
	bar.SetXAxis(regions)

	for _, c := range cols {
		values := make([]opts.BarData, len(rows))
		for i, r := range rows {
			values[i] = opts.BarData{Value: r.Value(c.Key)}
		}
		bar.AddSeries(label(c), values)
	}
	return bar
}

// GroupBar plots the outlier-weather groups against each weather column.
func GroupBar(title string, data view.MonthlyData) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(globals(title, "outlier days by group")...)

	names := make([]string, len(data.Columns))
	for i, c := range data.Columns {
		names[i] = label(c)
	}
	bar.SetXAxis(names)

	for _, g := range data.Groups {
		values := make([]opts.BarData, len(data.Columns))
		for i, c := range data.Columns {
			values[i] = opts.BarData{Value: g.Values[c.Key]}
		}
		bar.AddSeries(fmt.Sprintf("%s (%d days)", g.Group, g.Days), values)
	}
	return bar
}

// SeriesLine plots every region's line on a shared time axis. Instants a
// region has no point for are left as gaps.
func SeriesLine(title string, data view.SeriesData) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(append(globals(title, data.Unit),
		charts.WithXAxisOpts(opts.XAxis{Name: "Hour ending"}),
		charts.WithYAxisOpts(opts.YAxis{Name: data.Unit}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider"}),
	)...)

	axis := timeAxis(data)
	labels := make([]string, len(axis))
	index := make(map[int64]int, len(axis))
	for i, at := range axis {
		labels[i] = at.Format(core.TimestampLayout)
		index[at.UnixNano()] = i
	}
	line.SetXAxis(labels)

	for _, s := range data.Series {
		for _, l := range s.Lines {
			values := make([]opts.LineData, len(axis))
			for _, p := range l.Points {
				values[index[p.At.UnixNano()]] = opts.LineData{Value: p.Value}
			}
			name := string(l.Region)
			if len(data.Series) > 1 {
				name = fmt.Sprintf("%s %s", l.Region, s.Label)
			}
			line.AddSeries(name, values)
		}
	}
	return line
}

func timeAxis(data view.SeriesData) []time.Time {
	seen := map[int64]time.Time{}
	for _, s := range data.Series {
		for _, l := range s.Lines {
			for _, p := range l.Points {
				seen[p.At.UnixNano()] = p.At
			}
		}
	}
	axis := make([]time.Time, 0, len(seen))
	for _, at := range seen {
		axis = append(axis, at)
	}
	sort.Slice(axis, func(i, j int) bool { return axis[i].Before(axis[j]) })
	return axis
}

func label(c view.Column) string {
	if c.Unit == "" {
		return c.Label
	}
	return c.Label + " (" + c.Unit + ")"
}
