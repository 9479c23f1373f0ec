// internal/api/handler/web/table.go
package web

import (
	"fmt"

	"github.com/newthinker/gridlens/internal/aggregate"
	"github.com/newthinker/gridlens/internal/core"
	"github.com/newthinker/gridlens/internal/dashboard"
	"github.com/newthinker/gridlens/internal/view"
)

// maxRecordRows caps the outlier record table on the view page.
const maxRecordRows = 100

// Table is a rendered grid of cells.
type Table struct {
	Caption string
	Headers []string
	Rows    [][]string
}

// Card is one view as shown on a page.
type Card struct {
	Name        string
	Title       string
	Description string
	Status      string // idle, loading, error, empty or ready
	Error       string
	Records     int
	FetchedAt   string
	Tables      []Table
}

func status(info dashboard.Info) string {
	st := info.State
	switch {
	case st.Loading:
		return "loading"
	case st.Error != "":
		return "error"
	case st.Empty:
		return "empty"
	case st.Ready():
		return "ready"
	}
	return "idle"
}

func card(info dashboard.Info, withRecords bool) Card {
	c := Card{
		Name:        info.Name,
		Title:       info.Title,
		Description: info.Description,
		Status:      status(info),
		Error:       info.State.Error,
		Records:     info.State.Records,
	}
	if !info.State.FetchedAt.IsZero() {
		c.FetchedAt = info.State.FetchedAt.Format("2006-01-02 15:04:05")
	}
	if c.Status == "ready" {
		c.Tables = tables(info.State.Data, withRecords)
	}
	return c
}

// Tables lays out a view's data as plain tables, outlier records included.
func Tables(data any) []Table {
	return tables(data, true)
}

func tables(data any, withRecords bool) []Table {
	switch d := data.(type) {
	case view.SummaryData:
		return []Table{summaryTable(d.Columns, d.Rows)}
	case view.SeriesData:
		return []Table{seriesTable(d)}
	case view.OutlierData:
		out := []Table{summaryTable(d.Summary.Columns, d.Summary.Rows)}
		if withRecords {
			out = append(out, recordTable(d.Records))
		}
		return out
	case view.MonthlyData:
		return []Table{groupTable(d)}
	}
	return nil
}

func columnHeader(c view.Column) string {
	if c.Unit == "" {
		return c.Label
	}
	return fmt.Sprintf("%s (%s)", c.Label, c.Unit)
}

func summaryTable(cols []view.Column, rows []aggregate.Row) Table {
	t := Table{Headers: []string{"Region"}}
	for _, c := range cols {
		t.Headers = append(t.Headers, columnHeader(c))
	}
	for _, r := range rows {
		cells := []string{string(r.Region)}
		for _, c := range cols {
			cells = append(cells, fmt.Sprintf("%.2f", r.Value(c.Key)))
		}
		t.Rows = append(t.Rows, cells)
	}
	return t
}

func seriesTable(d view.SeriesData) Table {
	t := Table{Headers: []string{"Series", "Region", "Points", "Peak (" + d.Unit + ")", "Peak at"}}
	for _, s := range d.Series {
		for _, line := range s.Lines {
			if len(line.Points) == 0 {
				continue
			}
			peak := line.Points[0]
			for _, p := range line.Points[1:] {
				if p.Value > peak.Value {
					peak = p
				}
			}
			t.Rows = append(t.Rows, []string{
				s.Label,
				string(line.Region),
				fmt.Sprint(len(line.Points)),
				fmt.Sprintf("%.1f", peak.Value),
				peak.At.Format(core.TimestampLayout),
			})
		}
	}
	return t
}

func recordTable(records []core.LoadOutlier) Table {
	t := Table{Headers: []string{"Hour ending", "Zone", "Load (MW)", "Mean (MW)", "Z-score", "Type"}}
	if len(records) > maxRecordRows {
		t.Caption = fmt.Sprintf("First %d of %d outlier hours", maxRecordRows, len(records))
		records = records[:maxRecordRows]
	}
	for _, r := range records {
		t.Rows = append(t.Rows, []string{
			r.HourEnd.String(),
			r.Region,
			fmt.Sprintf("%.1f", r.LoadMW),
			fmt.Sprintf("%.1f", r.Mean),
			fmt.Sprintf("%.2f", r.ZScore),
			string(r.OutlierType),
		})
	}
	return t
}

func groupTable(d view.MonthlyData) Table {
	t := Table{Headers: []string{"Group", "Days"}}
	for _, c := range d.Columns {
		t.Headers = append(t.Headers, columnHeader(c))
	}
	for _, g := range d.Groups {
		cells := []string{string(g.Group), fmt.Sprint(g.Days)}
		for _, c := range d.Columns {
			cells = append(cells, fmt.Sprintf("%.2f", g.Values[c.Key]))
		}
		t.Rows = append(t.Rows, cells)
	}
	return t
}
