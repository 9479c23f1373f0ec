package snapshot

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/newthinker/gridlens/internal/aggregate"
	"github.com/newthinker/gridlens/internal/core"
	"github.com/newthinker/gridlens/internal/dashboard"
	"github.com/newthinker/gridlens/internal/fetch"
	"github.com/newthinker/gridlens/internal/filter"
	"github.com/newthinker/gridlens/internal/storage/archive"
	"github.com/newthinker/gridlens/internal/view"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

var exportedAt = time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)

func summaryLoader(data view.SummaryData) fetch.Loader {
	return fetch.LoaderFunc(func(ctx context.Context, r core.DateRange, p core.Params) (fetch.Result, error) {
		return fetch.Result{Data: data, Records: 3}, nil
	})
}

func failingLoader() fetch.Loader {
	return fetch.LoaderFunc(func(ctx context.Context, r core.DateRange, p core.Params) (fetch.Result, error) {
		return fetch.Result{}, errors.New("connection reset")
	})
}

func newDashboard(t *testing.T) *dashboard.Dashboard {
	t.Helper()
	store, err := filter.NewStore(filter.DefaultRange)
	require.NoError(t, err)

	data := view.SummaryData{
		Columns: []view.Column{{Key: "rainy_days", Label: "Rainy days"}},
		Rows: []aggregate.Row{
			{Region: core.RegionNorth, Count: 2, Values: map[string]float64{"rainy_days": 4, "dry_days": 10}},
			{Region: core.RegionHouston, Count: 1, Values: map[string]float64{"rainy_days": 1.5, "dry_days": 3}},
		},
	}
	d := dashboard.New(store, []view.Definition{
		{Name: view.Precipitation, Title: "Precipitation", Kind: view.KindSummary, Loader: summaryLoader(data)},
		{Name: view.Heatwaves, Title: "Heatwaves", Kind: view.KindSummary, Loader: failingLoader()},
	})
	d.RefreshAll(context.Background())
	return d
}

type exportCounter struct {
	mu     sync.Mutex
	counts map[string]int
}

func (c *exportCounter) RecordExport(format, status string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.counts == nil {
		c.counts = map[string]int{}
	}
	c.counts[format+"/"+status]++
}

func newExporter(t *testing.T, rec Recorder) (*Exporter, archive.Storage) {
	t.Helper()
	storage, err := archive.NewLocalFS(t.TempDir())
	require.NoError(t, err)
	return NewExporter(storage, WithClock(clockwork.NewFakeClockAt(exportedAt)), WithRecorder(rec)), storage
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FormatJSON, "JSON": FormatJSON, " yaml ": FormatYAML, "csv": FormatCSV} {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseFormat("xml")
	assert.ErrorIs(t, err, core.ErrInvalidParam)
}

func TestCapture(t *testing.T) {
	e, _ := newExporter(t, nil)

	snap := e.Capture(newDashboard(t))

	assert.NotEmpty(t, snap.ID)
	assert.Equal(t, exportedAt, snap.CreatedAt)
	assert.Equal(t, filter.DefaultRange, snap.Range)
	require.Len(t, snap.Views, 2)
	assert.True(t, snap.Views[0].State.Ready())
	assert.NotEmpty(t, snap.Views[1].State.Error)
}

func TestKey(t *testing.T) {
	e, _ := newExporter(t, nil)
	snap := Snapshot{ID: "abc", CreatedAt: exportedAt, Range: filter.DefaultRange}

	assert.Equal(t, "snapshots/2010-06-01_2011-01-01/20240301T123000Z-abc.csv", e.Key(snap, FormatCSV))
}

func TestExport_JSONRoundTrip(t *testing.T) {
	rec := &exportCounter{}
	e, _ := newExporter(t, rec)
	ctx := context.Background()
	snap := e.Capture(newDashboard(t))

	res, err := e.Export(ctx, snap, FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, snap.ID, res.ID)
	assert.Equal(t, 2, res.Views)

	keys, err := e.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{res.Key}, keys)

	raw, err := e.Read(ctx, res.Key)
	require.NoError(t, err)
	assert.Len(t, raw, res.Bytes)

	var decoded struct {
		ID    string         `json:"id"`
		Range core.DateRange `json:"range"`
		Views []struct {
			Name string `json:"name"`
		} `json:"views"`
	}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, snap.ID, decoded.ID)
	assert.Equal(t, filter.DefaultRange, decoded.Range)
	require.Len(t, decoded.Views, 2)
	assert.Equal(t, view.Precipitation, decoded.Views[0].Name)

	assert.Equal(t, 1, rec.counts["json/success"])
}

func TestExport_YAML(t *testing.T) {
	e, _ := newExporter(t, nil)
	ctx := context.Background()

	res, err := e.Export(ctx, e.Capture(newDashboard(t)), FormatYAML)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(res.Key, ".yaml"))

	raw, err := e.Read(ctx, res.Key)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, yaml.Unmarshal(raw, &decoded))
	assert.Contains(t, decoded, "views")
	assert.Contains(t, decoded, "range")
}

func TestExport_CSV(t *testing.T) {
	e, _ := newExporter(t, nil)
	ctx := context.Background()

	res, err := e.Export(ctx, e.Capture(newDashboard(t)), FormatCSV)
	require.NoError(t, err)

	raw, err := e.Read(ctx, res.Key)
	require.NoError(t, err)
	records, err := csv.NewReader(strings.NewReader(string(raw))).ReadAll()
	require.NoError(t, err)

	assert.Equal(t, csvHeader, records[0])
	assert.Equal(t, [][]string{
		{view.Precipitation, "summary", "North", "dry_days", "", "10"},
		{view.Precipitation, "summary", "North", "rainy_days", "", "4"},
		{view.Precipitation, "summary", "Houston", "dry_days", "", "3"},
		{view.Precipitation, "summary", "Houston", "rainy_days", "", "1.5"},
		{view.Heatwaves, "status", "", "error", "", "failed to load data"},
	}, records[1:])
}

func TestRead_Missing(t *testing.T) {
	e, _ := newExporter(t, nil)

	_, err := e.Read(context.Background(), "snapshots/none.json")
	assert.ErrorIs(t, err, core.ErrNoData)
}

type failingStorage struct {
	archive.Storage
}

func (failingStorage) Write(ctx context.Context, path string, data []byte) error {
	return errors.New("disk full")
}

func TestExport_WriteFailure(t *testing.T) {
	rec := &exportCounter{}
	e := NewExporter(failingStorage{}, WithRecorder(rec))

	_, err := e.Export(context.Background(), Snapshot{ID: "x", CreatedAt: exportedAt, Range: filter.DefaultRange}, FormatJSON)

	assert.ErrorIs(t, err, core.ErrExportFailed)
	assert.Equal(t, 1, rec.counts["json/failed"])
}
