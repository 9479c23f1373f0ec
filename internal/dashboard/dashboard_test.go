package dashboard

import (
	"context"
	"sync"
	"testing"

	"github.com/newthinker/gridlens/internal/core"
	"github.com/newthinker/gridlens/internal/fetch"
	"github.com/newthinker/gridlens/internal/filter"
	"github.com/newthinker/gridlens/internal/region"
	"github.com/newthinker/gridlens/internal/view"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	view   string
	rng    core.DateRange
	params core.Params
}

type recordingLoader struct {
	mu    sync.Mutex
	calls []call
}

func (l *recordingLoader) loader(name string) fetch.Loader {
	return fetch.LoaderFunc(func(ctx context.Context, r core.DateRange, p core.Params) (fetch.Result, error) {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.calls = append(l.calls, call{view: name, rng: r, params: p})
		return fetch.Result{Data: name, Records: 1}, nil
	})
}

func (l *recordingLoader) snapshot() []call {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]call(nil), l.calls...)
}

type countingRecorder struct {
	mu      sync.Mutex
	commits int
	fetches int
}

func (c *countingRecorder) RecordFetch(view, outcome string, duration float64, records int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fetches++
}

func (c *countingRecorder) RecordStaleResponse(view string) {}

func (c *countingRecorder) RecordCommit() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.commits++
}

func newDashboard(t *testing.T, opts ...Option) (*Dashboard, *recordingLoader) {
	t.Helper()
	store, err := filter.NewStore(filter.DefaultRange)
	require.NoError(t, err)

	l := &recordingLoader{}
	defs := []view.Definition{
		{Name: view.HourlyLoad, Title: "Hourly Load", Kind: view.KindSeries, Loader: l.loader(view.HourlyLoad)},
		{Name: view.Outliers, Title: "Load Outliers", Kind: view.KindTable, Params: []string{view.ParamLimit}, Loader: l.loader(view.Outliers)},
	}
	return New(store, defs, opts...), l
}

func TestNames_DisplayOrder(t *testing.T) {
	d, _ := newDashboard(t)
	assert.Equal(t, []string{view.HourlyLoad, view.Outliers}, d.Names())
}

func TestCommit_RefreshesEveryView(t *testing.T) {
	rec := &countingRecorder{}
	d, l := newDashboard(t, WithRecorder(rec))
	d.Start(context.Background())
	defer d.Stop()

	next := core.DateRange{Start: "2010-07-01", End: "2010-07-31"}
	require.NoError(t, d.Store().SetDraft(next))
	assert.Empty(t, l.snapshot(), "drafts alone do not fetch")

	got := d.Commit()
	d.Wait()

	assert.Equal(t, next, got)
	calls := l.snapshot()
	require.Len(t, calls, 2)
	for _, c := range calls {
		assert.Equal(t, next, c.rng)
	}
	for _, st := range d.States() {
		assert.True(t, st.Ready(), st.View)
		assert.Equal(t, next, st.Range)
	}
	assert.Equal(t, 1, rec.commits)
	assert.Equal(t, 2, rec.fetches)
}

func TestCommit_AfterStopDoesNotFetch(t *testing.T) {
	d, l := newDashboard(t)
	d.Start(context.Background())
	d.Stop()

	d.Commit()
	d.Wait()

	assert.Empty(t, l.snapshot())
}

func TestStop_ConcurrentCommits(t *testing.T) {
	d, l := newDashboard(t)
	d.Start(context.Background())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			d.Commit()
		}
	}()

	d.Stop()
	settled := len(l.snapshot())
	wg.Wait()
	d.Wait()

	assert.Len(t, l.snapshot(), settled, "no refresh may start once Stop has returned")
	assert.Zero(t, settled%2, "each accepted commit refreshes both views")
}

func TestStart_AfterStopResubscribes(t *testing.T) {
	d, l := newDashboard(t)
	d.Start(context.Background())
	d.Stop()
	d.Start(context.Background())
	defer d.Stop()

	d.Commit()
	d.Wait()

	assert.Len(t, l.snapshot(), 2)
}

func TestRefresh_PersistsParams(t *testing.T) {
	d, l := newDashboard(t)

	st, err := d.Refresh(context.Background(), view.Outliers, core.Params{view.ParamLimit: "50"})
	require.NoError(t, err)
	assert.Equal(t, "50", st.Params[view.ParamLimit])

	d.RefreshAll(context.Background())

	var outlierCalls []call
	for _, c := range l.snapshot() {
		if c.view == view.Outliers {
			outlierCalls = append(outlierCalls, c)
		}
	}
	require.Len(t, outlierCalls, 2)
	assert.Equal(t, "50", outlierCalls[1].params[view.ParamLimit])

	p, err := d.Params(view.Outliers)
	require.NoError(t, err)
	assert.Equal(t, core.Params{view.ParamLimit: "50"}, p)
}

func TestRefresh_NilParamsKeepsStored(t *testing.T) {
	d, _ := newDashboard(t)
	require.NoError(t, d.SetParams(view.HourlyLoad, core.Params{view.ParamRegion: "West"}))

	st, err := d.Refresh(context.Background(), view.HourlyLoad, nil)

	require.NoError(t, err)
	assert.Equal(t, "West", st.Params[view.ParamRegion])
}

func TestRefreshAll_UsesCommittedRange(t *testing.T) {
	d, l := newDashboard(t)
	require.NoError(t, d.Store().SetDraft(core.DateRange{Start: "2010-09-01", End: "2010-09-30"}))

	states := d.RefreshAll(context.Background())

	require.Len(t, states, 2)
	assert.Equal(t, view.HourlyLoad, states[0].View)
	for _, c := range l.snapshot() {
		assert.Equal(t, filter.DefaultRange, c.rng, "uncommitted draft must not be fetched")
	}
}

func TestUnknownView(t *testing.T) {
	d, _ := newDashboard(t)

	_, err := d.View("nope")
	assert.ErrorIs(t, err, core.ErrViewNotFound)

	_, err = d.Refresh(context.Background(), "nope", nil)
	assert.ErrorIs(t, err, core.ErrViewNotFound)

	assert.ErrorIs(t, d.SetParams("nope", nil), core.ErrViewNotFound)
}

func TestView_Info(t *testing.T) {
	d, _ := newDashboard(t)

	info, err := d.View(view.Outliers)
	require.NoError(t, err)

	assert.Equal(t, "Load Outliers", info.Title)
	assert.Equal(t, []string{view.ParamRegion, view.ParamLimit}, info.Params)
	assert.False(t, info.State.Ready(), "nothing fetched yet")
	assert.Len(t, d.Views(), 2)
}

func TestSetRegion_AppliesToEveryView(t *testing.T) {
	d, l := newDashboard(t)
	require.NoError(t, d.SetParams(view.Outliers, core.Params{view.ParamLimit: "10"}))
	assert.Equal(t, region.All, d.Region())

	d.SetRegion(region.Only(core.RegionHouston))
	d.RefreshAll(context.Background())

	assert.Equal(t, region.Only(core.RegionHouston), d.Region())
	for _, c := range l.snapshot() {
		assert.Equal(t, "Houston", c.params[view.ParamRegion], c.view)
	}
	p, err := d.Params(view.Outliers)
	require.NoError(t, err)
	assert.Equal(t, "10", p[view.ParamLimit], "other params survive")
}

func TestRegion_MixedFiltersReportAll(t *testing.T) {
	d, _ := newDashboard(t)
	require.NoError(t, d.SetParams(view.Outliers, core.Params{view.ParamRegion: "West"}))

	assert.Equal(t, region.All, d.Region())
}
