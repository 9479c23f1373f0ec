// Package dashboard ties the shared date-range filter to every view. A
// commit on the filter store refreshes all views against the new range.
package dashboard

import (
	"context"
	"fmt"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/newthinker/gridlens/internal/core"
	"github.com/newthinker/gridlens/internal/fetch"
	"github.com/newthinker/gridlens/internal/filter"
	"github.com/newthinker/gridlens/internal/region"
	"github.com/newthinker/gridlens/internal/view"
	"go.uber.org/zap"
)

// Recorder receives dashboard metrics.
type Recorder interface {
	fetch.Recorder
	RecordCommit()
}

// Info describes one view and its current state.
type Info struct {
	Name        string      `json:"name" yaml:"name"`
	Title       string      `json:"title" yaml:"title"`
	Description string      `json:"description" yaml:"description"`
	Kind        view.Kind   `json:"kind" yaml:"kind"`
	Endpoint    string      `json:"endpoint" yaml:"endpoint"`
	Params      []string    `json:"params" yaml:"params"`
	State       fetch.State `json:"state" yaml:"state"`
}

type entry struct {
	def  view.Definition
	orch *fetch.Orchestrator

	mu     sync.Mutex
	params core.Params
}

func (e *entry) currentParams() core.Params {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.params.Clone()
}

func (e *entry) setParams(p core.Params) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.params = p.Clone()
}

// Dashboard owns the filter store and one orchestrator per view.
type Dashboard struct {
	store    *filter.Store
	entries  []*entry
	byName   map[string]*entry
	logger   *zap.Logger
	recorder Recorder
	policy   fetch.RacePolicy
	clock    clockwork.Clock

	mu      sync.Mutex
	ctx     context.Context
	stop    func()
	stopped bool // guards pending.Add against a concurrent Stop
	pending sync.WaitGroup
}

// Option configures a Dashboard.
type Option func(*Dashboard)

// WithPolicy sets the race policy for every view.
func WithPolicy(p fetch.RacePolicy) Option {
	return func(d *Dashboard) {
		d.policy = p
	}
}

// WithClock sets the clock passed to every orchestrator.
func WithClock(c clockwork.Clock) Option {
	return func(d *Dashboard) {
		d.clock = c
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(d *Dashboard) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(d *Dashboard) {
		d.recorder = r
	}
}

// New creates a dashboard over store with the given views, in display order.
func New(store *filter.Store, defs []view.Definition, opts ...Option) *Dashboard {
	d := &Dashboard{
		store:  store,
		byName: make(map[string]*entry, len(defs)),
		logger: zap.NewNop(),
		policy: fetch.LastResolved,
		clock:  clockwork.NewRealClock(),
		ctx:    context.Background(),
	}
	for _, opt := range opts {
		opt(d)
	}

	fetchOpts := []fetch.Option{
		fetch.WithPolicy(d.policy),
		fetch.WithClock(d.clock),
		fetch.WithLogger(d.logger),
	}
	if d.recorder != nil {
		fetchOpts = append(fetchOpts, fetch.WithRecorder(d.recorder))
	}

	for _, def := range defs {
		e := &entry{
			def:    def,
			orch:   fetch.New(def.Name, def.Loader, fetchOpts...),
			params: core.Params{},
		}
		d.entries = append(d.entries, e)
		d.byName[def.Name] = e
	}
	return d
}

// Store returns the shared filter store.
func (d *Dashboard) Store() *filter.Store {
	return d.store
}

// Names returns the view names in display order.
func (d *Dashboard) Names() []string {
	names := make([]string, len(d.entries))
	for i, e := range d.entries {
		names[i] = e.def.Name
	}
	return names
}

// Start subscribes to range commits. Each commit refreshes every view in
// the background under ctx. Call the returned function to unsubscribe.
func (d *Dashboard) Start(ctx context.Context) func() {
	d.mu.Lock()
	d.ctx = ctx
	d.stopped = false
	d.mu.Unlock()

	cancel := d.store.Subscribe(func(r core.DateRange) {
		d.refreshAsync(r)
	})

	d.mu.Lock()
	d.stop = cancel
	d.mu.Unlock()
	return cancel
}

// Stop unsubscribes from commits and waits for background refreshes.
// Commits delivered after Stop begins are ignored.
func (d *Dashboard) Stop() {
	d.mu.Lock()
	stop := d.stop
	d.stop = nil
	d.stopped = true
	d.mu.Unlock()

	if stop != nil {
		stop()
	}
	d.pending.Wait()
}

// Wait blocks until all background refreshes issued so far have resolved.
func (d *Dashboard) Wait() {
	d.pending.Wait()
}

func (d *Dashboard) refreshAsync(r core.DateRange) {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	ctx := d.ctx
	d.pending.Add(len(d.entries))
	d.mu.Unlock()

	d.logger.Info("range committed, refreshing views",
		zap.String("range", r.String()),
		zap.Int("views", len(d.entries)))

	for _, e := range d.entries {
		go func(e *entry) {
			defer d.pending.Done()
			e.orch.Refresh(ctx, r, e.currentParams())
		}(e)
	}
}

// Commit promotes the draft range and returns the committed range. Views
// refresh in the background when the dashboard has been started.
func (d *Dashboard) Commit() core.DateRange {
	r := d.store.Commit()
	if d.recorder != nil {
		d.recorder.RecordCommit()
	}
	return r
}

// RefreshAll refreshes every view against the committed range and waits
// for all of them to resolve.
func (d *Dashboard) RefreshAll(ctx context.Context) []fetch.State {
	r := d.store.Committed()
	states := make([]fetch.State, len(d.entries))

	var wg sync.WaitGroup
	for i, e := range d.entries {
		wg.Add(1)
		go func(i int, e *entry) {
			defer wg.Done()
			states[i] = e.orch.Refresh(ctx, r, e.currentParams())
		}(i, e)
	}
	wg.Wait()
	return states
}

// Refresh refreshes one view against the committed range. Non-nil params
// replace the view's stored parameters first.
func (d *Dashboard) Refresh(ctx context.Context, name string, params core.Params) (fetch.State, error) {
	e, err := d.lookup(name)
	if err != nil {
		return fetch.State{}, err
	}
	if params != nil {
		e.setParams(params)
	}
	return e.orch.Refresh(ctx, d.store.Committed(), e.currentParams()), nil
}

// SetParams replaces a view's parameters without refreshing it.
func (d *Dashboard) SetParams(name string, params core.Params) error {
	e, err := d.lookup(name)
	if err != nil {
		return err
	}
	e.setParams(params)
	return nil
}

// SetRegion applies one region filter to every view without refreshing.
func (d *Dashboard) SetRegion(f region.Filter) {
	for _, e := range d.entries {
		e.mu.Lock()
		if e.params == nil {
			e.params = core.Params{}
		}
		e.params[view.ParamRegion] = f.String()
		e.mu.Unlock()
	}
}

// Region returns the filter shared by every view, or All when views differ.
func (d *Dashboard) Region() region.Filter {
	var shared string
	for i, e := range d.entries {
		r := e.currentParams().Get(view.ParamRegion, string(core.RegionAll))
		if i > 0 && r != shared {
			return region.All
		}
		shared = r
	}
	f, err := region.ParseFilter(shared)
	if err != nil {
		return region.All
	}
	return f
}

// Params returns a copy of a view's parameters.
func (d *Dashboard) Params(name string) (core.Params, error) {
	e, err := d.lookup(name)
	if err != nil {
		return nil, err
	}
	return e.currentParams(), nil
}

// View returns one view's description and current state.
func (d *Dashboard) View(name string) (Info, error) {
	e, err := d.lookup(name)
	if err != nil {
		return Info{}, err
	}
	return info(e), nil
}

// Views returns every view's description and current state, in display order.
func (d *Dashboard) Views() []Info {
	out := make([]Info, len(d.entries))
	for i, e := range d.entries {
		out[i] = info(e)
	}
	return out
}

// States returns every view's current state, in display order.
func (d *Dashboard) States() []fetch.State {
	out := make([]fetch.State, len(d.entries))
	for i, e := range d.entries {
		out[i] = e.orch.State()
	}
	return out
}

func (d *Dashboard) lookup(name string) (*entry, error) {
	e, ok := d.byName[name]
	if !ok {
		return nil, core.WrapError(core.ErrViewNotFound, fmt.Errorf("unknown view %q", name))
	}
	return e, nil
}

func info(e *entry) Info {
	return Info{
		Name:        e.def.Name,
		Title:       e.def.Title,
		Description: e.def.Description,
		Kind:        e.def.Kind,
		Endpoint:    e.def.Endpoint,
		Params:      append([]string{view.ParamRegion}, e.def.Params...),
		State:       e.orch.State(),
	}
}
