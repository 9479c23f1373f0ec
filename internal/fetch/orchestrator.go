// Package fetch runs one view's fetch-and-aggregate cycle and tracks its
// loading, error and empty state.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/newthinker/gridlens/internal/client"
	"github.com/newthinker/gridlens/internal/core"
	"go.uber.org/zap"
)

// RacePolicy decides which of several overlapping responses is displayed.
type RacePolicy string

const (
	// LastResolved commits every response as it arrives, so the response
	// that resolves last wins regardless of issue order.
	LastResolved RacePolicy = "last-resolved"
	// LatestIssued stamps each request with a generation and discards
	// responses from superseded generations.
	LatestIssued RacePolicy = "latest-issued"
)

// ParseRacePolicy validates a race policy name. Empty means LastResolved.
func ParseRacePolicy(s string) (RacePolicy, error) {
	switch RacePolicy(strings.TrimSpace(s)) {
	case "", LastResolved:
		return LastResolved, nil
	case LatestIssued:
		return LatestIssued, nil
	}
	return "", fmt.Errorf("race policy must be %s or %s, got %q", LastResolved, LatestIssued, s)
}

// Result is a loader's aggregated output.
type Result struct {
	Data    any
	Records int // raw records folded; zero means the empty state
}

// Loader fetches raw records for a range and aggregates them.
type Loader interface {
	Load(ctx context.Context, r core.DateRange, p core.Params) (Result, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context, r core.DateRange, p core.Params) (Result, error)

// Load calls f.
func (f LoaderFunc) Load(ctx context.Context, r core.DateRange, p core.Params) (Result, error) {
	return f(ctx, r, p)
}

// Recorder receives fetch metrics.
type Recorder interface {
	RecordFetch(view, outcome string, duration float64, records int)
	RecordStaleResponse(view string)
}

// State is the displayable state of one view.
type State struct {
	View       string         `json:"view" yaml:"view"`
	Loading    bool           `json:"loading" yaml:"loading"`
	Error      string         `json:"error,omitempty" yaml:"error,omitempty"`
	Empty      bool           `json:"empty" yaml:"empty"`
	Data       any            `json:"data,omitempty" yaml:"data,omitempty"`
	Records    int            `json:"records" yaml:"records"`
	Range      core.DateRange `json:"range" yaml:"range"`
	Params     core.Params    `json:"params,omitempty" yaml:"params,omitempty"`
	Generation uint64         `json:"generation" yaml:"generation"`
	FetchedAt  time.Time      `json:"fetched_at,omitempty" yaml:"fetched_at,omitempty"`
	DurationMS float64        `json:"duration_ms" yaml:"duration_ms"`
}

// Ready reports whether the state holds displayable data.
func (s State) Ready() bool {
	return !s.Loading && s.Error == "" && !s.Empty && s.Data != nil
}

// Orchestrator owns one view's state. Refresh may be called concurrently;
// overlapping requests are neither cancelled nor de-duplicated.
type Orchestrator struct {
	name     string
	loader   Loader
	policy   RacePolicy
	clock    clockwork.Clock
	logger   *zap.Logger
	recorder Recorder

	mu     sync.Mutex
	state  State
	issued uint64
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithPolicy sets the race policy.
func WithPolicy(p RacePolicy) Option {
	return func(o *Orchestrator) {
		o.policy = p
	}
}

// WithClock sets the clock used for fetch timestamps.
func WithClock(c clockwork.Clock) Option {
	return func(o *Orchestrator) {
		o.clock = c
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(o *Orchestrator) {
		o.recorder = r
	}
}

// New creates an orchestrator for the named view.
func New(name string, loader Loader, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		name:   name,
		loader: loader,
		policy: LastResolved,
		clock:  clockwork.NewRealClock(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.logger = o.logger.With(zap.String("view", name))
	o.state = State{View: name}
	return o
}

// Name returns the view name.
func (o *Orchestrator) Name() string {
	return o.name
}

// Policy returns the race policy in effect.
func (o *Orchestrator) Policy() RacePolicy {
	return o.policy
}

// State returns a copy of the current state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Refresh fetches and aggregates for r and p, then commits the outcome to
// the view state according to the race policy. It blocks until the
// request resolves and returns the state as it stands afterwards.
func (o *Orchestrator) Refresh(ctx context.Context, r core.DateRange, p core.Params) State {
	o.mu.Lock()
	o.issued++
	gen := o.issued
	o.state.Loading = true
	o.mu.Unlock()

	start := o.clock.Now()
	res, err := o.loader.Load(ctx, r, p)
	elapsed := o.clock.Since(start)

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.policy == LatestIssued && gen != o.issued {
		o.logger.Debug("discarding superseded response",
			zap.Uint64("generation", gen),
			zap.Uint64("latest", o.issued))
		if o.recorder != nil {
			o.recorder.RecordStaleResponse(o.name)
		}
		return o.state
	}

	next := State{
		View:       o.name,
		Range:      r,
		Params:     p.Clone(),
		Generation: gen,
		FetchedAt:  o.clock.Now(),
		DurationMS: float64(elapsed.Microseconds()) / 1000,
	}

	outcome := "ok"
	switch {
	case err != nil:
		outcome = "error"
		next.Error = Message(err)
		o.logger.Warn("view fetch failed",
			zap.String("range", r.String()),
			zap.Uint64("generation", gen),
			zap.Error(err))
	case res.Records == 0:
		outcome = "empty"
		next.Empty = true
		next.Data = res.Data
	default:
		next.Data = res.Data
		next.Records = res.Records
	}

	o.state = next
	if o.recorder != nil {
		o.recorder.RecordFetch(o.name, outcome, elapsed.Seconds(), res.Records)
	}
	o.logger.Debug("view fetch complete",
		zap.String("outcome", outcome),
		zap.String("range", r.String()),
		zap.Int("records", res.Records),
		zap.Duration("elapsed", elapsed))

	return o.state
}

// Message converts a fetch error into the text shown in place of a view.
func Message(err error) string {
	if code, ok := client.StatusCode(err); ok {
		return fmt.Sprintf("request failed with status %d", code)
	}
	var ce *core.Error
	switch {
	case errors.Is(err, core.ErrUpstreamUnreachable):
		return "unable to reach analytics API"
	case errors.Is(err, core.ErrDecode):
		return "unexpected response from analytics API"
	case errors.As(err, &ce) && ce.Code == core.ErrInvalidParam.Code:
		if ce.Cause != nil {
			return ce.Message + ": " + ce.Cause.Error()
		}
		return ce.Message
	}
	return "failed to load data"
}
