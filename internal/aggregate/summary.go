package aggregate

import (
	"github.com/newthinker/gridlens/internal/core"
	"github.com/newthinker/gridlens/internal/region"
)

// Metric describes one statistic computed per region.
type Metric[T any] struct {
	Name     string
	Value    func(T) float64
	Weight   func(T) float64 // nil means weight 1
	Strategy Strategy
	Include  func(T) bool // nil means every record contributes
}

// Row is one region's finalized statistics.
type Row struct {
	Region core.Region        `json:"region" yaml:"region"`
	Count  int                `json:"count" yaml:"count"`
	Values map[string]float64 `json:"values" yaml:"values"`
}

// Value returns the named statistic, or 0 if absent.
func (r Row) Value(name string) float64 {
	return r.Values[name]
}

type group struct {
	count int
	accs  []Accumulator
}

// Summary folds records into one row per display region. Regions that
// receive no records are still emitted, zero-filled.
type Summary[T any] struct {
	zone    func(T) string
	metrics []Metric[T]
	groups  map[core.Region]*group
	skipped int
}

// NewSummary creates a summary fold keyed by zone.
func NewSummary[T any](zone func(T) string, metrics ...Metric[T]) *Summary[T] {
	return &Summary[T]{
		zone:    zone,
		metrics: metrics,
		groups:  make(map[core.Region]*group),
	}
}

func (s *Summary[T]) group(r core.Region) *group {
	g, ok := s.groups[r]
	if !ok {
		g = &group{accs: make([]Accumulator, len(s.metrics))}
		s.groups[r] = g
	}
	return g
}

// Add folds records. Records whose zone is unmapped are skipped.
func (s *Summary[T]) Add(records ...T) {
	for _, rec := range records {
		r, ok := region.Map(s.zone(rec))
		if !ok {
			s.skipped++
			continue
		}
		g := s.group(r)
		g.count++
		for i, m := range s.metrics {
			if m.Include != nil && !m.Include(rec) {
				continue
			}
			w := 1.0
			if m.Weight != nil {
				w = m.Weight(rec)
			}
			g.accs[i].Add(m.Value(rec), w)
		}
	}
}

// Merge folds another summary built with the same metrics into s.
func (s *Summary[T]) Merge(other *Summary[T]) {
	for r, og := range other.groups {
		g := s.group(r)
		g.count += og.count
		for i := range g.accs {
			if i < len(og.accs) {
				g.accs[i].Merge(og.accs[i])
			}
		}
	}
	s.skipped += other.skipped
}

// Skipped returns how many records had an unmapped zone.
func (s *Summary[T]) Skipped() int {
	return s.skipped
}

// Rows finalizes the fold. All four regions are present unless filtered out.
func (s *Summary[T]) Rows(opts ...Option) []Row {
	o := buildOptions(opts)
	regions := o.regionOrder()

	rows := make([]Row, 0, len(regions))
	for _, r := range regions {
		row := Row{Region: r, Values: make(map[string]float64, len(s.metrics))}
		g, ok := s.groups[r]
		for i, m := range s.metrics {
			var acc Accumulator
			if ok {
				acc = g.accs[i]
			}
			row.Values[m.Name] = acc.Result(m.Strategy)
		}
		if ok {
			row.Count = g.count
		}
		rows = append(rows, row)
	}
	return rows
}

// Aggregate is the one-shot form of NewSummary, Add and Rows.
func Aggregate[T any](records []T, zone func(T) string, metrics []Metric[T], opts ...Option) []Row {
	s := NewSummary(zone, metrics...)
	s.Add(records...)
	return s.Rows(opts...)
}
