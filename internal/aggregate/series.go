package aggregate

import (
	"sort"
	"time"

	"github.com/newthinker/gridlens/internal/core"
	"github.com/newthinker/gridlens/internal/region"
)

// Point is one finalized value at one instant.
type Point struct {
	At    time.Time `json:"at" yaml:"at"`
	Value float64   `json:"value" yaml:"value"`
}

// Line is one region's time series.
type Line struct {
	Region core.Region `json:"region" yaml:"region"`
	Points []Point     `json:"points" yaml:"points"`
}

type bucket struct {
	at  time.Time
	acc Accumulator
}

// Series folds records into per-region time series. Regions without a
// single observation are omitted from the output entirely.
type Series[T any] struct {
	zone     func(T) string
	at       func(T) time.Time
	value    func(T) (float64, bool)
	strategy Strategy
	buckets  map[core.Region]map[int64]*bucket
	skipped  int
}

// NewSeries creates a time-series fold. value reports false for records
// that carry no observation (a null upstream value).
func NewSeries[T any](zone func(T) string, at func(T) time.Time, value func(T) (float64, bool), strategy Strategy) *Series[T] {
	return &Series[T]{
		zone:     zone,
		at:       at,
		value:    value,
		strategy: strategy,
		buckets:  make(map[core.Region]map[int64]*bucket),
	}
}

func (s *Series[T]) bucket(r core.Region, at time.Time) *bucket {
	byTime, ok := s.buckets[r]
	if !ok {
		byTime = make(map[int64]*bucket)
		s.buckets[r] = byTime
	}
	key := at.UnixNano()
	b, ok := byTime[key]
	if !ok {
		b = &bucket{at: at}
		byTime[key] = b
	}
	return b
}

// Add folds records. Unmapped zones and missing values are skipped.
func (s *Series[T]) Add(records ...T) {
	for _, rec := range records {
		r, ok := region.Map(s.zone(rec))
		if !ok {
			s.skipped++
			continue
		}
		v, ok := s.value(rec)
		if !ok {
			continue
		}
		s.bucket(r, s.at(rec)).acc.Add(v, 1)
	}
}

// Merge folds another series with the same strategy into s.
func (s *Series[T]) Merge(other *Series[T]) {
	for r, byTime := range other.buckets {
		for _, ob := range byTime {
			s.bucket(r, ob.at).acc.Merge(ob.acc)
		}
	}
	s.skipped += other.skipped
}

// Skipped returns how many records had an unmapped zone.
func (s *Series[T]) Skipped() int {
	return s.skipped
}

// Lines finalizes the fold, one line per observed region, points in time order.
func (s *Series[T]) Lines(opts ...Option) []Line {
	o := buildOptions(opts)

	var lines []Line
	for _, r := range o.regionOrder() {
		byTime, ok := s.buckets[r]
		if !ok || len(byTime) == 0 {
			continue
		}
		points := make([]Point, 0, len(byTime))
		for _, b := range byTime {
			points = append(points, Point{At: b.at, Value: b.acc.Result(s.strategy)})
		}
		sort.Slice(points, func(i, j int) bool {
			return points[i].At.Before(points[j].At)
		})
		lines = append(lines, Line{Region: r, Points: points})
	}
	return lines
}

// Flatten expands each record into zero or more derived records.
func Flatten[T, R any](records []T, expand func(T) []R) []R {
	var out []R
	for _, rec := range records {
		out = append(out, expand(rec)...)
	}
	return out
}
