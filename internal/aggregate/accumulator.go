// Package aggregate folds raw upstream records into per-region statistics.
//
// Every fold is built on Accumulator, whose Merge is associative and
// commutative, so partial folds over split inputs combine to the same
// result as a single fold over the whole input.
package aggregate

import (
	"fmt"
	"math"
	"strings"
)

// Strategy selects how an accumulator is finalized.
type Strategy int

const (
	Sum Strategy = iota
	Mean
	WeightedMean
	Count
)

var strategyNames = map[Strategy]string{
	Sum:          "sum",
	Mean:         "mean",
	WeightedMean: "weighted-mean",
	Count:        "count",
}

func (s Strategy) String() string {
	if n, ok := strategyNames[s]; ok {
		return n
	}
	return fmt.Sprintf("strategy(%d)", int(s))
}

// ParseStrategy parses sum, mean, weighted-mean or count.
func ParseStrategy(s string) (Strategy, error) {
	want := strings.ToLower(strings.TrimSpace(s))
	for st, name := range strategyNames {
		if name == want {
			return st, nil
		}
	}
	return 0, fmt.Errorf("unknown aggregation strategy %q", s)
}

// Accumulator keeps running totals for one group.
type Accumulator struct {
	Sum         float64 `json:"sum"`
	WeightedSum float64 `json:"weighted_sum"`
	Weight      float64 `json:"weight"`
	Count       int     `json:"count"`
}

// Add folds one observation with weight w. NaN and infinite inputs are ignored.
func (a *Accumulator) Add(v, w float64) {
	if !finite(v) || !finite(w) {
		return
	}
	a.Sum += v
	a.WeightedSum += v * w
	a.Weight += w
	a.Count++
}

// Merge folds another accumulator into a.
func (a *Accumulator) Merge(b Accumulator) {
	a.Sum += b.Sum
	a.WeightedSum += b.WeightedSum
	a.Weight += b.Weight
	a.Count += b.Count
}

// Result finalizes the accumulator.
//
// Zero-guard: Mean with no observations and WeightedMean with zero total
// weight both yield 0, never NaN.
func (a Accumulator) Result(s Strategy) float64 {
	switch s {
	case Sum:
		return a.Sum
	case Mean:
		if a.Count == 0 {
			return 0
		}
		return a.Sum / float64(a.Count)
	case WeightedMean:
		if a.Weight == 0 {
			return 0
		}
		return a.WeightedSum / a.Weight
	case Count:
		return float64(a.Count)
	}
	return 0
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
