package aggregate

import (
	"math"
	"testing"
	"time"

	"github.com/newthinker/gridlens/internal/core"
	"github.com/newthinker/gridlens/internal/region"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	zone  string
	value float64
	n     int
}

func sampleZone(s sample) string { return s.zone }

func meanMetric() []Metric[sample] {
	return []Metric[sample]{
		{Name: "mean", Value: func(s sample) float64 { return s.value }, Strategy: Mean},
		{Name: "total", Value: func(s sample) float64 { return s.value }, Strategy: Sum},
		{Name: "count", Value: func(s sample) float64 { return 1 }, Strategy: Count},
	}
}

func rowFor(t *testing.T, rows []Row, r core.Region) Row {
	t.Helper()
	for _, row := range rows {
		if row.Region == r {
			return row
		}
	}
	t.Fatalf("no row for %s", r)
	return Row{}
}

func TestAccumulator_ZeroGuard(t *testing.T) {
	var acc Accumulator
	assert.Equal(t, 0.0, acc.Result(Mean))
	assert.Equal(t, 0.0, acc.Result(WeightedMean))
	assert.Equal(t, 0.0, acc.Result(Sum))
	assert.Equal(t, 0.0, acc.Result(Count))

	acc.Add(10, 0)
	assert.Equal(t, 0.0, acc.Result(WeightedMean), "zero total weight must not divide")
	assert.Equal(t, 10.0, acc.Result(Mean))
}

func TestAccumulator_IgnoresNonFinite(t *testing.T) {
	var acc Accumulator
	acc.Add(math.NaN(), 1)
	acc.Add(math.Inf(1), 1)
	acc.Add(4, math.NaN())
	acc.Add(6, 1)

	assert.Equal(t, 1, acc.Count)
	assert.Equal(t, 6.0, acc.Result(Mean))
	assert.False(t, math.IsNaN(acc.Result(WeightedMean)))
}

func TestAccumulator_MergeIsAssociative(t *testing.T) {
	values := []float64{3, 9, 12}

	var whole Accumulator
	for _, v := range values {
		whole.Add(v, 2)
	}

	var ab, c Accumulator
	ab.Add(values[0], 2)
	ab.Add(values[1], 2)
	c.Add(values[2], 2)
	ab.Merge(c)

	var reversed Accumulator
	reversed.Merge(c)
	reversed.Add(values[1], 2)
	reversed.Add(values[0], 2)

	for _, s := range []Strategy{Sum, Mean, WeightedMean, Count} {
		assert.Equal(t, whole.Result(s), ab.Result(s), s.String())
		assert.Equal(t, whole.Result(s), reversed.Result(s), s.String())
	}
}

func TestParseStrategy(t *testing.T) {
	s, err := ParseStrategy("Weighted-Mean")
	require.NoError(t, err)
	assert.Equal(t, WeightedMean, s)

	_, err = ParseStrategy("median")
	assert.Error(t, err)
	assert.Equal(t, "count", Count.String())
}

func TestSummary_EmptyInputYieldsFourZeroRows(t *testing.T) {
	rows := Aggregate(nil, sampleZone, meanMetric())

	require.Len(t, rows, 4)
	assert.Equal(t, []core.Region{core.RegionNorth, core.RegionSouth, core.RegionWest, core.RegionHouston},
		[]core.Region{rows[0].Region, rows[1].Region, rows[2].Region, rows[3].Region})
	for _, row := range rows {
		assert.Equal(t, 0, row.Count)
		assert.Equal(t, 0.0, row.Value("mean"))
		assert.Equal(t, 0.0, row.Value("total"))
		assert.Equal(t, 0.0, row.Value("count"))
	}
}

func TestSummary_NorthSubzonesAverage(t *testing.T) {
	records := []sample{
		{zone: "north", value: 100},
		{zone: "north_c", value: 200},
	}

	rows := Aggregate(records, sampleZone, meanMetric())
	north := rowFor(t, rows, core.RegionNorth)

	assert.Equal(t, 150.0, north.Value("mean"))
	assert.Equal(t, 300.0, north.Value("total"))
	assert.Equal(t, 2, north.Count)
}

func TestSummary_UnmappedZonesDoNotAffectOutput(t *testing.T) {
	clean := []sample{
		{zone: "west", value: 10},
		{zone: "far_west", value: 30},
		{zone: "coast", value: 50},
	}
	dirty := append([]sample{
		{zone: "ercot", value: 1e6},
		{zone: "mars", value: -42},
		{zone: "", value: 7},
	}, clean...)

	s := NewSummary(sampleZone, meanMetric()...)
	s.Add(dirty...)

	assert.Equal(t, Aggregate(clean, sampleZone, meanMetric()), s.Rows())
	assert.Equal(t, 3, s.Skipped())
}

func TestSummary_MergeEqualsSingleFold(t *testing.T) {
	a := sample{zone: "north", value: 10}
	b := sample{zone: "south_c", value: 20}
	c := sample{zone: "north_c", value: 40}

	first := NewSummary(sampleZone, meanMetric()...)
	first.Add(a, b)
	second := NewSummary(sampleZone, meanMetric()...)
	second.Add(c)
	first.Merge(second)

	assert.Equal(t, Aggregate([]sample{a, b, c}, sampleZone, meanMetric()), first.Rows())
}

func TestSummary_WeightedMeanWithUnitWeightsEqualsMean(t *testing.T) {
	records := []sample{
		{zone: "north", value: 3},
		{zone: "east", value: 8},
		{zone: "southern", value: 5},
		{zone: "coast", value: 11},
	}
	metrics := []Metric[sample]{
		{Name: "mean", Value: func(s sample) float64 { return s.value }, Strategy: Mean},
		{Name: "wmean", Value: func(s sample) float64 { return s.value },
			Weight: func(sample) float64 { return 1 }, Strategy: WeightedMean},
	}

	for _, row := range Aggregate(records, sampleZone, metrics) {
		assert.Equal(t, row.Value("mean"), row.Value("wmean"), string(row.Region))
	}
}

func TestSummary_WeightedMean(t *testing.T) {
	records := []sample{
		{zone: "north", value: 10, n: 1},
		{zone: "north_c", value: 40, n: 3},
	}
	metrics := []Metric[sample]{
		{Name: "wmean", Value: func(s sample) float64 { return s.value },
			Weight: func(s sample) float64 { return float64(s.n) }, Strategy: WeightedMean},
	}

	north := rowFor(t, Aggregate(records, sampleZone, metrics), core.RegionNorth)
	assert.Equal(t, 32.5, north.Value("wmean"))
}

func TestSummary_IncludePredicate(t *testing.T) {
	records := []sample{
		{zone: "coast", value: 10, n: 1},
		{zone: "coast", value: 20, n: 0},
	}
	metrics := []Metric[sample]{
		{Name: "flagged", Value: func(s sample) float64 { return s.value },
			Include: func(s sample) bool { return s.n == 1 }, Strategy: Mean},
	}

	houston := rowFor(t, Aggregate(records, sampleZone, metrics), core.RegionHouston)
	assert.Equal(t, 10.0, houston.Value("flagged"))
	assert.Equal(t, 2, houston.Count)
}

func TestSummary_FilterAndOrder(t *testing.T) {
	rows := Aggregate(nil, sampleZone, meanMetric(), WithFilter(region.Only(core.RegionWest)))
	require.Len(t, rows, 1)
	assert.Equal(t, core.RegionWest, rows[0].Region)

	rows = Aggregate(nil, sampleZone, meanMetric(), SortByName())
	require.Len(t, rows, 4)
	assert.Equal(t, []core.Region{core.RegionHouston, core.RegionNorth, core.RegionSouth, core.RegionWest},
		[]core.Region{rows[0].Region, rows[1].Region, rows[2].Region, rows[3].Region})

	rows = Aggregate(nil, sampleZone, meanMetric(), WithFilter(region.All))
	assert.Len(t, rows, 4)
}

type reading struct {
	zone string
	at   time.Time
	v    *float64
}

func ptr(f float64) *float64 { return &f }

func newReadingSeries() *Series[reading] {
	return NewSeries(
		func(r reading) string { return r.zone },
		func(r reading) time.Time { return r.at },
		func(r reading) (float64, bool) {
			if r.v == nil {
				return 0, false
			}
			return *r.v, true
		},
		Sum,
	)
}

func TestSeries_EmptyInputYieldsNoLines(t *testing.T) {
	s := newReadingSeries()
	assert.Empty(t, s.Lines())
}

func TestSeries_SuppressesRegionsWithoutObservations(t *testing.T) {
	t0 := time.Date(2010, 6, 1, 1, 0, 0, 0, time.UTC)
	t1 := t0.Add(time.Hour)

	s := newReadingSeries()
	s.Add(
		reading{"north", t1, ptr(5)},
		reading{"north_c", t1, ptr(7)},
		reading{"north", t0, ptr(1)},
		reading{"coast", t0, nil},
		reading{"ercot", t0, ptr(1000)},
	)

	lines := s.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, core.RegionNorth, lines[0].Region)
	assert.Equal(t, []Point{{At: t0, Value: 1}, {At: t1, Value: 12}}, lines[0].Points)
	assert.Equal(t, 1, s.Skipped())
}

func TestSeries_MergeAndFilter(t *testing.T) {
	t0 := time.Date(2010, 6, 1, 1, 0, 0, 0, time.UTC)

	a := newReadingSeries()
	a.Add(reading{"west", t0, ptr(2)}, reading{"coast", t0, ptr(3)})
	b := newReadingSeries()
	b.Add(reading{"far_west", t0, ptr(4)})
	a.Merge(b)

	lines := a.Lines()
	require.Len(t, lines, 2)
	assert.Equal(t, core.RegionWest, lines[0].Region)
	assert.Equal(t, 6.0, lines[0].Points[0].Value)
	assert.Equal(t, core.RegionHouston, lines[1].Region)

	filtered := a.Lines(WithFilter(region.Only(core.RegionHouston)))
	require.Len(t, filtered, 1)
	assert.Equal(t, core.RegionHouston, filtered[0].Region)

	byName := a.Lines(SortByName())
	assert.Equal(t, core.RegionHouston, byName[0].Region)
}

func TestFlatten(t *testing.T) {
	out := Flatten([]int{1, 2}, func(i int) []int { return []int{i, i * 10} })
	assert.Equal(t, []int{1, 10, 2, 20}, out)
}
