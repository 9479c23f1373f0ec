package core

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Raw zone identifiers used by the analytics API.
const (
	ZoneCoast    = "coast"
	ZoneEast     = "east"
	ZoneFarWest  = "far_west"
	ZoneNorth    = "north"
	ZoneNorthC   = "north_c"
	ZoneSouthern = "southern"
	ZoneSouthC   = "south_c"
	ZoneWest     = "west"
	ZoneERCOT    = "ercot"
)

// AllZones lists every zone the analytics API reports, system total last.
var AllZones = []string{
	ZoneCoast, ZoneEast, ZoneFarWest, ZoneNorth, ZoneNorthC,
	ZoneSouthern, ZoneSouthC, ZoneWest, ZoneERCOT,
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	TimestampLayout,
	"2006-01-02 15:04:05",
	DateLayout,
}

// Timestamp decodes the naive ISO date-times the analytics API emits.
type Timestamp struct {
	time.Time
}

func parseTime(s string, layouts []string) (time.Time, error) {
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", s)
}

// UnmarshalJSON accepts RFC3339 and naive ISO timestamps. null leaves the zero value.
func (t *Timestamp) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := parseTime(strings.TrimSpace(s), timestampLayouts)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}

// MarshalJSON writes the naive ISO form.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// MarshalYAML writes the naive ISO form.
func (t Timestamp) MarshalYAML() (any, error) {
	return t.String(), nil
}

func (t Timestamp) String() string {
	if t.IsZero() {
		return ""
	}
	return t.Format(TimestampLayout)
}

// Date decodes a calendar date.
type Date struct {
	time.Time
}

// UnmarshalJSON accepts YYYY-MM-DD and full timestamps.
func (d *Date) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := parseTime(strings.TrimSpace(s), append([]string{DateLayout}, timestampLayouts...))
	if err != nil {
		return err
	}
	d.Time = parsed
	return nil
}

// MarshalJSON writes YYYY-MM-DD.
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// MarshalYAML writes YYYY-MM-DD.
func (d Date) MarshalYAML() (any, error) {
	return d.String(), nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

// ZoneReading is one zone's value at one instant, unpacked from a wide hourly record.
type ZoneReading struct {
	Zone  string
	At    time.Time
	Value float64
}

// HourlyLoad is one row of /load/hourly: MW demand per zone for the hour ending at HourEnd.
type HourlyLoad struct {
	HourEnd  Timestamp `json:"hour_end"`
	Coast    float64   `json:"coast"`
	East     float64   `json:"east"`
	FarWest  float64   `json:"far_west"`
	North    float64   `json:"north"`
	NorthC   float64   `json:"north_c"`
	Southern float64   `json:"southern"`
	SouthC   float64   `json:"south_c"`
	West     float64   `json:"west"`
	ERCOT    float64   `json:"ercot"`
}

// Readings unpacks the wide row into one reading per zone.
func (h HourlyLoad) Readings() []ZoneReading {
	at := h.HourEnd.Time
	return []ZoneReading{
		{ZoneCoast, at, h.Coast},
		{ZoneEast, at, h.East},
		{ZoneFarWest, at, h.FarWest},
		{ZoneNorth, at, h.North},
		{ZoneNorthC, at, h.NorthC},
		{ZoneSouthern, at, h.Southern},
		{ZoneSouthC, at, h.SouthC},
		{ZoneWest, at, h.West},
		{ZoneERCOT, at, h.ERCOT},
	}
}

// ComparisonReading is one zone's actual and expected load at one instant.
// Either side may be missing.
type ComparisonReading struct {
	Zone     string
	At       time.Time
	Actual   *float64
	Expected *float64
}

// LoadComparison is one row of /load/comparison. Values are null where the
// forecast model has no estimate.
type LoadComparison struct {
	HourEnd          Timestamp `json:"hour_end"`
	CoastActual      *float64  `json:"coast_actual"`
	CoastExpected    *float64  `json:"coast_expected"`
	EastActual       *float64  `json:"east_actual"`
	EastExpected     *float64  `json:"east_expected"`
	FarWestActual    *float64  `json:"far_west_actual"`
	FarWestExpected  *float64  `json:"far_west_expected"`
	NorthActual      *float64  `json:"north_actual"`
	NorthExpected    *float64  `json:"north_expected"`
	NorthCActual     *float64  `json:"north_c_actual"`
	NorthCExpected   *float64  `json:"north_c_expected"`
	SouthernActual   *float64  `json:"southern_actual"`
	SouthernExpected *float64  `json:"southern_expected"`
	SouthCActual     *float64  `json:"south_c_actual"`
	SouthCExpected   *float64  `json:"south_c_expected"`
	WestActual       *float64  `json:"west_actual"`
	WestExpected     *float64  `json:"west_expected"`
	ERCOTActual      *float64  `json:"ercot_actual"`
	ERCOTExpected    *float64  `json:"ercot_expected"`
}

// Readings unpacks the wide row into one reading per zone.
func (c LoadComparison) Readings() []ComparisonReading {
	at := c.HourEnd.Time
	return []ComparisonReading{
		{ZoneCoast, at, c.CoastActual, c.CoastExpected},
		{ZoneEast, at, c.EastActual, c.EastExpected},
		{ZoneFarWest, at, c.FarWestActual, c.FarWestExpected},
		{ZoneNorth, at, c.NorthActual, c.NorthExpected},
		{ZoneNorthC, at, c.NorthCActual, c.NorthCExpected},
		{ZoneSouthern, at, c.SouthernActual, c.SouthernExpected},
		{ZoneSouthC, at, c.SouthCActual, c.SouthCExpected},
		{ZoneWest, at, c.WestActual, c.WestExpected},
		{ZoneERCOT, at, c.ERCOTActual, c.ERCOTExpected},
	}
}

// ForecastMetric is one row of /forecast/metrics.
type ForecastMetric struct {
	Region  string  `json:"region"`
	N       int     `json:"n"`
	MSE     float64 `json:"mse"`
	MAE     float64 `json:"mae"`
	MAPEPct float64 `json:"mape_pct"`
	R2      float64 `json:"r2"`
}

// HeatwaveStreak is one row of /weather/heatwaves.
type HeatwaveStreak struct {
	Zone          string   `json:"zone"`
	StreakStart   Date     `json:"streak_start"`
	StreakEnd     Date     `json:"streak_end"`
	StreakDays    int      `json:"streak_days"`
	AvgPeakLoadMW *float64 `json:"avg_peak_load_mw"`
}

// PrecipitationImpact is one row of /weather/precipitation.
type PrecipitationImpact struct {
	Zone      string  `json:"zone"`
	RainyDay  bool    `json:"rainy_day"`
	AvgLoadMW float64 `json:"avg_load_mw"`
	NumDays   int     `json:"num_days"`
}

// ExtremeHeatLoad is one row of /load/peak-load-extreme-heat.
type ExtremeHeatLoad struct {
	Zone                string  `json:"zone"`
	MedianPeakLoadMW    float64 `json:"median_peak_load_mw"`
	NumExtremeHeatDays  int     `json:"num_extreme_heat_days"`
	ThresholdPercentile float64 `json:"threshold_percentile"`
	ThresholdTempF      float64 `json:"threshold_temp_f"`
}

// LoadOutlier is one row of /load/outliers.
type LoadOutlier struct {
	HourEnd     Timestamp   `json:"hour_end"`
	Region      string      `json:"region"`
	LoadMW      float64     `json:"load_mw"`
	Mean        float64     `json:"mean"`
	StdDev      float64     `json:"std_dev"`
	ZScore      float64     `json:"z_score"`
	OutlierType OutlierType `json:"outlier_type"`
}

// OutlierWeather is one row of /load/outliers/weather-conditions.
type OutlierWeather struct {
	MonthStart       Date        `json:"month_start"`
	OutlierGroup     OutlierType `json:"outlier_group"`
	NumDays          int         `json:"num_days"`
	AvgTempC         float64     `json:"avg_temp_c"`
	AvgRHPct         float64     `json:"avg_rh_pct"`
	AvgPrecipMM      float64     `json:"avg_precip_mm"`
	AvgWindKMH       float64     `json:"avg_wind_kmh"`
	AvgPressureHPA   float64     `json:"avg_pressure_hpa"`
	AvgCloudCoverPct float64     `json:"avg_cloud_cover_pct"`
}

// Envelope is the {data, metadata} wrapper used by the outlier endpoints.
type Envelope[T any] struct {
	Data     []T            `json:"data"`
	Metadata map[string]any `json:"metadata"`
}
