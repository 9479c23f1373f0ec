package core

import (
	"fmt"
	"strings"
	"time"
)

const (
	// DateLayout is the calendar date format used by date ranges and date endpoints.
	DateLayout = "2006-01-02"
	// TimestampLayout is the naive ISO timestamp format expected by timestamp endpoints.
	TimestampLayout = "2006-01-02T15:04:05"
)

// Region is a coarse, user-facing grouping of ERCOT zones.
type Region string

const (
	RegionNorth   Region = "North"
	RegionSouth   Region = "South"
	RegionWest    Region = "West"
	RegionHouston Region = "Houston"

	// RegionAll is a filter value only. It never keys an aggregation group.
	RegionAll Region = "All"
)

// DateRange is an inclusive pair of calendar dates. End may precede Start.
type DateRange struct {
	Start string `json:"start_date" yaml:"start_date"`
	End   string `json:"end_date" yaml:"end_date"`
}

// Validate checks both dates are well-formed YYYY-MM-DD values.
func (r DateRange) Validate() error {
	if _, err := time.Parse(DateLayout, r.Start); err != nil {
		return WrapError(ErrInvalidRange, fmt.Errorf("start_date %q: %w", r.Start, err))
	}
	if _, err := time.Parse(DateLayout, r.End); err != nil {
		return WrapError(ErrInvalidRange, fmt.Errorf("end_date %q: %w", r.End, err))
	}
	return nil
}

// StartTimestamp returns the start date at the beginning of the day.
func (r DateRange) StartTimestamp() string {
	return r.Start + "T00:00:00"
}

// EndTimestamp returns the end date at the last second of the day.
func (r DateRange) EndTimestamp() string {
	return r.End + "T23:59:59"
}

func (r DateRange) String() string {
	return r.Start + ".." + r.End
}

// ParseDateRange parses "YYYY-MM-DD..YYYY-MM-DD".
func ParseDateRange(s string) (DateRange, error) {
	start, end, ok := strings.Cut(s, "..")
	if !ok {
		return DateRange{}, WrapError(ErrInvalidRange, fmt.Errorf("expected START..END, got %q", s))
	}
	r := DateRange{Start: strings.TrimSpace(start), End: strings.TrimSpace(end)}
	if err := r.Validate(); err != nil {
		return DateRange{}, err
	}
	return r, nil
}

// Params carries endpoint-specific request parameters (model, thresholds, region filter).
type Params map[string]string

// Get returns the value for key or def when unset or blank.
func (p Params) Get(key, def string) string {
	if v, ok := p[key]; ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

// Clone returns a copy of p that is safe to mutate.
func (p Params) Clone() Params {
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Model selects which upstream forecast model a comparison uses.
type Model string

const (
	ModelStatistical Model = "statistical"
	ModelXGB         Model = "xgb"
)

// ParseModel validates a forecast model name.
func ParseModel(s string) (Model, error) {
	switch Model(strings.ToLower(strings.TrimSpace(s))) {
	case ModelStatistical:
		return ModelStatistical, nil
	case ModelXGB:
		return ModelXGB, nil
	}
	return "", WrapError(ErrInvalidParam, fmt.Errorf("model must be statistical or xgb, got %q", s))
}

// OutlierType is the direction of a statistical load outlier.
type OutlierType string

const (
	OutlierHigh OutlierType = "high"
	OutlierLow  OutlierType = "low"
)

// ParseOutlierType validates an outlier type. An empty string means both.
func ParseOutlierType(s string) (OutlierType, error) {
	switch OutlierType(strings.ToLower(strings.TrimSpace(s))) {
	case "":
		return "", nil
	case OutlierHigh:
		return OutlierHigh, nil
	case OutlierLow:
		return OutlierLow, nil
	}
	return "", WrapError(ErrInvalidParam, fmt.Errorf("outlier_type must be high or low, got %q", s))
}
