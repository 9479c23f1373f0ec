package view

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/newthinker/gridlens/internal/aggregate"
	"github.com/newthinker/gridlens/internal/core"
	"github.com/newthinker/gridlens/internal/region"
)

// Parameter keys understood by the views.
const (
	ParamRegion          = "region"
	ParamModel           = "model"
	ParamMinTempF        = "min_temp_f"
	ParamMinDays         = "min_days"
	ParamThreshold       = "threshold"
	ParamStdDevThreshold = "std_dev_threshold"
	ParamOutlierType     = "outlier_type"
	ParamLimit           = "limit"
	ParamMonth           = "month"
	ParamSort            = "sort"
)

// Row orders accepted by ParamSort.
const (
	SortRegion = "region"
	SortName   = "name"
)

var monthPattern = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

func invalid(format string, args ...any) error {
	return core.WrapError(core.ErrInvalidParam, fmt.Errorf(format, args...))
}

// rowOptions returns the region filter and the aggregation options for the
// region and sort params.
func rowOptions(p core.Params) (region.Filter, []aggregate.Option, error) {
	f, err := region.ParseFilter(p.Get(ParamRegion, ""))
	if err != nil {
		return region.Filter{}, nil, err
	}
	opts := []aggregate.Option{aggregate.WithFilter(f)}
	switch sort := strings.ToLower(strings.TrimSpace(p.Get(ParamSort, SortRegion))); sort {
	case SortRegion:
	case SortName:
		opts = append(opts, aggregate.SortByName())
	default:
		return region.Filter{}, nil, invalid("sort must be %s or %s, got %q", SortRegion, SortName, sort)
	}
	return f, opts, nil
}

func floatParam(p core.Params, key string, def, min, max float64) (float64, error) {
	raw := p.Get(key, "")
	if raw == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, invalid("%s must be a number, got %q", key, raw)
	}
	if f < min || f > max {
		return 0, invalid("%s must be between %g and %g, got %g", key, min, max, f)
	}
	return f, nil
}

func intParam(p core.Params, key string, def, min, max int) (int, error) {
	raw := p.Get(key, "")
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, invalid("%s must be an integer, got %q", key, raw)
	}
	if n < min || n > max {
		return 0, invalid("%s must be between %d and %d, got %d", key, min, max, n)
	}
	return n, nil
}

func modelParam(p core.Params, def core.Model) (core.Model, error) {
	return core.ParseModel(p.Get(ParamModel, string(def)))
}

func monthsParam(p core.Params) (string, error) {
	raw := p.Get(ParamMonth, "")
	if raw == "" {
		return "", nil
	}
	months := strings.Split(raw, ",")
	for i, m := range months {
		m = strings.TrimSpace(m)
		if !monthPattern.MatchString(m) {
			return "", invalid("month must be YYYY-MM, got %q", m)
		}
		months[i] = m
	}
	return strings.Join(months, ","), nil
}
