package aggregate

import (
	"sort"

	"github.com/newthinker/gridlens/internal/core"
	"github.com/newthinker/gridlens/internal/region"
)

type options struct {
	filter region.Filter
	byName bool
}

// Option adjusts how rows or lines are ordered and filtered.
type Option func(*options)

// WithFilter keeps only the rows matching f. region.All keeps everything.
func WithFilter(f region.Filter) Option {
	return func(o *options) {
		o.filter = f
	}
}

// SortByName orders output alphabetically by region name instead of the
// default North, South, West, Houston order.
func SortByName() Option {
	return func(o *options) {
		o.byName = true
	}
}

func buildOptions(opts []Option) options {
	o := options{filter: region.All}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// regionOrder returns the regions to emit, ordered and filtered.
func (o options) regionOrder() []core.Region {
	regions := region.Regions()
	if o.byName {
		sort.Slice(regions, func(i, j int) bool {
			return regions[i] < regions[j]
		})
	}
	out := regions[:0]
	for _, r := range regions {
		if o.filter.Match(r) {
			out = append(out, r)
		}
	}
	return out
}
