// Package region holds the canonical mapping from ERCOT zones to display regions.
package region

import (
	"fmt"
	"sort"
	"strings"

	"github.com/newthinker/gridlens/internal/core"
)

// zoneTable is the single zone -> region table shared by every view.
// The ercot system total is intentionally absent.
var zoneTable = map[string]core.Region{
	core.ZoneNorth:    core.RegionNorth,
	core.ZoneNorthC:   core.RegionNorth,
	core.ZoneEast:     core.RegionNorth,
	core.ZoneSouthern: core.RegionSouth,
	core.ZoneSouthC:   core.RegionSouth,
	core.ZoneWest:     core.RegionWest,
	core.ZoneFarWest:  core.RegionWest,
	core.ZoneCoast:    core.RegionHouston,
}

var order = []core.Region{
	core.RegionNorth,
	core.RegionSouth,
	core.RegionWest,
	core.RegionHouston,
}

// Map resolves a raw zone identifier. Unknown zones report false.
func Map(zone string) (core.Region, bool) {
	r, ok := zoneTable[normalize(zone)]
	return r, ok
}

// Regions returns the display regions in default order.
func Regions() []core.Region {
	out := make([]core.Region, len(order))
	copy(out, order)
	return out
}

// Index returns the default-order position of r, or -1.
func Index(r core.Region) int {
	for i, o := range order {
		if o == r {
			return i
		}
	}
	return -1
}

// Zones returns the zones that roll up into r, sorted.
func Zones(r core.Region) []string {
	var zones []string
	for z, reg := range zoneTable {
		if reg == r {
			zones = append(zones, z)
		}
	}
	sort.Strings(zones)
	return zones
}

// Parse resolves a display region name, case-insensitively.
func Parse(s string) (core.Region, error) {
	want := strings.TrimSpace(s)
	for _, r := range order {
		if strings.EqualFold(string(r), want) {
			return r, nil
		}
	}
	return "", core.WrapError(core.ErrInvalidParam, fmt.Errorf("unknown region %q", s))
}

// Filter restricts output to one display region. The zero value and All pass everything.
type Filter struct {
	region core.Region
}

// All is the pass-through filter.
var All = Filter{region: core.RegionAll}

// Only returns a filter for a single region.
func Only(r core.Region) Filter {
	return Filter{region: r}
}

// ParseFilter parses a region name or "All". Empty means All.
func ParseFilter(s string) (Filter, error) {
	if strings.TrimSpace(s) == "" || strings.EqualFold(strings.TrimSpace(s), string(core.RegionAll)) {
		return All, nil
	}
	r, err := Parse(s)
	if err != nil {
		return Filter{}, err
	}
	return Only(r), nil
}

// Match reports whether r passes the filter.
func (f Filter) Match(r core.Region) bool {
	if f.IsAll() {
		return true
	}
	return f.region == r
}

// IsAll reports whether the filter passes every region.
func (f Filter) IsAll() bool {
	return f.region == "" || f.region == core.RegionAll
}

func (f Filter) String() string {
	if f.IsAll() {
		return string(core.RegionAll)
	}
	return string(f.region)
}

// ZoneParam builds a comma-separated zone list for upstream filtering.
// All yields an empty string so the upstream returns every zone.
func (f Filter) ZoneParam() string {
	if f.IsAll() {
		return ""
	}
	return strings.Join(Zones(f.region), ",")
}

func normalize(zone string) string {
	return strings.ToLower(strings.TrimSpace(zone))
}
