package region

import (
	"testing"

	"github.com/newthinker/gridlens/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMap_KnownZones(t *testing.T) {
	tests := []struct {
		zone string
		want core.Region
	}{
		{"north", core.RegionNorth},
		{"north_c", core.RegionNorth},
		{"east", core.RegionNorth},
		{"southern", core.RegionSouth},
		{"south_c", core.RegionSouth},
		{"west", core.RegionWest},
		{"far_west", core.RegionWest},
		{"coast", core.RegionHouston},
		{" NORTH_C ", core.RegionNorth},
	}

	for _, tt := range tests {
		got, ok := Map(tt.zone)
		assert.True(t, ok, tt.zone)
		assert.Equal(t, tt.want, got, tt.zone)
	}
}

func TestMap_UnknownZones(t *testing.T) {
	for _, zone := range []string{"ercot", "", "panhandle", "All"} {
		_, ok := Map(zone)
		assert.False(t, ok, zone)
	}
}

func TestRegions_DefaultOrder(t *testing.T) {
	assert.Equal(t, []core.Region{core.RegionNorth, core.RegionSouth, core.RegionWest, core.RegionHouston}, Regions())

	// Callers may not mutate the shared order.
	rs := Regions()
	rs[0] = core.RegionHouston
	assert.Equal(t, core.RegionNorth, Regions()[0])
}

func TestZones(t *testing.T) {
	assert.Equal(t, []string{"far_west", "west"}, Zones(core.RegionWest))
	assert.Equal(t, []string{"coast"}, Zones(core.RegionHouston))
	assert.Empty(t, Zones(core.RegionAll))
}

func TestEveryZoneMapsToOneRegion(t *testing.T) {
	seen := map[string]int{}
	for _, r := range Regions() {
		for _, z := range Zones(r) {
			seen[z]++
		}
	}
	for z, n := range seen {
		assert.Equal(t, 1, n, z)
	}
	assert.Len(t, seen, len(core.AllZones)-1)
}

func TestParseFilter(t *testing.T) {
	f, err := ParseFilter("")
	require.NoError(t, err)
	assert.True(t, f.IsAll())

	f, err = ParseFilter("all")
	require.NoError(t, err)
	assert.True(t, f.Match(core.RegionHouston))

	f, err = ParseFilter("west")
	require.NoError(t, err)
	assert.True(t, f.Match(core.RegionWest))
	assert.False(t, f.Match(core.RegionNorth))
	assert.Equal(t, "West", f.String())
	assert.Equal(t, "far_west,west", f.ZoneParam())

	_, err = ParseFilter("Dallas")
	assert.ErrorIs(t, err, core.ErrInvalidParam)
}

func TestFilter_ZeroValueIsAll(t *testing.T) {
	var f Filter
	assert.True(t, f.IsAll())
	assert.Equal(t, "", f.ZoneParam())
}

func TestIndex(t *testing.T) {
	assert.Equal(t, 0, Index(core.RegionNorth))
	assert.Equal(t, 3, Index(core.RegionHouston))
	assert.Equal(t, -1, Index(core.RegionAll))
}
