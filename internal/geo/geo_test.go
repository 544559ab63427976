package geo_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/karthiivan/sih/internal/geo"
	"github.com/karthiivan/sih/internal/telemetry"
)

func TestHaversineKm(t *testing.T) {
	// Chennai to Bengaluru is roughly 290 km as the crow flies.
	d := geo.HaversineKm(13.0827, 80.2707, 12.9716, 77.5946)
	assert.InDelta(t, 290, d, 10)

	assert.Zero(t, geo.HaversineKm(13.0, 80.0, 13.0, 80.0))
}

func TestNearestSortsAndFilters(t *testing.T) {
	regions := telemetry.DefaultRegions()

	// From Chennai, Chennai Central is closest and Mumbai is far
	// outside a 500 km radius.
	got := geo.Nearest(regions, 13.08, 80.27, 10, 500)
	require.NotEmpty(t, got)
	assert.Equal(t, "chn-central", got[0].ID)
	for _, r := range got {
		assert.LessOrEqual(t, r.DistanceKm, 500.0)
		assert.NotEqual(t, "mum-coastal", r.ID)
	}

	// limit caps the result count; radius <= 0 disables the filter.
	got = geo.Nearest(regions, 13.08, 80.27, 2, 0)
	assert.Len(t, got, 2)
}
