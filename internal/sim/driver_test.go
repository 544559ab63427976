package sim_test

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/karthiivan/sih/internal/broadcast"
	"github.com/karthiivan/sih/internal/observability"
	"github.com/karthiivan/sih/internal/sim"
	"github.com/karthiivan/sih/internal/store"
	"github.com/karthiivan/sih/internal/telemetry"
)

var testRegions = []telemetry.Region{
	{ID: "chn-central", Name: "Chennai Central"},
	{ID: "blr-north", Name: "Bengaluru North"},
}

func seedReading(ts time.Time) telemetry.Reading {
	return telemetry.Reading{
		Timestamp:    ts,
		WaterLevel:   10.0,
		Temperature:  20.0,
		Conductivity: 900.0,
	}
}

func TestNewRequiresSeedData(t *testing.T) {
	st := store.NewSeriesStore(2000)
	st.Initialize("chn-central", []telemetry.Reading{seedReading(time.Now().UTC())})
	// blr-north is never initialized.

	metrics := observability.NewMetricsForTesting()
	b := broadcast.New(st, "chn-central", zerolog.Nop(), metrics)

	_, err := sim.New(st, b, testRegions, rand.New(rand.NewSource(1)),
		clockwork.NewRealClock(), zerolog.Nop(), metrics)
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrUnknownRegion)
}

func TestTickAppendsAndPublishes(t *testing.T) {
	seedTime := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	clock := clockwork.NewFakeClockAt(seedTime.Add(time.Hour))

	st := store.NewSeriesStore(2000)
	for _, r := range testRegions {
		st.Initialize(r.ID, []telemetry.Reading{seedReading(seedTime)})
	}

	metrics := observability.NewMetricsForTesting()
	b := broadcast.New(st, "chn-central", zerolog.Nop(), metrics)
	sub := b.Subscribe()
	defer b.Unsubscribe(sub)

	driver, err := sim.New(st, b, testRegions, rand.New(rand.NewSource(7)),
		clock, zerolog.Nop(), metrics)
	require.NoError(t, err)

	driver.Tick()

	// Every region grew by one reading, stamped with the tick time.
	for _, r := range testRegions {
		n, err := st.Len(r.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		latest, err := st.Latest(r.ID)
		require.NoError(t, err)
		assert.True(t, latest.Timestamp.Equal(seedTime.Add(time.Hour)))

		// Random-walk steps stay within the per-channel bounds
		// (plus rounding slack).
		assert.LessOrEqual(t, math.Abs(latest.WaterLevel-10.0), sim.DeltaWaterLevel+0.005)
		assert.LessOrEqual(t, math.Abs(latest.Temperature-20.0), sim.DeltaTemperature+0.05)
		assert.LessOrEqual(t, math.Abs(latest.Conductivity-900.0), sim.DeltaConductivity+0.005)
	}

	// The subscriber saw one update per region, append order preserved.
	seen := make(map[string]int)
	for i := 0; i < len(testRegions); i++ {
		select {
		case update := <-sub.Updates():
			seen[update.Region]++
		case <-time.After(time.Second):
			t.Fatal("missing published update")
		}
	}
	for _, r := range testRegions {
		assert.Equal(t, 1, seen[r.ID])
	}
}

func TestTickExtendsWalkFromPreviousReading(t *testing.T) {
	seedTime := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	clock := clockwork.NewFakeClockAt(seedTime)

	st := store.NewSeriesStore(2000)
	st.Initialize("chn-central", []telemetry.Reading{seedReading(seedTime)})

	metrics := observability.NewMetricsForTesting()
	b := broadcast.New(st, "chn-central", zerolog.Nop(), metrics)

	regions := testRegions[:1]
	driver, err := sim.New(st, b, regions, rand.New(rand.NewSource(3)),
		clock, zerolog.Nop(), metrics)
	require.NoError(t, err)

	prev := 10.0
	for i := 0; i < 20; i++ {
		clock.Advance(10 * time.Second)
		driver.Tick()

		latest, err := st.Latest("chn-central")
		require.NoError(t, err)
		assert.LessOrEqual(t, math.Abs(latest.WaterLevel-prev), sim.DeltaWaterLevel+0.005,
			"each step must perturb the previous reading, not the seed")
		prev = latest.WaterLevel
	}

	n, err := st.Len("chn-central")
	require.NoError(t, err)
	assert.Equal(t, 21, n)
}
