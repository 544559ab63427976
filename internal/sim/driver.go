package sim

import (
	"fmt"
	"math/rand"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/karthiivan/sih/internal/broadcast"
	"github.com/karthiivan/sih/internal/observability"
	"github.com/karthiivan/sih/internal/store"
	"github.com/karthiivan/sih/internal/telemetry"
)

// Per-channel random-walk step bounds.
const (
	DeltaWaterLevel   = 0.1 // meters
	DeltaTemperature  = 0.3 // °C
	DeltaConductivity = 8.0 // µS/cm
)

// Driver emulates a live sensor feed: each tick it perturbs every
// region's latest reading by a bounded random step, appends the
// result to the store, and hands it to the broadcaster.
type Driver struct {
	store       *store.SeriesStore
	broadcaster *broadcast.Broadcaster
	regions     []telemetry.Region

	mu  sync.Mutex // guards rng; ticks are serialized but publishes may race in tests
	rng *rand.Rand

	clock   clockwork.Clock
	log     zerolog.Logger
	metrics *observability.Metrics
}

// New creates a Driver. Every region must already hold at least one
// reading; a missing seed is an initialization error, not something
// the driver can recover from mid-run.
func New(st *store.SeriesStore, b *broadcast.Broadcaster, regions []telemetry.Region,
	rng *rand.Rand, clock clockwork.Clock, log zerolog.Logger, metrics *observability.Metrics) (*Driver, error) {

	for _, r := range regions {
		if _, err := st.Latest(r.ID); err != nil {
			return nil, fmt.Errorf("region %s has no seed data: %w", r.ID, err)
		}
	}

	return &Driver{
		store:       st,
		broadcaster: b,
		regions:     regions,
		rng:         rng,
		clock:       clock,
		log:         log,
		metrics:     metrics,
	}, nil
}

// Tick generates one new reading per region. Generation, append and
// publish happen in that order for each region; a failing region is
// logged and skipped without aborting the rest of the pass.
func (d *Driver) Tick() {
	now := d.clock.Now().UTC()

	for _, region := range d.regions {
		latest, err := d.store.Latest(region.ID)
		if err != nil {
			d.log.Error().Err(err).Str("region", region.ID).Msg("simulation tick: latest reading unavailable")
			continue
		}

		next := d.nextReading(latest)
		next.Timestamp = now

		if err := d.store.Append(region.ID, next); err != nil {
			d.log.Error().Err(err).Str("region", region.ID).Msg("simulation tick: append failed")
			continue
		}

		d.metrics.ReadingsGenerated.WithLabelValues(region.ID).Inc()
		d.broadcaster.Publish(region.ID, next)
	}
}

func (d *Driver) nextReading(prev telemetry.Reading) telemetry.Reading {
	d.mu.Lock()
	defer d.mu.Unlock()

	return telemetry.Reading{
		WaterLevel:   telemetry.Round2(prev.WaterLevel + telemetry.Uniform(d.rng, DeltaWaterLevel)),
		Temperature:  telemetry.Round1(prev.Temperature + telemetry.Uniform(d.rng, DeltaTemperature)),
		Conductivity: telemetry.Round2(prev.Conductivity + telemetry.Uniform(d.rng, DeltaConductivity)),
	}
}
