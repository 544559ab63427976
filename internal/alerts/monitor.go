package alerts

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/karthiivan/sih/internal/observability"
	"github.com/karthiivan/sih/internal/store"
)

// ErrInvalidRegion is returned when a threshold write names no region.
var ErrInvalidRegion = errors.New("regionId is required")

// DefaultCooldown is the minimum gap between two successful
// notifications for the same region.
const DefaultCooldown = 60 * time.Minute

const notifySubject = "SOS Flood Warning"

// Config is the per-region alert configuration. Threshold and Email
// are set independently; a write that omits one leaves the stored
// value untouched. LastNotified is advanced only by a successful
// dispatch.
type Config struct {
	Threshold    *float64   `json:"threshold"`
	Email        *string    `json:"email"`
	LastNotified *time.Time `json:"last_notified_ts"`
}

func (c *Config) armed() bool {
	return c.Threshold != nil && c.Email != nil && *c.Email != ""
}

// Monitor evaluates configured thresholds against the latest readings
// and dispatches rate-limited notifications.
type Monitor struct {
	mu      sync.Mutex
	configs map[string]*Config

	store    *store.SeriesStore
	notifier Notifier
	persist  ConfigStore

	cooldown time.Duration
	dryRun   bool

	clock   clockwork.Clock
	log     zerolog.Logger
	metrics *observability.Metrics
}

// NewMonitor creates a Monitor, loading any previously persisted
// configuration. A load failure is logged and the monitor starts with
// an empty mapping.
func NewMonitor(st *store.SeriesStore, notifier Notifier, persist ConfigStore,
	cooldown time.Duration, dryRun bool, clock clockwork.Clock,
	log zerolog.Logger, metrics *observability.Metrics) *Monitor {

	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}

	configs, err := persist.Load()
	if err != nil {
		log.Warn().Err(err).Msg("could not load persisted thresholds, starting empty")
		configs = make(map[string]*Config)
	}

	return &Monitor{
		configs:  configs,
		store:    st,
		notifier: notifier,
		persist:  persist,
		cooldown: cooldown,
		dryRun:   dryRun,
		clock:    clock,
		log:      log,
		metrics:  metrics,
	}
}

// SetThreshold upserts a region's alert configuration. A nil
// threshold or email leaves the stored field unchanged. Every change
// is persisted best-effort.
func (m *Monitor) SetThreshold(regionID string, threshold *float64, email *string) (Config, error) {
	if regionID == "" {
		return Config{}, ErrInvalidRegion
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	cfg, ok := m.configs[regionID]
	if !ok {
		cfg = &Config{}
		m.configs[regionID] = cfg
	}
	if threshold != nil {
		cfg.Threshold = threshold
	}
	if email != nil {
		cfg.Email = email
	}

	m.saveLocked()
	return *cfg, nil
}

// Snapshot returns a copy of the full region→Config mapping.
func (m *Monitor) Snapshot() map[string]Config {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]Config, len(m.configs))
	for id, cfg := range m.configs {
		out[id] = *cfg
	}
	return out
}

// Tick evaluates every armed region against its latest reading and
// notifies the configured recipient when the water level meets the
// threshold and the cooldown has elapsed. LastNotified advances only
// on a successful dispatch, so a failed send is retried next tick.
// One region's failure never aborts the rest of the pass.
func (m *Monitor) Tick() {
	now := m.clock.Now().UTC()

	type candidate struct {
		regionID  string
		threshold float64
		email     string
	}

	var due []candidate

	m.mu.Lock()
	for id, cfg := range m.configs {
		if !cfg.armed() {
			continue
		}
		if cfg.LastNotified != nil && now.Sub(*cfg.LastNotified) <= m.cooldown {
			continue
		}
		due = append(due, candidate{regionID: id, threshold: *cfg.Threshold, email: *cfg.Email})
	}
	m.mu.Unlock()

	for _, c := range due {
		latest, err := m.store.Latest(c.regionID)
		if err != nil {
			if !errors.Is(err, store.ErrNoData) {
				m.log.Warn().Err(err).Str("region", c.regionID).Msg("threshold check: latest reading unavailable")
			}
			continue
		}
		if latest.WaterLevel < c.threshold {
			continue
		}

		message := fmt.Sprintf("Threshold exceeded: WL %v m >= %v m at %s",
			latest.WaterLevel, c.threshold, latest.Timestamp.Format(time.RFC3339))

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		res, err := m.notifier.Notify(ctx, c.email, notifySubject, message, m.dryRun)
		cancel()

		switch {
		case err != nil:
			m.metrics.Notifications.WithLabelValues("email", "error").Inc()
			m.log.Error().Err(err).Str("region", c.regionID).Msg("threshold notification failed, will retry next tick")
			continue
		case !res.Sent:
			m.metrics.Notifications.WithLabelValues("email", "error").Inc()
			m.log.Warn().Str("region", c.regionID).Str("detail", res.Detail).
				Msg("threshold notification not sent, will retry next tick")
			continue
		}

		outcome := "sent"
		if res.DryRun {
			outcome = "dry_run"
		}
		m.metrics.Notifications.WithLabelValues("email", outcome).Inc()
		m.log.Info().Str("region", c.regionID).Float64("water_level", latest.WaterLevel).
			Float64("threshold", c.threshold).Bool("dry_run", res.DryRun).
			Msg("threshold notification dispatched")

		m.markNotified(c.regionID, now)
	}

	m.metrics.MonitorTicks.Inc()
}

// markNotified records a successful dispatch. The re-read under the
// lock keeps the update atomic with respect to concurrent
// SetThreshold calls on the same region.
func (m *Monitor) markNotified(regionID string, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cfg, ok := m.configs[regionID]
	if !ok {
		return
	}
	cfg.LastNotified = &at
	m.saveLocked()
}

func (m *Monitor) saveLocked() {
	if err := m.persist.Save(m.configs); err != nil {
		m.log.Warn().Err(err).Msg("could not persist thresholds, in-memory state remains authoritative")
	}
}
