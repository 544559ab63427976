package store

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/karthiivan/sih/internal/telemetry"
)

var (
	// ErrUnknownRegion is returned when a region was never initialized.
	ErrUnknownRegion = errors.New("unknown region")

	// ErrNoData is returned when a region's series is empty.
	ErrNoData = errors.New("no data available for region")

	// ErrInvalidRange is returned for malformed offset/limit values.
	ErrInvalidRange = errors.New("offset and limit must be non-negative")
)

// MaxRangeLimit is the hard ceiling on readings returned by a single
// Range call regardless of the requested limit.
const MaxRangeLimit = 5000

// regionSeries is one region's bounded, append-only reading sequence.
// Each region locks independently so appends to different regions
// never contend.
type regionSeries struct {
	mu       sync.RWMutex
	readings []telemetry.Reading
}

// SeriesStore is a concurrency-safe in-memory store of per-region
// telemetry series. The region set is fixed after initialization;
// series grow by append and are trimmed from the front once they
// exceed maxLen.
type SeriesStore struct {
	mu     sync.RWMutex // guards the region map, not the series
	series map[string]*regionSeries

	maxLen int
}

// NewSeriesStore creates a SeriesStore retaining at most maxLen
// readings per region. maxLen <= 0 is treated as unlimited.
func NewSeriesStore(maxLen int) *SeriesStore {
	return &SeriesStore{
		series: make(map[string]*regionSeries),
		maxLen: maxLen,
	}
}

// Initialize sets the initial series for a region. Called once per
// region at startup, before any readers or writers run.
func (s *SeriesStore) Initialize(regionID string, seed []telemetry.Reading) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rs := &regionSeries{readings: make([]telemetry.Reading, len(seed))}
	copy(rs.readings, seed)
	s.trimLocked(rs)
	s.series[regionID] = rs
}

// Regions returns the IDs of all initialized regions, sorted.
func (s *SeriesStore) Regions() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.series))
	for id := range s.series {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Append adds one reading to the end of a region's series, evicting
// from the front to keep the series within the retention limit.
func (s *SeriesStore) Append(regionID string, r telemetry.Reading) error {
	rs, err := s.lookup(regionID)
	if err != nil {
		return err
	}

	rs.mu.Lock()
	defer rs.mu.Unlock()

	rs.readings = append(rs.readings, r)
	s.trimLocked(rs)
	return nil
}

// Latest returns the most recent reading for a region.
func (s *SeriesStore) Latest(regionID string) (telemetry.Reading, error) {
	rs, err := s.lookup(regionID)
	if err != nil {
		return telemetry.Reading{}, err
	}

	rs.mu.RLock()
	defer rs.mu.RUnlock()

	if len(rs.readings) == 0 {
		return telemetry.Reading{}, ErrNoData
	}
	return rs.readings[len(rs.readings)-1], nil
}

// Len reports the current series length for a region.
func (s *SeriesStore) Len(regionID string) (int, error) {
	rs, err := s.lookup(regionID)
	if err != nil {
		return 0, err
	}

	rs.mu.RLock()
	defer rs.mu.RUnlock()
	return len(rs.readings), nil
}

// Range returns readings with timestamp in [start, end] (inclusive,
// each bound optional), skipping the first offset matches, capped at
// limit. Timestamps are non-decreasing within a series, so the window
// is located by binary search and only the returned window is copied.
func (s *SeriesStore) Range(regionID string, start, end *time.Time, offset, limit int) ([]telemetry.Reading, error) {
	if offset < 0 || limit < 0 {
		return nil, ErrInvalidRange
	}
	if limit > MaxRangeLimit {
		limit = MaxRangeLimit
	}

	rs, err := s.lookup(regionID)
	if err != nil {
		return nil, err
	}

	rs.mu.RLock()
	defer rs.mu.RUnlock()

	lo := 0
	hi := len(rs.readings)
	if start != nil {
		lo = sort.Search(hi, func(i int) bool {
			return !rs.readings[i].Timestamp.Before(*start)
		})
	}
	if end != nil {
		hi = sort.Search(hi, func(i int) bool {
			return rs.readings[i].Timestamp.After(*end)
		})
	}

	// Guard with a subtraction so a huge offset cannot overflow lo.
	if offset >= hi-lo {
		return []telemetry.Reading{}, nil
	}
	lo += offset
	if hi-lo > limit {
		hi = lo + limit
	}

	out := make([]telemetry.Reading, hi-lo)
	copy(out, rs.readings[lo:hi])
	return out, nil
}

func (s *SeriesStore) lookup(regionID string) (*regionSeries, error) {
	s.mu.RLock()
	rs, ok := s.series[regionID]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrUnknownRegion
	}
	return rs, nil
}

// trimLocked enforces the retention cap. Caller must hold the series
// write lock (or exclusive ownership during Initialize).
func (s *SeriesStore) trimLocked(rs *regionSeries) {
	if s.maxLen > 0 && len(rs.readings) > s.maxLen {
		over := len(rs.readings) - s.maxLen
		rs.readings = append(rs.readings[:0], rs.readings[over:]...)
	}
}
