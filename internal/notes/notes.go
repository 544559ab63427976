package notes

import (
	"encoding/json"
	"errors"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

// ErrNotFound is returned when deleting a note that does not exist.
var ErrNotFound = errors.New("note not found")

// Note is one field observation attached to a region.
type Note struct {
	ID         string    `json:"id"`
	RegionID   string    `json:"regionId"`
	Text       string    `json:"text"`
	WaterLevel *float64  `json:"water_level"`
	Timestamp  time.Time `json:"timestamp"`
}

// Store keeps field notes in memory, mirrored to a JSON file.
// Persistence is best-effort: a failed write is logged and the
// in-memory list stays authoritative.
type Store struct {
	mu    sync.Mutex
	notes []Note

	path  string
	clock clockwork.Clock
	log   zerolog.Logger
}

// NewStore creates a Store, loading any previously persisted notes.
func NewStore(path string, clock clockwork.Clock, log zerolog.Logger) *Store {
	s := &Store{path: path, clock: clock, log: log}

	raw, err := os.ReadFile(path)
	if err == nil {
		err = json.Unmarshal(raw, &s.notes)
	}
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Msg("could not load persisted notes, starting empty")
		s.notes = nil
	}
	return s
}

// List returns notes for a region, newest first. An empty regionID
// returns every note in insertion order.
func (s *Store) List(regionID string) []Note {
	s.mu.Lock()
	defer s.mu.Unlock()

	if regionID == "" {
		out := make([]Note, len(s.notes))
		copy(out, s.notes)
		return out
	}

	var out []Note
	for _, n := range s.notes {
		if n.RegionID == regionID {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out
}

// Add appends a new note and persists the list.
func (s *Store) Add(regionID, text string, waterLevel *float64) Note {
	note := Note{
		ID:         uuid.NewString(),
		RegionID:   regionID,
		Text:       text,
		WaterLevel: waterLevel,
		Timestamp:  s.clock.Now().UTC(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.notes = append(s.notes, note)
	s.saveLocked()
	return note
}

// Delete removes a note by ID.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, n := range s.notes {
		if n.ID == id {
			s.notes = append(s.notes[:i], s.notes[i+1:]...)
			s.saveLocked()
			return nil
		}
	}
	return ErrNotFound
}

func (s *Store) saveLocked() {
	raw, err := json.MarshalIndent(s.notes, "", "  ")
	if err == nil {
		err = os.WriteFile(s.path, raw, 0o644)
	}
	if err != nil {
		s.log.Warn().Err(err).Msg("could not persist notes")
	}
}
