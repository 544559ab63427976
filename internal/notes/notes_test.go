package notes_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/karthiivan/sih/internal/notes"
)

func newStore(t *testing.T) (*notes.Store, string, *clockwork.FakeClock) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "notes.json")
	clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	return notes.NewStore(path, clock, zerolog.Nop()), path, clock
}

func TestAddListDelete(t *testing.T) {
	s, _, clock := newStore(t)

	wl := 11.5
	first := s.Add("chn-central", "water rising near the bridge", &wl)
	clock.Advance(time.Minute)
	second := s.Add("chn-central", "receding now", nil)
	s.Add("blr-north", "all clear", nil)

	// Region listing is newest first.
	got := s.List("chn-central")
	require.Len(t, got, 2)
	assert.Equal(t, second.ID, got[0].ID)
	assert.Equal(t, first.ID, got[1].ID)
	require.NotNil(t, got[1].WaterLevel)
	assert.Equal(t, 11.5, *got[1].WaterLevel)

	// Empty region returns everything.
	assert.Len(t, s.List(""), 3)

	require.NoError(t, s.Delete(first.ID))
	assert.Len(t, s.List("chn-central"), 1)
	assert.ErrorIs(t, s.Delete(first.ID), notes.ErrNotFound)
}

func TestNotesPersistAcrossRestarts(t *testing.T) {
	s, path, clock := newStore(t)

	s.Add("chn-central", "persisted note", nil)

	reloaded := notes.NewStore(path, clock, zerolog.Nop())
	got := reloaded.List("chn-central")
	require.Len(t, got, 1)
	assert.Equal(t, "persisted note", got[0].Text)
}
