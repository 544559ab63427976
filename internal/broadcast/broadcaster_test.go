package broadcast_test

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/karthiivan/sih/internal/broadcast"
	"github.com/karthiivan/sih/internal/observability"
	"github.com/karthiivan/sih/internal/store"
	"github.com/karthiivan/sih/internal/telemetry"
)

func newBroadcaster(t *testing.T, seed []telemetry.Reading) *broadcast.Broadcaster {
	t.Helper()

	st := store.NewSeriesStore(2000)
	st.Initialize("chn-central", seed)
	return broadcast.New(st, "chn-central", zerolog.Nop(), observability.NewMetricsForTesting())
}

func reading(i int) telemetry.Reading {
	return telemetry.Reading{
		Timestamp:  time.Date(2026, 1, 1, i, 0, 0, 0, time.UTC),
		WaterLevel: 10 + float64(i),
	}
}

func TestSubscribeDeliversSnapshot(t *testing.T) {
	b := newBroadcaster(t, []telemetry.Reading{reading(0), reading(1)})

	sub := b.Subscribe()
	defer b.Unsubscribe(sub)

	select {
	case update := <-sub.Updates():
		assert.Equal(t, "chn-central", update.Region)
		assert.Equal(t, reading(1), update.Reading)
	case <-time.After(time.Second):
		t.Fatal("expected an immediate snapshot")
	}
}

func TestSubscribeWithoutDataStillSucceeds(t *testing.T) {
	b := newBroadcaster(t, nil)

	sub := b.Subscribe()
	defer b.Unsubscribe(sub)

	select {
	case update := <-sub.Updates():
		t.Fatalf("unexpected update: %+v", update)
	default:
	}
	assert.Equal(t, 1, b.SubscriberCount())
}

func TestPublishFanOutPreservesOrder(t *testing.T) {
	b := newBroadcaster(t, nil)

	first := b.Subscribe()
	second := b.Subscribe()
	defer b.Unsubscribe(first)
	defer b.Unsubscribe(second)

	for i := 0; i < 5; i++ {
		b.Publish("chn-central", reading(i))
	}

	for _, sub := range []*broadcast.Subscriber{first, second} {
		for i := 0; i < 5; i++ {
			select {
			case update := <-sub.Updates():
				assert.Equal(t, reading(i), update.Reading, "delivery order must match append order")
			case <-time.After(time.Second):
				t.Fatal("missing update")
			}
		}
	}
}

func TestUnsubscribeIsIdempotent(t *testing.T) {
	b := newBroadcaster(t, nil)

	sub := b.Subscribe()
	b.Unsubscribe(sub)
	b.Unsubscribe(sub) // second removal is a no-op
	b.Unsubscribe(nil)

	assert.Equal(t, 0, b.SubscriberCount())

	// Channel is closed exactly once.
	_, open := <-sub.Updates()
	assert.False(t, open)
}

func TestSlowSubscriberIsDroppedWithoutBlockingOthers(t *testing.T) {
	b := newBroadcaster(t, nil)

	slow := b.Subscribe() // never drained
	healthy := b.Subscribe()

	// Overflow the slow subscriber's buffer.
	for i := 0; i < 40; i++ {
		b.Publish("chn-central", reading(i%24))

		// Keep the healthy subscriber drained so only the stalled one overflows.
		select {
		case <-healthy.Updates():
		case <-time.After(time.Second):
			t.Fatal("healthy subscriber starved")
		}
	}

	require.Equal(t, 1, b.SubscriberCount())

	// The slow subscriber's channel was closed on removal.
	drained := 0
	for range slow.Updates() {
		drained++
	}
	assert.Greater(t, drained, 0)
}

func TestDisconnectedSubscriberReceivesNothingFurther(t *testing.T) {
	b := newBroadcaster(t, nil)

	sub := b.Subscribe()
	b.Unsubscribe(sub)

	b.Publish("chn-central", reading(1))

	_, open := <-sub.Updates()
	assert.False(t, open, "closed channel must not receive post-disconnect readings")
}
