package broadcast

import (
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/karthiivan/sih/internal/observability"
	"github.com/karthiivan/sih/internal/store"
	"github.com/karthiivan/sih/internal/telemetry"
)

// Subscriber is one live delivery channel to a connected client. The
// transport (a websocket writer loop) consumes Updates until the
// channel is closed by Unsubscribe.
type Subscriber struct {
	ID string
	ch chan telemetry.Update
}

// Updates is the stream of readings delivered to this subscriber.
// The channel is closed when the subscriber is removed.
func (s *Subscriber) Updates() <-chan telemetry.Update {
	return s.ch
}

// Broadcaster fans new readings out to all registered subscribers.
// Delivery is non-blocking: a subscriber whose buffer is full is
// dropped rather than allowed to stall the others.
type Broadcaster struct {
	mu   sync.Mutex
	subs map[string]*Subscriber

	store         *store.SeriesStore
	defaultRegion string
	bufSize       int

	log     zerolog.Logger
	metrics *observability.Metrics
}

// New creates a Broadcaster. New subscribers receive one immediate
// snapshot of defaultRegion's latest reading when one exists.
func New(st *store.SeriesStore, defaultRegion string, log zerolog.Logger, metrics *observability.Metrics) *Broadcaster {
	return &Broadcaster{
		subs:          make(map[string]*Subscriber),
		store:         st,
		defaultRegion: defaultRegion,
		bufSize:       16,
		log:           log,
		metrics:       metrics,
	}
}

// Subscribe registers a new delivery channel and, best-effort, seeds
// it with the default region's latest reading.
func (b *Broadcaster) Subscribe() *Subscriber {
	sub := &Subscriber{
		ID: uuid.NewString(),
		ch: make(chan telemetry.Update, b.bufSize),
	}

	b.mu.Lock()
	b.subs[sub.ID] = sub

	// Snapshot delivery must not block or fail the subscription.
	if latest, err := b.store.Latest(b.defaultRegion); err == nil {
		select {
		case sub.ch <- telemetry.Update{Reading: latest, Region: b.defaultRegion}:
		default:
		}
	}
	b.mu.Unlock()

	b.metrics.SubscribersActive.Inc()
	b.log.Debug().Str("subscriber", sub.ID).Msg("client subscribed")
	return sub
}

// Unsubscribe removes a subscriber and closes its channel. Removing
// a subscriber twice is a no-op.
func (b *Broadcaster) Unsubscribe(sub *Subscriber) {
	if sub == nil {
		return
	}

	b.mu.Lock()
	_, ok := b.subs[sub.ID]
	if ok {
		delete(b.subs, sub.ID)
		close(sub.ch)
	}
	b.mu.Unlock()

	if ok {
		b.metrics.SubscribersActive.Dec()
		b.log.Debug().Str("subscriber", sub.ID).Msg("client unsubscribed")
	}
}

// Publish delivers a reading, tagged with its region, to every
// registered subscriber. Subscribers that cannot keep up are removed;
// their failure is never propagated to the caller or to other
// subscribers. Sends happen under the hub lock in call order, so each
// subscriber observes a region's readings in append order.
func (b *Broadcaster) Publish(regionID string, r telemetry.Reading) {
	update := telemetry.Update{Reading: r, Region: regionID}

	var dropped []*Subscriber

	b.mu.Lock()
	for _, sub := range b.subs {
		select {
		case sub.ch <- update:
		default:
			delete(b.subs, sub.ID)
			close(sub.ch)
			dropped = append(dropped, sub)
		}
	}
	b.mu.Unlock()

	b.metrics.UpdatesPublished.Inc()
	for _, sub := range dropped {
		b.metrics.SubscribersActive.Dec()
		b.metrics.SubscribersDropped.Inc()
		b.log.Warn().Str("subscriber", sub.ID).Str("region", regionID).
			Msg("dropping slow subscriber")
	}
}

// SubscriberCount reports the number of registered subscribers.
func (b *Broadcaster) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
