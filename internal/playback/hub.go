package playback

import (
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Hub fans events out to subscribers. Publish never blocks on a
// subscriber.
type Hub struct {
	mu      sync.Mutex
	subs    []*Subscription
	latest  Snapshot
	bufSize int
	closed  bool
	logger  zerolog.Logger
}

// NewHub creates a hub whose subscriptions buffer bufSize events.
func NewHub(bufSize int, logger zerolog.Logger) *Hub {
	return &Hub{
		bufSize: bufSize,
		logger:  logger.With().Str("component", "hub").Logger(),
	}
}

// Subscribe registers a new subscriber. Its first event is a
// ResyncSnapshot carrying the latest snapshot. Subscribing to a closed hub
// returns a subscription whose channel is already closed.
func (h *Hub) Subscribe(name string) *Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()

	sub := newSubscription(name, h.bufSize)
	if h.closed {
		sub.close()
		return sub
	}
	sub.offer(newResync(h.latest))
	h.subs = append(h.subs, sub)
	h.logger.Debug().Str("subscriber", name).Int("subscribers", len(h.subs)).Msg("subscribed")
	return sub
}

// Unsubscribe removes sub and closes its channel.
func (h *Hub) Unsubscribe(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if i := slices.Index(h.subs, sub); i >= 0 {
		h.subs = slices.Delete(h.subs, i, i+1)
	}
	sub.close()
}

// Publish records snap as the latest snapshot and delivers ev to every
// subscriber. A subscriber that lost events since the previous publication
// first receives a ResyncSnapshot of the state ev applies to.
func (h *Hub) Publish(ev Event, snap Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	prev := h.latest
	h.latest = snap
	for _, sub := range h.subs {
		if sub.stale {
			sub.resync(prev)
		}
		wasDegraded := sub.Degraded()
		if sub.offer(ev) {
			sub.stale = true
			if !wasDegraded {
				h.logger.Debug().
					Str("subscriber", sub.name).
					Str("kind", string(KindSubscriberDegraded)).
					Msg("subscriber queue full, dropping oldest events")
			}
		}
	}
}

// Latest returns the snapshot of the most recent event.
func (h *Hub) Latest() Snapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.latest
}

// Len returns the number of subscribers.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close closes every subscription. Later publications are ignored.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for _, sub := range h.subs {
		sub.close()
	}
	h.subs = nil
}

func newResync(snap Snapshot) *ResyncSnapshot {
	ev := &ResyncSnapshot{Snapshot: snap}
	ev.setMeta(Header{Seq: snap.Seq, At: time.Now()})
	return ev
}

// setLatest replaces the latest snapshot without publishing an event.
func (h *Hub) setLatest(snap Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.latest = snap
}
