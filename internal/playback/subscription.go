package playback

import "sync/atomic"

// DefaultSubscriberBuffer is the default per-subscriber queue size.
const DefaultSubscriberBuffer = 64

// Subscription is one observer's bounded event queue.
//
// Events are delivered in emission order. When the subscriber falls behind
// and its queue is full, the oldest queued event is dropped to make room and
// the subscription is marked degraded. The next publication after a drop
// discards whatever is still queued and is preceded by a ResyncSnapshot.
// The first event is always a ResyncSnapshot.
type Subscription struct {
	name string
	ch   chan Event

	degraded atomic.Bool
	dropped  atomic.Uint64
	closed   bool // guarded by the hub mutex
	stale    bool // guarded by the hub mutex; set when an event was dropped
}

func newSubscription(name string, size int) *Subscription {
	if size <= 0 {
		size = DefaultSubscriberBuffer
	}
	return &Subscription{
		name: name,
		ch:   make(chan Event, size),
	}
}

// Name returns the name given at Subscribe.
func (s *Subscription) Name() string { return s.name }

// Events returns the event channel. It is closed by Unsubscribe or when
// the hub shuts down.
func (s *Subscription) Events() <-chan Event { return s.ch }

// Degraded reports whether events were ever dropped for this subscriber.
func (s *Subscription) Degraded() bool { return s.degraded.Load() }

// Dropped returns the number of events dropped for this subscriber.
func (s *Subscription) Dropped() uint64 { return s.dropped.Load() }

// offer enqueues ev without blocking, dropping the oldest queued event if
// the queue is full. Reports whether an event was dropped.
// Must be called with the hub mutex held.
func (s *Subscription) offer(ev Event) bool {
	select {
	case s.ch <- ev:
		return false
	default:
	}

	dropped := false
	select {
	case <-s.ch:
		dropped = true
	default:
		// The subscriber drained the queue in the meantime.
	}
	select {
	case s.ch <- ev:
	default:
		// Unreachable while the hub is the only sender.
		dropped = true
	}
	if dropped {
		s.dropped.Add(1)
		s.degraded.Store(true)
	}
	return dropped
}

// resync discards the queued events and enqueues a ResyncSnapshot of
// snap. Must be called with the hub mutex held.
func (s *Subscription) resync(snap Snapshot) {
	for drained := false; !drained; {
		select {
		case <-s.ch:
			s.dropped.Add(1)
		default:
			drained = true
		}
	}
	s.offer(newResync(snap))
	s.stale = false
}

// close closes the event channel. Must be called with the hub mutex held.
func (s *Subscription) close() {
	if s.closed {
		return
	}
	s.closed = true
	close(s.ch)
}
