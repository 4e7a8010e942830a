package state

import (
	"errors"
	"slices"
	"sync"
	"time"
)

// Mock is an in-memory Sink and ScrobbleQueue for tests.
type Mock struct {
	mu      sync.Mutex
	volumes []float64
	plays   []Play
	pending []PendingScrobble
	nextID  int64
	failErr error
}

// NewMock creates a new mock store for testing.
func NewMock() *Mock {
	return &Mock{}
}

func (m *Mock) SaveVolume(level float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return m.failErr
	}
	m.volumes = append(m.volumes, level)
	return nil
}

func (m *Mock) AddPlay(p Play) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return m.failErr
	}
	m.plays = append(m.plays, p)
	return nil
}

func (m *Mock) QueueScrobble(s PendingScrobble) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return m.failErr
	}
	m.nextID++
	s.ID = m.nextID
	m.pending = append(m.pending, s)
	return nil
}

func (m *Mock) PendingScrobbles() ([]PendingScrobble, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.pending), nil
}

func (m *Mock) ScrobbleSent(id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending = slices.DeleteFunc(m.pending, func(s PendingScrobble) bool { return s.ID == id })
	return nil
}

func (m *Mock) ScrobbleFailed(id int64, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.pending {
		if m.pending[i].ID == id {
			m.pending[i].Attempts++
			m.pending[i].LastError = reason
			return nil
		}
	}
	return errors.New("no such scrobble")
}

func (m *Mock) PruneScrobbles(cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := len(m.pending)
	m.pending = slices.DeleteFunc(m.pending, func(s PendingScrobble) bool { return s.PlayedAt.Before(cutoff) })
	return int64(n - len(m.pending)), nil
}

// Test helpers

// Fail makes every write return err; nil restores normal behavior.
func (m *Mock) Fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failErr = err
}

func (m *Mock) Volumes() []float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.volumes)
}

func (m *Mock) Plays() []Play {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.plays)
}

// Verify Mock implements the interfaces at compile time.
var (
	_ Sink          = (*Mock)(nil)
	_ ScrobbleQueue = (*Mock)(nil)
)
