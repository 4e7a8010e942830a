package player

import (
	"sync"
	"time"
)

// Mock is a test double for Engine. Failures are scripted per path.
// All methods are safe for concurrent use so tests can inspect the mock
// while a coordinator drives it.
type Mock struct {
	mu sync.Mutex

	loaded   string
	playing  bool
	elapsed  time.Duration
	duration time.Duration
	volume   float64
	finished bool
	err      error

	loadErrs   map[string]error
	startErrs  map[string]error
	streamErrs map[string]error
	durations  map[string]time.Duration

	initCalls int
	loads     []string
	starts    []string
	stops     int
}

// NewMock creates a new mock engine for testing.
func NewMock() *Mock {
	return &Mock{
		volume:     1,
		loadErrs:   make(map[string]error),
		startErrs:  make(map[string]error),
		streamErrs: make(map[string]error),
		durations:  make(map[string]time.Duration),
	}
}

func (m *Mock) EnsureInitialized() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.initCalls++
	return nil
}

func (m *Mock) Load(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loads = append(m.loads, path)
	m.release()
	if err := m.loadErrs[path]; err != nil {
		return err
	}
	m.loaded = path
	m.duration = m.durations[path]
	return nil
}

func (m *Mock) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loaded == "" {
		return ErrNotLoaded
	}
	m.starts = append(m.starts, m.loaded)
	if err := m.startErrs[m.loaded]; err != nil {
		return err
	}
	m.playing = true
	if err := m.streamErrs[m.loaded]; err != nil {
		m.err = err
	}
	return nil
}

func (m *Mock) Pause() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.playing = false
}

func (m *Mock) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stops++
	m.release()
}

func (m *Mock) release() {
	m.loaded = ""
	m.playing = false
	m.elapsed = 0
	m.duration = 0
	m.finished = false
	m.err = nil
}

func (m *Mock) SetVolume(level float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.volume = ClampVolume(level)
}

func (m *Mock) Elapsed() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.elapsed
}

func (m *Mock) Duration() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.duration
}

func (m *Mock) HasFinished() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.finished
}

func (m *Mock) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

func (m *Mock) Close() error {
	m.Stop()
	return nil
}

// Test helpers

// FailLoad makes Load(path) return err.
func (m *Mock) FailLoad(path string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loadErrs[path] = err
}

// FailStart makes Start return err while path is loaded.
func (m *Mock) FailStart(path string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.startErrs[path] = err
}

// FailStream makes Err report err once path has started.
func (m *Mock) FailStream(path string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.streamErrs[path] = err
}

// SetDuration sets the duration reported after Load(path).
func (m *Mock) SetDuration(path string, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.durations[path] = d
}

// SetElapsed sets the reported playback position.
func (m *Mock) SetElapsed(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.elapsed = d
}

// Finish simulates the loaded track reaching its end.
func (m *Mock) Finish() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loaded != "" {
		m.finished = true
		m.playing = false
	}
}

// Loaded returns the loaded path, or "".
func (m *Mock) Loaded() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loaded
}

// Playing reports whether the loaded track is started and not paused.
func (m *Mock) Playing() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.playing
}

// Volume returns the last level set.
func (m *Mock) Volume() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.volume
}

// Loads returns every path passed to Load, in order.
func (m *Mock) Loads() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.loads...)
}

// Starts returns the path loaded at each successful or failed Start.
func (m *Mock) Starts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.starts...)
}

// InitCalls returns how many times EnsureInitialized was called.
func (m *Mock) InitCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.initCalls
}
