package player

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/rs/zerolog"
)

// Output sample rate. Tracks at other rates are resampled.
const outputSampleRate = beep.SampleRate(44100)

// The speaker is process-global, so its initialization is too.
var (
	speakerMu          sync.Mutex
	speakerInitialized bool
)

// Player is the beep-backed Engine.
type Player struct {
	logger zerolog.Logger

	file     *os.File
	streamer beep.StreamSeekCloser
	format   beep.Format
	ctrl     *beep.Ctrl
	volume   *effects.Volume
	playing  bool // handed to the speaker

	volumeLevel float64
	finished    atomic.Bool
}

// New creates a player. The output device is opened lazily by
// EnsureInitialized.
func New(logger zerolog.Logger) *Player {
	return &Player{
		logger:      logger.With().Str("component", "player").Logger(),
		volumeLevel: 1,
	}
}

// EnsureInitialized opens the speaker once per process.
func (p *Player) EnsureInitialized() error {
	speakerMu.Lock()
	defer speakerMu.Unlock()
	if speakerInitialized {
		return nil
	}
	if err := speaker.Init(outputSampleRate, outputSampleRate.N(time.Second/10)); err != nil {
		return fmt.Errorf("init speaker: %w", err)
	}
	speakerInitialized = true
	p.logger.Debug().Int("sample_rate", int(outputSampleRate)).Msg("speaker initialized")
	return nil
}

// Load opens and decodes path. Any previously loaded track is released.
func (p *Player) Load(path string) error {
	p.Stop()

	streamer, format, f, err := openStream(path)
	if err != nil {
		return err
	}

	p.file = f
	p.streamer = streamer
	p.format = format
	p.finished.Store(false)

	var s beep.Streamer = streamer
	if format.SampleRate != outputSampleRate {
		s = beep.Resample(4, format.SampleRate, outputSampleRate, streamer)
	}
	p.ctrl = &beep.Ctrl{Streamer: s, Paused: true}
	p.volume = &effects.Volume{Streamer: p.ctrl, Base: 2}
	p.applyVolume()

	p.logger.Debug().Str("path", path).Dur("duration", p.Duration()).Msg("track loaded")
	return nil
}

// Start plays the loaded track from its current position.
func (p *Player) Start() error {
	if p.ctrl == nil {
		return ErrNotLoaded
	}
	if err := p.EnsureInitialized(); err != nil {
		return err
	}
	if !p.playing {
		p.playing = true
		speaker.Play(beep.Seq(p.volume, beep.Callback(func() {
			p.finished.Store(true)
		})))
	}
	speaker.Lock()
	p.ctrl.Paused = false
	speaker.Unlock()
	return nil
}

// Pause pauses playback, keeping the position.
func (p *Player) Pause() {
	if p.ctrl == nil || !p.playing {
		return
	}
	speaker.Lock()
	p.ctrl.Paused = true
	speaker.Unlock()
}

// Stop stops playback and releases the loaded track.
func (p *Player) Stop() {
	if p.playing {
		speaker.Clear()
		p.playing = false
	}
	if p.streamer != nil {
		p.streamer.Close()
		p.streamer = nil
	}
	if p.file != nil {
		p.file.Close()
		p.file = nil
	}
	p.ctrl = nil
	p.volume = nil
	p.finished.Store(false)
}

// Elapsed returns the playback position of the loaded track.
func (p *Player) Elapsed() time.Duration {
	if p.streamer == nil {
		return 0
	}
	if !p.playing {
		return p.format.SampleRate.D(p.streamer.Position())
	}
	speaker.Lock()
	pos := p.streamer.Position()
	speaker.Unlock()
	return p.format.SampleRate.D(pos)
}

// Duration returns the length of the loaded track, or 0.
func (p *Player) Duration() time.Duration {
	if p.streamer == nil {
		return 0
	}
	return p.format.SampleRate.D(p.streamer.Len())
}

// HasFinished reports whether the speaker drained the loaded track.
func (p *Player) HasFinished() bool {
	return p.finished.Load()
}

// Err returns the decoder error of the loaded track, if any.
func (p *Player) Err() error {
	if p.streamer == nil {
		return nil
	}
	if !p.playing {
		return p.streamer.Err()
	}
	speaker.Lock()
	err := p.streamer.Err()
	speaker.Unlock()
	return err
}

// Close releases the loaded track. The speaker stays open for the process.
func (p *Player) Close() error {
	p.Stop()
	return nil
}
