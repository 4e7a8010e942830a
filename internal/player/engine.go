// Package player adapts an audio backend to the small set of operations the
// playback coordinator needs.
package player

import (
	"errors"
	"time"
)

var (
	// ErrNotLoaded is returned by Start when no track is loaded.
	ErrNotLoaded = errors.New("no track loaded")
	// ErrUnsupportedFormat is returned by Load for files the engine cannot decode.
	ErrUnsupportedFormat = errors.New("unsupported format")
)

// Engine is the audio engine contract.
//
// An Engine is driven by a single goroutine. HasFinished and Err may become
// true/non-nil asynchronously while a track plays; callers poll them.
type Engine interface {
	// EnsureInitialized prepares the output device. Safe to call repeatedly.
	EnsureInitialized() error
	// Load opens and decodes path, replacing any loaded track. Playback
	// does not start until Start.
	Load(path string) error
	// Start begins or resumes playback of the loaded track.
	Start() error
	Pause()
	// Stop halts playback and releases the loaded track.
	Stop()
	// SetVolume sets the output level, clamped to [0,1].
	SetVolume(level float64)
	Elapsed() time.Duration
	Duration() time.Duration
	// HasFinished reports whether the loaded track played to its end.
	HasFinished() bool
	// Err returns a decode error raised while streaming, if any.
	Err() error
	Close() error
}

// Verify implementations at compile time.
var (
	_ Engine = (*Player)(nil)
	_ Engine = (*Mock)(nil)
)
