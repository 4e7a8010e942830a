package playback

import (
	"errors"

	"github.com/llehouerou/wavesd/internal/catalog"
)

var (
	// ErrEmptyPlaylist is returned by Play when there is nothing to play.
	ErrEmptyPlaylist = errors.New("playlist is empty")
	// ErrInvalidIndex is returned for an out-of-range playlist index.
	ErrInvalidIndex = errors.New("invalid playlist index")
	// ErrDuplicateTrack is returned when adding a path already in the playlist.
	ErrDuplicateTrack = errors.New("track already in playlist")
	// ErrTrackNotFound is returned when adding a missing or unreadable file.
	ErrTrackNotFound = catalog.ErrNotFound
	// ErrAllTracksFailed is returned by Play when no track can be started.
	ErrAllTracksFailed = errors.New("all tracks failed")
	// ErrClosed is returned for commands submitted after Shutdown.
	ErrClosed = errors.New("coordinator closed")
	// ErrUnknownCommand is returned for a command with an unknown Op.
	ErrUnknownCommand = errors.New("unknown command")
)

// ErrorKind classifies a PlaybackError event.
type ErrorKind string

const (
	KindEmptyPlaylist      ErrorKind = "empty_playlist"
	KindTrackLoadFailure   ErrorKind = "track_load_failure"
	KindTrackDecodeFailure ErrorKind = "track_decode_failure"
	KindPlaylistCorrupt    ErrorKind = "playlist_corrupt"
	KindAllTracksFailed    ErrorKind = "all_tracks_failed"
	KindSubscriberDegraded ErrorKind = "subscriber_degraded"
)

// DefaultMaxFailures is the default number of consecutive failures after
// which a track is no longer selected automatically.
const DefaultMaxFailures = 3

// ErrorPolicy decides when a failing track is given up on.
type ErrorPolicy struct {
	MaxFailures int
}

// Exhausted reports whether a track with the given failure count must be
// skipped.
func (p ErrorPolicy) Exhausted(failures int) bool {
	return failures >= p.maxFailures()
}

func (p ErrorPolicy) maxFailures() int {
	if p.MaxFailures <= 0 {
		return DefaultMaxFailures
	}
	return p.MaxFailures
}
