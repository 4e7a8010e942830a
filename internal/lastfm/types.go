package lastfm

import (
	"time"

	"github.com/llehouerou/wavesd/internal/playlist"
)

// Scrobble thresholds from the Last.fm submission rules.
const (
	MinTrackLength   = 30 * time.Second
	MaxScrobbleDelay = 4 * time.Minute
)

// ScrobbleTrack contains track metadata for scrobbling.
type ScrobbleTrack struct {
	Artist    string
	Track     string
	Album     string
	Duration  time.Duration
	Timestamp time.Time // When playback started
}

// trackFor builds the scrobble metadata of t. ok is false when t lacks the
// artist or title Last.fm requires.
func trackFor(t playlist.Track, startedAt time.Time) (ScrobbleTrack, bool) {
	if t.Artist == "" || t.Title == "" {
		return ScrobbleTrack{}, false
	}
	return ScrobbleTrack{
		Artist:    t.Artist,
		Track:     t.Title,
		Album:     t.Album,
		Duration:  t.Duration,
		Timestamp: startedAt,
	}, true
}

// ScrobbleState tracks the scrobbling status of the current track.
type ScrobbleState struct {
	TrackPath      string    // Path of current track (for dedup)
	StartedAt      time.Time // When playback started
	Scrobbled      bool      // Whether this track has been scrobbled
	NowPlayingSent bool      // Whether now playing was sent
}

// ShouldScrobble reports whether a track of the given duration has been
// played long enough to be scrobbled: at least half of it or four minutes,
// whichever comes first. Tracks of 30 seconds or less, or of unknown
// length, are never scrobbled.
func ShouldScrobble(elapsed, duration time.Duration) bool {
	if duration <= MinTrackLength {
		return false
	}
	return elapsed >= min(duration/2, MaxScrobbleDelay)
}
