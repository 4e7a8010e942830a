package state

import "time"

// Sink receives what the recorder persists.
type Sink interface {
	SaveVolume(level float64) error
	AddPlay(p Play) error
}

// ScrobbleQueue holds scrobbles waiting for a retry.
type ScrobbleQueue interface {
	QueueScrobble(s PendingScrobble) error
	PendingScrobbles() ([]PendingScrobble, error)
	ScrobbleSent(id int64) error
	ScrobbleFailed(id int64, reason string) error
	PruneScrobbles(cutoff time.Time) (int64, error)
}

var (
	_ Sink          = (*Manager)(nil)
	_ ScrobbleQueue = (*Manager)(nil)
)
