package playback

import (
	"time"

	"github.com/llehouerou/wavesd/internal/playlist"
)

// EventType names an event on the wire and in logs.
type EventType string

const (
	TypeSongChanged     EventType = "song_changed"
	TypeStateChanged    EventType = "state_changed"
	TypePositionUpdate  EventType = "position"
	TypePlaybackError   EventType = "error"
	TypeResync          EventType = "resync"
	TypePlaylistChanged EventType = "playlist_changed"
	TypeVolumeChanged   EventType = "volume_changed"
	TypeModeChanged     EventType = "mode_changed"
)

// Header is carried by every event. Seq increases by one for each event
// the coordinator emits.
type Header struct {
	Seq uint64    `json:"seq"`
	At  time.Time `json:"at"`
}

// Meta returns the event header.
func (h *Header) Meta() Header { return *h }

func (h *Header) setMeta(m Header) { *h = m }

// Event is implemented by all event types. Events are published as
// pointers and must not be modified by subscribers.
type Event interface {
	Meta() Header
	Type() EventType
	setMeta(Header)
}

// SongChanged is emitted when playback switches to a different track, or to
// no track at all (Track nil, Index -1) when the end of the playlist is
// reached.
//
// Moving the cursor while paused or stopped does not emit SongChanged; see
// PlaylistChanged.
type SongChanged struct {
	Header
	Track *playlist.Track `json:"track"`
	Index int             `json:"index"`
}

// StateChanged is emitted on every state transition.
type StateChanged struct {
	Header
	Old State `json:"old"`
	New State `json:"new"`
}

// PositionUpdate is emitted on each tick while playing.
type PositionUpdate struct {
	Header
	Elapsed  time.Duration `json:"elapsed"`
	Duration time.Duration `json:"duration"`
}

// PlaybackError reports a recoverable problem. Playback continues where
// possible; the coordinator never stops because of it.
type PlaybackError struct {
	Header
	Kind    ErrorKind       `json:"kind"`
	Track   *playlist.Track `json:"track,omitempty"`
	Message string          `json:"message"`
}

// ResyncSnapshot is the first event of every subscription. It carries the
// full state so a subscriber never has to replay history.
type ResyncSnapshot struct {
	Header
	Snapshot Snapshot `json:"snapshot"`
}

// PlaylistChanged is emitted when tracks are added, removed or reordered,
// or when the cursor moves without playback switching.
type PlaylistChanged struct {
	Header
	Tracks []playlist.Track `json:"tracks"`
	Index  int              `json:"index"`
}

// VolumeChanged is emitted when the volume is set.
type VolumeChanged struct {
	Header
	Level float64 `json:"level"`
}

// ModeChanged is emitted when loop mode changes.
type ModeChanged struct {
	Header
	Loop bool `json:"loop"`
}

func (*SongChanged) Type() EventType     { return TypeSongChanged }
func (*StateChanged) Type() EventType    { return TypeStateChanged }
func (*PositionUpdate) Type() EventType  { return TypePositionUpdate }
func (*PlaybackError) Type() EventType   { return TypePlaybackError }
func (*ResyncSnapshot) Type() EventType  { return TypeResync }
func (*PlaylistChanged) Type() EventType { return TypePlaylistChanged }
func (*VolumeChanged) Type() EventType   { return TypeVolumeChanged }
func (*ModeChanged) Type() EventType     { return TypeModeChanged }
