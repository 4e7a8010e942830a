package playback

import (
	"time"

	"github.com/llehouerou/wavesd/internal/playlist"
)

// Snapshot is a consistent copy of the coordinator state, taken when an
// event was emitted. Tracks is shared between snapshots and must not be
// modified.
type Snapshot struct {
	Seq      uint64           `json:"seq"`
	State    State            `json:"state"`
	Track    *playlist.Track  `json:"track"`
	Index    int              `json:"index"`
	Elapsed  time.Duration    `json:"elapsed"`
	Duration time.Duration    `json:"duration"`
	Loop     bool             `json:"loop"`
	Volume   float64          `json:"volume"`
	Tracks   []playlist.Track `json:"tracks"`
}

// Progress returns the elapsed fraction of the current track in [0,1], or
// 0 when the duration is unknown.
func (s Snapshot) Progress() float64 {
	if s.Duration <= 0 {
		return 0
	}
	return min(max(float64(s.Elapsed)/float64(s.Duration), 0), 1)
}
