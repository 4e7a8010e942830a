package playback

import (
	"fmt"

	"github.com/llehouerou/wavesd/internal/playlist"
)

// Op identifies a command.
type Op string

const (
	OpPlay        Op = "play"
	OpPause       Op = "pause"
	OpStop        Op = "stop"
	OpNext        Op = "next"
	OpPrevious    Op = "previous"
	OpSetVolume   Op = "set_volume"
	OpSetLoop     Op = "set_loop"
	OpAddTrack    Op = "add_track"
	OpRemoveTrack Op = "remove_track"
	OpReorder     Op = "reorder"
	OpJump        Op = "jump"
	OpShutdown    Op = "shutdown"
)

// Ops lists every command accepted from external clients.
var Ops = []Op{
	OpPlay, OpPause, OpStop, OpNext, OpPrevious,
	OpSetVolume, OpSetLoop, OpAddTrack, OpRemoveTrack, OpReorder, OpJump,
}

// ParseOp returns the Op named s. Shutdown is not accepted.
func ParseOp(s string) (Op, error) {
	for _, op := range Ops {
		if string(op) == s {
			return op, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCommand, s)
}

// Command is a request to the coordinator. Only the fields relevant to Op
// are read.
type Command struct {
	Op      Op
	Level   float64         // set_volume
	Enabled bool            // set_loop
	Path    string          // add_track
	Track   *playlist.Track // add_track, filled from Path before queueing
	Index   int             // remove_track, jump
	From    int             // reorder
	To      int             // reorder

	reply chan error
}

func (c Command) String() string {
	switch c.Op {
	case OpSetVolume:
		return fmt.Sprintf("%s(%.2f)", c.Op, c.Level)
	case OpSetLoop:
		return fmt.Sprintf("%s(%t)", c.Op, c.Enabled)
	case OpAddTrack:
		return fmt.Sprintf("%s(%s)", c.Op, c.Path)
	case OpRemoveTrack, OpJump:
		return fmt.Sprintf("%s(%d)", c.Op, c.Index)
	case OpReorder:
		return fmt.Sprintf("%s(%d->%d)", c.Op, c.From, c.To)
	}
	return string(c.Op)
}
