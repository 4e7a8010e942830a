package server

import (
	"encoding/json"
	"fmt"

	"github.com/llehouerou/wavesd/internal/playback"
)

// Request is a client to server frame asking for a command. Only the
// fields relevant to Action are read.
type Request struct {
	ID      string  `json:"id,omitempty"`
	Action  string  `json:"action"`
	Level   float64 `json:"level,omitempty"`
	Enabled bool    `json:"enabled,omitempty"`
	Path    string  `json:"path,omitempty"`
	Index   int     `json:"index,omitempty"`
	From    int     `json:"from,omitempty"`
	To      int     `json:"to,omitempty"`
}

// TypeReply is the frame type of command results.
const TypeReply = "reply"

// Reply answers a Request.
type Reply struct {
	Type   string `json:"type"`
	ID     string `json:"id,omitempty"`
	Action string `json:"action"`
	OK     bool   `json:"ok"`
	Error  string `json:"error,omitempty"`
}

// Command converts r to a coordinator command.
func (r Request) Command() (playback.Command, error) {
	op, err := playback.ParseOp(r.Action)
	if err != nil {
		return playback.Command{}, err
	}
	return playback.Command{
		Op:      op,
		Level:   r.Level,
		Enabled: r.Enabled,
		Path:    r.Path,
		Index:   r.Index,
		From:    r.From,
		To:      r.To,
	}, nil
}

// EncodeEvent marshals ev as a frame: the event fields plus its "type".
func EncodeEvent(ev playback.Event) ([]byte, error) {
	body, err := json.Marshal(ev)
	if err != nil {
		return nil, err
	}
	if len(body) < 2 || body[0] != '{' {
		return nil, fmt.Errorf("encode %s: not an object", ev.Type())
	}
	typ, err := json.Marshal(ev.Type())
	if err != nil {
		return nil, err
	}

	frame := make([]byte, 0, len(body)+len(typ)+10)
	frame = append(frame, `{"type":`...)
	frame = append(frame, typ...)
	if len(body) > 2 {
		frame = append(frame, ',')
	}
	return append(frame, body[1:]...), nil
}

// Frame is the generic decoded form of a server to client frame. Fields
// not used by a frame type are left zero.
type Frame struct {
	Type string `json:"type"`
	Seq  uint64 `json:"seq"`

	// reply
	ID     string `json:"id"`
	Action string `json:"action"`
	OK     bool   `json:"ok"`
	Error  string `json:"error"`

	// resync
	Snapshot *playback.Snapshot `json:"snapshot"`

	// error
	Kind    string `json:"kind"`
	Message string `json:"message"`
}
