// Package remote talks to a running daemon over its WebSocket endpoint.
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/llehouerou/wavesd/internal/playback"
	"github.com/llehouerou/wavesd/internal/server"
)

// ErrRejected wraps the error message of a failed command.
var ErrRejected = errors.New("command rejected")

// Client is a connection to the daemon.
type Client struct {
	conn *websocket.Conn
	snap playback.Snapshot
}

// Dial connects to the daemon listening on addr (host:port or a ws:// URL)
// and reads the initial resync frame.
func Dial(ctx context.Context, addr string) (*Client, error) {
	conn, _, err := websocket.Dial(ctx, endpoint(addr), nil)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", addr, err)
	}
	c := &Client{conn: conn}

	f, _, err := c.next(ctx)
	if err != nil {
		c.conn.CloseNow()
		return nil, err
	}
	if f.Type != string(playback.TypeResync) || f.Snapshot == nil {
		c.conn.CloseNow()
		return nil, fmt.Errorf("unexpected first frame %q", f.Type)
	}
	c.snap = *f.Snapshot
	return c, nil
}

func endpoint(addr string) string {
	if strings.HasPrefix(addr, "ws://") || strings.HasPrefix(addr, "wss://") {
		return addr
	}
	return "ws://" + addr + "/ws"
}

// Snapshot returns the state received when connecting.
func (c *Client) Snapshot() playback.Snapshot {
	return c.snap
}

// Do sends a command and waits for its reply. Events received meanwhile
// are discarded.
func (c *Client) Do(ctx context.Context, req server.Request) error {
	req.ID = uuid.NewString()
	data, err := json.Marshal(req)
	if err != nil {
		return err
	}
	if err := c.conn.Write(ctx, websocket.MessageText, data); err != nil {
		return fmt.Errorf("send %s: %w", req.Action, err)
	}

	for {
		f, _, err := c.next(ctx)
		if err != nil {
			return err
		}
		if f.Type != server.TypeReply || f.ID != req.ID {
			continue
		}
		if !f.OK {
			return fmt.Errorf("%w: %s", ErrRejected, f.Error)
		}
		return nil
	}
}

// Watch calls fn with every frame received until ctx is done, the
// connection closes or fn returns an error.
func (c *Client) Watch(ctx context.Context, fn func(f server.Frame, raw []byte) error) error {
	for {
		f, raw, err := c.next(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == websocket.StatusGoingAway || ctx.Err() != nil {
				return nil
			}
			return err
		}
		if err := fn(f, raw); err != nil {
			return err
		}
	}
}

// Close closes the connection.
func (c *Client) Close() error {
	return c.conn.Close(websocket.StatusNormalClosure, "bye")
}

func (c *Client) next(ctx context.Context) (server.Frame, []byte, error) {
	_, data, err := c.conn.Read(ctx)
	if err != nil {
		return server.Frame{}, nil, err
	}
	var f server.Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return server.Frame{}, nil, fmt.Errorf("decode frame: %w", err)
	}
	return f, data, nil
}
