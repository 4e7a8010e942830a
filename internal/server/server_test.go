package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/llehouerou/wavesd/internal/playback"
	"github.com/llehouerou/wavesd/internal/playlist"
)

type fakeController struct {
	*playback.Hub

	mu   sync.Mutex
	cmds []playback.Command
	err  error
}

func newFakeController() *fakeController {
	return &fakeController{Hub: playback.NewHub(16, zerolog.Nop())}
}

func (f *fakeController) Snapshot() playback.Snapshot { return f.Latest() }

func (f *fakeController) Submit(_ context.Context, cmd playback.Command) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.cmds = append(f.cmds, cmd)
	return nil
}

func (f *fakeController) commands() []playback.Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]playback.Command(nil), f.cmds...)
}

func startServer(t *testing.T, ctrl Controller) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(New(ctrl, zerolog.Nop()).Handler())
	t.Cleanup(ts.Close)
	return ts
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.CloseNow() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) Frame {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, data, err := conn.Read(ctx)
	require.NoError(t, err)
	var f Frame
	require.NoError(t, json.Unmarshal(data, &f), "frame %s", data)
	return f
}

func send(t *testing.T, conn *websocket.Conn, req Request) {
	t.Helper()
	data, err := json.Marshal(req)
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, conn.Write(ctx, websocket.MessageText, data))
}

func TestEncodeEvent(t *testing.T) {
	ev := &playback.VolumeChanged{Level: 0.5}
	ev.Header = playback.Header{Seq: 7, At: time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC)}

	frame, err := EncodeEvent(ev)
	if err != nil {
		t.Fatalf("EncodeEvent() error = %v", err)
	}
	want := `{"type":"volume_changed","seq":7,"at":"2024-03-09T12:00:00Z","level":0.5}`
	if string(frame) != want {
		t.Errorf("EncodeEvent() = %s, want %s", frame, want)
	}
}

func TestRequest_Command(t *testing.T) {
	tests := []struct {
		req     Request
		want    playback.Command
		wantErr bool
	}{
		{req: Request{Action: "play"}, want: playback.Command{Op: playback.OpPlay}},
		{req: Request{Action: "set_volume", Level: 0.3}, want: playback.Command{Op: playback.OpSetVolume, Level: 0.3}},
		{req: Request{Action: "reorder", From: 2, To: 0}, want: playback.Command{Op: playback.OpReorder, From: 2, To: 0}},
		{req: Request{Action: "add_track", Path: "/a.mp3"}, want: playback.Command{Op: playback.OpAddTrack, Path: "/a.mp3"}},
		{req: Request{Action: "shutdown"}, wantErr: true},
		{req: Request{Action: "dance"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.req.Action, func(t *testing.T) {
			got, err := tt.req.Command()
			if tt.wantErr {
				if !errors.Is(err, playback.ErrUnknownCommand) {
					t.Errorf("Command() error = %v, want ErrUnknownCommand", err)
				}
				return
			}
			if err != nil || got.String() != tt.want.String() || got.Op != tt.want.Op {
				t.Errorf("Command() = %v, %v, want %v", got, err, tt.want)
			}
		})
	}
}

func TestWS_ResyncThenEvents(t *testing.T) {
	ctrl := newFakeController()
	track := playlist.Track{Path: "/a.mp3", Title: "A"}
	ctrl.Publish(&playback.StateChanged{}, playback.Snapshot{
		Seq: 4, State: playback.StatePlaying, Track: &track, Index: 0,
		Tracks: []playlist.Track{track},
	})

	conn := dial(t, startServer(t, ctrl))

	f := readFrame(t, conn)
	if f.Type != string(playback.TypeResync) || f.Snapshot == nil {
		t.Fatalf("first frame = %+v, want resync", f)
	}
	if f.Seq != 4 || f.Snapshot.State != playback.StatePlaying || f.Snapshot.Track.Path != "/a.mp3" {
		t.Errorf("resync = %+v", f.Snapshot)
	}

	ev := &playback.PlaybackError{Kind: playback.KindTrackLoadFailure, Message: "Failed to load track"}
	ev.Header = playback.Header{Seq: 5}
	ctrl.Publish(ev, playback.Snapshot{Seq: 5})

	f = readFrame(t, conn)
	if f.Type != "error" || f.Seq != 5 || f.Kind != "track_load_failure" || f.Message != "Failed to load track" {
		t.Errorf("event frame = %+v", f)
	}
}

func TestWS_Commands(t *testing.T) {
	ctrl := newFakeController()
	conn := dial(t, startServer(t, ctrl))
	readFrame(t, conn) // resync

	send(t, conn, Request{ID: "1", Action: "set_volume", Level: 0.25})
	f := readFrame(t, conn)
	if f.Type != TypeReply || f.ID != "1" || !f.OK {
		t.Fatalf("reply = %+v", f)
	}
	cmds := ctrl.commands()
	if len(cmds) != 1 || cmds[0].Op != playback.OpSetVolume || cmds[0].Level != 0.25 {
		t.Errorf("commands = %v", cmds)
	}

	send(t, conn, Request{ID: "2", Action: "explode"})
	f = readFrame(t, conn)
	if f.ID != "2" || f.OK || !strings.Contains(f.Error, "unknown command") {
		t.Errorf("reply = %+v, want unknown command error", f)
	}

	ctrl.mu.Lock()
	ctrl.err = playback.ErrInvalidIndex
	ctrl.mu.Unlock()
	send(t, conn, Request{ID: "3", Action: "jump", Index: 9})
	f = readFrame(t, conn)
	if f.ID != "3" || f.OK || f.Error != playback.ErrInvalidIndex.Error() {
		t.Errorf("reply = %+v, want invalid index error", f)
	}
}

func TestWS_InvalidJSON(t *testing.T) {
	conn := dial(t, startServer(t, newFakeController()))
	readFrame(t, conn)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte("{not json")))

	f := readFrame(t, conn)
	if f.Type != TypeReply || f.OK || !strings.HasPrefix(f.Error, "invalid request") {
		t.Errorf("reply = %+v", f)
	}
}

func TestWS_DisconnectUnsubscribes(t *testing.T) {
	ctrl := newFakeController()
	conn := dial(t, startServer(t, ctrl))
	readFrame(t, conn)
	if ctrl.Len() != 1 {
		t.Fatalf("subscribers = %d, want 1", ctrl.Len())
	}

	conn.Close(websocket.StatusNormalClosure, "bye")

	deadline := time.Now().Add(5 * time.Second)
	for ctrl.Len() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscription not removed after disconnect")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestWS_HubCloseEndsConnection(t *testing.T) {
	ctrl := newFakeController()
	conn := dial(t, startServer(t, ctrl))
	readFrame(t, conn)

	ctrl.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, _, err := conn.Read(ctx)
	if websocket.CloseStatus(err) != websocket.StatusGoingAway {
		t.Errorf("read error = %v, want going away close", err)
	}
}

func TestAPIState(t *testing.T) {
	ctrl := newFakeController()
	ctrl.Publish(&playback.VolumeChanged{Level: 0.4}, playback.Snapshot{Seq: 2, Volume: 0.4, Index: -1})
	ts := startServer(t, ctrl)

	resp, err := http.Get(ts.URL + "/api/state")
	require.NoError(t, err)
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	var snap playback.Snapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&snap))
	if snap.Seq != 2 || snap.Volume != 0.4 || snap.Index != -1 || snap.State != playback.StateStopped {
		t.Errorf("snapshot = %+v", snap)
	}
}

func TestServe_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	s := New(newFakeController(), zerolog.Nop())
	go func() { errc <- s.ListenAndServe(ctx, "127.0.0.1:0") }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-errc:
		if err != nil {
			t.Errorf("ListenAndServe() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("ListenAndServe did not return")
	}
}
