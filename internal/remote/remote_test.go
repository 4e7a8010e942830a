package remote

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/llehouerou/wavesd/internal/playback"
	"github.com/llehouerou/wavesd/internal/playlist"
	"github.com/llehouerou/wavesd/internal/server"
)

type fakeController struct {
	*playback.Hub

	mu   sync.Mutex
	cmds []playback.Command
}

func (f *fakeController) Snapshot() playback.Snapshot { return f.Latest() }

func (f *fakeController) Submit(_ context.Context, cmd playback.Command) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if cmd.Op == playback.OpJump && cmd.Index > 2 {
		return playback.ErrInvalidIndex
	}
	f.cmds = append(f.cmds, cmd)

	// Push an unrelated event before the reply goes out.
	ev := &playback.ModeChanged{Loop: true}
	f.Publish(ev, f.Latest())
	return nil
}

func setup(t *testing.T) (*fakeController, string) {
	t.Helper()
	ctrl := &fakeController{Hub: playback.NewHub(16, zerolog.Nop())}
	track := playlist.Track{Path: "/a.mp3", Title: "A"}
	ctrl.Publish(&playback.SongChanged{}, playback.Snapshot{
		Seq: 3, State: playback.StatePaused, Track: &track, Index: 0, Volume: 0.7,
	})

	ts := httptest.NewServer(server.New(ctrl, zerolog.Nop()).Handler())
	t.Cleanup(ts.Close)
	return ctrl, strings.TrimPrefix(ts.URL, "http://")
}

func TestEndpoint(t *testing.T) {
	tests := map[string]string{
		"127.0.0.1:8081":       "ws://127.0.0.1:8081/ws",
		"ws://host:1/custom":   "ws://host:1/custom",
		"wss://example.org/ws": "wss://example.org/ws",
		"localhost:9000":       "ws://localhost:9000/ws",
	}
	for in, want := range tests {
		if got := endpoint(in); got != want {
			t.Errorf("endpoint(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDial_ReadsSnapshot(t *testing.T) {
	_, addr := setup(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c, err := Dial(ctx, addr)
	require.NoError(t, err)
	defer c.Close()

	snap := c.Snapshot()
	if snap.Seq != 3 || snap.State != playback.StatePaused || snap.Track == nil || snap.Track.Title != "A" {
		t.Errorf("Snapshot() = %+v", snap)
	}
}

func TestDo(t *testing.T) {
	ctrl, addr := setup(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c, err := Dial(ctx, addr)
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Do(ctx, server.Request{Action: "next"}))
	require.NoError(t, c.Do(ctx, server.Request{Action: "set_loop", Enabled: true}))

	err = c.Do(ctx, server.Request{Action: "jump", Index: 5})
	if !errors.Is(err, ErrRejected) || !strings.Contains(err.Error(), "invalid playlist index") {
		t.Errorf("Do(jump 5) error = %v", err)
	}

	ctrl.mu.Lock()
	defer ctrl.mu.Unlock()
	if len(ctrl.cmds) != 2 || ctrl.cmds[0].Op != playback.OpNext || !ctrl.cmds[1].Enabled {
		t.Errorf("commands = %v", ctrl.cmds)
	}
}

func TestWatch(t *testing.T) {
	ctrl, addr := setup(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c, err := Dial(ctx, addr)
	require.NoError(t, err)
	defer c.Close()

	go func() {
		for i := range 3 {
			ev := &playback.VolumeChanged{Level: float64(i) / 10}
			ev.Header = playback.Header{Seq: uint64(10 + i)}
			ctrl.Publish(ev, ctrl.Latest())
		}
		ctrl.Close()
	}()

	var seqs []uint64
	err = c.Watch(ctx, func(f server.Frame, raw []byte) error {
		if f.Type != string(playback.TypeVolumeChanged) || !strings.Contains(string(raw), `"level"`) {
			t.Errorf("frame = %s", raw)
		}
		seqs = append(seqs, f.Seq)
		return nil
	})
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	if len(seqs) != 3 || seqs[0] != 10 || seqs[2] != 12 {
		t.Errorf("seqs = %v", seqs)
	}
}

func TestDial_Refused(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := Dial(ctx, "127.0.0.1:1"); err == nil {
		t.Error("Dial() error = nil for a closed port")
	}
}
