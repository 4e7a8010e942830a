package lastfm

import (
	"context"
	"errors"
	"sync"
	"testing"
	"testing/synctest"
	"time"

	"github.com/rs/zerolog"

	"github.com/llehouerou/wavesd/internal/playback"
	"github.com/llehouerou/wavesd/internal/playlist"
	"github.com/llehouerou/wavesd/internal/state"
)

type fakeAPI struct {
	mu         sync.Mutex
	nowPlaying []ScrobbleTrack
	scrobbles  []ScrobbleTrack
	err        error
}

func (f *fakeAPI) UpdateNowPlaying(t ScrobbleTrack) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.nowPlaying = append(f.nowPlaying, t)
	return nil
}

func (f *fakeAPI) Scrobble(t ScrobbleTrack) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.scrobbles = append(f.scrobbles, t)
	return nil
}

func (f *fakeAPI) fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *fakeAPI) counts() (nowPlaying, scrobbles int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.nowPlaying), len(f.scrobbles)
}

var song = playlist.Track{
	Path:     "/music/song.mp3",
	Title:    "Song",
	Artist:   "Artist",
	Album:    "Album",
	Duration: 3 * time.Minute,
}

func songChanged(t *playlist.Track, at time.Time) *playback.SongChanged {
	ev := &playback.SongChanged{Track: t, Index: 0}
	ev.Header = playback.Header{At: at}
	return ev
}

func position(elapsed time.Duration) *playback.PositionUpdate {
	return &playback.PositionUpdate{Elapsed: elapsed, Duration: song.Duration}
}

func TestShouldScrobble(t *testing.T) {
	tests := []struct {
		name              string
		elapsed, duration time.Duration
		want              bool
	}{
		{"unknown duration", time.Hour, 0, false},
		{"too short", 30 * time.Second, 30 * time.Second, false},
		{"just over minimum, half played", 16 * time.Second, 31 * time.Second, true},
		{"under half", 89 * time.Second, 3 * time.Minute, false},
		{"half", 90 * time.Second, 3 * time.Minute, true},
		{"long track capped at four minutes", 4 * time.Minute, 20 * time.Minute, true},
		{"long track before four minutes", 3 * time.Minute, 20 * time.Minute, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ShouldScrobble(tt.elapsed, tt.duration); got != tt.want {
				t.Errorf("ShouldScrobble(%v, %v) = %v, want %v", tt.elapsed, tt.duration, got, tt.want)
			}
		})
	}
}

func TestScrobbler_NowPlayingAndScrobbleOnce(t *testing.T) {
	api := &fakeAPI{}
	s := NewScrobbler(api, state.NewMock(), zerolog.Nop())
	at := time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC)

	track := song
	s.handle(songChanged(&track, at))
	s.handle(position(30 * time.Second))
	if np, sc := api.counts(); np != 1 || sc != 0 {
		t.Fatalf("after 30s: now playing %d scrobbles %d, want 1 0", np, sc)
	}

	s.handle(position(90 * time.Second))
	s.handle(position(2 * time.Minute))
	if _, sc := api.counts(); sc != 1 {
		t.Fatalf("scrobbles = %d, want 1", sc)
	}

	got := api.scrobbles[0]
	want := ScrobbleTrack{Artist: "Artist", Track: "Song", Album: "Album", Duration: 3 * time.Minute, Timestamp: at}
	if got != want {
		t.Errorf("scrobble = %+v, want %+v", got, want)
	}
	if !s.state.NowPlayingSent || !s.state.Scrobbled {
		t.Errorf("state = %+v", s.state)
	}
}

func TestScrobbler_ReplayScrobblesAgain(t *testing.T) {
	api := &fakeAPI{}
	s := NewScrobbler(api, nil, zerolog.Nop())

	for range 2 {
		track := song
		s.handle(songChanged(&track, time.Now()))
		s.handle(position(2 * time.Minute))
	}
	if np, sc := api.counts(); np != 2 || sc != 2 {
		t.Errorf("now playing %d scrobbles %d, want 2 2", np, sc)
	}
}

func TestScrobbler_Skips(t *testing.T) {
	tests := []struct {
		name  string
		track playlist.Track
	}{
		{"no artist", playlist.Track{Path: "/a.mp3", Title: "A", Duration: time.Hour}},
		{"no title", playlist.Track{Path: "/a.mp3", Artist: "X", Duration: time.Hour}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &fakeAPI{}
			s := NewScrobbler(api, nil, zerolog.Nop())
			s.handle(songChanged(&tt.track, time.Now()))
			s.handle(&playback.PositionUpdate{Elapsed: 5 * time.Minute, Duration: time.Hour})
			if np, sc := api.counts(); np != 0 || sc != 0 {
				t.Errorf("now playing %d scrobbles %d, want none", np, sc)
			}
		})
	}
}

func TestScrobbler_EndOfPlaylistResets(t *testing.T) {
	api := &fakeAPI{}
	s := NewScrobbler(api, nil, zerolog.Nop())

	track := song
	s.handle(songChanged(&track, time.Now()))
	s.handle(songChanged(nil, time.Now()))
	s.handle(position(2 * time.Minute))

	if _, sc := api.counts(); sc != 0 {
		t.Errorf("scrobbles = %d, want 0 after end of playlist", sc)
	}
}

func TestScrobbler_ResyncWhilePlaying(t *testing.T) {
	api := &fakeAPI{}
	s := NewScrobbler(api, nil, zerolog.Nop())
	at := time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC)

	track := song
	ev := &playback.ResyncSnapshot{Snapshot: playback.Snapshot{
		State:    playback.StatePlaying,
		Track:    &track,
		Elapsed:  2 * time.Minute,
		Duration: track.Duration,
	}}
	ev.Header = playback.Header{At: at}
	s.handle(ev)

	np, sc := api.counts()
	if np != 1 || sc != 1 {
		t.Fatalf("now playing %d scrobbles %d, want 1 1", np, sc)
	}
	if want := at.Add(-2 * time.Minute); !api.scrobbles[0].Timestamp.Equal(want) {
		t.Errorf("timestamp = %v, want %v", api.scrobbles[0].Timestamp, want)
	}
}

func TestScrobbler_QueuesAndRetries(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		api := &fakeAPI{}
		queue := state.NewMock()
		s := NewScrobbler(api, queue, zerolog.Nop())

		events := make(chan playback.Event)
		ctx, cancel := context.WithCancel(t.Context())
		done := make(chan struct{})
		go func() {
			s.Run(ctx, events)
			close(done)
		}()

		api.fail(errors.New("offline"))
		track := song
		events <- songChanged(&track, time.Now())
		events <- position(2 * time.Minute)
		synctest.Wait()

		pending, _ := queue.PendingScrobbles()
		if len(pending) != 1 || pending[0].Track != "Song" || pending[0].Duration != 3*time.Minute {
			t.Fatalf("pending = %+v", pending)
		}

		// Still offline at the first retry.
		time.Sleep(DefaultRetryInterval)
		synctest.Wait()
		pending, _ = queue.PendingScrobbles()
		if len(pending) != 1 || pending[0].Attempts != 1 || pending[0].LastError != "offline" {
			t.Fatalf("after failed retry pending = %+v", pending)
		}

		api.fail(nil)
		time.Sleep(DefaultRetryInterval)
		synctest.Wait()
		pending, _ = queue.PendingScrobbles()
		if len(pending) != 0 {
			t.Errorf("pending = %+v, want empty after successful retry", pending)
		}
		if _, sc := api.counts(); sc != 1 {
			t.Errorf("scrobbles = %d, want 1", sc)
		}

		cancel()
		<-done
	})
}

func TestRetryPending(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	api := &fakeAPI{}
	queue := state.NewMock()
	for _, played := range []time.Time{
		now.Add(-time.Hour),
		now.Add(-2 * time.Hour),
		now.Add(-MaxQueueAge - time.Hour),
	} {
		if err := queue.QueueScrobble(state.PendingScrobble{Artist: "A", Track: "T", PlayedAt: played}); err != nil {
			t.Fatal(err)
		}
	}
	pending, _ := queue.PendingScrobbles()
	for range MaxAttempts {
		_ = queue.ScrobbleFailed(pending[0].ID, "boom")
	}

	res, err := RetryPending(api, queue, now)
	if err != nil {
		t.Fatal(err)
	}
	if want := (RetryResult{Sent: 1, Expired: 1}); res != want {
		t.Errorf("RetryPending() = %+v, want %+v", res, want)
	}
	pending, _ = queue.PendingScrobbles()
	if len(pending) != 1 || pending[0].Attempts != MaxAttempts {
		t.Errorf("pending = %+v, want only the exhausted entry", pending)
	}
	if _, sc := api.counts(); sc != 1 {
		t.Errorf("scrobbles = %d, want 1", sc)
	}
}

func TestWaitForToken(t *testing.T) {
	t.Run("receives token", func(t *testing.T) {
		synctest.Test(t, func(t *testing.T) {
			tokens := make(chan string, 1)
			tokens <- "test-token-123"
			token, err := WaitForToken(t.Context(), tokens, AuthTimeout)
			if err != nil || token != "test-token-123" {
				t.Errorf("WaitForToken() = %q, %v", token, err)
			}
		})
	})

	t.Run("token before timeout", func(t *testing.T) {
		synctest.Test(t, func(t *testing.T) {
			tokens := make(chan string)
			go func() {
				time.Sleep(2 * time.Minute)
				tokens <- "delayed-token"
			}()
			token, err := WaitForToken(t.Context(), tokens, AuthTimeout)
			if err != nil || token != "delayed-token" {
				t.Errorf("WaitForToken() = %q, %v", token, err)
			}
		})
	})

	t.Run("timeout", func(t *testing.T) {
		synctest.Test(t, func(t *testing.T) {
			_, err := WaitForToken(t.Context(), make(chan string), AuthTimeout)
			if !errors.Is(err, ErrAuthTimeout) {
				t.Errorf("err = %v, want ErrAuthTimeout", err)
			}
		})
	})

	t.Run("empty token", func(t *testing.T) {
		tokens := make(chan string, 1)
		tokens <- ""
		if _, err := WaitForToken(context.Background(), tokens, time.Second); !errors.Is(err, ErrNoToken) {
			t.Errorf("err = %v, want ErrNoToken", err)
		}
	})
}
