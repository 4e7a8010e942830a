package state

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/llehouerou/wavesd/internal/playback"
	"github.com/llehouerou/wavesd/internal/playlist"
)

// setupTestDB creates an in-memory SQLite database with the schema initialized.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	// Every connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		t.Fatalf("failed to set pragma: %v", err)
	}

	if err := initSchema(db); err != nil {
		db.Close()
		t.Fatalf("failed to init schema: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

func setupManager(t *testing.T) *Manager {
	t.Helper()
	return newManager(setupTestDB(t), zerolog.Nop())
}

func samplePlaylist() *playlist.Playlist {
	tracks := []playlist.Track{
		{Path: "/music/a.mp3", Title: "A", Artist: "Artist", Album: "Album", ArtworkPath: "/cache/1.jpg", Duration: 183500 * time.Millisecond},
		{Path: "/music/b.flac", Title: "B", Duration: time.Minute},
		{Path: "/music/c.ogg", Title: "C"},
	}
	return playlist.FromTracks(tracks, 1, true)
}

func TestOpen_CreatesDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.db")
	m, err := Open(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer m.Close()

	var version int
	if err := m.DB().QueryRow(`SELECT version FROM schema_version`).Scan(&version); err != nil {
		t.Fatalf("query version: %v", err)
	}
	if version != currentSchemaVersion {
		t.Errorf("schema version = %d, want %d", version, currentSchemaVersion)
	}

	// Reopening runs the schema again without error.
	m.Close()
	m2, err := Open(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("second Open() error = %v", err)
	}
	m2.Close()
}

func TestPlaylistStore_RoundTrip(t *testing.T) {
	store := setupManager(t).PlaylistStore()
	want := samplePlaylist()

	if err := store.Save(want); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	got := store.Load()

	if got.CurrentIndex() != 1 || !got.Loop() {
		t.Errorf("cursor %d loop %v, want 1 true", got.CurrentIndex(), got.Loop())
	}
	wantTracks, gotTracks := want.Tracks(), got.Tracks()
	if len(gotTracks) != len(wantTracks) {
		t.Fatalf("got %d tracks, want %d", len(gotTracks), len(wantTracks))
	}
	for i := range wantTracks {
		if gotTracks[i] != wantTracks[i] {
			t.Errorf("track %d = %+v, want %+v", i, gotTracks[i], wantTracks[i])
		}
	}
	if store.Recovered() != "" {
		t.Errorf("Recovered() = %q, want empty", store.Recovered())
	}
}

func TestPlaylistStore_SaveReplaces(t *testing.T) {
	store := setupManager(t).PlaylistStore()
	if err := store.Save(samplePlaylist()); err != nil {
		t.Fatal(err)
	}

	smaller := playlist.FromTracks([]playlist.Track{{Path: "/music/z.mp3", Title: "Z"}}, -1, false)
	if err := store.Save(smaller); err != nil {
		t.Fatal(err)
	}

	got := store.Load()
	if got.Len() != 1 || got.CurrentIndex() != -1 || got.Loop() {
		t.Errorf("Load() = %d tracks cursor %d loop %v", got.Len(), got.CurrentIndex(), got.Loop())
	}
}

func TestPlaylistStore_Empty(t *testing.T) {
	store := setupManager(t).PlaylistStore()
	got := store.Load()
	if got.Len() != 0 || got.CurrentIndex() != -1 {
		t.Errorf("Load() on empty db = %d tracks cursor %d", got.Len(), got.CurrentIndex())
	}
	if store.Recovered() != "" {
		t.Errorf("Recovered() = %q, want empty", store.Recovered())
	}
}

func TestPlaylistStore_Corrupt(t *testing.T) {
	tests := []struct {
		name    string
		corrupt string
	}{
		{"index out of range", `UPDATE playlist_state SET current_index = 7`},
		{"empty path", `UPDATE playlist_tracks SET path = '' WHERE position = 2`},
		{"negative duration", `UPDATE playlist_tracks SET duration = -1 WHERE position = 0`},
		{"unscannable duration", `UPDATE playlist_tracks SET duration = 'garbage' WHERE position = 1`},
		{"unscannable index", `UPDATE playlist_state SET current_index = 'x'`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := setupManager(t)
			store := m.PlaylistStore()
			store.now = func() time.Time { return time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC) }
			if err := store.Save(samplePlaylist()); err != nil {
				t.Fatal(err)
			}
			if _, err := m.DB().Exec(tt.corrupt); err != nil {
				t.Fatal(err)
			}

			got := store.Load()
			if got.Len() != 0 || got.CurrentIndex() != -1 {
				t.Errorf("Load() = %d tracks cursor %d, want empty", got.Len(), got.CurrentIndex())
			}
			if !strings.Contains(store.Recovered(), "backed up") {
				t.Errorf("Recovered() = %q", store.Recovered())
			}

			backups, err := store.Backups()
			if err != nil {
				t.Fatalf("Backups() error = %v", err)
			}
			if len(backups) != 1 {
				t.Fatalf("got %d backups, want 1", len(backups))
			}
			if len(backups[0].Record.Songs) != 3 {
				t.Errorf("backup holds %d songs, want 3", len(backups[0].Record.Songs))
			}
			if !backups[0].CreatedAt.Equal(time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)) {
				t.Errorf("backup CreatedAt = %v", backups[0].CreatedAt)
			}

			// The bad playlist is gone: a second load is clean and adds no backup.
			store.Load()
			if store.Recovered() != "" {
				t.Errorf("second Recovered() = %q, want empty", store.Recovered())
			}
			if backups, _ := store.Backups(); len(backups) != 1 {
				t.Errorf("got %d backups after second load, want 1", len(backups))
			}

			// Saving over the discarded playlist keeps the backup.
			if err := store.Save(playlist.New()); err != nil {
				t.Fatal(err)
			}
			if backups, _ := store.Backups(); len(backups) != 1 || len(backups[0].Record.Songs) != 3 {
				t.Errorf("backups after save = %+v", backups)
			}
		})
	}
}

func TestDecodeBackup_RawRows(t *testing.T) {
	rec, err := decodeBackup(`{"songs":[
		{"file_path":"/m/a.mp3","title":"A","artist":null,"album":"L","artwork_path":null,"duration":"garbage"},
		{"file_path":"/m/b.mp3","title":"B","artist":"X","album":null,"artwork_path":"/c/b.jpg","duration":12.5}
	],"current_index":"x","loop_enabled":true}`)
	if err != nil {
		t.Fatalf("decodeBackup() error = %v", err)
	}
	if rec.CurrentIndex != -1 || !rec.LoopEnabled || len(rec.Songs) != 2 {
		t.Fatalf("decodeBackup() = %+v", rec)
	}
	if a := rec.Songs[0]; a.FilePath != "/m/a.mp3" || a.Duration != 0 || a.Artist != "" || a.ArtworkPath != nil {
		t.Errorf("song 0 = %+v", a)
	}
	if b := rec.Songs[1]; b.Duration != 12.5 || b.ArtworkPath == nil || *b.ArtworkPath != "/c/b.jpg" {
		t.Errorf("song 1 = %+v", b)
	}
}

func TestVolume(t *testing.T) {
	m := setupManager(t)

	_, ok, err := m.GetVolume()
	if err != nil || ok {
		t.Fatalf("GetVolume() on empty db = ok %v err %v", ok, err)
	}

	for _, level := range []float64{0.3, 0.9, 0} {
		if err := m.SaveVolume(level); err != nil {
			t.Fatalf("SaveVolume(%v) error = %v", level, err)
		}
		got, ok, err := m.GetVolume()
		if err != nil || !ok || got != level {
			t.Errorf("GetVolume() = %v, %v, %v, want %v", got, ok, err, level)
		}
	}
}

func TestHistory(t *testing.T) {
	m := setupManager(t)
	base := time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC)

	for i, title := range []string{"first", "second", "third"} {
		err := m.AddPlay(Play{
			Track:     playlist.Track{Path: "/music/" + title + ".mp3", Title: title, Duration: 90 * time.Second},
			StartedAt: base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("AddPlay() error = %v", err)
		}
	}

	plays, err := m.RecentPlays(2)
	if err != nil {
		t.Fatalf("RecentPlays() error = %v", err)
	}
	if len(plays) != 2 {
		t.Fatalf("got %d plays, want 2", len(plays))
	}
	if plays[0].Track.Title != "third" || plays[1].Track.Title != "second" {
		t.Errorf("order = %q, %q", plays[0].Track.Title, plays[1].Track.Title)
	}
	if plays[0].Track.Duration != 90*time.Second || !plays[0].StartedAt.Equal(base.Add(2*time.Minute)) {
		t.Errorf("play = %+v", plays[0])
	}

	removed, err := m.PruneHistory(time.Since(base.Add(90 * time.Second)))
	if err != nil {
		t.Fatalf("PruneHistory() error = %v", err)
	}
	if removed != 2 {
		t.Errorf("PruneHistory() removed %d, want 2", removed)
	}
}

func TestLastfmSession(t *testing.T) {
	m := setupManager(t)

	s, err := m.GetLastfmSession()
	if err != nil || s != nil {
		t.Fatalf("GetLastfmSession() = %+v, %v, want nil", s, err)
	}

	if err := m.SaveLastfmSession("listener", "sk-1"); err != nil {
		t.Fatal(err)
	}
	if err := m.SaveLastfmSession("listener", "sk-2"); err != nil {
		t.Fatal(err)
	}
	s, err = m.GetLastfmSession()
	if err != nil || s == nil || s.SessionKey != "sk-2" || s.Username != "listener" {
		t.Fatalf("GetLastfmSession() = %+v, %v", s, err)
	}

	if err := m.DeleteLastfmSession(); err != nil {
		t.Fatal(err)
	}
	if s, _ := m.GetLastfmSession(); s != nil {
		t.Errorf("session still present: %+v", s)
	}
}

func TestScrobbleQueue(t *testing.T) {
	m := setupManager(t)
	now := time.Now().Truncate(time.Second)

	queued := []PendingScrobble{
		{Artist: "Artist", Track: "later", Album: "Album", Duration: 200 * time.Second, PlayedAt: now.Add(-time.Hour)},
		{Artist: "Artist", Track: "earlier", PlayedAt: now.Add(-2 * time.Hour)},
	}
	for _, s := range queued {
		if err := m.QueueScrobble(s); err != nil {
			t.Fatal(err)
		}
	}

	pending, err := m.PendingScrobbles()
	if err != nil || len(pending) != 2 {
		t.Fatalf("PendingScrobbles() = %d, %v", len(pending), err)
	}
	if pending[0].Track != "earlier" || pending[0].Album != "" {
		t.Errorf("pending[0] = %+v, want the oldest play without album", pending[0])
	}
	if got := pending[1]; got.Duration != 200*time.Second || !got.PlayedAt.Equal(now.Add(-time.Hour)) || got.Album != "Album" {
		t.Errorf("pending[1] = %+v", got)
	}

	if err := m.ScrobbleFailed(pending[1].ID, "offline"); err != nil {
		t.Fatal(err)
	}
	if err := m.ScrobbleSent(pending[0].ID); err != nil {
		t.Fatal(err)
	}
	pending, _ = m.PendingScrobbles()
	if len(pending) != 1 || pending[0].Attempts != 1 || pending[0].LastError != "offline" {
		t.Errorf("pending = %+v", pending)
	}

	n, err := m.PruneScrobbles(now.Add(-30 * time.Minute))
	if err != nil || n != 1 {
		t.Errorf("PruneScrobbles() = %d, %v, want 1", n, err)
	}
	if pending, _ = m.PendingScrobbles(); len(pending) != 0 {
		t.Errorf("old scrobbles not deleted: %+v", pending)
	}
}

func TestRecorder(t *testing.T) {
	sink := NewMock()
	rec := NewRecorder(sink, zerolog.Nop())
	at := time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC)

	song := &playback.SongChanged{Track: &playlist.Track{Path: "/a.mp3", Title: "A"}, Index: 0}
	song.Header = playback.Header{Seq: 1, At: at}
	events := make(chan playback.Event, 8)
	events <- song
	events <- &playback.SongChanged{Index: -1}
	events <- &playback.VolumeChanged{Level: 0.4}
	events <- &playback.PositionUpdate{Elapsed: time.Second}
	close(events)

	rec.Run(context.Background(), events)

	plays := sink.Plays()
	if len(plays) != 1 || plays[0].Track.Path != "/a.mp3" || !plays[0].StartedAt.Equal(at) {
		t.Errorf("plays = %+v", plays)
	}
	if v := sink.Volumes(); len(v) != 1 || v[0] != 0.4 {
		t.Errorf("volumes = %v", v)
	}
}

func TestRecorder_KeepsGoingOnErrors(t *testing.T) {
	sink := NewMock()
	sink.Fail(errors.New("disk full"))
	rec := NewRecorder(sink, zerolog.Nop())

	events := make(chan playback.Event, 2)
	events <- &playback.VolumeChanged{Level: 0.4}
	events <- &playback.VolumeChanged{Level: 0.5}
	close(events)

	rec.Run(context.Background(), events)

	sink.Fail(nil)
	if err := sink.SaveVolume(0.6); err != nil {
		t.Fatal(err)
	}
	if v := sink.Volumes(); len(v) != 1 {
		t.Errorf("volumes = %v, want only the write after recovery", v)
	}
}

func TestRecorder_StopsOnContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	done := make(chan struct{})
	go func() {
		NewRecorder(NewMock(), zerolog.Nop()).Run(ctx, make(chan playback.Event))
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
