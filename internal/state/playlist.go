package state

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	dbutil "github.com/llehouerou/wavesd/internal/db"
	"github.com/llehouerou/wavesd/internal/playlist"
)

// PlaylistStore persists the playlist in the state database. It follows
// the same contract as playlist.FileStore: Load never fails, and a corrupt
// playlist is set aside once (as a row in playlist_backups) and replaced by
// an empty one.
type PlaylistStore struct {
	db        *sql.DB
	logger    zerolog.Logger
	now       func() time.Time
	recovered string
}

var (
	_ playlist.Store            = (*PlaylistStore)(nil)
	_ playlist.RecoveryReporter = (*PlaylistStore)(nil)
)

// PlaylistStore returns a playlist store backed by m.
func (m *Manager) PlaylistStore() *PlaylistStore {
	return &PlaylistStore{
		db:     m.db,
		logger: m.logger,
		now:    time.Now,
	}
}

// Save replaces the stored playlist in a single transaction.
func (s *PlaylistStore) Save(p *playlist.Playlist) error {
	rec := playlist.NewRecord(p)
	return dbutil.WithTx(s.db, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`DELETE FROM playlist_tracks`); err != nil {
			return err
		}

		_, err := tx.Exec(`
			INSERT INTO playlist_state (id, current_index, loop_enabled, updated_at)
			VALUES (1, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				current_index = excluded.current_index,
				loop_enabled = excluded.loop_enabled,
				updated_at = excluded.updated_at
		`, rec.CurrentIndex, rec.LoopEnabled, s.now().Unix())
		if err != nil {
			return err
		}

		stmt, err := tx.Prepare(`
			INSERT INTO playlist_tracks (position, path, title, artist, album, artwork_path, duration)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for i, t := range rec.Songs {
			_, err = stmt.Exec(i, t.FilePath, t.Title, dbutil.NullString(t.Artist), dbutil.NullString(t.Album), t.ArtworkPath, t.Duration)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// Load returns the stored playlist, or an empty one when nothing is stored
// or the stored playlist is invalid.
func (s *PlaylistStore) Load() *playlist.Playlist {
	s.recovered = ""

	rec, found, err := s.readRecord()
	if err != nil {
		// The rows don't fit the Go types; copy them as stored.
		id, backupErr := s.setAside(err, rawRecordSQL)
		return s.discard(err, id, backupErr)
	}
	if !found {
		return playlist.New()
	}

	p, err := rec.Playlist()
	if err == nil {
		return p
	}

	data, backupErr := json.Marshal(rec)
	var id int64
	if backupErr == nil {
		id, backupErr = s.setAside(err, "?", string(data))
	}
	return s.discard(err, id, backupErr)
}

func (s *PlaylistStore) discard(err error, id int64, backupErr error) *playlist.Playlist {
	if backupErr != nil {
		s.logger.Error().Err(backupErr).Msg("set aside corrupt playlist")
		s.recovered = err.Error()
		return playlist.New()
	}
	s.recovered = fmt.Sprintf("%v (backed up as #%d)", err, id)
	s.logger.Warn().Err(err).Int64("backup", id).Msg("playlist corrupt, starting empty")
	return playlist.New()
}

// Recovered describes the playlist discarded by the last Load, or "".
func (s *PlaylistStore) Recovered() string {
	return s.recovered
}

// Backup is a playlist set aside by Load.
type Backup struct {
	ID        int64
	CreatedAt time.Time
	Reason    string
	Record    playlist.Record
}

// Backups lists the playlists set aside by Load, newest first.
func (s *PlaylistStore) Backups() ([]Backup, error) {
	rows, err := s.db.Query(`
		SELECT id, created_at, reason, record FROM playlist_backups ORDER BY id DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var backups []Backup
	for rows.Next() {
		var (
			b         Backup
			createdAt int64
			record    sql.NullString
		)
		if err := rows.Scan(&b.ID, &createdAt, &b.Reason, &record); err != nil {
			return nil, err
		}
		b.CreatedAt = time.Unix(createdAt, 0)
		if record.Valid {
			rec, err := decodeBackup(record.String)
			if err != nil {
				return nil, fmt.Errorf("backup %d: %w", b.ID, err)
			}
			b.Record = rec
		}
		backups = append(backups, b)
	}
	return backups, rows.Err()
}

func (s *PlaylistStore) readRecord() (playlist.Record, bool, error) {
	rec := playlist.Record{CurrentIndex: -1}

	row := s.db.QueryRow(`SELECT current_index, loop_enabled FROM playlist_state WHERE id = 1`)
	err := row.Scan(&rec.CurrentIndex, &rec.LoopEnabled)
	if errors.Is(err, sql.ErrNoRows) {
		return rec, false, nil
	}
	if err != nil {
		return rec, false, err
	}

	rows, err := s.db.Query(`
		SELECT path, title, artist, album, artwork_path, duration
		FROM playlist_tracks
		ORDER BY position
	`)
	if err != nil {
		return rec, false, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			t             playlist.TrackRecord
			artist, album sql.NullString
			artwork       sql.NullString
		)
		if err := rows.Scan(&t.FilePath, &t.Title, &artist, &album, &artwork, &t.Duration); err != nil {
			return rec, false, err
		}
		t.Artist = dbutil.String(artist)
		t.Album = dbutil.String(album)
		if artwork.Valid {
			t.ArtworkPath = &artwork.String
		}
		rec.Songs = append(rec.Songs, t)
	}
	return rec, true, rows.Err()
}

// rawRecordSQL rebuilds the stored rows as a JSON record without
// converting any column.
const rawRecordSQL = `json_object(
	'songs', json(COALESCE((
		SELECT json_group_array(json_object(
			'file_path', path, 'title', title, 'artist', artist, 'album', album,
			'artwork_path', artwork_path, 'duration', duration))
		FROM (SELECT * FROM playlist_tracks ORDER BY position)
	), '[]')),
	'current_index', COALESCE((SELECT current_index FROM playlist_state WHERE id = 1), -1),
	'loop_enabled', json(CASE WHEN (SELECT loop_enabled FROM playlist_state WHERE id = 1) THEN 'true' ELSE 'false' END)
)`

// setAside copies the stored playlist into playlist_backups and clears
// it. recordExpr is the SQL expression of the backed up record.
func (s *PlaylistStore) setAside(reason error, recordExpr string, args ...any) (int64, error) {
	var id int64
	err := dbutil.WithTx(s.db, func(tx *sql.Tx) error {
		res, err := tx.Exec(
			`INSERT INTO playlist_backups (created_at, reason, record) SELECT ?, ?, `+recordExpr,
			append([]any{s.now().Unix(), reason.Error()}, args...)...,
		)
		if err != nil {
			return err
		}
		if id, err = res.LastInsertId(); err != nil {
			return err
		}
		if _, err := tx.Exec(`DELETE FROM playlist_tracks`); err != nil {
			return err
		}
		_, err = tx.Exec(`DELETE FROM playlist_state`)
		return err
	})
	return id, err
}

// decodeBackup reads a backed up record. Records copied from unreadable
// rows may hold values of the wrong type; those fields are left empty.
func decodeBackup(data string) (playlist.Record, error) {
	var rec playlist.Record
	if err := json.Unmarshal([]byte(data), &rec); err == nil {
		return rec, nil
	}

	var raw struct {
		Songs        []map[string]any `json:"songs"`
		CurrentIndex any              `json:"current_index"`
		LoopEnabled  any              `json:"loop_enabled"`
	}
	if err := json.Unmarshal([]byte(data), &raw); err != nil {
		return rec, err
	}
	rec = playlist.Record{CurrentIndex: -1}
	if n, ok := raw.CurrentIndex.(float64); ok {
		rec.CurrentIndex = int(n)
	}
	rec.LoopEnabled, _ = raw.LoopEnabled.(bool)
	for _, song := range raw.Songs {
		str := func(k string) string {
			v, _ := song[k].(string)
			return v
		}
		t := playlist.TrackRecord{
			FilePath: str("file_path"),
			Title:    str("title"),
			Artist:   str("artist"),
			Album:    str("album"),
		}
		if art := str("artwork_path"); art != "" {
			t.ArtworkPath = &art
		}
		t.Duration, _ = song["duration"].(float64)
		rec.Songs = append(rec.Songs, t)
	}
	return rec, nil
}
