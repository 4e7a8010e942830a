package state

import (
	"database/sql"
	"time"

	dbutil "github.com/llehouerou/wavesd/internal/db"
	"github.com/llehouerou/wavesd/internal/playlist"
)

// Play is one entry of the play history.
type Play struct {
	ID        int64
	Track     playlist.Track
	StartedAt time.Time
}

// AddPlay records that a track started playing.
func (m *Manager) AddPlay(p Play) error {
	_, err := m.db.Exec(`
		INSERT INTO play_history (path, title, artist, album, duration_ms, started_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, p.Track.Path, p.Track.Title, dbutil.NullString(p.Track.Artist), dbutil.NullString(p.Track.Album),
		p.Track.Duration.Milliseconds(), p.StartedAt.Unix())
	return err
}

// RecentPlays returns up to limit history entries, most recent first.
func (m *Manager) RecentPlays(limit int) ([]Play, error) {
	rows, err := m.db.Query(`
		SELECT id, path, title, artist, album, duration_ms, started_at
		FROM play_history
		ORDER BY started_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var plays []Play
	for rows.Next() {
		var (
			p                   Play
			artist, album       sql.NullString
			durationMs, started int64
		)
		if err := rows.Scan(&p.ID, &p.Track.Path, &p.Track.Title, &artist, &album, &durationMs, &started); err != nil {
			return nil, err
		}
		p.Track.Artist = dbutil.String(artist)
		p.Track.Album = dbutil.String(album)
		p.Track.Duration = time.Duration(durationMs) * time.Millisecond
		p.StartedAt = time.Unix(started, 0)
		plays = append(plays, p)
	}
	return plays, rows.Err()
}

// PruneHistory deletes history entries older than maxAge and returns how
// many were removed.
func (m *Manager) PruneHistory(maxAge time.Duration) (int64, error) {
	cutoff := time.Now().Add(-maxAge).Unix()
	res, err := m.db.Exec(`DELETE FROM play_history WHERE started_at < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
