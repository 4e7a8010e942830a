package state

import (
	"database/sql"
	"errors"
	"time"

	dbutil "github.com/llehouerou/wavesd/internal/db"
)

// LastfmSession is the linked Last.fm account.
type LastfmSession struct {
	Username   string
	SessionKey string
	LinkedAt   time.Time
}

// GetLastfmSession returns the linked session, or nil when none is stored.
func (m *Manager) GetLastfmSession() (*LastfmSession, error) {
	var s LastfmSession
	var linkedAt int64
	err := m.db.QueryRow(
		`SELECT username, session_key, linked_at FROM lastfm_session WHERE id = 1`,
	).Scan(&s.Username, &s.SessionKey, &linkedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil //nolint:nilnil // not linked
	}
	if err != nil {
		return nil, err
	}
	s.LinkedAt = time.Unix(linkedAt, 0)
	return &s, nil
}

// SaveLastfmSession replaces the linked session.
func (m *Manager) SaveLastfmSession(username, sessionKey string) error {
	_, err := m.db.Exec(`
		INSERT OR REPLACE INTO lastfm_session (id, username, session_key, linked_at)
		VALUES (1, ?, ?, ?)
	`, username, sessionKey, time.Now().Unix())
	return err
}

// DeleteLastfmSession unlinks the account.
func (m *Manager) DeleteLastfmSession() error {
	_, err := m.db.Exec(`DELETE FROM lastfm_session`)
	return err
}

// PendingScrobble is a play that Last.fm has not accepted yet.
type PendingScrobble struct {
	ID        int64
	Artist    string
	Track     string
	Album     string
	Duration  time.Duration
	PlayedAt  time.Time
	Attempts  int
	LastError string
}

// QueueScrobble stores s for a later retry.
func (m *Manager) QueueScrobble(s PendingScrobble) error {
	_, err := m.db.Exec(`
		INSERT INTO scrobble_queue (artist, track, album, duration_ms, played_at)
		VALUES (?, ?, ?, ?, ?)
	`, s.Artist, s.Track, dbutil.NullString(s.Album), s.Duration.Milliseconds(), s.PlayedAt.Unix())
	return err
}

// PendingScrobbles returns the queue, oldest play first.
func (m *Manager) PendingScrobbles() ([]PendingScrobble, error) {
	rows, err := m.db.Query(`
		SELECT id, artist, track, album, duration_ms, played_at, attempts, last_error
		FROM scrobble_queue ORDER BY played_at, id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PendingScrobble
	for rows.Next() {
		var s PendingScrobble
		var album, lastErr sql.NullString
		var durationMs, playedAt int64
		if err := rows.Scan(&s.ID, &s.Artist, &s.Track, &album, &durationMs, &playedAt, &s.Attempts, &lastErr); err != nil {
			return nil, err
		}
		s.Album = dbutil.String(album)
		s.LastError = dbutil.String(lastErr)
		s.Duration = time.Duration(durationMs) * time.Millisecond
		s.PlayedAt = time.Unix(playedAt, 0)
		out = append(out, s)
	}
	return out, rows.Err()
}

// ScrobbleSent drops an accepted entry from the queue.
func (m *Manager) ScrobbleSent(id int64) error {
	_, err := m.db.Exec(`DELETE FROM scrobble_queue WHERE id = ?`, id)
	return err
}

// ScrobbleFailed records another failed submission of an entry.
func (m *Manager) ScrobbleFailed(id int64, reason string) error {
	_, err := m.db.Exec(
		`UPDATE scrobble_queue SET attempts = attempts + 1, last_error = ? WHERE id = ?`,
		reason, id,
	)
	return err
}

// PruneScrobbles drops entries played before cutoff and returns how many
// were removed.
func (m *Manager) PruneScrobbles(cutoff time.Time) (int64, error) {
	res, err := m.db.Exec(`DELETE FROM scrobble_queue WHERE played_at < ?`, cutoff.Unix())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
