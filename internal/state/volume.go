package state

import (
	"database/sql"
	"errors"
)

// GetVolume returns the saved volume level. ok is false when none was
// saved yet.
func (m *Manager) GetVolume() (level float64, ok bool, err error) {
	row := m.db.QueryRow(`SELECT volume FROM player_state WHERE id = 1`)
	err = row.Scan(&level)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return level, true, nil
}

// SaveVolume persists the volume level.
func (m *Manager) SaveVolume(level float64) error {
	_, err := m.db.Exec(`
		INSERT INTO player_state (id, volume)
		VALUES (1, ?)
		ON CONFLICT(id) DO UPDATE SET
			volume = excluded.volume
	`, level)
	return err
}
