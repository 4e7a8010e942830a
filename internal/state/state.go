package state

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite" // SQLite driver
)

const (
	appName    = "wavesd"
	dbFileName = "state.db"
)

// Manager owns the state database.
type Manager struct {
	db     *sql.DB
	logger zerolog.Logger
}

// Open opens (creating if needed) the database at path.
func Open(path string, logger zerolog.Logger) (*Manager, error) {
	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	return newManager(db, logger), nil
}

func newManager(db *sql.DB, logger zerolog.Logger) *Manager {
	return &Manager{
		db:     db,
		logger: logger.With().Str("component", "state").Logger(),
	}
}

func (m *Manager) Close() error {
	return m.db.Close()
}

func (m *Manager) DB() *sql.DB {
	return m.db
}

// DefaultPath returns the database location under the XDG data directory,
// creating the parent directory.
func DefaultPath() (string, error) {
	return xdg.DataFile(filepath.Join(appName, dbFileName))
}
