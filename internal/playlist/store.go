package playlist

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Store persists a playlist.
//
// Load never fails: whatever it finds in durable storage, it returns a
// structurally valid playlist, falling back to an empty one.
type Store interface {
	Save(p *Playlist) error
	Load() *Playlist
}

// RecoveryReporter is implemented by stores that can tell whether the last
// Load discarded a corrupt playlist.
type RecoveryReporter interface {
	// Recovered returns a description of the discarded playlist, or "" if
	// the last Load was clean.
	Recovered() string
}

// ErrCorrupt reports a playlist record that cannot be turned into a
// valid playlist.
var ErrCorrupt = errors.New("playlist corrupt")

const backupTimeLayout = "20060102_150405"

// Record is the persisted form of a playlist.
type Record struct {
	Songs        []TrackRecord `json:"songs"`
	CurrentIndex int           `json:"current_index"`
	LoopEnabled  bool          `json:"loop_enabled"`
}

// TrackRecord is the persisted form of a track.
type TrackRecord struct {
	FilePath    string  `json:"file_path"`
	Title       string  `json:"title"`
	Artist      string  `json:"artist"`
	Album       string  `json:"album"`
	ArtworkPath *string `json:"artwork_path"`
	Duration    float64 `json:"duration"` // seconds
}

// NewRecord converts a playlist to its persisted form.
func NewRecord(p *Playlist) Record {
	r := Record{
		Songs:        make([]TrackRecord, 0, p.Len()),
		CurrentIndex: p.CurrentIndex(),
		LoopEnabled:  p.Loop(),
	}
	for _, t := range p.tracks {
		tr := TrackRecord{
			FilePath: t.Path,
			Title:    t.Title,
			Artist:   t.Artist,
			Album:    t.Album,
			Duration: t.Duration.Seconds(),
		}
		if t.ArtworkPath != "" {
			art := t.ArtworkPath
			tr.ArtworkPath = &art
		}
		r.Songs = append(r.Songs, tr)
	}
	return r
}

// Playlist converts a record back to a playlist.
// Returns ErrCorrupt if the record is structurally invalid.
func (r Record) Playlist() (*Playlist, error) {
	if len(r.Songs) == 0 && r.CurrentIndex == 0 {
		// Older records store 0 for an empty list.
		r.CurrentIndex = -1
	}
	if r.CurrentIndex < -1 || r.CurrentIndex >= len(r.Songs) {
		return nil, fmt.Errorf("%w: current index %d out of range [0,%d)", ErrCorrupt, r.CurrentIndex, len(r.Songs))
	}
	tracks := make([]Track, 0, len(r.Songs))
	for i, s := range r.Songs {
		if strings.TrimSpace(s.FilePath) == "" {
			return nil, fmt.Errorf("%w: entry %d has no file path", ErrCorrupt, i)
		}
		if s.Duration < 0 {
			return nil, fmt.Errorf("%w: entry %d has negative duration", ErrCorrupt, i)
		}
		t := Track{
			Path:     s.FilePath,
			Title:    s.Title,
			Artist:   s.Artist,
			Album:    s.Album,
			Duration: time.Duration(s.Duration * float64(time.Second)),
		}
		if s.ArtworkPath != nil {
			t.ArtworkPath = *s.ArtworkPath
		}
		tracks = append(tracks, t)
	}
	return FromTracks(tracks, r.CurrentIndex, r.LoopEnabled), nil
}

// FileStore persists a playlist as a JSON file.
type FileStore struct {
	path      string
	logger    zerolog.Logger
	now       func() time.Time
	recovered string
}

// NewFileStore creates a store for the JSON file at path.
func NewFileStore(path string, logger zerolog.Logger) *FileStore {
	return &FileStore{
		path:   path,
		logger: logger.With().Str("component", "playlist-store").Logger(),
		now:    time.Now,
	}
}

// Path returns the location of the playlist file.
func (s *FileStore) Path() string {
	return s.path
}

// Save writes the playlist with write-temp-then-rename, so a crash never
// leaves a partially written file behind.
func (s *FileStore) Save(p *Playlist) error {
	data, err := json.MarshalIndent(NewRecord(p), "", "  ")
	if err != nil {
		return fmt.Errorf("encode playlist: %w", err)
	}
	if err := writeFileAtomic(s.path, data); err != nil {
		return fmt.Errorf("save playlist: %w", err)
	}
	s.logger.Debug().Int("tracks", p.Len()).Str("path", s.path).Msg("playlist saved")
	return nil
}

// Load reads the playlist file. A missing file yields an empty playlist.
// An unreadable or invalid file is moved aside to a timestamped backup and
// an empty playlist is returned.
func (s *FileStore) Load() *Playlist {
	s.recovered = ""
	p, err := s.read(s.path)
	switch {
	case err == nil:
		s.logger.Info().Int("tracks", p.Len()).Str("path", s.path).Msg("playlist loaded")
		return p
	case errors.Is(err, os.ErrNotExist):
		s.logger.Info().Str("path", s.path).Msg("no playlist file, starting empty")
		return New()
	}

	s.logger.Warn().Err(err).Str("path", s.path).Msg("playlist file unusable, resetting")
	backup, berr := s.moveAside()
	if berr != nil {
		s.logger.Error().Err(berr).Str("path", s.path).Msg("could not back up corrupt playlist")
		s.recovered = fmt.Sprintf("%s: %v", s.path, err)
	} else {
		s.logger.Info().Str("backup", backup).Msg("corrupt playlist backed up")
		s.recovered = fmt.Sprintf("%v (backed up to %s)", err, backup)
	}
	return New()
}

// Recovered describes the corrupt playlist discarded by the last Load, or
// returns "" if it was clean.
func (s *FileStore) Recovered() string {
	return s.recovered
}

// Backup writes a copy of the playlist to dst. An empty dst picks a
// timestamped name next to the playlist file.
func (s *FileStore) Backup(p *Playlist, dst string) (string, error) {
	if dst == "" {
		dst = s.siblingName("backup")
	}
	data, err := json.MarshalIndent(NewRecord(p), "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode playlist: %w", err)
	}
	if err := writeFileAtomic(dst, data); err != nil {
		return "", fmt.Errorf("backup playlist: %w", err)
	}
	return dst, nil
}

// Restore reads a playlist from a backup file. Unlike Load, a bad backup
// is reported as an error and left in place.
func (s *FileStore) Restore(src string) (*Playlist, error) {
	p, err := s.read(src)
	if err != nil {
		return nil, fmt.Errorf("restore playlist: %w", err)
	}
	return p, nil
}

func (s *FileStore) read(path string) (*Playlist, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	return r.Playlist()
}

func (s *FileStore) moveAside() (string, error) {
	backup := s.siblingName("corrupted")
	if err := os.Rename(s.path, backup); err != nil {
		return "", err
	}
	return backup, nil
}

// siblingName returns <dir>/<stem>_<kind>_<timestamp><ext>.
func (s *FileStore) siblingName(kind string) string {
	dir := filepath.Dir(s.path)
	ext := filepath.Ext(s.path)
	stem := strings.TrimSuffix(filepath.Base(s.path), ext)
	name := fmt.Sprintf("%s_%s_%s%s", stem, kind, s.now().Format(backupTimeLayout), ext)
	return filepath.Join(dir, name)
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
