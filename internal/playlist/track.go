package playlist

import (
	"path/filepath"
	"strings"
	"time"
)

// Track represents a single playable item in a playlist.
// Tracks are values: they are built once by the catalog and never modified.
type Track struct {
	Path        string // file path, identifies the track
	Title       string
	Artist      string
	Album       string
	ArtworkPath string        // cached artwork image, empty if none
	Duration    time.Duration // 0 if unknown
}

// DisplayName returns "Artist - Title", or just the title when the artist
// is unknown. Falls back to the file name when the title is empty.
func (t Track) DisplayName() string {
	title := t.Title
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(t.Path), filepath.Ext(t.Path))
	}
	if t.Artist == "" {
		return title
	}
	return t.Artist + " - " + title
}

// HasArtwork reports whether the track references cached artwork.
func (t Track) HasArtwork() bool {
	return t.ArtworkPath != ""
}
