// Package tags reads track metadata, embedded cover art and stream
// durations from music files.
package tags

import (
	"path/filepath"
	"strings"
	"time"
)

// Extensions the player decodes.
const (
	ExtMP3  = ".mp3"
	ExtFLAC = ".flac"
	ExtOGG  = ".ogg"
	ExtOGA  = ".oga"
	ExtWAV  = ".wav"
)

// Tag is the part of a file's metadata that describes a track.
// Artist falls back to the album artist. Missing fields are empty.
type Tag struct {
	Title  string
	Artist string
	Album  string
}

func newTag(title, artist, albumArtist, album string) *Tag {
	if strings.TrimSpace(artist) == "" {
		artist = albumArtist
	}
	return &Tag{Title: title, Artist: artist, Album: album}
}

// AudioInfo describes the audio stream as read from the file headers.
type AudioInfo struct {
	Duration   time.Duration
	SampleRate int
}

// Ext returns the lowercased extension of path.
func Ext(path string) string {
	return strings.ToLower(filepath.Ext(path))
}

// IsMusicFile reports whether path has an extension the player decodes.
func IsMusicFile(path string) bool {
	switch Ext(path) {
	case ExtMP3, ExtFLAC, ExtOGG, ExtOGA, ExtWAV:
		return true
	}
	return false
}
