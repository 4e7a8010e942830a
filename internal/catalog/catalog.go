// Package catalog builds playlist tracks from music files.
package catalog

import (
	"bytes"
	"crypto/sha1" //nolint:gosec // cache key, not security
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png" // PNG decoder for cover art
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nfnt/resize"
	"github.com/rs/zerolog"

	"github.com/llehouerou/wavesd/internal/player"
	"github.com/llehouerou/wavesd/internal/playlist"
	"github.com/llehouerou/wavesd/internal/tags"
)

// ErrNotFound is returned when a path does not name a readable regular file.
var ErrNotFound = errors.New("track file not found")

// Max artwork thumbnail edge in pixels.
const artworkSize = 300

// Catalog resolves file paths into tracks.
type Catalog struct {
	artworkDir string
	logger     zerolog.Logger

	// Swappable for tests.
	readTags  func(string) (*tags.Tag, error)
	readInfo  func(string) (*tags.AudioInfo, error)
	probe     func(string) (time.Duration, error)
	readCover func(string) (*tags.Cover, error)
}

// New creates a catalog. Artwork is cached in artworkDir; an empty
// artworkDir disables artwork extraction.
func New(artworkDir string, logger zerolog.Logger) *Catalog {
	return &Catalog{
		artworkDir: artworkDir,
		logger:     logger.With().Str("component", "catalog").Logger(),
		readTags:   tags.Read,
		readInfo:   tags.ReadAudioInfo,
		probe:      player.Probe,
		readCover:  tags.ReadCover,
	}
}

// Resolve builds a track for path. Metadata problems never fail the call:
// the title falls back to the file name, artist and album stay empty and
// the duration stays 0 (unknown).
func (c *Catalog) Resolve(path string) (playlist.Track, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return playlist.Track{}, fmt.Errorf("resolve %s: %w", path, err)
	}
	info, err := os.Stat(abs)
	if err != nil || !info.Mode().IsRegular() || !playlist.Readable(abs) {
		return playlist.Track{}, fmt.Errorf("%w: %s", ErrNotFound, abs)
	}
	if !tags.IsMusicFile(abs) {
		return playlist.Track{}, fmt.Errorf("%w: %s", player.ErrUnsupportedFormat, abs)
	}

	t := playlist.Track{Path: abs}
	tag, err := c.readTags(abs)
	if err != nil {
		c.logger.Debug().Err(err).Str("path", abs).Msg("no tags, using file name")
	} else {
		t.Title = strings.TrimSpace(tag.Title)
		t.Artist = strings.TrimSpace(tag.Artist)
		t.Album = strings.TrimSpace(tag.Album)
	}
	if t.Title == "" {
		t.Title = strings.TrimSuffix(filepath.Base(abs), filepath.Ext(abs))
	}

	t.Duration = c.duration(abs)

	if c.artworkDir != "" {
		art, err := c.artwork(abs)
		if err != nil {
			c.logger.Debug().Err(err).Str("path", abs).Msg("artwork extraction failed")
		}
		t.ArtworkPath = art
	}
	return t, nil
}

// ResolveAll resolves every path, skipping the ones that fail.
// The returned errors are in the order of the failed paths.
func (c *Catalog) ResolveAll(paths []string) ([]playlist.Track, []error) {
	tracks := make([]playlist.Track, 0, len(paths))
	var errs []error
	for _, p := range paths {
		t, err := c.Resolve(p)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		tracks = append(tracks, t)
	}
	return tracks, errs
}

func (c *Catalog) duration(path string) time.Duration {
	if info, err := c.readInfo(path); err == nil && info.Duration > 0 {
		return info.Duration
	}
	d, err := c.probe(path)
	if err != nil || d < 0 {
		c.logger.Debug().Err(err).Str("path", path).Msg("duration unknown")
		return 0
	}
	return d
}

// artwork writes a JPEG thumbnail of the track cover to the cache and
// returns its path, or "" when the track has no cover.
func (c *Catalog) artwork(path string) (string, error) {
	sum := sha1.Sum([]byte(path)) //nolint:gosec // cache key, not security
	dst := filepath.Join(c.artworkDir, hex.EncodeToString(sum[:8])+".jpg")
	if _, err := os.Stat(dst); err == nil {
		return dst, nil
	}

	cover, err := c.readCover(path)
	if err != nil || cover == nil {
		return "", err
	}
	img, _, err := image.Decode(bytes.NewReader(cover.Data))
	if err != nil {
		return "", fmt.Errorf("decode cover: %w", err)
	}
	thumb := resize.Thumbnail(artworkSize, artworkSize, img, resize.Lanczos3)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, thumb, &jpeg.Options{Quality: 85}); err != nil {
		return "", fmt.Errorf("encode cover: %w", err)
	}
	if err := os.MkdirAll(c.artworkDir, 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(dst, buf.Bytes(), 0o644); err != nil {
		return "", err
	}
	return dst, nil
}
