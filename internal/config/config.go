package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const appName = "wavesd"

// Store backends.
const (
	StoreJSON   = "json"
	StoreSQLite = "sqlite"
)

type Config struct {
	PlaylistFile  string `koanf:"playlist_file"`   // JSON playlist (store = "json")
	Store         string `koanf:"store"`           // "json" or "sqlite"
	DBFile        string `koanf:"db_file"`         // state database
	ArtworkDir    string `koanf:"artwork_dir"`     // cached cover thumbnails
	CleanupOnLoad *bool  `koanf:"cleanup_on_load"` // drop missing files at startup (default: true)

	Playback      PlaybackConfig `koanf:"playback"`
	Server        ServerConfig   `koanf:"server"`
	MPRIS         ToggleConfig   `koanf:"mpris"`
	Notifications ToggleConfig   `koanf:"notifications"`

	// Last.fm scrobbling (enabled when api_key and api_secret are set)
	Lastfm LastfmConfig `koanf:"lastfm"`

	Log LogConfig `koanf:"log"`
}

// PlaybackConfig tunes the playback coordinator.
type PlaybackConfig struct {
	TickInterval     time.Duration `koanf:"tick_interval"`     // default: 100ms
	QueueSize        int           `koanf:"queue_size"`        // default: 64
	SubscriberBuffer int           `koanf:"subscriber_buffer"` // default: 64
	MaxFailures      int           `koanf:"max_failures"`      // default: 3
	DefaultVolume    float64       `koanf:"default_volume"`    // 0-1, default: 0.7
	SaveDebounce     time.Duration `koanf:"save_debounce"`     // default: 500ms
}

// ServerConfig holds the WebSocket server settings.
type ServerConfig struct {
	Enabled *bool  `koanf:"enabled"` // default: true
	Listen  string `koanf:"listen"`  // default: 127.0.0.1:8081
}

// ToggleConfig is a section with only an enabled flag.
type ToggleConfig struct {
	Enabled *bool `koanf:"enabled"` // default: true
}

// LastfmConfig holds Last.fm scrobbling configuration.
type LastfmConfig struct {
	APIKey     string `koanf:"api_key"`
	APISecret  string `koanf:"api_secret"`
	SessionKey string `koanf:"session_key"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `koanf:"level"` // debug, info, warn, error (default: info)
	File  string `koanf:"file"`  // JSON log file; empty logs to stderr
}

// DefaultListen is the server address used when none is configured.
const DefaultListen = "127.0.0.1:8081"

// Load reads the configuration. With an explicit path only that file is
// read and it must exist; otherwise the user config and ./config.toml are
// read when present, the latter taking precedence.
func Load(explicit string) (*Config, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return nil, fmt.Errorf("config file: %w", err)
		}
		return load([]string{explicit})
	}
	return load(getConfigPaths())
}

func load(paths []string) (*Config, error) {
	k := koanf.New(".")

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
				return nil, fmt.Errorf("load %s: %w", path, err)
			}
		}
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}

	cfg.PlaylistFile = expandPath(cfg.PlaylistFile)
	cfg.DBFile = expandPath(cfg.DBFile)
	cfg.ArtworkDir = expandPath(cfg.ArtworkDir)
	cfg.Log.File = expandPath(cfg.Log.File)
	cfg.Store = strings.ToLower(strings.TrimSpace(cfg.Store))

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Store {
	case "", StoreJSON, StoreSQLite:
	default:
		return fmt.Errorf("config: unknown store %q (want %q or %q)", c.Store, StoreJSON, StoreSQLite)
	}
	if v := c.Playback.DefaultVolume; v < 0 || v > 1 {
		return fmt.Errorf("config: playback.default_volume %v out of range [0,1]", v)
	}
	return nil
}

func getConfigPaths() []string {
	return []string{
		// 1. $XDG_CONFIG_HOME/wavesd/config.toml
		filepath.Join(xdg.ConfigHome, appName, "config.toml"),
		// 2. ./config.toml (pwd, highest priority)
		"config.toml",
	}
}

func expandPath(path string) string {
	if path != "" && path[0] == '~' {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}

// StoreKind returns the playlist store backend, "json" by default.
func (c *Config) StoreKind() string {
	if c.Store == "" {
		return StoreJSON
	}
	return c.Store
}

// GetPlaylistFile returns the JSON playlist path.
func (c *Config) GetPlaylistFile() string {
	if c.PlaylistFile != "" {
		return c.PlaylistFile
	}
	return filepath.Join(xdg.DataHome, appName, "playlist.json")
}

// GetDBFile returns the state database path.
func (c *Config) GetDBFile() string {
	if c.DBFile != "" {
		return c.DBFile
	}
	return filepath.Join(xdg.DataHome, appName, "state.db")
}

// GetArtworkDir returns the artwork cache directory.
func (c *Config) GetArtworkDir() string {
	if c.ArtworkDir != "" {
		return c.ArtworkDir
	}
	return filepath.Join(xdg.CacheHome, appName, "artwork")
}

// ShouldCleanupOnLoad reports whether missing files are dropped at startup.
func (c *Config) ShouldCleanupOnLoad() bool {
	return boolOr(c.CleanupOnLoad, true)
}

// GetPlaybackConfig returns the playback configuration with defaults applied.
func (c *Config) GetPlaybackConfig() PlaybackConfig {
	cfg := c.Playback

	if cfg.TickInterval <= 0 {
		cfg.TickInterval = 100 * time.Millisecond
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	if cfg.SubscriberBuffer <= 0 {
		cfg.SubscriberBuffer = 64
	}
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 3
	}
	if cfg.DefaultVolume <= 0 || cfg.DefaultVolume > 1 {
		cfg.DefaultVolume = 0.7
	}
	if cfg.SaveDebounce <= 0 {
		cfg.SaveDebounce = 500 * time.Millisecond
	}

	return cfg
}

// ServerEnabled reports whether the WebSocket server runs.
func (c *Config) ServerEnabled() bool {
	return boolOr(c.Server.Enabled, true)
}

// GetListen returns the server listen address.
func (c *Config) GetListen() string {
	if c.Server.Listen == "" {
		return DefaultListen
	}
	return c.Server.Listen
}

// MPRISEnabled reports whether the MPRIS adapter runs.
func (c *Config) MPRISEnabled() bool {
	return boolOr(c.MPRIS.Enabled, true)
}

// NotificationsEnabled reports whether desktop notifications are shown.
func (c *Config) NotificationsEnabled() bool {
	return boolOr(c.Notifications.Enabled, true)
}

// HasLastfmConfig returns true if Last.fm scrobbling is configured.
func (c *Config) HasLastfmConfig() bool {
	return c.Lastfm.APIKey != "" && c.Lastfm.APISecret != ""
}

func boolOr(b *bool, def bool) bool {
	if b == nil {
		return def
	}
	return *b
}
