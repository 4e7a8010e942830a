//nolint:goconst // test cases intentionally repeat strings for readability
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/adrg/xdg"
)

func writeConfig(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("Could not get home dir: %v", err)
	}

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "tilde expands to home",
			input:    "~/music",
			expected: filepath.Join(home, "music"),
		},
		{
			name:     "absolute path unchanged",
			input:    "/var/lib/wavesd/playlist.json",
			expected: "/var/lib/wavesd/playlist.json",
		},
		{
			name:     "relative path unchanged",
			input:    "data/playlist.json",
			expected: "data/playlist.json",
		},
		{
			name:     "empty string unchanged",
			input:    "",
			expected: "",
		},
		{
			name:     "tilde only",
			input:    "~",
			expected: home,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := expandPath(tt.input)
			if result != tt.expected {
				t.Errorf("expandPath(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestGetConfigPaths(t *testing.T) {
	paths := getConfigPaths()

	if len(paths) != 2 {
		t.Fatalf("getConfigPaths() = %v, want 2 paths", paths)
	}
	if want := filepath.Join(xdg.ConfigHome, "wavesd", "config.toml"); paths[0] != want {
		t.Errorf("first config path = %q, want %q", paths[0], want)
	}
	if paths[1] != "config.toml" {
		t.Errorf("last config path = %q, want %q", paths[1], "config.toml")
	}
}

func TestLoad_Files(t *testing.T) {
	dir := t.TempDir()
	user := writeConfig(t, dir, "user.toml", `
playlist_file = "/data/playlist.json"
store = "SQLite"
cleanup_on_load = false

[playback]
tick_interval = "50ms"
max_failures = 5
default_volume = 0.4

[server]
listen = "0.0.0.0:9000"

[lastfm]
api_key = "key"
api_secret = "secret"
`)
	local := writeConfig(t, dir, "local.toml", `
[server]
enabled = false

[log]
level = "debug"
`)

	cfg, err := load([]string{user, filepath.Join(dir, "absent.toml"), local})
	if err != nil {
		t.Fatalf("load() error = %v", err)
	}

	if cfg.GetPlaylistFile() != "/data/playlist.json" {
		t.Errorf("GetPlaylistFile() = %q", cfg.GetPlaylistFile())
	}
	if cfg.StoreKind() != StoreSQLite {
		t.Errorf("StoreKind() = %q, want %q", cfg.StoreKind(), StoreSQLite)
	}
	if cfg.ShouldCleanupOnLoad() {
		t.Error("ShouldCleanupOnLoad() = true, want false")
	}
	pb := cfg.GetPlaybackConfig()
	if pb.TickInterval != 50*time.Millisecond || pb.MaxFailures != 5 || pb.DefaultVolume != 0.4 {
		t.Errorf("GetPlaybackConfig() = %+v", pb)
	}
	if pb.QueueSize != 64 || pb.SaveDebounce != 500*time.Millisecond {
		t.Errorf("GetPlaybackConfig() defaults = %+v", pb)
	}
	// The later file overrides the section flag but keeps earlier keys.
	if cfg.ServerEnabled() {
		t.Error("ServerEnabled() = true, want false")
	}
	if cfg.GetListen() != "0.0.0.0:9000" {
		t.Errorf("GetListen() = %q", cfg.GetListen())
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want debug", cfg.Log.Level)
	}
	if !cfg.HasLastfmConfig() {
		t.Error("HasLastfmConfig() = false, want true")
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad toml", "store = "},
		{"unknown store", `store = "redis"`},
		{"volume out of range", "[playback]\ndefault_volume = 1.5"},
		{"bad duration", "[playback]\ntick_interval = \"soon\""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, t.TempDir(), "config.toml", tt.content)
			if _, err := load([]string{path}); err == nil {
				t.Error("load() error = nil, want error")
			}
		})
	}
}

func TestLoad_ExplicitMissing(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Error("Load() error = nil for a missing explicit file")
	}
}

func TestLoad_NoFiles(t *testing.T) {
	cfg, err := load(nil)
	if err != nil {
		t.Fatalf("load(nil) error = %v", err)
	}
	if cfg.StoreKind() != StoreJSON {
		t.Errorf("StoreKind() = %q, want %q", cfg.StoreKind(), StoreJSON)
	}
	if !cfg.ShouldCleanupOnLoad() || !cfg.ServerEnabled() || !cfg.MPRISEnabled() || !cfg.NotificationsEnabled() {
		t.Errorf("toggles should default to true: %+v", cfg)
	}
	if cfg.GetListen() != DefaultListen {
		t.Errorf("GetListen() = %q, want %q", cfg.GetListen(), DefaultListen)
	}
	if want := filepath.Join(xdg.DataHome, "wavesd", "playlist.json"); cfg.GetPlaylistFile() != want {
		t.Errorf("GetPlaylistFile() = %q, want %q", cfg.GetPlaylistFile(), want)
	}
	if want := filepath.Join(xdg.CacheHome, "wavesd", "artwork"); cfg.GetArtworkDir() != want {
		t.Errorf("GetArtworkDir() = %q, want %q", cfg.GetArtworkDir(), want)
	}
}

func TestGetPlaybackConfig_Defaults(t *testing.T) {
	cfg := Config{}
	pb := cfg.GetPlaybackConfig()

	if pb.TickInterval != 100*time.Millisecond {
		t.Errorf("TickInterval = %v, want 100ms", pb.TickInterval)
	}
	if pb.QueueSize != 64 {
		t.Errorf("QueueSize = %d, want 64", pb.QueueSize)
	}
	if pb.SubscriberBuffer != 64 {
		t.Errorf("SubscriberBuffer = %d, want 64", pb.SubscriberBuffer)
	}
	if pb.MaxFailures != 3 {
		t.Errorf("MaxFailures = %d, want 3", pb.MaxFailures)
	}
	if pb.DefaultVolume != 0.7 {
		t.Errorf("DefaultVolume = %f, want 0.7", pb.DefaultVolume)
	}
	if pb.SaveDebounce != 500*time.Millisecond {
		t.Errorf("SaveDebounce = %v, want 500ms", pb.SaveDebounce)
	}
}

func TestHasLastfmConfig(t *testing.T) {
	tests := []struct {
		name     string
		config   Config
		expected bool
	}{
		{
			name: "both APIKey and APISecret set",
			config: Config{
				Lastfm: LastfmConfig{
					APIKey:    "my-api-key",
					APISecret: "my-api-secret",
				},
			},
			expected: true,
		},
		{
			name: "only APIKey set",
			config: Config{
				Lastfm: LastfmConfig{
					APIKey: "my-api-key",
				},
			},
			expected: false,
		},
		{
			name:     "neither set",
			config:   Config{},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.config.HasLastfmConfig()
			if result != tt.expected {
				t.Errorf("HasLastfmConfig() = %v, want %v", result, tt.expected)
			}
		})
	}
}
