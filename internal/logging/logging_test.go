package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/llehouerou/wavesd/internal/config"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input   string
		want    zerolog.Level
		wantErr bool
	}{
		{"", zerolog.InfoLevel, false},
		{"debug", zerolog.DebugLevel, false},
		{" WARN ", zerolog.WarnLevel, false},
		{"error", zerolog.ErrorLevel, false},
		{"loud", zerolog.NoLevel, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestNew_Console(t *testing.T) {
	var buf bytes.Buffer
	logger, closeFn, err := New(config.LogConfig{Level: "warn"}, &buf, false)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer closeFn()

	logger.Info().Msg("hidden")
	logger.Warn().Str("path", "/a.mp3").Msg("shown")

	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("output %q is not one JSON line: %v", buf.String(), err)
	}
	if entry["message"] != "shown" || entry["path"] != "/a.mp3" || entry["level"] != "warn" {
		t.Errorf("entry = %v", entry)
	}
	if _, ok := entry["time"]; !ok {
		t.Error("entry has no timestamp")
	}
}

func TestNew_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "wavesd.log")
	var console bytes.Buffer
	logger, closeFn, err := New(config.LogConfig{File: path}, &console, true)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	logger.Info().Msg("to file")
	if err := closeFn(); err != nil {
		t.Fatalf("close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(data, []byte("to file")) {
		t.Errorf("log file = %q", data)
	}
	if console.Len() != 0 {
		t.Errorf("console got %q, want nothing", console.String())
	}
}

func TestNew_BadLevel(t *testing.T) {
	if _, _, err := New(config.LogConfig{Level: "chatty"}, &bytes.Buffer{}, false); err == nil {
		t.Error("New() error = nil, want error")
	}
}
