// Package logging builds the process logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"

	"github.com/llehouerou/wavesd/internal/config"
)

// DefaultFile is where logs go when the terminal is taken by the UI and no
// log file is configured.
func DefaultFile() string {
	return filepath.Join(xdg.StateHome, "wavesd", "wavesd.log")
}

// New builds a logger from cfg. Logs go to cfg.File as JSON when set.
// Otherwise, when the terminal is owned by the UI (tui), they go to
// DefaultFile; else to console, pretty-printed on a terminal.
// The returned close function releases the log file, if any.
func New(cfg config.LogConfig, console io.Writer, tui bool) (zerolog.Logger, func() error, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return zerolog.Nop(), nil, err
	}

	path := cfg.File
	if path == "" && tui {
		path = DefaultFile()
	}

	var (
		w       io.Writer
		closeFn = func() error { return nil }
	)
	switch {
	case path != "":
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return zerolog.Nop(), nil, fmt.Errorf("create log dir: %w", err)
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return zerolog.Nop(), nil, fmt.Errorf("open log file: %w", err)
		}
		w, closeFn = f, f.Close
	case isTerminal(console):
		w = zerolog.ConsoleWriter{Out: console, TimeFormat: time.TimeOnly}
	default:
		w = console
	}

	logger := zerolog.New(w).Level(level).With().Timestamp().Logger()
	return logger, closeFn, nil
}

// ParseLevel parses a level name. Empty selects info.
func ParseLevel(s string) (zerolog.Level, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return zerolog.InfoLevel, nil
	}
	level, err := zerolog.ParseLevel(s)
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("log level %q: %w", s, err)
	}
	return level, nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}
