//go:build windows

// Package stderr provides a no-op implementation for Windows.
// Windows audio libraries don't produce the same stderr noise as ALSA.
package stderr

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// Start is a no-op on Windows.
func Start(zerolog.Logger) error {
	return nil
}

// Original returns os.Stderr.
func Original() io.Writer {
	return os.Stderr
}

// Stop is a no-op on Windows.
func Stop() {}
