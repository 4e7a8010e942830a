//go:build !windows

// Package stderr captures output that C libraries (ALSA behind the speaker
// backend) write directly to file descriptor 2, bypassing Go's os.Stderr.
// Captured lines are re-logged so they cannot corrupt the terminal UI.
package stderr

import (
	"bufio"
	"io"
	"os"
	"strings"
	"sync"
	"syscall"

	"github.com/rs/zerolog"
)

var (
	mu         sync.Mutex
	origStderr = -1
	original   *os.File
	pipeRead   *os.File
	pipeWrite  *os.File
	done       chan struct{}
)

// Start begins capturing stderr output and logs every captured line at
// debug level. Must be called before the audio backend is initialized.
// On error the program can continue without capture.
func Start(logger zerolog.Logger) error {
	mu.Lock()
	defer mu.Unlock()
	if pipeRead != nil {
		return nil
	}

	r, w, err := os.Pipe()
	if err != nil {
		return err
	}

	fd, err := syscall.Dup(int(os.Stderr.Fd()))
	if err != nil {
		r.Close()
		w.Close()
		return err
	}

	// Redirect stderr (fd 2) to the pipe's write end
	if err := dup2(int(w.Fd()), int(os.Stderr.Fd())); err != nil {
		syscall.Close(fd)
		r.Close()
		w.Close()
		return err
	}

	origStderr = fd
	original = os.NewFile(uintptr(fd), "stderr")
	pipeRead, pipeWrite = r, w
	done = make(chan struct{})

	logger = logger.With().Str("component", "stderr").Logger()
	go func(r io.Reader, done chan struct{}) {
		defer close(done)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			if line := strings.TrimSpace(scanner.Text()); line != "" {
				logger.Debug().Msg(line)
			}
		}
	}(r, done)

	return nil
}

// Original returns a writer to the real stderr, bypassing capture.
func Original() io.Writer {
	mu.Lock()
	defer mu.Unlock()
	if original != nil {
		return original
	}
	return os.Stderr
}

// Stop restores the original stderr and waits for pending lines to be
// logged.
func Stop() {
	mu.Lock()
	defer mu.Unlock()
	if pipeRead == nil {
		return
	}

	_ = dup2(origStderr, int(os.Stderr.Fd()))
	pipeWrite.Close()
	<-done
	pipeRead.Close()
	original.Close()

	original, pipeRead, pipeWrite, done = nil, nil, nil, nil
	origStderr = -1
}
