//go:build !linux

package mpris

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/llehouerou/wavesd/internal/playback"
)

// Adapter is a no-op on non-Linux platforms.
type Adapter struct{}

// New returns a no-op adapter on non-Linux platforms.
func New(_ Controller, _ zerolog.Logger) (*Adapter, error) {
	return &Adapter{}, nil
}

// Run drains the subscription until it ends or ctx is done.
func (a *Adapter) Run(ctx context.Context, sub <-chan playback.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-sub:
			if !ok {
				return
			}
		}
	}
}

// Close is a no-op on non-Linux platforms.
func (a *Adapter) Close() error {
	return nil
}
