//go:build linux

package mpris

import (
	"context"

	"github.com/quarckster/go-mpris-server/pkg/events"
	"github.com/quarckster/go-mpris-server/pkg/server"
	"github.com/rs/zerolog"

	"github.com/llehouerou/wavesd/internal/playback"
)

// Adapter exposes the coordinator on the session bus as
// org.mpris.MediaPlayer2.wavesd.
type Adapter struct {
	server *server.Server
	events *events.EventHandler
	logger zerolog.Logger
}

// New creates the MPRIS server and starts listening on the session bus.
func New(ctrl Controller, logger zerolog.Logger) (*Adapter, error) {
	a := &Adapter{
		server: server.NewServer("wavesd", &rootAdapter{}, &playerAdapter{ctrl: ctrl}),
		logger: logger.With().Str("component", "mpris").Logger(),
	}
	a.events = events.NewEventHandler(a.server)

	go func() {
		if err := a.server.Listen(); err != nil {
			a.logger.Warn().Err(err).Msg("mpris server stopped")
		}
	}()

	return a, nil
}

// Run emits property change signals for the events of sub until the
// subscription ends or ctx is done.
func (a *Adapter) Run(ctx context.Context, sub <-chan playback.Event) {
	forward(ctx, sub, a.events.Player, a.logger)
}

// Close stops the adapter and releases D-Bus resources.
func (a *Adapter) Close() error {
	return a.server.Stop()
}
