package state

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/llehouerou/wavesd/internal/playback"
)

// Recorder persists volume changes and the play history from the event
// stream of a coordinator subscription.
type Recorder struct {
	sink   Sink
	logger zerolog.Logger
}

// NewRecorder creates a recorder writing to sink.
func NewRecorder(sink Sink, logger zerolog.Logger) *Recorder {
	return &Recorder{
		sink:   sink,
		logger: logger.With().Str("component", "recorder").Logger(),
	}
}

// Run consumes events until the channel is closed or ctx is done. Write
// errors are logged and never stop the recorder.
func (r *Recorder) Run(ctx context.Context, events <-chan playback.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			r.handle(ev)
		}
	}
}

func (r *Recorder) handle(ev playback.Event) {
	switch e := ev.(type) {
	case *playback.VolumeChanged:
		if err := r.sink.SaveVolume(e.Level); err != nil {
			r.logger.Warn().Err(err).Msg("save volume")
		}
	case *playback.SongChanged:
		if e.Track == nil {
			return
		}
		at := e.Meta().At
		if at.IsZero() {
			at = time.Now()
		}
		if err := r.sink.AddPlay(Play{Track: *e.Track, StartedAt: at}); err != nil {
			r.logger.Warn().Err(err).Str("path", e.Track.Path).Msg("record play")
		}
	}
}
