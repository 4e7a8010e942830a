package lastfm

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/llehouerou/wavesd/internal/playback"
	"github.com/llehouerou/wavesd/internal/playlist"
	"github.com/llehouerou/wavesd/internal/state"
)

const (
	// DefaultRetryInterval is how often queued scrobbles are resubmitted.
	DefaultRetryInterval = 5 * time.Minute
	// MaxAttempts is the number of submissions after which a queued
	// scrobble is no longer retried.
	MaxAttempts = 10
	// MaxQueueAge is how old a play may be and still be accepted.
	MaxQueueAge = 14 * 24 * time.Hour
)

// API is the subset of the Last.fm client used by the scrobbler.
type API interface {
	UpdateNowPlaying(track ScrobbleTrack) error
	Scrobble(track ScrobbleTrack) error
}

// Scrobbler sends now-playing notifications and scrobbles from the event
// stream of a coordinator subscription. Failed scrobbles are queued and
// retried periodically.
type Scrobbler struct {
	api           API
	queue         state.ScrobbleQueue
	logger        zerolog.Logger
	retryInterval time.Duration

	track *playlist.Track
	state ScrobbleState
}

// NewScrobbler creates a scrobbler. queue may be nil, in which case failed
// scrobbles are dropped.
func NewScrobbler(api API, queue state.ScrobbleQueue, logger zerolog.Logger) *Scrobbler {
	return &Scrobbler{
		api:           api,
		queue:         queue,
		logger:        logger.With().Str("component", "lastfm").Logger(),
		retryInterval: DefaultRetryInterval,
	}
}

// Run consumes events until the channel is closed or ctx is done.
func (s *Scrobbler) Run(ctx context.Context, events <-chan playback.Event) {
	ticker := time.NewTicker(s.retryInterval)
	defer ticker.Stop()

	s.retry()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			s.handle(ev)
		case <-ticker.C:
			s.retry()
		}
	}
}

func (s *Scrobbler) handle(ev playback.Event) {
	switch e := ev.(type) {
	case *playback.ResyncSnapshot:
		snap := e.Snapshot
		if snap.Track != nil && snap.State == playback.StatePlaying {
			s.begin(*snap.Track, e.Meta().At.Add(-snap.Elapsed))
			s.progress(snap.Elapsed, snap.Duration)
		}
	case *playback.SongChanged:
		if e.Track == nil {
			s.track = nil
			s.state = ScrobbleState{}
			return
		}
		at := e.Meta().At
		if at.IsZero() {
			at = time.Now()
		}
		s.begin(*e.Track, at)
	case *playback.PositionUpdate:
		s.progress(e.Elapsed, e.Duration)
	}
}

func (s *Scrobbler) begin(t playlist.Track, at time.Time) {
	s.track = &t
	s.state = ScrobbleState{TrackPath: t.Path, StartedAt: at}

	st, ok := trackFor(t, at)
	if !ok {
		s.logger.Debug().Str("path", t.Path).Msg("missing artist or title, not scrobbling")
		return
	}
	if err := s.api.UpdateNowPlaying(st); err != nil {
		s.logger.Warn().Err(err).Str("path", t.Path).Msg("update now playing")
		return
	}
	s.state.NowPlayingSent = true
}

func (s *Scrobbler) progress(elapsed, duration time.Duration) {
	if s.track == nil || s.state.Scrobbled {
		return
	}
	if duration <= 0 {
		duration = s.track.Duration
	}
	if !ShouldScrobble(elapsed, duration) {
		return
	}
	s.state.Scrobbled = true

	st, ok := trackFor(*s.track, s.state.StartedAt)
	if !ok {
		return
	}
	st.Duration = duration

	err := s.api.Scrobble(st)
	if err == nil {
		s.logger.Debug().Str("artist", st.Artist).Str("track", st.Track).Msg("scrobbled")
		return
	}
	s.logger.Warn().Err(err).Str("path", s.track.Path).Msg("scrobble failed, queueing")
	if s.queue == nil {
		return
	}
	qerr := s.queue.QueueScrobble(state.PendingScrobble{
		Artist:   st.Artist,
		Track:    st.Track,
		Album:    st.Album,
		Duration: st.Duration,
		PlayedAt: st.Timestamp,
	})
	if qerr != nil {
		s.logger.Error().Err(qerr).Msg("queue scrobble")
	}
}

func (s *Scrobbler) retry() {
	res, err := RetryPending(s.api, s.queue, time.Now())
	switch {
	case err != nil:
		s.logger.Error().Err(err).Msg("retry pending scrobbles")
	case res != (RetryResult{}):
		s.logger.Info().
			Int("sent", res.Sent).
			Int("failed", res.Failed).
			Int64("expired", res.Expired).
			Msg("retried pending scrobbles")
	}
}

// RetryResult counts what a RetryPending pass did.
type RetryResult struct {
	Sent    int
	Failed  int
	Expired int64
}

// RetryPending resubmits queued scrobbles. Entries older than MaxQueueAge
// are dropped first since Last.fm refuses them. Entries that reached
// MaxAttempts stay queued but are no longer sent.
func RetryPending(api API, queue state.ScrobbleQueue, now time.Time) (RetryResult, error) {
	var res RetryResult
	if queue == nil {
		return res, nil
	}
	expired, err := queue.PruneScrobbles(now.Add(-MaxQueueAge))
	if err != nil {
		return res, err
	}
	res.Expired = expired

	pending, err := queue.PendingScrobbles()
	if err != nil {
		return res, err
	}
	for _, p := range pending {
		if p.Attempts >= MaxAttempts {
			continue
		}
		err := api.Scrobble(ScrobbleTrack{
			Artist:    p.Artist,
			Track:     p.Track,
			Album:     p.Album,
			Duration:  p.Duration,
			Timestamp: p.PlayedAt,
		})
		if err != nil {
			res.Failed++
			_ = queue.ScrobbleFailed(p.ID, err.Error())
			continue
		}
		res.Sent++
		_ = queue.ScrobbleSent(p.ID)
	}
	return res, nil
}
