package notify

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/llehouerou/wavesd/internal/catalog"
	"github.com/llehouerou/wavesd/internal/playback"
	"github.com/llehouerou/wavesd/internal/playlist"
)

const songTimeout = 5000 // ms

// Watcher shows a notification when a new song starts and when playback
// hits an error the user should know about.
type Watcher struct {
	n      Notifier
	logger zerolog.Logger
	lastID uint32
}

// NewWatcher creates a watcher sending through n.
func NewWatcher(n Notifier, logger zerolog.Logger) *Watcher {
	return &Watcher{
		n:      n,
		logger: logger.With().Str("component", "notify").Logger(),
	}
}

// Run consumes events until the channel is closed or ctx is done.
func (w *Watcher) Run(ctx context.Context, events <-chan playback.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if notif, ok := notificationFor(ev); ok {
				w.send(notif)
			}
		}
	}
}

func (w *Watcher) send(notif Notification) {
	notif.ReplacesID = w.lastID
	id, err := w.n.Notify(notif)
	if err != nil {
		w.logger.Debug().Err(err).Msg("send notification")
		return
	}
	w.lastID = id
}

func notificationFor(ev playback.Event) (Notification, bool) {
	switch e := ev.(type) {
	case *playback.SongChanged:
		if e.Track == nil {
			return Notification{}, false
		}
		return songNotification(*e.Track), true
	case *playback.PlaybackError:
		switch e.Kind {
		case playback.KindAllTracksFailed, playback.KindPlaylistCorrupt:
			return Notification{
				Title:   "wavesd",
				Body:    e.Message,
				Icon:    "dialog-error",
				Timeout: -1,
				Urgency: UrgencyCritical,
			}, true
		}
	}
	return Notification{}, false
}

func songNotification(t playlist.Track) Notification {
	title := t.Title
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(t.Path), filepath.Ext(t.Path))
	}

	var parts []string
	for _, s := range []string{t.Artist, t.Album} {
		if s != "" {
			parts = append(parts, s)
		}
	}

	return Notification{
		Title:   title,
		Body:    strings.Join(parts, " - "),
		Icon:    catalog.Artwork(t),
		Timeout: songTimeout,
		Urgency: UrgencyLow,
	}
}
