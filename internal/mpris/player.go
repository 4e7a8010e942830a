package mpris

import (
	"context"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/quarckster/go-mpris-server/pkg/types"
	"github.com/rs/zerolog"

	"github.com/llehouerou/wavesd/internal/catalog"
	"github.com/llehouerou/wavesd/internal/playback"
)

const commandTimeout = 5 * time.Second

// Controller is the coordinator surface used by the MPRIS adapter.
type Controller interface {
	Snapshot() playback.Snapshot
	Submit(ctx context.Context, cmd playback.Command) error
}

// signals emits PropertiesChanged for the player interface.
type signals interface {
	OnPlayPause() error
	OnTitle() error
	OnVolume() error
	OnOptions() error
}

// rootAdapter implements OrgMprisMediaPlayer2Adapter.
type rootAdapter struct{}

func (r *rootAdapter) Raise() error {
	return nil // Not supported
}

func (r *rootAdapter) Quit() error {
	return nil // The daemon manages its own lifecycle
}

func (r *rootAdapter) CanQuit() (bool, error) {
	return false, nil
}

func (r *rootAdapter) CanRaise() (bool, error) {
	return false, nil
}

func (r *rootAdapter) HasTrackList() (bool, error) {
	return false, nil
}

func (r *rootAdapter) Identity() (string, error) {
	return "wavesd", nil
}

//nolint:revive // Method name required by interface.
func (r *rootAdapter) SupportedUriSchemes() ([]string, error) {
	return []string{"file"}, nil
}

func (r *rootAdapter) SupportedMimeTypes() ([]string, error) {
	return []string{"audio/mpeg", "audio/flac", "audio/ogg", "audio/wav"}, nil
}

// playerAdapter implements OrgMprisMediaPlayer2PlayerAdapter on top of the
// coordinator. Properties are read from the latest snapshot.
type playerAdapter struct {
	ctrl Controller
}

func (p *playerAdapter) submit(cmd playback.Command) error {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	return p.ctrl.Submit(ctx, cmd)
}

func (p *playerAdapter) Next() error {
	return p.submit(playback.Command{Op: playback.OpNext})
}

func (p *playerAdapter) Previous() error {
	return p.submit(playback.Command{Op: playback.OpPrevious})
}

func (p *playerAdapter) Pause() error {
	return p.submit(playback.Command{Op: playback.OpPause})
}

func (p *playerAdapter) PlayPause() error {
	if p.ctrl.Snapshot().State == playback.StatePlaying {
		return p.Pause()
	}
	return p.Play()
}

func (p *playerAdapter) Stop() error {
	return p.submit(playback.Command{Op: playback.OpStop})
}

func (p *playerAdapter) Play() error {
	return p.submit(playback.Command{Op: playback.OpPlay})
}

func (p *playerAdapter) Seek(_ types.Microseconds) error {
	return nil // Not supported
}

func (p *playerAdapter) SetPosition(_ string, _ types.Microseconds) error {
	return nil // Not supported
}

//nolint:revive // Method name required by interface.
func (p *playerAdapter) OpenUri(_ string) error {
	return nil // Not supported
}

func (p *playerAdapter) PlaybackStatus() (types.PlaybackStatus, error) {
	switch p.ctrl.Snapshot().State {
	case playback.StatePlaying:
		return types.PlaybackStatusPlaying, nil
	case playback.StatePaused:
		return types.PlaybackStatusPaused, nil
	case playback.StateStopped:
		return types.PlaybackStatusStopped, nil
	}
	return types.PlaybackStatusStopped, nil
}

func (p *playerAdapter) Rate() (float64, error) {
	return 1.0, nil
}

func (p *playerAdapter) SetRate(_ float64) error {
	return nil // Not supported
}

func (p *playerAdapter) Metadata() (types.Metadata, error) {
	snap := p.ctrl.Snapshot()
	track := snap.Track
	if track == nil {
		return types.Metadata{}, nil
	}

	length := snap.Duration
	if length <= 0 {
		length = track.Duration
	}
	meta := types.Metadata{
		TrackId: dbus.ObjectPath(formatTrackID(track.Path)),
		Length:  types.Microseconds(length.Microseconds()),
		Title:   track.Title,
		Album:   track.Album,
	}
	if track.Artist != "" {
		meta.Artist = []string{track.Artist}
	}

	if artPath := catalog.Artwork(*track); artPath != "" {
		meta.ArtUrl = "file://" + artPath
	}

	return meta, nil
}

func (p *playerAdapter) Volume() (float64, error) {
	return p.ctrl.Snapshot().Volume, nil
}

func (p *playerAdapter) SetVolume(level float64) error {
	return p.submit(playback.Command{Op: playback.OpSetVolume, Level: level})
}

func (p *playerAdapter) Position() (int64, error) {
	return p.ctrl.Snapshot().Elapsed.Microseconds(), nil
}

func (p *playerAdapter) MinimumRate() (float64, error) {
	return 1.0, nil
}

func (p *playerAdapter) MaximumRate() (float64, error) {
	return 1.0, nil
}

func (p *playerAdapter) CanGoNext() (bool, error) {
	snap := p.ctrl.Snapshot()
	n := len(snap.Tracks)
	return n > 0 && (snap.Loop || snap.Index < n-1), nil
}

func (p *playerAdapter) CanGoPrevious() (bool, error) {
	return p.ctrl.Snapshot().Index > 0, nil
}

func (p *playerAdapter) CanPlay() (bool, error) {
	return len(p.ctrl.Snapshot().Tracks) > 0, nil
}

func (p *playerAdapter) CanPause() (bool, error) {
	return true, nil
}

func (p *playerAdapter) CanSeek() (bool, error) {
	return false, nil
}

func (p *playerAdapter) CanControl() (bool, error) {
	return true, nil
}

// LoopStatus implements OrgMprisMediaPlayer2PlayerAdapterLoopStatus.
func (p *playerAdapter) LoopStatus() (types.LoopStatus, error) {
	if p.ctrl.Snapshot().Loop {
		return types.LoopStatusPlaylist, nil
	}
	return types.LoopStatusNone, nil
}

// SetLoopStatus implements OrgMprisMediaPlayer2PlayerAdapterLoopStatus.
// Single-track repeat is not supported and enables playlist loop.
func (p *playerAdapter) SetLoopStatus(status types.LoopStatus) error {
	return p.submit(playback.Command{Op: playback.OpSetLoop, Enabled: status != types.LoopStatusNone})
}

// forward turns coordinator events into property change signals until the
// channel closes or ctx is done.
func forward(ctx context.Context, events <-chan playback.Event, sig signals, logger zerolog.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			var err error
			switch ev.(type) {
			case *playback.ResyncSnapshot:
				err = sig.OnTitle()
				if err == nil {
					err = sig.OnPlayPause()
				}
			case *playback.SongChanged:
				err = sig.OnTitle()
			case *playback.StateChanged:
				err = sig.OnPlayPause()
			case *playback.VolumeChanged:
				err = sig.OnVolume()
			case *playback.ModeChanged, *playback.PlaylistChanged:
				err = sig.OnOptions()
			}
			if err != nil {
				logger.Debug().Err(err).Str("event", string(ev.Type())).Msg("emit properties changed")
			}
		}
	}
}

func formatTrackID(path string) string {
	h := fnv.New64a()
	h.Write([]byte(path))
	return fmt.Sprintf("/org/mpris/MediaPlayer2/Track/%x", h.Sum64())
}
