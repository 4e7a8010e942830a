package playback

import (
	"github.com/llehouerou/wavesd/internal/errmsg"
	"github.com/llehouerou/wavesd/internal/player"
	"github.com/llehouerou/wavesd/internal/playlist"
)

func (c *Coordinator) handle(cmd Command) {
	var err error
	switch cmd.Op {
	case OpPlay:
		err = c.play()
	case OpPause:
		c.pause()
	case OpStop:
		c.stop()
	case OpNext:
		err = c.step(+1)
	case OpPrevious:
		err = c.step(-1)
	case OpSetVolume:
		c.setVolume(cmd.Level)
	case OpSetLoop:
		c.setLoop(cmd.Enabled)
	case OpAddTrack:
		err = c.addTrack(cmd.Track)
	case OpRemoveTrack:
		err = c.removeTrack(cmd.Index)
	case OpReorder:
		err = c.reorder(cmd.From, cmd.To)
	case OpJump:
		err = c.jump(cmd.Index)
	default:
		err = ErrUnknownCommand
	}

	ev := c.logger.Debug()
	if err != nil {
		ev = c.logger.Warn().Err(err)
	}
	ev.Stringer("cmd", cmd).Stringer("state", c.state).Msg("command")
	c.reply(cmd, err)
}

func (c *Coordinator) play() error {
	if c.pl.IsEmpty() {
		c.emit(&PlaybackError{Kind: KindEmptyPlaylist, Message: ErrEmptyPlaylist.Error()})
		return ErrEmptyPlaylist
	}

	switch c.state {
	case StatePlaying:
		return nil
	case StatePaused:
		if c.loaded {
			if err := c.engine.Start(); err != nil {
				c.engine.Stop()
				c.loaded = false
				return c.failAndAdvance(c.pl.CurrentIndex(), KindTrackDecodeFailure, err)
			}
			c.setState(StatePlaying)
			return nil
		}
	}

	idx := c.pl.CurrentIndex()
	if t := c.pl.Track(idx); t == nil || !c.playable(*t) {
		idx = c.pl.Step(+1, c.playable)
	}
	if idx < 0 {
		// Step only misses with a non-empty playlist when every track is
		// exhausted or the cursor sits on the last track without loop.
		if c.allFailed() {
			c.allTracksFailed()
			return ErrAllTracksFailed
		}
		c.pl.Unset()
		idx = c.pl.Step(+1, c.playable)
	}
	return c.startFrom(idx)
}

func (c *Coordinator) pause() {
	if c.state != StatePlaying {
		return
	}
	c.engine.Pause()
	c.elapsed = c.engine.Elapsed()
	c.setState(StatePaused)
}

func (c *Coordinator) stop() {
	c.engine.Stop()
	c.loaded = false
	c.elapsed = 0
	c.setState(StateStopped)
	c.emit(&PositionUpdate{Elapsed: 0, Duration: c.duration})
}

// step implements Next (dir > 0) and Previous (dir < 0).
func (c *Coordinator) step(dir int) error {
	if c.pl.IsEmpty() {
		return nil
	}
	idx := c.pl.Step(dir, c.playable)
	if idx < 0 {
		if dir < 0 {
			// Already at the first playable track.
			return nil
		}
		if c.allFailed() {
			c.allTracksFailed()
			return nil
		}
		c.endOfList()
		return nil
	}

	if c.state == StatePlaying {
		return c.startFrom(idx)
	}

	// Paused or stopped: move the cursor only.
	if c.loaded {
		c.engine.Stop()
		c.loaded = false
	}
	c.pl.JumpTo(idx)
	c.elapsed = 0
	c.duration = c.pl.Current().Duration
	c.markDirty()
	c.emit(&PlaylistChanged{Tracks: c.tracks, Index: idx})
	return nil
}

func (c *Coordinator) setVolume(level float64) {
	c.volume = player.ClampVolume(level)
	c.engine.SetVolume(c.volume)
	c.emit(&VolumeChanged{Level: c.volume})
}

func (c *Coordinator) setLoop(enabled bool) {
	if c.pl.Loop() == enabled {
		return
	}
	c.pl.SetLoop(enabled)
	c.markDirty()
	c.emit(&ModeChanged{Loop: enabled})
}

func (c *Coordinator) addTrack(t *playlist.Track) error {
	if t == nil {
		return ErrTrackNotFound
	}
	if c.pl.IndexOf(t.Path) >= 0 {
		return ErrDuplicateTrack
	}
	c.pl.Add(*t)
	c.playlistChanged()
	return nil
}

func (c *Coordinator) removeTrack(index int) error {
	removed := c.pl.Track(index)
	if removed == nil {
		return ErrInvalidIndex
	}
	wasCurrent := index == c.pl.CurrentIndex()
	c.pl.RemoveAt(index)
	delete(c.failures, removed.Path)

	if !wasCurrent {
		c.playlistChanged()
		return nil
	}

	switch c.state {
	case StatePlaying:
		c.engine.Stop()
		c.loaded = false
		// The cursor now points at the track that followed the removed
		// one; pick it, or the next playable one.
		idx := c.pl.CurrentIndex()
		switch {
		case idx < 0 && !c.pl.Loop():
			// The last track was removed.
		case idx < 0:
			idx = c.pl.Step(+1, c.playable)
		case !c.playable(*c.pl.Track(idx)):
			idx = c.pl.Step(+1, c.playable)
		}
		c.playlistChanged()
		if idx < 0 {
			if c.allFailed() && !c.pl.IsEmpty() {
				c.allTracksFailed()
				return nil
			}
			c.endOfList()
			return nil
		}
		return c.startFrom(idx)
	case StatePaused:
		c.engine.Stop()
		c.loaded = false
		c.elapsed = 0
		c.duration = 0
		if t := c.pl.Current(); t != nil {
			c.duration = t.Duration
		}
		c.playlistChanged()
		if c.pl.CurrentIndex() < 0 {
			c.setState(StateStopped)
		}
	default:
		c.playlistChanged()
	}
	return nil
}

func (c *Coordinator) reorder(from, to int) error {
	if !c.pl.Move(from, to) {
		return ErrInvalidIndex
	}
	c.playlistChanged()
	return nil
}

func (c *Coordinator) jump(index int) error {
	if c.pl.Track(index) == nil {
		return ErrInvalidIndex
	}
	return c.startFrom(index)
}

// startFrom plays the track at idx. Tracks that fail to load are recorded
// and skipped in playlist order until one starts or none is left.
func (c *Coordinator) startFrom(idx int) error {
	for idx >= 0 {
		c.pl.JumpTo(idx)
		t := c.pl.Current()

		err := c.load(t.Path)
		if err == nil {
			c.loaded = true
			c.elapsed = 0
			c.duration = c.engine.Duration()
			if c.duration <= 0 {
				c.duration = t.Duration
			}
			c.markDirty()
			c.emit(&SongChanged{Track: t, Index: idx})
			c.setState(StatePlaying)
			return nil
		}

		c.loaded = false
		c.recordFailure(*t, KindTrackLoadFailure, errmsg.FormatWith(errmsg.OpTrackLoad, t.Path, err))
		if c.allFailed() {
			c.allTracksFailed()
			return ErrAllTracksFailed
		}
		idx = c.pl.Step(+1, c.playable)
	}
	c.endOfList()
	return nil
}

func (c *Coordinator) load(path string) error {
	if err := c.engine.EnsureInitialized(); err != nil {
		return err
	}
	if err := c.engine.Load(path); err != nil {
		return err
	}
	if err := c.engine.Start(); err != nil {
		c.engine.Stop()
		return err
	}
	return nil
}

// failAndAdvance records a failure of the track at idx and moves on to the
// next playable track.
func (c *Coordinator) failAndAdvance(idx int, kind ErrorKind, err error) error {
	t := c.pl.Track(idx)
	if t == nil {
		c.endOfList()
		return nil
	}
	c.recordFailure(*t, kind, errmsg.FormatWith(errmsg.OpTrackDecode, t.Path, err))
	if c.allFailed() {
		c.allTracksFailed()
		return ErrAllTracksFailed
	}
	return c.startFrom(c.pl.Step(+1, c.playable))
}

func (c *Coordinator) recordFailure(t playlist.Track, kind ErrorKind, msg string) {
	c.failures[t.Path]++
	n := c.failures[t.Path]
	c.logger.Warn().
		Str("path", t.Path).
		Str("kind", string(kind)).
		Int("failures", n).
		Msg(msg)
	if c.opts.Policy.Exhausted(n) {
		c.logger.Warn().Str("path", t.Path).Msg("track skipped for the rest of the session")
	}
	c.emit(&PlaybackError{Kind: kind, Track: &t, Message: msg})
}

// playable reports whether t may still be selected automatically.
func (c *Coordinator) playable(t playlist.Track) bool {
	return !c.opts.Policy.Exhausted(c.failures[t.Path])
}

func (c *Coordinator) allFailed() bool {
	if c.pl.IsEmpty() {
		return false
	}
	for _, t := range c.tracks {
		if c.playable(t) {
			return false
		}
	}
	return true
}

// endOfList stops playback and clears the cursor.
func (c *Coordinator) endOfList() {
	c.engine.Stop()
	c.loaded = false
	c.elapsed = 0
	c.duration = 0
	if c.pl.CurrentIndex() >= 0 || c.state != StateStopped {
		c.pl.Unset()
		c.markDirty()
		c.emit(&SongChanged{Track: nil, Index: -1})
	}
	c.setState(StateStopped)
}

func (c *Coordinator) allTracksFailed() {
	c.engine.Stop()
	c.loaded = false
	c.elapsed = 0
	c.setState(StateStopped)
	c.emit(&PlaybackError{
		Kind:    KindAllTracksFailed,
		Message: ErrAllTracksFailed.Error(),
	})
}

func (c *Coordinator) playlistChanged() {
	c.refreshTracks()
	c.markDirty()
	c.emit(&PlaylistChanged{Tracks: c.tracks, Index: c.pl.CurrentIndex()})
}

func (c *Coordinator) setState(s State) {
	if c.state == s {
		return
	}
	old := c.state
	c.state = s
	c.emit(&StateChanged{Old: old, New: s})
}

// pollEngine runs on each tick while playing.
func (c *Coordinator) pollEngine() {
	if err := c.engine.Err(); err != nil {
		c.engine.Stop()
		c.loaded = false
		_ = c.failAndAdvance(c.pl.CurrentIndex(), KindTrackDecodeFailure, err)
		return
	}

	if c.engine.HasFinished() {
		if t := c.pl.Current(); t != nil {
			delete(c.failures, t.Path)
		}
		c.loaded = false
		idx := c.pl.Step(+1, c.playable)
		if idx < 0 {
			if c.allFailed() {
				c.allTracksFailed()
				return
			}
			c.endOfList()
			return
		}
		_ = c.startFrom(idx)
		return
	}

	c.elapsed = c.engine.Elapsed()
	if d := c.engine.Duration(); d > 0 {
		c.duration = d
	}
	c.emit(&PositionUpdate{Elapsed: c.elapsed, Duration: c.duration})
}
