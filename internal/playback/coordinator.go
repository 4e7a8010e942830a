package playback

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/llehouerou/wavesd/internal/catalog"
	"github.com/llehouerou/wavesd/internal/errmsg"
	"github.com/llehouerou/wavesd/internal/player"
	"github.com/llehouerou/wavesd/internal/playlist"
)

// Resolver builds a track from a file path.
type Resolver interface {
	Resolve(path string) (playlist.Track, error)
}

// Coordinator owns the playlist, the playback state and the audio engine.
//
// All state is confined to the goroutine running Run. Other goroutines
// talk to it through commands and observe it through hub subscriptions and
// Snapshot.
type Coordinator struct {
	engine  player.Engine
	store   playlist.Store
	catalog Resolver
	hub     *Hub
	opts    Options
	logger  zerolog.Logger

	cmds    chan Command
	done    chan struct{}
	closing atomic.Bool

	// Owned by the Run goroutine.
	pl         *playlist.Playlist
	tracks     []playlist.Track // shared copy of pl's tracks for snapshots
	state      State
	loaded     bool // engine holds the current track
	elapsed    time.Duration
	duration   time.Duration
	volume     float64
	failures   map[string]int
	seq        uint64
	dirty      bool
	dirtySince time.Time
	startup    []*PlaybackError
}

// New creates a coordinator. The playlist is loaded from store right away
// so that subscribers registered before Run see it in their resync. store
// may be nil to disable persistence; res may be nil to resolve tracks
// without artwork.
func New(engine player.Engine, store playlist.Store, res Resolver, opts Options, logger zerolog.Logger) *Coordinator {
	opts = opts.withDefaults()
	logger = logger.With().Str("component", "coordinator").Logger()
	if res == nil {
		res = catalog.New("", logger)
	}

	c := &Coordinator{
		engine:   engine,
		store:    store,
		catalog:  res,
		hub:      NewHub(opts.SubscriberBuffer, logger),
		opts:     opts,
		logger:   logger,
		cmds:     make(chan Command, opts.QueueSize),
		done:     make(chan struct{}),
		pl:       playlist.New(),
		volume:   *opts.Volume,
		failures: make(map[string]int),
	}

	if store != nil {
		c.pl = store.Load()
		if r, ok := store.(playlist.RecoveryReporter); ok && r.Recovered() != "" {
			c.startup = append(c.startup, &PlaybackError{
				Kind:    KindPlaylistCorrupt,
				Message: errmsg.Format(errmsg.OpPlaylistLoad, errors.New(r.Recovered())),
			})
		}
	}
	if opts.CleanupOnLoad {
		if n := c.pl.CleanupInvalid(); n > 0 {
			c.logger.Info().Int("removed", n).Msg("removed missing tracks from playlist")
			c.markDirty()
		}
	}
	c.refreshTracks()
	c.engine.SetVolume(c.volume)
	c.hub.setLatest(c.snapshot())
	return c
}

// Run processes commands and ticks until Shutdown is handled or ctx is
// cancelled. Either way the engine is stopped, the playlist saved and the
// hub closed before Run returns.
func (c *Coordinator) Run(ctx context.Context) error {
	defer close(c.done)

	ticker := time.NewTicker(c.opts.TickInterval)
	defer ticker.Stop()

	c.logger.Info().
		Int("tracks", c.pl.Len()).
		Int("index", c.pl.CurrentIndex()).
		Msg("coordinator started")
	for _, ev := range c.startup {
		c.emit(ev)
	}
	c.startup = nil

	for {
		select {
		case <-ctx.Done():
			c.shutdown()
			return nil
		case cmd := <-c.cmds:
			if cmd.Op == OpShutdown {
				c.shutdown()
				c.reply(cmd, nil)
				return nil
			}
			c.handle(cmd)
		case <-ticker.C:
			c.tick()
		}
	}
}

// Done is closed when Run has returned.
func (c *Coordinator) Done() <-chan struct{} { return c.done }

// Subscribe registers an observer. See Hub.Subscribe.
func (c *Coordinator) Subscribe(name string) *Subscription { return c.hub.Subscribe(name) }

// Unsubscribe removes an observer and closes its channel.
func (c *Coordinator) Unsubscribe(sub *Subscription) { c.hub.Unsubscribe(sub) }

// Snapshot returns the state as of the latest event.
func (c *Coordinator) Snapshot() Snapshot { return c.hub.Latest() }

// Play starts or resumes playback.
func (c *Coordinator) Play(ctx context.Context) error {
	return c.Submit(ctx, Command{Op: OpPlay})
}

// Pause pauses playback.
func (c *Coordinator) Pause(ctx context.Context) error {
	return c.Submit(ctx, Command{Op: OpPause})
}

// Stop stops playback and rewinds.
func (c *Coordinator) Stop(ctx context.Context) error {
	return c.Submit(ctx, Command{Op: OpStop})
}

// Next moves to the next playable track.
func (c *Coordinator) Next(ctx context.Context) error {
	return c.Submit(ctx, Command{Op: OpNext})
}

// Previous moves to the previous playable track.
func (c *Coordinator) Previous(ctx context.Context) error {
	return c.Submit(ctx, Command{Op: OpPrevious})
}

// SetVolume sets the volume, clamped to [0,1].
func (c *Coordinator) SetVolume(ctx context.Context, level float64) error {
	return c.Submit(ctx, Command{Op: OpSetVolume, Level: level})
}

// SetLoop enables or disables wraparound at the playlist ends.
func (c *Coordinator) SetLoop(ctx context.Context, enabled bool) error {
	return c.Submit(ctx, Command{Op: OpSetLoop, Enabled: enabled})
}

// AddTrack appends the file at path to the playlist. Metadata is read in
// the calling goroutine.
func (c *Coordinator) AddTrack(ctx context.Context, path string) error {
	return c.Submit(ctx, Command{Op: OpAddTrack, Path: path})
}

// RemoveTrack removes the track at index.
func (c *Coordinator) RemoveTrack(ctx context.Context, index int) error {
	return c.Submit(ctx, Command{Op: OpRemoveTrack, Index: index})
}

// Reorder moves the track at from to to.
func (c *Coordinator) Reorder(ctx context.Context, from, to int) error {
	return c.Submit(ctx, Command{Op: OpReorder, From: from, To: to})
}

// JumpTo starts playing the track at index.
func (c *Coordinator) JumpTo(ctx context.Context, index int) error {
	return c.Submit(ctx, Command{Op: OpJump, Index: index})
}

// Shutdown handles the commands already queued, stops playback, saves the
// playlist and closes every subscription. Calling it again is a no-op.
func (c *Coordinator) Shutdown(ctx context.Context) error {
	err := c.Submit(ctx, Command{Op: OpShutdown})
	if errors.Is(err, ErrClosed) {
		return nil
	}
	return err
}

// Submit queues cmd and waits for its result.
func (c *Coordinator) Submit(ctx context.Context, cmd Command) error {
	if err := c.prepare(&cmd); err != nil {
		return err
	}
	cmd.reply = make(chan error, 1)
	if err := c.enqueue(ctx, cmd); err != nil {
		return err
	}
	select {
	case err := <-cmd.reply:
		return err
	case <-c.done:
		select {
		case err := <-cmd.reply:
			return err
		default:
			return ErrClosed
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Send queues cmd without waiting for its result. It blocks only while
// the command queue is full.
func (c *Coordinator) Send(ctx context.Context, cmd Command) error {
	if err := c.prepare(&cmd); err != nil {
		return err
	}
	return c.enqueue(ctx, cmd)
}

// prepare does the work that must not run on the coordinator goroutine.
func (c *Coordinator) prepare(cmd *Command) error {
	if cmd.Op == OpAddTrack && cmd.Track == nil {
		t, err := c.catalog.Resolve(cmd.Path)
		if err != nil {
			return err
		}
		cmd.Track = &t
	}
	return nil
}

func (c *Coordinator) enqueue(ctx context.Context, cmd Command) error {
	if c.closing.Load() {
		return ErrClosed
	}
	select {
	case c.cmds <- cmd:
		return nil
	case <-c.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Coordinator) reply(cmd Command, err error) {
	if cmd.reply != nil {
		cmd.reply <- err
	}
}

func (c *Coordinator) shutdown() {
	c.closing.Store(true)

	// Commands queued before shutdown still run.
	for drained := false; !drained; {
		select {
		case cmd := <-c.cmds:
			if cmd.Op == OpShutdown {
				c.reply(cmd, nil)
				continue
			}
			c.handle(cmd)
		default:
			drained = true
		}
	}

	c.engine.Stop()
	c.loaded = false
	c.setState(StateStopped)
	c.save()
	if err := c.engine.Close(); err != nil {
		c.logger.Warn().Err(err).Msg("close engine")
	}
	c.hub.Close()
	c.logger.Info().Msg("coordinator stopped")
}

// emit stamps ev and publishes it with a fresh snapshot.
func (c *Coordinator) emit(ev Event) {
	c.seq++
	ev.setMeta(Header{Seq: c.seq, At: time.Now()})
	c.hub.Publish(ev, c.snapshot())
}

func (c *Coordinator) snapshot() Snapshot {
	return Snapshot{
		Seq:      c.seq,
		State:    c.state,
		Track:    c.pl.Current(),
		Index:    c.pl.CurrentIndex(),
		Elapsed:  c.elapsed,
		Duration: c.duration,
		Loop:     c.pl.Loop(),
		Volume:   c.volume,
		Tracks:   c.tracks,
	}
}

func (c *Coordinator) refreshTracks() {
	c.tracks = c.pl.Tracks()
}

func (c *Coordinator) markDirty() {
	if !c.dirty {
		c.dirty = true
		c.dirtySince = time.Now()
	}
}

func (c *Coordinator) save() {
	if c.store == nil || !c.dirty {
		return
	}
	if err := c.store.Save(c.pl); err != nil {
		c.logger.Error().Err(err).Msg(errmsg.Format(errmsg.OpPlaylistSave, err))
		// Retry after another debounce period.
		c.dirtySince = time.Now()
		return
	}
	c.dirty = false
}

func (c *Coordinator) tick() {
	if c.state == StatePlaying {
		c.pollEngine()
	}
	if c.dirty && time.Since(c.dirtySince) >= c.opts.SaveDebounce {
		c.save()
	}
}
