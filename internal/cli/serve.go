package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/llehouerou/wavesd/internal/catalog"
	"github.com/llehouerou/wavesd/internal/config"
	"github.com/llehouerou/wavesd/internal/errmsg"
	"github.com/llehouerou/wavesd/internal/lastfm"
	"github.com/llehouerou/wavesd/internal/logging"
	"github.com/llehouerou/wavesd/internal/mpris"
	"github.com/llehouerou/wavesd/internal/notify"
	"github.com/llehouerou/wavesd/internal/playback"
	"github.com/llehouerou/wavesd/internal/player"
	"github.com/llehouerou/wavesd/internal/playlist"
	"github.com/llehouerou/wavesd/internal/server"
	"github.com/llehouerou/wavesd/internal/state"
	"github.com/llehouerou/wavesd/internal/stderr"
	"github.com/llehouerou/wavesd/internal/ui/nowplaying"
)

var noTUI bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the playback daemon",
	Long: `Run the playback daemon. The terminal UI is shown when stdout is a
terminal, unless --no-tui is given. Logs then go to a file.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&noTUI, "no-tui", false, "run without the terminal UI")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	tui := !noTUI && isatty.IsTerminal(os.Stdout.Fd())

	logger, closeLog, err := logging.New(cfg.Log, os.Stderr, tui)
	if err != nil {
		return err
	}
	defer func() { _ = closeLog() }()

	// The audio backend may print to fd 2 behind Go's back.
	if err := stderr.Start(logger); err != nil {
		logger.Warn().Err(err).Msg("stderr capture unavailable")
	}
	defer stderr.Stop()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	d, err := newDaemon(cfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg(errmsg.Format(errmsg.OpInitialize, err))
		return err
	}
	defer d.close()

	return d.run(ctx, tui)
}

// daemon is one running wavesd: the coordinator and its collaborators.
type daemon struct {
	cfg    *config.Config
	logger zerolog.Logger
	db     *state.Manager
	coord  *playback.Coordinator
}

func newDaemon(cfg *config.Config, logger zerolog.Logger) (*daemon, error) {
	db, err := state.Open(cfg.GetDBFile(), logger)
	if err != nil {
		return nil, fmt.Errorf("open state database: %w", err)
	}

	pb := cfg.GetPlaybackConfig()
	volume := pb.DefaultVolume
	if v, ok, err := db.GetVolume(); err != nil {
		logger.Warn().Err(err).Msg("read saved volume")
	} else if ok {
		volume = v
	}

	coord := playback.New(
		player.New(logger),
		openStore(cfg, db, logger),
		catalog.New(cfg.GetArtworkDir(), logger),
		playback.Options{
			TickInterval:     pb.TickInterval,
			QueueSize:        pb.QueueSize,
			SubscriberBuffer: pb.SubscriberBuffer,
			SaveDebounce:     pb.SaveDebounce,
			Volume:           &volume,
			CleanupOnLoad:    cfg.ShouldCleanupOnLoad(),
			Policy:           playback.ErrorPolicy{MaxFailures: pb.MaxFailures},
		},
		logger,
	)

	return &daemon{cfg: cfg, logger: logger, db: db, coord: coord}, nil
}

func openStore(cfg *config.Config, db *state.Manager, logger zerolog.Logger) playlist.Store {
	if cfg.StoreKind() == config.StoreSQLite {
		return db.PlaylistStore()
	}
	return playlist.NewFileStore(cfg.GetPlaylistFile(), logger)
}

// run starts everything and blocks until ctx is done, the UI quits or the
// coordinator stops.
func (d *daemon) run(ctx context.Context, tui bool) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)

	// Subscribe before Run so every collaborator starts from a resync.
	recorder := d.coord.Subscribe("state")
	g.Go(func() error {
		state.NewRecorder(d.db, d.logger).Run(ctx, recorder.Events())
		return nil
	})

	if d.cfg.ServerEnabled() {
		srv := server.New(d.coord, d.logger)
		addr := d.cfg.GetListen()
		g.Go(func() error {
			// Playback keeps going without remote control.
			if err := srv.ListenAndServe(ctx, addr); err != nil {
				d.logger.Error().Err(err).Str("addr", addr).Msg(errmsg.Format(errmsg.OpServerListen, err))
			}
			return nil
		})
	}

	if d.cfg.MPRISEnabled() {
		d.startMPRIS(ctx, g)
	}

	if d.cfg.NotificationsEnabled() {
		d.startNotifications(ctx, g)
	}

	if api := d.lastfmClient(); api != nil {
		sub := d.coord.Subscribe("lastfm")
		g.Go(func() error {
			lastfm.NewScrobbler(api, d.db, d.logger).Run(ctx, sub.Events())
			return nil
		})
	}

	g.Go(func() error {
		err := d.coord.Run(ctx)
		cancel()
		return err
	})

	if tui {
		sub := d.coord.Subscribe("tui")
		g.Go(func() error {
			defer cancel()
			p := tea.NewProgram(nowplaying.New(d.coord, sub), tea.WithAltScreen(), tea.WithContext(ctx))
			_, err := p.Run()
			if errors.Is(err, tea.ErrProgramKilled) {
				return nil
			}
			return err
		})
	}

	return g.Wait()
}

func (d *daemon) startMPRIS(ctx context.Context, g *errgroup.Group) {
	adapter, err := mpris.New(d.coord, d.logger)
	if err != nil {
		d.logger.Warn().Err(err).Msg(errmsg.Format(errmsg.OpMPRISStart, err))
		return
	}
	sub := d.coord.Subscribe("mpris")
	g.Go(func() error {
		defer func() { _ = adapter.Close() }()
		adapter.Run(ctx, sub.Events())
		return nil
	})
}

func (d *daemon) startNotifications(ctx context.Context, g *errgroup.Group) {
	n, err := notify.New()
	if err != nil {
		d.logger.Warn().Err(err).Msg("desktop notifications unavailable")
		return
	}
	sub := d.coord.Subscribe("notify")
	g.Go(func() error {
		notify.NewWatcher(n, d.logger).Run(ctx, sub.Events())
		return nil
	})
}

// lastfmClient returns an authenticated client, or nil when scrobbling is
// not configured or no session exists yet.
func (d *daemon) lastfmClient() *lastfm.Client {
	if !d.cfg.HasLastfmConfig() {
		return nil
	}
	client := lastfm.New(d.cfg.Lastfm.APIKey, d.cfg.Lastfm.APISecret)

	key := d.cfg.Lastfm.SessionKey
	if key == "" {
		sess, err := d.db.GetLastfmSession()
		if err != nil {
			d.logger.Warn().Err(err).Msg("read Last.fm session")
			return nil
		}
		if sess == nil {
			d.logger.Info().Msg(`Last.fm configured but not logged in; run "wavesd lastfm login"`)
			return nil
		}
		key = sess.SessionKey
	}
	client.UseSession(key)
	return client
}

func (d *daemon) close() {
	if err := d.db.Close(); err != nil {
		d.logger.Warn().Err(err).Msg("close state database")
	}
}
