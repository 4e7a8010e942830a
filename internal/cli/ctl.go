package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/llehouerou/wavesd/internal/errmsg"
	"github.com/llehouerou/wavesd/internal/playback"
	"github.com/llehouerou/wavesd/internal/remote"
	"github.com/llehouerou/wavesd/internal/server"
)

const (
	ctlTimeout = 10 * time.Second
	volumeStep = 0.1
)

var (
	ctlAddr    string
	ctlJSON    bool
	volumeUp   bool
	volumeDown bool
)

var ctlCmd = &cobra.Command{
	Use:   "ctl",
	Short: "Control a running daemon",
	Long:  `Send commands to a running wavesd over its WebSocket server.`,
}

func simpleCtl(use, short string, op playback.Op, aliases ...string) *cobra.Command {
	return &cobra.Command{
		Use:     use,
		Aliases: aliases,
		Short:   short,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return send(cmd.Context(), server.Request{Action: string(op)})
		},
	}
}

var volumeCmd = &cobra.Command{
	Use:   "volume [level]",
	Short: "Set or adjust the volume",
	Long: `Set the volume (0-100) or adjust it up/down.

Examples:
  wavesd ctl volume 50      # Set volume to 50%
  wavesd ctl volume --up    # Increase volume by 10%
  wavesd ctl volume --down  # Decrease volume by 10%`,
	Args: cobra.MaximumNArgs(1),
	RunE: runVolume,
}

var loopCmd = &cobra.Command{
	Use:       "loop [on|off|toggle]",
	Short:     "Set loop mode",
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{"on", "off", "toggle"},
	RunE:      runLoop,
}

var ctlAddCmd = &cobra.Command{
	Use:   "add <file>...",
	Short: "Append files to the playlist",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runCtlAdd,
}

var ctlRemoveCmd = &cobra.Command{
	Use:   "remove <position>",
	Short: "Remove a track (1-based position)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		idx, err := parsePosition(args[0])
		if err != nil {
			return err
		}
		return send(cmd.Context(), server.Request{Action: string(playback.OpRemoveTrack), Index: idx})
	},
}

var jumpCmd = &cobra.Command{
	Use:   "jump <position>",
	Short: "Play the track at a 1-based position",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		idx, err := parsePosition(args[0])
		if err != nil {
			return err
		}
		return send(cmd.Context(), server.Request{Action: string(playback.OpJump), Index: idx})
	},
}

var moveCmd = &cobra.Command{
	Use:   "move <from> <to>",
	Short: "Move a track to another position (1-based)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		from, err := parsePosition(args[0])
		if err != nil {
			return err
		}
		to, err := parsePosition(args[1])
		if err != nil {
			return err
		}
		return send(cmd.Context(), server.Request{Action: string(playback.OpReorder), From: from, To: to})
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show what is playing",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		snap, err := fetchSnapshot(cmd.Context())
		if err != nil {
			return err
		}
		if ctlJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(snap)
		}
		printStatus(os.Stdout, snap)
		return nil
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print events as JSON lines until interrupted",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		c, err := dial(cmd.Context())
		if err != nil {
			return err
		}
		defer c.Close()
		return c.Watch(cmd.Context(), func(_ server.Frame, raw []byte) error {
			_, err := fmt.Fprintln(os.Stdout, string(raw))
			return err
		})
	},
}

func init() {
	ctlCmd.PersistentFlags().StringVarP(&ctlAddr, "addr", "a", "", "daemon address (default: server.listen from the config)")
	statusCmd.Flags().BoolVarP(&ctlJSON, "json", "j", false, "output as JSON")
	volumeCmd.Flags().BoolVar(&volumeUp, "up", false, "increase volume by 10%")
	volumeCmd.Flags().BoolVar(&volumeDown, "down", false, "decrease volume by 10%")
	volumeCmd.MarkFlagsMutuallyExclusive("up", "down")

	ctlCmd.AddCommand(
		simpleCtl("play", "Start or resume playback", playback.OpPlay),
		simpleCtl("pause", "Pause playback", playback.OpPause),
		simpleCtl("stop", "Stop playback", playback.OpStop),
		simpleCtl("next", "Skip to the next track", playback.OpNext),
		simpleCtl("prev", "Go to the previous track", playback.OpPrevious, "previous"),
		volumeCmd, loopCmd, ctlAddCmd, ctlRemoveCmd, jumpCmd, moveCmd, statusCmd, watchCmd,
	)
	rootCmd.AddCommand(ctlCmd)
}

func dial(ctx context.Context) (*remote.Client, error) {
	addr := ctlAddr
	if addr == "" {
		addr = cfg.GetListen()
	}
	dctx, cancel := context.WithTimeout(ctx, ctlTimeout)
	defer cancel()
	c, err := remote.Dial(dctx, addr)
	if err != nil {
		return nil, fmt.Errorf("connect to wavesd at %s (is it running?): %w", addr, err)
	}
	return c, nil
}

func fetchSnapshot(ctx context.Context) (playback.Snapshot, error) {
	c, err := dial(ctx)
	if err != nil {
		return playback.Snapshot{}, err
	}
	defer c.Close()
	return c.Snapshot(), nil
}

func send(ctx context.Context, reqs ...server.Request) error {
	c, err := dial(ctx)
	if err != nil {
		return err
	}
	defer c.Close()
	return sendWith(ctx, c, reqs...)
}

func sendWith(ctx context.Context, c *remote.Client, reqs ...server.Request) error {
	ctx, cancel := context.WithTimeout(ctx, ctlTimeout)
	defer cancel()
	var errs []error
	for _, req := range reqs {
		if err := c.Do(ctx, req); err != nil {
			errs = append(errs, errmsg.WrapWith(errmsg.OpRemoteSend, req.Action, err))
		}
	}
	return errors.Join(errs...)
}

func runVolume(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && !volumeUp && !volumeDown {
		snap, err := fetchSnapshot(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("%d%%\n", percent(snap.Volume))
		return nil
	}

	c, err := dial(cmd.Context())
	if err != nil {
		return err
	}
	defer c.Close()

	level, err := volumeLevel(args, c.Snapshot().Volume, volumeUp, volumeDown)
	if err != nil {
		return err
	}
	return sendWith(cmd.Context(), c, server.Request{Action: string(playback.OpSetVolume), Level: level})
}

// volumeLevel computes the level to set from a 0-100 argument or a step
// relative to current.
func volumeLevel(args []string, current float64, up, down bool) (float64, error) {
	switch {
	case up:
		return min(current+volumeStep, 1), nil
	case down:
		return max(current-volumeStep, 0), nil
	case len(args) == 0:
		return current, nil
	}
	pct, err := strconv.Atoi(strings.TrimSuffix(args[0], "%"))
	if err != nil || pct < 0 || pct > 100 {
		return 0, fmt.Errorf("volume must be between 0 and 100, got %q", args[0])
	}
	return float64(pct) / 100, nil
}

func runLoop(cmd *cobra.Command, args []string) error {
	c, err := dial(cmd.Context())
	if err != nil {
		return err
	}
	defer c.Close()

	mode := "toggle"
	if len(args) == 1 {
		mode = args[0]
	}
	enabled, err := loopValue(mode, c.Snapshot().Loop)
	if err != nil {
		return err
	}
	return sendWith(cmd.Context(), c, server.Request{Action: string(playback.OpSetLoop), Enabled: enabled})
}

func loopValue(mode string, current bool) (bool, error) {
	switch strings.ToLower(mode) {
	case "on", "true", "1":
		return true, nil
	case "off", "false", "0":
		return false, nil
	case "toggle":
		return !current, nil
	}
	return false, fmt.Errorf("loop: want on, off or toggle, got %q", mode)
}

func runCtlAdd(cmd *cobra.Command, args []string) error {
	// The daemon resolves paths relative to its own working directory.
	reqs := make([]server.Request, 0, len(args))
	for _, arg := range args {
		path, err := filepath.Abs(arg)
		if err != nil {
			return err
		}
		reqs = append(reqs, server.Request{Action: string(playback.OpAddTrack), Path: path})
	}
	return send(cmd.Context(), reqs...)
}

// parsePosition converts a 1-based position to an index.
func parsePosition(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("position must be a number from 1, got %q", s)
	}
	return n - 1, nil
}

func percent(level float64) int {
	return int(level*100 + 0.5)
}

func printStatus(w io.Writer, snap playback.Snapshot) {
	loop := "off"
	if snap.Loop {
		loop = "on"
	}
	fmt.Fprintf(w, "state:  %s\n", snap.State)
	if snap.Track != nil {
		fmt.Fprintf(w, "track:  %s\n", snap.Track.DisplayName())
		if snap.Track.Album != "" {
			fmt.Fprintf(w, "album:  %s\n", snap.Track.Album)
		}
		fmt.Fprintf(w, "time:   %s / %s\n", formatDuration(snap.Elapsed), formatDuration(snap.Duration))
	}
	fmt.Fprintf(w, "index:  %d/%d\n", snap.Index+1, len(snap.Tracks))
	fmt.Fprintf(w, "volume: %d%%\n", percent(snap.Volume))
	fmt.Fprintf(w, "loop:   %s\n", loop)
}

func formatDuration(d time.Duration) string {
	if d <= 0 {
		return "--:--"
	}
	d = d.Round(time.Second)
	if h := int(d.Hours()); h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, int(d.Minutes())%60, int(d.Seconds())%60)
	}
	return fmt.Sprintf("%d:%02d", int(d.Minutes()), int(d.Seconds())%60)
}
