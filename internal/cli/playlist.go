package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/llehouerou/wavesd/internal/catalog"
	"github.com/llehouerou/wavesd/internal/config"
	"github.com/llehouerou/wavesd/internal/errmsg"
	"github.com/llehouerou/wavesd/internal/playlist"
	"github.com/llehouerou/wavesd/internal/state"
)

var (
	listJSON     bool
	addRecursive bool
)

var playlistCmd = &cobra.Command{
	Use:     "playlist",
	Aliases: []string{"pl"},
	Short:   "Inspect and edit the saved playlist",
	Long: `Inspect and edit the saved playlist directly in its store.

These commands do not talk to a running daemon, which overwrites the store
on its next save. Use "wavesd ctl" while the daemon runs.`,
}

var plListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the tracks",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		s, err := openPlaylist()
		if err != nil {
			return err
		}
		defer s.close()
		if listJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(playlist.NewRecord(s.pl))
		}
		printPlaylist(os.Stdout, s.pl)
		return nil
	},
}

var plAddCmd = &cobra.Command{
	Use:   "add <file|dir>...",
	Short: "Append files, or the music files of directories",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runPlaylistAdd,
}

var plRemoveCmd = &cobra.Command{
	Use:   "remove <position>...",
	Short: "Remove tracks by 1-based position",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runPlaylistRemove,
}

var plValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Report tracks whose file is missing or unreadable",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		s, err := openPlaylist()
		if err != nil {
			return err
		}
		defer s.close()

		missing := s.pl.Validate()
		for i, t := range s.pl.Tracks() {
			if !playlist.Readable(t.Path) {
				fmt.Printf("%4d  %s\n", i+1, t.Path)
			}
		}
		fmt.Printf("%d of %d tracks missing\n", missing, s.pl.Len())
		return nil
	},
}

var plCleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove tracks whose file is missing or unreadable",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		s, err := openPlaylist()
		if err != nil {
			return err
		}
		defer s.close()

		removed := s.pl.CleanupInvalid()
		if removed == 0 {
			fmt.Println("nothing to clean")
			return nil
		}
		if err := s.save(errmsg.OpPlaylistClean); err != nil {
			return err
		}
		fmt.Printf("removed %d tracks\n", removed)
		return nil
	},
}

var plBackupCmd = &cobra.Command{
	Use:   "backup [file]",
	Short: "Write a JSON copy of the playlist",
	Long: `Write a JSON copy of the playlist. Without a file name the copy is
written next to the playlist file with a timestamped name.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		s, err := openPlaylist()
		if err != nil {
			return err
		}
		defer s.close()

		dst := ""
		if len(args) == 1 {
			dst = args[0]
		}
		path, err := s.files.Backup(s.pl, dst)
		if err != nil {
			return errmsg.Wrap(errmsg.OpPlaylistBackup, err)
		}
		fmt.Println(path)
		return nil
	},
}

var plRestoreCmd = &cobra.Command{
	Use:   "restore <file|#id>",
	Short: "Replace the playlist with a backup",
	Long: `Replace the playlist with a JSON backup file, or with a playlist the
SQLite store set aside as corrupt (see "wavesd playlist backups").`,
	Args: cobra.ExactArgs(1),
	RunE: runPlaylistRestore,
}

var plBackupsCmd = &cobra.Command{
	Use:   "backups",
	Short: "List playlists the SQLite store set aside",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		s, err := openPlaylist()
		if err != nil {
			return err
		}
		defer s.close()

		backups, err := s.db.PlaylistStore().Backups()
		if err != nil {
			return err
		}
		if len(backups) == 0 {
			fmt.Println("no backups")
			return nil
		}
		for _, b := range backups {
			fmt.Printf("#%-4d %-16s %4d tracks  %s\n",
				b.ID, humanize.Time(b.CreatedAt), len(b.Record.Songs), b.Reason)
		}
		return nil
	},
}

func init() {
	plListCmd.Flags().BoolVarP(&listJSON, "json", "j", false, "output the stored record as JSON")
	plAddCmd.Flags().BoolVarP(&addRecursive, "recursive", "r", false, "walk subdirectories")

	playlistCmd.AddCommand(plListCmd, plAddCmd, plRemoveCmd, plValidateCmd, plCleanCmd,
		plBackupCmd, plRestoreCmd, plBackupsCmd)
	rootCmd.AddCommand(playlistCmd)
}

// playlistSession is the saved playlist opened for offline edits.
type playlistSession struct {
	logger zerolog.Logger
	db     *state.Manager
	store  playlist.Store
	files  *playlist.FileStore // JSON backups, and the store itself for "json"
	pl     *playlist.Playlist
}

func openPlaylist() (*playlistSession, error) {
	logger := commandLogger()
	db, err := state.Open(cfg.GetDBFile(), logger)
	if err != nil {
		return nil, fmt.Errorf("open state database: %w", err)
	}

	s := &playlistSession{
		logger: logger,
		db:     db,
		files:  playlist.NewFileStore(cfg.GetPlaylistFile(), logger),
	}
	s.store = s.files
	if cfg.StoreKind() == config.StoreSQLite {
		s.store = db.PlaylistStore()
	}

	s.pl = s.store.Load()
	if r, ok := s.store.(playlist.RecoveryReporter); ok && r.Recovered() != "" {
		fmt.Fprintln(os.Stderr, "warning:", errmsg.Format(errmsg.OpPlaylistLoad, errors.New(r.Recovered())))
	}
	return s, nil
}

func (s *playlistSession) save(op errmsg.Op) error {
	if err := s.store.Save(s.pl); err != nil {
		return errmsg.Wrap(op, err)
	}
	return nil
}

func (s *playlistSession) close() {
	if err := s.db.Close(); err != nil {
		s.logger.Warn().Err(err).Msg("close state database")
	}
}

func runPlaylistAdd(_ *cobra.Command, args []string) error {
	s, err := openPlaylist()
	if err != nil {
		return err
	}
	defer s.close()

	paths, err := expandPaths(args, addRecursive)
	if err != nil {
		return err
	}

	var fresh []string
	for _, p := range paths {
		if s.pl.IndexOf(p) < 0 && !slices.Contains(fresh, p) {
			fresh = append(fresh, p)
		}
	}

	tracks, errs := catalog.New(cfg.GetArtworkDir(), s.logger).ResolveAll(fresh)
	for _, err := range errs {
		fmt.Fprintln(os.Stderr, "skip:", err)
	}
	if len(tracks) == 0 {
		fmt.Println("nothing added")
		return nil
	}

	s.pl.Add(tracks...)
	if err := s.save(errmsg.OpPlaylistAdd); err != nil {
		return err
	}
	fmt.Printf("added %d tracks (%d already present)\n", len(tracks), len(paths)-len(fresh))
	return nil
}

// expandPaths turns arguments into absolute music file paths, listing
// directories.
func expandPaths(args []string, recursive bool) ([]string, error) {
	var paths []string
	for _, arg := range args {
		abs, err := filepath.Abs(arg)
		if err != nil {
			return nil, err
		}
		info, err := os.Stat(abs)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			paths = append(paths, abs)
			continue
		}
		found, err := playlist.Collect(abs, recursive)
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", arg, err)
		}
		paths = append(paths, found...)
	}
	return paths, nil
}

func runPlaylistRemove(_ *cobra.Command, args []string) error {
	indexes := make([]int, 0, len(args))
	for _, a := range args {
		idx, err := parsePosition(a)
		if err != nil {
			return err
		}
		indexes = append(indexes, idx)
	}

	s, err := openPlaylist()
	if err != nil {
		return err
	}
	defer s.close()

	// Highest first so earlier removals do not shift later positions.
	slices.Sort(indexes)
	indexes = slices.Compact(indexes)
	removed := 0
	for _, idx := range slices.Backward(indexes) {
		if s.pl.RemoveAt(idx) {
			removed++
		} else {
			fmt.Fprintf(os.Stderr, "skip: no track at position %d\n", idx+1)
		}
	}
	if removed == 0 {
		return nil
	}
	if err := s.save(errmsg.OpPlaylistRemove); err != nil {
		return err
	}
	fmt.Printf("removed %d tracks\n", removed)
	return nil
}

func runPlaylistRestore(_ *cobra.Command, args []string) error {
	s, err := openPlaylist()
	if err != nil {
		return err
	}
	defer s.close()

	var p *playlist.Playlist
	if id, ok := strings.CutPrefix(args[0], "#"); ok {
		p, err = restoreSetAside(s.db, id)
	} else {
		p, err = s.files.Restore(args[0])
	}
	if err != nil {
		return errmsg.WrapWith(errmsg.OpPlaylistRestore, args[0], err)
	}

	s.pl = p
	if err := s.save(errmsg.OpPlaylistRestore); err != nil {
		return err
	}
	fmt.Printf("restored %d tracks\n", p.Len())
	return nil
}

func restoreSetAside(db *state.Manager, id string) (*playlist.Playlist, error) {
	want, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("bad backup id %q", id)
	}
	backups, err := db.PlaylistStore().Backups()
	if err != nil {
		return nil, err
	}
	for _, b := range backups {
		if b.ID != want {
			continue
		}
		// A set-aside record was invalid as a whole; keep what is usable.
		return salvage(b.Record), nil
	}
	return nil, fmt.Errorf("no backup #%d", want)
}

// salvage builds a playlist from the usable tracks of a record.
func salvage(rec playlist.Record) *playlist.Playlist {
	if p, err := rec.Playlist(); err == nil {
		return p
	}
	var tracks []playlist.TrackRecord
	for _, t := range rec.Songs {
		if strings.TrimSpace(t.FilePath) != "" && t.Duration >= 0 {
			tracks = append(tracks, t)
		}
	}
	current := rec.CurrentIndex
	if current < -1 || current >= len(tracks) {
		current = -1
	}
	p, err := playlist.Record{Songs: tracks, CurrentIndex: current, LoopEnabled: rec.LoopEnabled}.Playlist()
	if err != nil {
		return playlist.New()
	}
	return p
}

func printPlaylist(w io.Writer, p *playlist.Playlist) {
	var (
		total time.Duration
		size  uint64
	)
	for i, t := range p.Tracks() {
		marker := " "
		if i == p.CurrentIndex() {
			marker = "▶"
		}
		fmt.Fprintf(w, "%4d %s %-60s %8s\n", i+1, marker, t.DisplayName(), formatDuration(t.Duration))
		total += t.Duration
		if info, err := os.Stat(t.Path); err == nil {
			size += uint64(info.Size())
		}
	}
	loop := ""
	if p.Loop() {
		loop = ", loop on"
	}
	fmt.Fprintf(w, "%s tracks, %s, %s%s\n",
		humanize.Comma(int64(p.Len())), formatDuration(total), humanize.Bytes(size), loop)
}
