package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/llehouerou/wavesd/internal/errmsg"
	"github.com/llehouerou/wavesd/internal/lastfm"
	"github.com/llehouerou/wavesd/internal/state"
)

var lastfmCmd = &cobra.Command{
	Use:   "lastfm",
	Short: "Manage Last.fm scrobbling",
	Long: `Link wavesd to a Last.fm account. Scrobbling needs lastfm.api_key and
lastfm.api_secret in the config, and a session from "wavesd lastfm login".`,
}

var lastfmLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authorize wavesd in the browser and store the session",
	Args:  cobra.NoArgs,
	RunE:  runLastfmLogin,
}

var lastfmLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored session",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		return withState(func(db *state.Manager) error {
			if err := db.DeleteLastfmSession(); err != nil {
				return err
			}
			fmt.Println("logged out")
			return nil
		})
	},
}

var lastfmStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the linked account and pending scrobbles",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		if !cfg.HasLastfmConfig() {
			fmt.Println("not configured")
			return nil
		}
		return withState(func(db *state.Manager) error {
			sess, err := db.GetLastfmSession()
			if err != nil {
				return err
			}
			switch {
			case sess != nil:
				fmt.Printf("logged in as %s (linked %s)\n", sess.Username, humanize.Time(sess.LinkedAt))
			case cfg.Lastfm.SessionKey != "":
				fmt.Println("using the session key from the config")
			default:
				fmt.Println("not logged in")
			}

			pending, err := db.PendingScrobbles()
			if err != nil {
				return err
			}
			if len(pending) > 0 {
				fmt.Printf("%d scrobbles waiting, oldest %s\n", len(pending), humanize.Time(pending[0].PlayedAt))
			}
			return nil
		})
	},
}

func init() {
	lastfmCmd.AddCommand(lastfmLoginCmd, lastfmLogoutCmd, lastfmStatusCmd)
	rootCmd.AddCommand(lastfmCmd)
}

func runLastfmLogin(cmd *cobra.Command, _ []string) error {
	if !cfg.HasLastfmConfig() {
		return errors.New("lastfm.api_key and lastfm.api_secret are not configured")
	}

	client := lastfm.New(cfg.Lastfm.APIKey, cfg.Lastfm.APISecret)
	sess, err := lastfm.Login(cmd.Context(), client, func(authURL string) {
		fmt.Println("Open this URL to authorize wavesd:")
		fmt.Println(" ", authURL)
	})
	if err != nil {
		return errmsg.Wrap(errmsg.OpLastfmAuth, err)
	}

	return withState(func(db *state.Manager) error {
		if err := db.SaveLastfmSession(sess.Username, sess.Key); err != nil {
			return err
		}
		fmt.Printf("logged in as %s\n", sess.Username)
		return nil
	})
}

func withState(fn func(db *state.Manager) error) error {
	db, err := state.Open(cfg.GetDBFile(), commandLogger())
	if err != nil {
		return fmt.Errorf("open state database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			fmt.Fprintln(os.Stderr, "close state database:", err)
		}
	}()
	return fn(db)
}
