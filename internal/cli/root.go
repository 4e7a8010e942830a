// Package cli is the wavesd command line.
package cli

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/llehouerou/wavesd/internal/config"
	"github.com/llehouerou/wavesd/internal/logging"
)

var (
	cfgFile string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "wavesd",
	Short: "Music playback daemon with a terminal UI",
	Long: `wavesd plays a persistent playlist of local music files.

Run without a command to start the daemon (same as "wavesd serve"). While it
runs, the terminal UI, "wavesd ctl", MPRIS and WebSocket clients control it.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig()
	},
	RunE:          runServe,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default: $XDG_CONFIG_HOME/wavesd/config.toml)")
	rootCmd.Flags().BoolVar(&noTUI, "no-tui", false, "run without the terminal UI")
}

func initConfig() error {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	return nil
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "wavesd:", err)
		os.Exit(1)
	}
}

// commandLogger returns the logger of short-lived commands: stderr only.
func commandLogger() zerolog.Logger {
	logger, _, err := logging.New(config.LogConfig{Level: cfg.Log.Level}, os.Stderr, false)
	if err != nil {
		return zerolog.New(os.Stderr).Level(zerolog.WarnLevel)
	}
	return logger
}
