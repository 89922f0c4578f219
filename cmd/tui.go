// ABOUTME: Interactive TUI command
// ABOUTME: Opens the full-screen sign-in, device and playback interface

package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/neves-cloud/blackbox/internal/logger"
	"github.com/neves-cloud/blackbox/internal/player"
	"github.com/neves-cloud/blackbox/internal/session"
	"github.com/neves-cloud/blackbox/internal/tui"
	"github.com/spf13/cobra"
)

var tuiEager bool

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Open the interactive interface",
	Long: `Open the full-screen interface. Logs go to debug.log in the config
directory so they do not corrupt the screen.

While a segment plays, the player owns the terminal. Quitting the player
normally moves on to the next segment; quitting with an error (for
example Ctrl+C in mpv) stops the playlist.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := LoadConfig()
		if err != nil {
			return err
		}
		if cfg.ConfigDir == "" {
			return errors.New("cannot determine config directory; pass --config-dir")
		}
		if tuiEager {
			cfg.EagerURLs = true
		}

		closeLog, err := logger.InitFile(cfg.ConfigDir, cfg.LogLevel, cfg.LogFormat)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		defer closeLog()

		p := player.New(cfg.Player, cfg.PlayerArgs...)
		if err := p.Check(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v; playback will fail until it is installed\n", err)
		}

		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM)
		defer cancel()

		d := newDeps(cfg, session.NewFileStore(cfg.ConfigDir))
		slog.Info("Starting TUI", "identity", cfg.IdentityURL, "status", cfg.StatusURL, "play", cfg.PlayURL)
		return tui.Run(ctx, d.client, d.store, p, tui.Options{EagerURLs: cfg.EagerURLs})
	},
}

func init() {
	tuiCmd.Flags().BoolVar(&tuiEager, "eager", false, "Sign every playback URL when a day is listed")
	rootCmd.AddCommand(tuiCmd)
}
