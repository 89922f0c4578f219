// ABOUTME: Root command for the blackbox CLI
// ABOUTME: Handles global flags, configuration layering and shared exit codes

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/neves-cloud/blackbox/internal/client"
	"github.com/neves-cloud/blackbox/internal/config"
	"github.com/neves-cloud/blackbox/internal/flow"
	"github.com/neves-cloud/blackbox/internal/logger"
	"github.com/neves-cloud/blackbox/internal/session"
	"github.com/spf13/cobra"
)

// Exit codes shared by every command
const (
	exitOK       = 0
	exitRejected = 1
	exitError    = 2
)

var (
	configDir   string
	identityURL string
	statusURL   string
	playURL     string
	logLevel    string
	jsonOutput  bool
)

// rootCmd is the base command
var rootCmd = &cobra.Command{
	Use:   "blackbox",
	Short: "Terminal client for the blackbox dashcam service",
	Long: `blackbox signs you in to the dashcam service, manages your registered
devices and plays back recorded segments.

Run without a subcommand to open the interactive TUI.

Environment Variables:
  BLACKBOX_IDENTITY_URL  Identity service URL
  BLACKBOX_STATUS_URL    Device and metadata service URL
  BLACKBOX_PLAY_URL      Signing service URL
  BLACKBOX_PLAYER        Media player command (default: mpv)
  LOG_LEVEL, LOG_FORMAT  Logging (debug|info|warn|error, text|json)`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return tuiCmd.RunE(cmd, args)
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "Config directory (default: $XDG_CONFIG_HOME/blackbox)")
	rootCmd.PersistentFlags().StringVar(&identityURL, "identity-url", "", "Identity service URL (overrides BLACKBOX_IDENTITY_URL)")
	rootCmd.PersistentFlags().StringVar(&statusURL, "status-url", "", "Device service URL (overrides BLACKBOX_STATUS_URL)")
	rootCmd.PersistentFlags().StringVar(&playURL, "play-url", "", "Signing service URL (overrides BLACKBOX_PLAY_URL)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (overrides LOG_LEVEL)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output JSON instead of human-readable text")
}

// IsJSONOutput returns whether JSON output is requested
func IsJSONOutput() bool {
	return jsonOutput
}

// deps bundles what a command needs to talk to the services
type deps struct {
	cfg    *config.Config
	client *client.Client
	store  session.Store
}

// LoadConfig layers command-line flags over config.Load
func LoadConfig() (*config.Config, error) {
	cfg, err := config.Load(configDir)
	if err != nil {
		return nil, err
	}
	if identityURL != "" {
		cfg.IdentityURL = identityURL
	}
	if statusURL != "" {
		cfg.StatusURL = statusURL
	}
	if playURL != "" {
		cfg.PlayURL = playURL
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	return cfg, cfg.Validate()
}

// newDeps wires the session store into a client
func newDeps(cfg *config.Config, store session.Store) *deps {
	c := client.New(client.Endpoints{
		Identity: cfg.IdentityURL,
		Status:   cfg.StatusURL,
		Play:     cfg.PlayURL,
	}, client.WithTokenSource(session.TokenSource(store)))
	return &deps{cfg: cfg, client: c, store: store}
}

// setup loads configuration, starts stderr logging and opens the session file
func setup() (*deps, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, err
	}
	logger.Init(cfg.LogLevel, cfg.LogFormat)
	if cfg.ConfigDir == "" {
		return nil, errors.New("cannot determine config directory; pass --config-dir")
	}
	return newDeps(cfg, session.NewFileStore(cfg.ConfigDir)), nil
}

// runCommand gives run a signal-aware context and exits with its code
func runCommand(run func(ctx context.Context, d *deps, w io.Writer) int) func(*cobra.Command, []string) {
	return func(cmd *cobra.Command, args []string) {
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		d, err := setup()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(exitError)
		}

		exitCode := run(ctx, d, os.Stdout)
		if exitCode != 0 {
			os.Exit(exitCode)
		}
	}
}

// exitCodeFor maps a failure to 1 when a service refused it and 2 otherwise
func exitCodeFor(err error) int {
	if err == nil {
		return exitOK
	}
	var rejected *client.RejectedError
	if errors.As(err, &rejected) || errors.Is(err, client.ErrUnauthorized) {
		return exitRejected
	}
	return exitError
}

// fail prints the user-facing message for err and returns its exit code
func fail(w io.Writer, err error) int {
	fmt.Fprintf(w, "Error: %s\n", flow.Describe(err))
	return exitCodeFor(err)
}
