package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/wesm/photogrid/internal/config"
	"github.com/wesm/photogrid/internal/unsplash"
)

var (
	cfgFile string
	homeDir string
	verbose bool
	cfg     *config.Config
	logger  *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "photogrid",
	Short: "Browse Unsplash photos in an infinitely scrolling grid",
	Long: `photogrid browses the Unsplash editorial feed and photo search as an
infinitely scrolling grid.

Run without a subcommand to open the terminal grid. The same grid is
available to remote renderers over HTTP (serve) and to MCP clients (mcp).`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip config loading for commands that don't need it
		if cmd.Name() == "version" {
			return nil
		}

		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: level,
		}))

		// --home is passed through so it influences where config.toml is
		// loaded from, like PHOTOGRID_HOME.
		var err error
		cfg, err = config.Load(cfgFile, homeDir)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		if err := cfg.EnsureHomeDir(); err != nil {
			return fmt.Errorf("create home directory %s: %w", cfg.HomeDir, err)
		}
		return nil
	},
	RunE: runTUI,
}

// Execute runs the root command with a background context.
// Prefer ExecuteContext for signal-aware execution.
func Execute() error {
	return ExecuteContext(context.Background())
}

// ExecuteContext runs the root command with the given context,
// enabling graceful shutdown when the context is cancelled.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// accessKeyHint returns help text for a missing Unsplash key, naming the
// config file actually in use.
func accessKeyHint() string {
	configPath := "<config file>"
	if cfg != nil {
		configPath = cfg.ConfigFilePath()
	}
	return fmt.Sprintf(`
To use photogrid, you need an Unsplash API access key:
  1. Register an application at https://unsplash.com/oauth/applications
  2. Copy its Access Key
  3. Export UNSPLASH_ACCESS_KEY, or create or edit %s:
       [unsplash]
       access_key = "your-access-key"`, configPath)
}

// newUnsplashClient builds the API client from the loaded config.
func newUnsplashClient(l *slog.Logger) (*unsplash.Client, error) {
	if cfg.Unsplash.AccessKey == "" {
		return nil, fmt.Errorf("Unsplash access key not configured.%s", accessKeyHint())
	}
	client, err := unsplash.New(unsplash.Config{
		AccessKey: cfg.Unsplash.AccessKey,
		BaseURL:   cfg.Unsplash.BaseURL,
		Timeout:   cfg.Unsplash.Timeout.Duration,
		RateLimit: cfg.Unsplash.RateLimitQPS,
		Logger:    l,
	})
	if err != nil {
		return nil, fmt.Errorf("create unsplash client: %w", err)
	}
	return client, nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.photogrid/config.toml)")
	rootCmd.PersistentFlags().StringVar(&homeDir, "home", "", "home directory (overrides PHOTOGRID_HOME)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
