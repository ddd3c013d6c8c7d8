package cli

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/yexiu0529666/gobang/internal/client"
	"github.com/yexiu0529666/gobang/internal/factory"
	"github.com/yexiu0529666/gobang/internal/realtime"
	redisstorage "github.com/yexiu0529666/gobang/internal/storage/redis"
)

var (
	cfg *Config
	app *factory.App
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	cfg = DefaultConfig()

	rootCmd := &cobra.Command{
		Use:   "gobang",
		Short: "CLI client for the gobang game service",
		Long: `gobang is a command-line client for the gobang (five-in-a-row) service.

It manages an authenticated session against the HTTP API, keeps a local
view of the active match in sync over the realtime channel, and plays
moves interactively.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := slog.LevelWarn
			if cfg.Verbose {
				level = slog.LevelDebug
			}
			logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
				Level: level,
			}))

			factoryCfg := factory.Config{
				ClientConfig: client.Config{BaseURL: cfg.APIBaseURL()},
				ChannelConfig: realtime.Config{
					URL: cfg.WebsocketURL(),
				},
				Logger:      logger,
				StorageType: cfg.StorageType,
				TokenFile:   cfg.TokenFile,
			}
			if cfg.StorageType == factory.StorageTypeRedis {
				redisCfg := redisstorage.DefaultConfig()
				if cfg.RedisURL != "" {
					redisCfg.URL = cfg.RedisURL
				}
				factoryCfg.RedisConfig = &redisCfg
			}

			var err error
			app, err = factory.New(factoryCfg)
			if err != nil {
				return err
			}

			// Restore a persisted session if one exists. Commands that
			// need authentication fail with a clear error from the
			// server if restore found nothing.
			return app.Session.Initialize(cmd.Context())
		},
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfg.ServerURL, "server", cfg.ServerURL, "Server URL (env: GOBANG_SERVER)")
	rootCmd.PersistentFlags().StringVar(&cfg.TokenFile, "token-file", cfg.TokenFile, "Token file path (env: GOBANG_TOKEN_FILE)")
	rootCmd.PersistentFlags().StringVar(&cfg.StorageType, "storage", cfg.StorageType, "Token storage backend: file, redis (env: GOBANG_STORAGE)")
	rootCmd.PersistentFlags().StringVarP(&cfg.Output, "output", "o", cfg.Output, "Output format: text, json")
	rootCmd.PersistentFlags().BoolVarP(&cfg.Verbose, "verbose", "v", cfg.Verbose, "Verbose output")

	// Add subcommands
	rootCmd.AddCommand(newAuthCmd())
	rootCmd.AddCommand(newGameCmd())
	rootCmd.AddCommand(newMatchCmd())
	rootCmd.AddCommand(newPlayCmd())
	rootCmd.AddCommand(newReplayCmd())
	rootCmd.AddCommand(newLeaderboardCmd())

	return rootCmd
}

// Execute runs the root command
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
