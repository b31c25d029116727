package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"freefeed-mcp/internal/config"
	"freefeed-mcp/internal/logging"
	"freefeed-mcp/internal/mcp"
)

var rootCmd = &cobra.Command{
	Use:   "freefeed-mcp",
	Short: "FreeFeed gateway for AI agents",
	Long: `FreeFeed gateway for AI agents.

Runs a Model Context Protocol server on stdio exposing FreeFeed timelines,
posts, comments, attachments, search, users and groups as structured tools.
Results pass through an opt-out filter so users who declined AI interactions
never reach the caller.

Authentication comes from FREEFEED_APP_TOKEN, or FREEFEED_USERNAME and
FREEFEED_PASSWORD. See 'freefeed-mcp api' to run the REST facade instead.`,
	Version:       config.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		logger := logging.GetDefault()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return mcp.NewServer(cfg, logger).Start(ctx)
	},
}

func main() {
	// Missing .env is fine; the environment itself may be fully configured.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		logging.Error("Fatal error", "error", err)
		os.Exit(1)
	}
}
