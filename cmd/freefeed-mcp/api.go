package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"freefeed-mcp/internal/api"
	"freefeed-mcp/internal/config"
	"freefeed-mcp/internal/logging"
)

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Run the REST facade",
	Long: `Run the REST facade over HTTP.

Serves the same FreeFeed operations as the stdio tool server. Requests may
carry their own credentials (Authorization bearer token, X-Freefeed-* headers
or a session token from POST /api/session); without them the server-wide
environment credentials are used.

Listen address comes from FREEFEED_API_HOST and FREEFEED_API_PORT.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		logger := logging.GetDefault()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return api.NewServer(cfg, logger).Run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(apiCmd)
}
