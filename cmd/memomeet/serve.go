package main

import (
	"fmt"
	"os"

	"github.com/memomeet/memomeet/config"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	Long: `Start the MemoMeet API server.

The server will:
  - Load configuration from memomeet.yaml (or --config)
  - Or load configuration from MEMOMEET_* environment variables
  - Connect to the database and apply pending migrations
  - Serve /api/*, /webhooks/{provider}, /health and /metrics

The config file is watched: price and log level changes apply without a
restart, and SIGHUP forces a reload.

Environment variables (for container deployments):
  MEMOMEET_AUTH_JWT_SECRET        - Bearer token signing secret (required)
  MEMOMEET_DATABASE_DRIVER        - sqlite, postgres or memory
  MEMOMEET_DATABASE_DSN           - Database path or URL
  MEMOMEET_BILLING_MODE           - none, stripe or dummy
  MEMOMEET_SUMMARIZER_MODE        - openai, dummy or none

Examples:
  memomeet serve
  memomeet serve --config /etc/memomeet/config.yaml`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	_, statErr := os.Stat(cfgFile)
	if statErr != nil && !config.HasEnvConfig() {
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "No configuration found.")
		fmt.Fprintln(out)
		fmt.Fprintf(out, "Option 1: Create %s\n", cfgFile)
		fmt.Fprintln(out, "Option 2: Set MEMOMEET_AUTH_JWT_SECRET and other MEMOMEET_* variables")
		return nil
	}

	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	if statErr != nil {
		a.Logger.Info().Msg("running with environment variables (no config file)")
	}

	return a.Run(cmd.Context())
}
