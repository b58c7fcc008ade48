package main

import (
	"fmt"

	"github.com/memomeet/memomeet/bootstrap"
	"github.com/memomeet/memomeet/config"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	Long: `Apply pending database migrations and exit.

serve applies migrations on startup as well; run this ahead of a
deployment to fail early on schema problems.`,
	RunE: runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadWithFallback(cfgFile)
	if err != nil {
		return err
	}

	logger := zerolog.New(cmd.ErrOrStderr()).With().Timestamp().Logger()
	stores, err := bootstrap.OpenStores(cmd.Context(), cfg.Database, logger)
	if err != nil {
		return err
	}
	defer stores.Close()

	fmt.Fprintf(cmd.OutOrStdout(), "%s Database %s is up to date\n", checkMark, cfg.Database.Driver)
	return nil
}
