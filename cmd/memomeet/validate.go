package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/memomeet/memomeet/bootstrap"
	"github.com/memomeet/memomeet/config"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration before deployment",
	Long: `Validate the MemoMeet configuration file.

Checks:
  - YAML syntax is valid
  - Required fields are present
  - The price catalog is consistent
  - Database is reachable (optional)

Examples:
  memomeet validate
  memomeet validate --config /etc/memomeet/config.yaml --check-database`,
	RunE: runValidate,
}

var validateCheckDatabase bool

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().BoolVar(&validateCheckDatabase, "check-database", false, "check that the database is reachable")
}

func runValidate(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Validating %s...\n\n", cfgFile)

	if _, err := os.Stat(cfgFile); os.IsNotExist(err) {
		fmt.Fprintf(out, "  %s Config file exists\n", crossMark)
		return fmt.Errorf("config file not found: %s", cfgFile)
	}
	fmt.Fprintf(out, "  %s Config file exists\n", checkMark)

	cfg, err := config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(out, "  %s Config valid\n", crossMark)
		return fmt.Errorf("config error: %w", err)
	}
	fmt.Fprintf(out, "  %s Config valid\n", checkMark)

	fmt.Fprintf(out, "  %s Billing: %s\n", checkMark, cfg.Billing.Mode)
	fmt.Fprintf(out, "  %s Prices configured: %d\n", checkMark, len(cfg.Billing.Prices))
	fmt.Fprintf(out, "  %s Summarizer: %s\n", checkMark, cfg.Summarizer.Mode)
	fmt.Fprintf(out, "  %s Export: %s\n", checkMark, cfg.Export.Mode)
	fmt.Fprintf(out, "  %s Database: %s\n", checkMark, cfg.Database.Driver)

	if validateCheckDatabase {
		if err := checkDatabase(cmd.Context(), cfg); err != nil {
			fmt.Fprintf(out, "  %s Database reachable\n", crossMark)
			fmt.Fprintf(out, "      Error: %v\n", err)
		} else {
			fmt.Fprintf(out, "  %s Database reachable\n", checkMark)
		}
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "Configuration is valid.")
	return nil
}

func checkDatabase(ctx context.Context, cfg *config.Config) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	stores, err := bootstrap.OpenStores(ctx, cfg.Database, zerolog.Nop())
	if err != nil {
		return err
	}
	defer stores.Close()

	if stores.Health == nil {
		return nil
	}
	return stores.Health.HealthCheck(ctx)
}
