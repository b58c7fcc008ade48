package main

import (
	"context"
	"fmt"
	"os"

	"github.com/memomeet/memomeet/bootstrap"
	"github.com/memomeet/memomeet/config"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	envFile string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "memomeet",
	Short: "Meeting summaries paid with credits or a subscription",
	Long: `MemoMeet turns meeting recordings into summaries and task lists.

Every summary costs one credit. Credits come from one-time packs or a
monthly subscription; the pro plan is unlimited.

Quick start:
  memomeet serve      # Start the API server
  memomeet validate   # Validate configuration

Operations:
  memomeet accounts   # Inspect and correct balances
  memomeet events     # Audit processed billing events
  memomeet token      # Issue bearer tokens`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return config.LoadDotEnv(envFile)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "memomeet.yaml", "config file path")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before the configuration")
}

// openApp wires the application for one-shot operator commands.
// Logs go to stderr so command output stays parseable.
func openApp(ctx context.Context) (*bootstrap.App, error) {
	a, err := bootstrap.New(ctx, bootstrap.Options{
		ConfigPath: cfgFile,
		Version:    version,
		LogOutput:  os.Stderr,
	})
	if err != nil {
		return nil, fmt.Errorf("error initializing: %w", err)
	}
	return a, nil
}

const (
	checkMark = "\033[32m✓\033[0m"
	crossMark = "\033[31m✗\033[0m"
)
