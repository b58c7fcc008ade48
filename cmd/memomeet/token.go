package main

import (
	"fmt"
	"time"

	"github.com/memomeet/memomeet/adapters/auth"
	"github.com/memomeet/memomeet/config"
	"github.com/spf13/cobra"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue bearer tokens and signing secrets",
}

var tokenIssueCmd = &cobra.Command{
	Use:   "issue <account-id>",
	Short: "Issue a bearer token for an account",
	Long: `Issue a bearer token signed with auth.jwt_secret.

Sign-in is handled by the identity provider in production; this command
is for local development and operator access.

Examples:
  memomeet token issue acc_123 --email dev@example.com
  memomeet token issue ops --role operator --ttl 1h`,
	Args: cobra.ExactArgs(1),
	RunE: runTokenIssue,
}

var tokenSecretCmd = &cobra.Command{
	Use:   "secret",
	Short: "Print a random value for auth.jwt_secret",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), auth.GenerateSecret())
	},
}

var (
	tokenEmail string
	tokenRole  string
	tokenTTL   time.Duration
)

func init() {
	rootCmd.AddCommand(tokenCmd)
	tokenCmd.AddCommand(tokenIssueCmd)
	tokenCmd.AddCommand(tokenSecretCmd)

	tokenIssueCmd.Flags().StringVar(&tokenEmail, "email", "", "email claim, used for the payment customer")
	tokenIssueCmd.Flags().StringVar(&tokenRole, "role", auth.RoleUser, "role claim (user or operator)")
	tokenIssueCmd.Flags().DurationVar(&tokenTTL, "ttl", 0, "token lifetime (default: auth.token_expiration)")
}

func runTokenIssue(cmd *cobra.Command, args []string) error {
	if tokenRole != auth.RoleUser && tokenRole != auth.RoleOperator {
		return fmt.Errorf("role must be %q or %q", auth.RoleUser, auth.RoleOperator)
	}

	cfg, err := config.LoadWithFallback(cfgFile)
	if err != nil {
		return err
	}

	ttl := cfg.Auth.TokenExpiration
	if tokenTTL > 0 {
		ttl = tokenTTL
	}

	tokens := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.Issuer, ttl)
	token, expiresAt, err := tokens.GenerateToken(args[0], tokenEmail, tokenRole)
	if err != nil {
		return fmt.Errorf("failed to issue token: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), token)
	fmt.Fprintf(cmd.ErrOrStderr(), "expires %s\n", expiresAt.Format(time.RFC3339))
	return nil
}
