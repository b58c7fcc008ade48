package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/memomeet/memomeet/domain/account"
	"github.com/spf13/cobra"
)

var accountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "Inspect and correct account balances",
	Long: `Inspect and correct MemoMeet account balances.

Every grant and debit is recorded as an operator adjustment in the
billing event log (see 'memomeet events list').

Examples:
  memomeet accounts list
  memomeet accounts get acc_123
  memomeet accounts grant acc_123 10 --note "refund for failed export"
  memomeet accounts debit acc_123 1 --note "reconciliation"`,
}

var accountsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List accounts",
	RunE:  runAccountsList,
}

var accountsGetCmd = &cobra.Command{
	Use:   "get <account-id>",
	Short: "Show an account's entitlement snapshot",
	Args:  cobra.ExactArgs(1),
	RunE:  runAccountsGet,
}

var accountsGrantCmd = &cobra.Command{
	Use:   "grant <account-id> <credits>",
	Short: "Add credits to an account",
	Args:  cobra.ExactArgs(2),
	RunE:  runAccountsAdjust(true),
}

var accountsDebitCmd = &cobra.Command{
	Use:   "debit <account-id> <credits>",
	Short: "Remove credits from an account",
	Args:  cobra.ExactArgs(2),
	RunE:  runAccountsAdjust(false),
}

var (
	accountsLimit  int
	accountsOffset int
	accountsJSON   bool
	adjustNote     string
)

func init() {
	rootCmd.AddCommand(accountsCmd)

	accountsCmd.AddCommand(accountsListCmd)
	accountsCmd.AddCommand(accountsGetCmd)
	accountsCmd.AddCommand(accountsGrantCmd)
	accountsCmd.AddCommand(accountsDebitCmd)

	accountsListCmd.Flags().IntVar(&accountsLimit, "limit", 100, "maximum number of accounts")
	accountsListCmd.Flags().IntVar(&accountsOffset, "offset", 0, "accounts to skip")
	accountsGetCmd.Flags().BoolVar(&accountsJSON, "json", false, "print the snapshot as JSON")
	accountsGrantCmd.Flags().StringVar(&adjustNote, "note", "", "reason recorded with the adjustment (required)")
	accountsDebitCmd.Flags().StringVar(&adjustNote, "note", "", "reason recorded with the adjustment (required)")
	accountsGrantCmd.MarkFlagRequired("note")
	accountsDebitCmd.MarkFlagRequired("note")
}

func runAccountsList(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	accounts, total, err := a.Accounts.List(cmd.Context(), accountsLimit, accountsOffset)
	if err != nil {
		return fmt.Errorf("failed to list accounts: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(accounts) == 0 {
		fmt.Fprintln(out, "No accounts found.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCREDITS\tTIER\tCUSTOMER\tCREATED")
	fmt.Fprintln(w, "--\t-------\t----\t--------\t-------")
	for _, acc := range accounts {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			acc.ID, creditsLabel(acc), acc.Tier, orDash(acc.CustomerRef), acc.CreatedAt.Format(time.DateOnly))
	}
	w.Flush()

	fmt.Fprintf(out, "\n%d of %d accounts\n", len(accounts), total)
	return nil
}

func runAccountsGet(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	acc, err := a.Accounts.Get(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("account %s: %w", args[0], err)
	}
	view := account.Project(acc, time.Now())

	out := cmd.OutOrStdout()
	if accountsJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(view)
	}

	fmt.Fprintf(out, "Account:    %s\n", view.ID)
	fmt.Fprintf(out, "Credits:    %s\n", creditsLabel(acc))
	fmt.Fprintf(out, "Available:  %d\n", view.Available)
	fmt.Fprintf(out, "Tier:       %s\n", view.Tier)
	fmt.Fprintf(out, "Customer:   %s\n", orDash(acc.CustomerRef))
	fmt.Fprintf(out, "Subscribed: %s\n", orDash(acc.SubscriptionRef))
	if acc.Reserved > 0 {
		fmt.Fprintf(out, "Reserved:   %d until %s\n", acc.Reserved, acc.ReservedUntil.Format(time.RFC3339))
	}
	return nil
}

func runAccountsAdjust(grant bool) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		id := args[0]
		n, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil || n <= 0 {
			return fmt.Errorf("credits must be a positive integer, got %q", args[1])
		}

		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := cmd.Context()
		var acc account.Account
		if grant {
			if _, err := a.Accounts.Ensure(ctx, id); err != nil {
				return err
			}
			acc, err = a.Accounts.Grant(ctx, id, n, adjustNote)
		} else {
			acc, err = a.Accounts.Debit(ctx, id, n, adjustNote)
		}
		if err != nil {
			return err
		}

		verb := "Granted"
		if !grant {
			verb = "Debited"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s %d credit(s): %s now has %d\n", checkMark, verb, n, acc.ID, acc.Credits)
		return nil
	}
}

func creditsLabel(a account.Account) string {
	if a.Unlimited {
		return "unlimited"
	}
	return strconv.FormatInt(a.Credits, 10)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
