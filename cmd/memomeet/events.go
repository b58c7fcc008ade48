package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Audit processed billing events",
}

var eventsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the most recent billing events",
	Long: `List processed payment webhooks and operator adjustments, newest first.

Examples:
  memomeet events list
  memomeet events list --account acc_123 --limit 20`,
	RunE: runEventsList,
}

var (
	eventsAccount string
	eventsLimit   int
)

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.AddCommand(eventsListCmd)

	eventsListCmd.Flags().StringVar(&eventsAccount, "account", "", "only events of this account")
	eventsListCmd.Flags().IntVar(&eventsLimit, "limit", 50, "maximum number of events")
}

func runEventsList(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	records, err := a.Accounts.Events(cmd.Context(), eventsAccount, eventsLimit)
	if err != nil {
		return fmt.Errorf("failed to list events: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(records) == 0 {
		fmt.Fprintln(out, "No billing events found.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tPROVIDER\tTYPE\tACCOUNT\tOUTCOME\tPROCESSED\tREASON")
	for _, r := range records {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.ID, r.Provider, r.Type, orDash(r.AccountID), r.Outcome,
			r.ProcessedAt.Format(time.RFC3339), r.Reason)
	}
	return w.Flush()
}
