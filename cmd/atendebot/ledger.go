package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/borealmoveis/atendebot/internal/configutil"
	"github.com/borealmoveis/atendebot/ledger"
)

func newLedgerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Inspect the correspondent ledger",
	}
	cmd.AddCommand(newLedgerListCmd())
	cmd.AddCommand(newLedgerDueCmd())
	return cmd
}

func newLedgerListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Print every ledger record",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := storeFromViper()
			if err != nil {
				return err
			}
			defer closeStore(store)
			if err := store.Ensure(cmd.Context()); err != nil {
				return err
			}
			records, err := store.List(cmd.Context())
			if err != nil {
				return err
			}
			printRecords(cmd, records)
			return nil
		},
	}
}

func newLedgerDueCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "due",
		Short: "Print records eligible for the follow-up message",
		RunE: func(cmd *cobra.Command, args []string) error {
			thresholdDays := configutil.FlagOrViperInt(cmd, "threshold-days", "followup.threshold_days")
			if thresholdDays <= 0 {
				thresholdDays = ledger.DefaultThresholdDays
			}
			store, err := storeFromViper()
			if err != nil {
				return err
			}
			defer closeStore(store)
			if err := store.Ensure(cmd.Context()); err != nil {
				return err
			}
			records, err := store.FindDue(cmd.Context(), time.Now().UTC(), thresholdDays)
			if err != nil {
				return err
			}
			printRecords(cmd, records)
			return nil
		},
	}
	cmd.Flags().Int("threshold-days", 0, "Override followup.threshold_days for this listing.")
	_ = viper.BindPFlag("followup.threshold_days", cmd.Flags().Lookup("threshold-days"))
	return cmd
}

func closeStore(store ledger.Store) {
	if closer, ok := store.(interface{ Close() error }); ok {
		_ = closer.Close()
	}
}

func printRecords(cmd *cobra.Command, records []ledger.Record) {
	out := cmd.OutOrStdout()
	if len(records) == 0 {
		_, _ = fmt.Fprintln(out, "no records")
		return
	}
	for _, record := range records {
		status := "pending"
		if record.FollowUpSent {
			status = "sent"
		}
		_, _ = fmt.Fprintf(out, "%s\t%s\t%s\n", record.ID, record.EngagedAt.UTC().Format(time.RFC3339), status)
	}
}
