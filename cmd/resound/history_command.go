package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"resound/internal/catalog"
	"resound/internal/config"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded conversion outcomes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *catalog.Store, _ *config.Config) error {
				records, err := store.List(cmd.Context(), limit)
				if err != nil {
					return err
				}
				summary, err := store.Stats(cmd.Context())
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if len(records) == 0 {
					fmt.Fprintln(out, "No conversions recorded")
					return nil
				}
				rows := make([][]string, 0, len(records))
				for _, rec := range records {
					detail := rec.OutputPath
					if rec.Status == catalog.OutcomeFailed {
						detail = rec.ErrorMessage
					}
					rows = append(rows, []string{
						rec.ConvertedAt.Local().Format(time.DateTime),
						string(rec.Status),
						rec.SourcePath,
						detail,
					})
				}
				fmt.Fprintln(out, renderTable([]string{"When", "Status", "Source", "Output / Error"}, rows))
				fmt.Fprintf(out, "%d recorded conversions (%d succeeded, %d failed)\n",
					summary.Total, summary.Succeeded, summary.Failed)
				return nil
			})
		},
	}
	historyCmd.Flags().IntVarP(&limit, "limit", "n", 50, "Maximum records to show (0 for all)")

	historyCmd.AddCommand(newHistoryClearCommand(ctx))
	return historyCmd
}

func newHistoryClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete all recorded conversion outcomes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *catalog.Store, _ *config.Config) error {
				removed, err := store.Clear(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d records\n", removed)
				return nil
			})
		},
	}
}
