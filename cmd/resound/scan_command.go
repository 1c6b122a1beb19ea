package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"resound/internal/catalog"
	"resound/internal/config"
	"resound/internal/scanner"
)

func newScanCommand(ctx *commandContext) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "scan [DIR...]",
		Short: "List audio files and whether they need conversion",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *catalog.Store, cfg *config.Config) error {
				logger, err := ctx.ensureLogger()
				if err != nil {
					return err
				}
				sc := scanner.New(cfg, store, logger)
				candidates, err := sc.Scan(cmd.Context(), args...)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				rows := make([][]string, 0, len(candidates))
				pending := 0
				for _, cand := range candidates {
					status := "up to date"
					if cand.NeedsConversion {
						status = "needs conversion"
						pending++
					} else if !all {
						continue
					}
					format := strings.TrimPrefix(strings.ToLower(filepath.Ext(cand.Path)), ".")
					rows = append(rows, []string{cand.Path, format, status})
				}
				if len(rows) > 0 {
					fmt.Fprintln(out, renderTable([]string{"File", "Format", "Status"}, rows))
				}
				fmt.Fprintf(out, "%d audio files, %d need conversion\n", len(candidates), pending)
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&all, "all", "a", false, "Include files that are already up to date")
	return cmd
}
