package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"resound/internal/app"
	"resound/internal/backend"
	"resound/internal/scheduler"
)

func newBatchCommand(ctx *commandContext) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "batch [DIR...]",
		Short: "Convert every eligible file under the library or the given directories",
		RunE: func(cmd *cobra.Command, args []string) error {
			runCtx, stop := signalContext()
			defer stop()
			return ctx.withApp(runCtx, func(runCtx context.Context, a *app.App) error {
				return runBatch(runCtx, cmd, a, args, yes)
			})
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	return cmd
}

func runBatch(ctx context.Context, cmd *cobra.Command, a *app.App, roots []string, yes bool) error {
	out := cmd.OutOrStdout()
	sched := a.Scheduler()

	candidates, err := a.Scanner().Scan(ctx, roots...)
	if err != nil {
		return err
	}
	eligible := sched.Filter(candidates)
	fmt.Fprintf(out, "Found %d audio files, %d need conversion\n", len(candidates), len(eligible))
	if len(eligible) == 0 {
		fmt.Fprintln(out, "Nothing to convert")
		return nil
	}

	if !yes && !confirm(cmd, len(eligible)) {
		fmt.Fprintln(out, "Aborted")
		return nil
	}

	count, err := sched.ConvertBatch(ctx, candidates)
	if errors.Is(err, scheduler.ErrEmptySelection) {
		fmt.Fprintln(out, "Nothing to convert")
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Converting %d files\n", count)

	return followBatch(ctx, cmd, sched)
}

func confirm(cmd *cobra.Command, count int) bool {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Convert %d files? [y/N] ", count)
	reader := bufio.NewReader(cmd.InOrStdin())
	line, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

// followBatch streams terminal transitions until the run finishes. An
// interrupt cancels the run, prints what completed, and exits cleanly.
func followBatch(ctx context.Context, cmd *cobra.Command, sched *scheduler.Scheduler) error {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)
	seen := make(map[string]backend.State)

	for {
		select {
		case snap := <-sched.Updates():
			printTransitions(out, snap, seen, colorize)
			if !snap.Batch.Active {
				printBatchSummary(out, snap)
				return nil
			}
		case <-ctx.Done():
			fmt.Fprintln(out, "Cancelling batch...")
			if err := sched.CancelAll(context.Background()); err != nil {
				return err
			}
			snap := sched.CurrentSnapshot()
			printTransitions(out, snap, seen, colorize)
			printBatchSummary(out, snap)
			return nil
		}
	}
}
