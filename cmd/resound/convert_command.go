package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"resound/internal/app"
	"resound/internal/backend"
	"resound/internal/scheduler"
)

func newConvertCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "convert FILE [FILE...]",
		Short: "Convert specific audio files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runCtx, stop := signalContext()
			defer stop()
			return ctx.withApp(runCtx, func(runCtx context.Context, a *app.App) error {
				return runConvert(runCtx, cmd, a, args)
			})
		},
	}
}

func runConvert(ctx context.Context, cmd *cobra.Command, a *app.App, paths []string) error {
	out := cmd.OutOrStdout()
	sched := a.Scheduler()

	submitted := 0
	for _, path := range paths {
		cand, err := a.Scanner().Candidate(ctx, path)
		if err != nil {
			return err
		}
		if !cand.NeedsConversion {
			fmt.Fprintf(out, "skipping  %s (already converted)\n", cand.Path)
			continue
		}
		if err := sched.ConvertOne(ctx, cand); err != nil {
			if errors.Is(err, scheduler.ErrEmptySelection) {
				fmt.Fprintf(out, "skipping  %s (already converted)\n", cand.Path)
				continue
			}
			return err
		}
		submitted++
	}
	if submitted == 0 {
		fmt.Fprintln(out, "Nothing to convert")
		return nil
	}

	if err := followInFlight(ctx, cmd, sched); err != nil {
		return err
	}
	snap := sched.CurrentSnapshot()
	failed := 0
	for _, st := range snap.Files {
		if st.State == backend.StateFailed {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d conversions failed", failed, submitted)
	}
	return nil
}

// followInFlight prints terminal transitions until every outstanding job
// resolves. An interrupt cancels the remainder and returns cleanly.
func followInFlight(ctx context.Context, cmd *cobra.Command, sched *scheduler.Scheduler) error {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)
	seen := make(map[string]backend.State)
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case snap := <-sched.Updates():
			printTransitions(out, snap, seen, colorize)
		case <-ticker.C:
			if sched.InFlightCount() == 0 {
				printTransitions(out, sched.CurrentSnapshot(), seen, colorize)
				return nil
			}
		case <-ctx.Done():
			fmt.Fprintln(out, "Cancelling...")
			if err := sched.CancelAll(context.Background()); err != nil {
				return err
			}
			printTransitions(out, sched.CurrentSnapshot(), seen, colorize)
			return nil
		}
	}
}
