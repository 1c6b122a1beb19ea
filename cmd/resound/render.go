package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"

	"resound/internal/backend"
	"resound/internal/scheduler"
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
)

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func stateLabel(state backend.State, colorize bool) string {
	label := string(state)
	if !colorize {
		return label
	}
	switch state {
	case backend.StateSucceeded:
		return ansiGreen + label + ansiReset
	case backend.StateFailed:
		return ansiRed + label + ansiReset
	case backend.StateCancelled:
		return ansiYellow + label + ansiReset
	default:
		return label
	}
}

// printTransitions emits one line per file that reached a terminal state
// since the previous snapshot. Output is append-only so it behaves in pipes
// and terminals alike.
func printTransitions(out io.Writer, snap scheduler.Snapshot, seen map[string]backend.State, colorize bool) {
	for id, st := range snap.Files {
		if !st.State.IsTerminal() || seen[id] == st.State {
			continue
		}
		seen[id] = st.State
		line := fmt.Sprintf("%-9s %s", stateLabel(st.State, colorize), id)
		if st.Error != "" {
			line += " (" + st.Error + ")"
		}
		fmt.Fprintln(out, line)
	}
}

func printBatchSummary(out io.Writer, snap scheduler.Snapshot) {
	elapsed := ""
	if !snap.Batch.StartedAt.IsZero() {
		elapsed = " in " + formatDuration(time.Since(snap.Batch.StartedAt))
	}
	fmt.Fprintf(out, "Converted %d of %d files (%d failed)%s\n",
		snap.Batch.Completed, snap.Batch.Total, snap.Batch.Failed, elapsed)
	if snap.LastError != "" && snap.Batch.Failed > 0 {
		fmt.Fprintf(out, "Last error: %s\n", snap.LastError)
	}
}

func formatDuration(d time.Duration) string {
	return d.Round(time.Second).String()
}
