// Package report renders a racesim.Result as a human-readable transcript:
// a step-by-step account of the failing iteration's events (spec.md §4.J's
// "thread 2 stored 1 to X; ...") followed by a one-line PASS/FAIL summary.
package report

import (
	"fmt"
	"io"

	"github.com/davecgh/go-spew/spew"
	"github.com/fatih/color"

	"github.com/kolkov/racesim/internal/engine/history"
	"github.com/kolkov/racesim/racesim"
)

// Print writes a transcript of res to w: the failing iteration's event log
// (if any), then a one-line summary. In verbose mode, every event's
// history.Event struct is dumped in full via spew rather than summarized.
func Print(w io.Writer, res racesim.Result, verbose bool) {
	if res.Outcome != history.Success {
		printEvents(w, res.History, verbose)
	}
	printSummary(w, res)
}

func printEvents(w io.Writer, events []history.Event, verbose bool) {
	for _, ev := range events {
		if verbose {
			fmt.Fprintf(w, "%s", spew.Sdump(ev))
			continue
		}
		line := fmt.Sprintf("  [%d] thread %d: %s", ev.Step, ev.Thread, ev.Kind)
		if ev.Object != "" {
			line += fmt.Sprintf(" %q", ev.Object)
		}
		if ev.Detail != "" {
			line += " (" + ev.Detail + ")"
		}
		fmt.Fprintln(w, line)
	}
}

func printSummary(w io.Writer, res racesim.Result) {
	if res.Outcome == history.Success {
		label := color.New(color.FgGreen, color.Bold).Sprint("PASS")
		fmt.Fprintf(w, "%s  %d iteration(s), run %s\n", label, res.Iterations, res.RunID)
		return
	}

	label := color.New(color.FgRed, color.Bold).Sprint("FAIL")
	thread := "?"
	msg := ""
	if res.Failure != nil {
		thread = fmt.Sprintf("%d", res.Failure.Thread)
		msg = res.Failure.Message
	}
	det := "deterministic"
	if !res.Deterministic {
		det = "NOT reproduced on replay"
	}
	fmt.Fprintf(w, "%s  %s at thread %s after %d iteration(s) (%s): %s, run %s\n",
		label, res.Outcome, thread, res.Iterations, det, msg, res.RunID)
}
