// Package report renders finished verification runs: findings on the
// console as they land, a CSV export per run, and a sqlite history of run
// summaries for comparing repeated verification attempts.
package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"fixity/internal/verify"
)

// Console prints findings as they are recorded and a closing summary.
// Matches stay quiet unless Verbose is set; a clean run prints nothing but
// the summary. Not safe for concurrent use on its own; the engine
// serializes observer calls.
type Console struct {
	w io.Writer

	// Verbose prints matched resources too, not just findings.
	Verbose bool
}

func NewConsole(w io.Writer) *Console { return &Console{w: w} }

// Record prints one outcome.
func (c *Console) Record(rec verify.Record) {
	if rec.Outcome.Kind == verify.Match && !c.Verbose {
		return
	}
	line := rec.Outcome.Reason
	if rec.Outcome.Detail != "" {
		if line == "" {
			line = rec.Outcome.Detail
		} else {
			line += " (" + rec.Outcome.Detail + ")"
		}
	}
	fmt.Fprintf(c.w, "%-8s  %s  %s\n",
		strings.ToUpper(rec.Outcome.Kind.String()), rec.Pair.ID, line)
}

// Summary prints the run-level result lines.
func (c *Console) Summary(rep *verify.Report) {
	fmt.Fprintf(c.w, "Verified %d resources: successes = %d, failures = %d\n",
		rep.Counts.Total(), rep.Counts.Matched, rep.Counts.Findings())
	fmt.Fprintf(c.w, "  matched %d, mismatched %d, errored %d, missing %d in %s\n",
		rep.Counts.Matched, rep.Counts.Mismatched, rep.Counts.Errored, rep.Counts.Missing,
		rep.Finished.Sub(rep.Started).Round(time.Millisecond))
}
