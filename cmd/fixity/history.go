package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"fixity/internal/report"
)

var (
	historyLimit int
	historyRun   string
)

// historyCmd inspects the SQLite run log written by verify --history.
var historyCmd = &cobra.Command{
	Use:   "history [history.db]",
	Short: "List past verification runs",
	Long: `Reads the run history recorded by verify --history (or the history_db
config key) and lists recent runs, newest first.

Examples:
  fixity history runs.db                # recent runs
  fixity history runs.db --limit 5
  fixity history runs.db --run <id>     # findings for one run`,
	Args: cobra.ExactArgs(1),
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum number of runs to list")
	historyCmd.Flags().StringVar(&historyRun, "run", "", "Show the findings recorded for one run ID")
}

func runHistory(cmd *cobra.Command, args []string) error {
	h, err := report.OpenHistory(args[0])
	if err != nil {
		return err
	}
	defer h.Close()

	if historyRun != "" {
		return printFindings(h, historyRun)
	}
	return printRuns(h)
}

func printRuns(h *report.History) error {
	runs, err := h.RecentRuns(historyLimit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No runs recorded.")
		return nil
	}
	for _, r := range runs {
		status := "clean"
		if f := r.Counts.Findings(); f > 0 {
			status = fmt.Sprintf("%d findings", f)
		}
		fmt.Printf("%s  %s  %-12s  %4d resources  %s -> %s\n",
			r.ID,
			r.Started.Format("2006-01-02 15:04"),
			status,
			r.Counts.Total(),
			r.Repository,
			r.Archive)
	}
	fmt.Printf("Total: %d runs\n", len(runs))
	return nil
}

func printFindings(h *report.History, runID string) error {
	findings, err := h.Findings(runID)
	if err != nil {
		return err
	}
	if len(findings) == 0 {
		fmt.Println("No findings recorded for this run.")
		return nil
	}
	for _, f := range findings {
		line := f.Reason
		if f.Detail != "" {
			line += " (" + f.Detail + ")"
		}
		fmt.Printf("%-8s  %s  %s\n", strings.ToUpper(f.Outcome), f.Identifier, line)
	}
	fmt.Printf("Total: %d findings\n", len(findings))
	return nil
}
