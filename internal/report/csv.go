package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"fixity/internal/verify"
)

var csvHeader = []string{"number", "type", "live", "archive", "outcome", "detail"}

// CSVPath names a report file inside dir after the run's wall-clock start,
// one file per run.
func CSVPath(dir string, now time.Time) string {
	return filepath.Join(dir, "report-"+now.Format("20060102-1504")+".csv")
}

// WriteCSV exports every record of the run in pairing order, one row per
// resource.
func WriteCSV(path string, rep *verify.Report) error {
	f, err := os.Create(path) // #nosec G304 -- operator-chosen report path
	if err != nil {
		return fmt.Errorf("failed to create csv report: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write csv report: %w", err)
	}
	for i, rec := range rep.Records {
		if err := w.Write(csvRow(i+1, rec)); err != nil {
			return fmt.Errorf("failed to write csv report: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to write csv report: %w", err)
	}
	return nil
}

func csvRow(number int, rec verify.Record) []string {
	var class verify.Class
	var live, archive string
	if rec.Pair.Live != nil {
		class = verify.Classify(rec.Pair.Live)
		live = rec.Pair.Live.Location
	}
	if rec.Pair.Archive != nil {
		if rec.Pair.Live == nil {
			class = verify.Classify(rec.Pair.Archive)
		}
		archive = rec.Pair.Archive.Location
	}

	detail := rec.Outcome.Reason
	if rec.Outcome.Detail != "" {
		if detail != "" {
			detail += "; "
		}
		detail += rec.Outcome.Detail
	}
	return []string{
		strconv.Itoa(number),
		class.String(),
		live,
		archive,
		rec.Outcome.Kind.String(),
		detail,
	}
}
