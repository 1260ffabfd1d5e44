package report

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"fixity/internal/verify"
)

// History persists run summaries and findings in a local sqlite database so
// repeated verification attempts of one migration can be compared.
type History struct {
	db *sql.DB
	mu sync.RWMutex
}

// OpenHistory opens (creating if needed) the history database at path.
func OpenHistory(path string) (*History, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	h := &History{db: db}
	if err := h.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return h, nil
}

func (h *History) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		started INTEGER NOT NULL,
		finished INTEGER NOT NULL,
		repository TEXT NOT NULL,
		archive TEXT NOT NULL,
		total INTEGER NOT NULL,
		matched INTEGER NOT NULL,
		mismatched INTEGER NOT NULL,
		errored INTEGER NOT NULL,
		missing INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS findings (
		run_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		identifier TEXT NOT NULL,
		outcome TEXT NOT NULL,
		reason TEXT NOT NULL,
		detail TEXT NOT NULL,
		PRIMARY KEY (run_id, position),
		FOREIGN KEY (run_id) REFERENCES runs(id)
	);`
	if _, err := h.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize history schema: %w", err)
	}
	return nil
}

// RecordRun stores the run summary plus its findings. Matches are not
// stored row-by-row; they would swell the table without diagnostic value.
func (h *History) RecordRun(rep *verify.Report, repository, archive string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	tx, err := h.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO runs (id, started, finished, repository, archive,
			total, matched, mismatched, errored, missing)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rep.ID.String(),
		rep.Started.UnixNano(),
		rep.Finished.UnixNano(),
		repository,
		archive,
		rep.Counts.Total(),
		rep.Counts.Matched,
		rep.Counts.Mismatched,
		rep.Counts.Errored,
		rep.Counts.Missing,
	)
	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}

	for i, rec := range rep.Records {
		if rec.Outcome.Kind == verify.Match {
			continue
		}
		_, err = tx.Exec(`
			INSERT INTO findings (run_id, position, identifier, outcome, reason, detail)
			VALUES (?, ?, ?, ?, ?, ?)`,
			rep.ID.String(), i+1, rec.Pair.ID,
			rec.Outcome.Kind.String(), rec.Outcome.Reason, rec.Outcome.Detail,
		)
		if err != nil {
			return fmt.Errorf("failed to record finding for %s: %w", rec.Pair.ID, err)
		}
	}
	return tx.Commit()
}

// RunSummary is one row of the run history.
type RunSummary struct {
	ID         string
	Started    time.Time
	Finished   time.Time
	Repository string
	Archive    string
	Counts     verify.Counts
}

// RecentRuns returns up to limit runs, newest first.
func (h *History) RecentRuns(limit int) ([]RunSummary, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	rows, err := h.db.Query(`
		SELECT id, started, finished, repository, archive,
			matched, mismatched, errored, missing
		FROM runs ORDER BY started DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var r RunSummary
		var started, finished int64
		if err := rows.Scan(&r.ID, &started, &finished, &r.Repository, &r.Archive,
			&r.Counts.Matched, &r.Counts.Mismatched, &r.Counts.Errored, &r.Counts.Missing); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		r.Started = time.Unix(0, started)
		r.Finished = time.Unix(0, finished)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Finding is one stored non-match outcome.
type Finding struct {
	Position   int
	Identifier string
	Outcome    string
	Reason     string
	Detail     string
}

// Findings returns the stored findings of one run in pairing order.
func (h *History) Findings(runID string) ([]Finding, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	rows, err := h.db.Query(`
		SELECT position, identifier, outcome, reason, detail
		FROM findings WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query findings: %w", err)
	}
	defer rows.Close()

	var findings []Finding
	for rows.Next() {
		var f Finding
		if err := rows.Scan(&f.Position, &f.Identifier, &f.Outcome, &f.Reason, &f.Detail); err != nil {
			return nil, fmt.Errorf("failed to scan finding row: %w", err)
		}
		findings = append(findings, f)
	}
	return findings, rows.Err()
}

func (h *History) Close() error { return h.db.Close() }
