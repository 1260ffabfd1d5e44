package report

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fixity/internal/resource"
	"fixity/internal/verify"
)

func liveRef(id, location, contentType string) *resource.Ref {
	return &resource.Ref{ID: id, Origin: resource.OriginLive, ContentType: contentType, Location: location}
}

func archiveRef(id, location, contentType string) *resource.Ref {
	return &resource.Ref{ID: id, Origin: resource.OriginArchive, ContentType: contentType, Location: location}
}

// sampleReport finalizes a run with one match, one mismatch, and one
// missing-archive resource.
func sampleReport() *verify.Report {
	run := verify.NewRun(3)
	run.Record(0, verify.Pair{
		ID:      "/rest/obj1",
		Live:    liveRef("/rest/obj1", "http://repo:8080/rest/obj1", "application/octet-stream"),
		Archive: archiveRef("/rest/obj1", "/export/rest/obj1.binary", "application/octet-stream"),
	}, verify.Outcome{Kind: verify.Match, Detail: "sha1 abc123"})
	run.Record(1, verify.Pair{
		ID:      "/rest/obj2",
		Live:    liveRef("/rest/obj2", "http://repo:8080/rest/obj2", "text/turtle"),
		Archive: archiveRef("/rest/obj2", "/export/rest/obj2.ttl", "text/turtle"),
	}, verify.Outcome{Kind: verify.Mismatch, Reason: "triple sets differ: 1 only in live, 0 only in archive"})
	run.Record(2, verify.Pair{
		ID:   "/rest/obj3",
		Live: liveRef("/rest/obj3", "http://repo:8080/rest/obj3", "application/octet-stream"),
	}, verify.Outcome{Kind: verify.Missing, Reason: "not in archive"})
	return run.Finalize()
}

func TestConsole_RecordPrintsFindingsOnly(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf)
	rep := sampleReport()

	for _, rec := range rep.Records {
		c.Record(rec)
	}

	out := buf.String()
	assert.NotContains(t, out, "/rest/obj1", "matches stay quiet")
	assert.Contains(t, out, "MISMATCH")
	assert.Contains(t, out, "/rest/obj2")
	assert.Contains(t, out, "triple sets differ")
	assert.Contains(t, out, "MISSING")
	assert.Contains(t, out, "/rest/obj3")
}

func TestConsole_VerboseIncludesMatches(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf)
	c.Verbose = true

	for _, rec := range sampleReport().Records {
		c.Record(rec)
	}

	out := buf.String()
	assert.Contains(t, out, "MATCH")
	assert.Contains(t, out, "/rest/obj1")
	assert.Contains(t, out, "sha1 abc123")
}

func TestConsole_Summary(t *testing.T) {
	var buf bytes.Buffer
	NewConsole(&buf).Summary(sampleReport())

	out := buf.String()
	assert.Contains(t, out, "Verified 3 resources: successes = 1, failures = 2\n")
	assert.Contains(t, out, "matched 1, mismatched 1, errored 0, missing 1")
}

func TestCSVPath(t *testing.T) {
	at := time.Date(2026, 8, 26, 14, 30, 0, 0, time.UTC)
	assert.Equal(t, filepath.Join("out", "report-20260826-1430.csv"), CSVPath("out", at))
}

func TestWriteCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.csv")
	require.NoError(t, WriteCSV(path, sampleReport()))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4, "header plus one row per record")

	assert.Equal(t, csvHeader, rows[0])
	assert.Equal(t, []string{
		"1", "binary",
		"http://repo:8080/rest/obj1", "/export/rest/obj1.binary",
		"match", "sha1 abc123",
	}, rows[1])
	assert.Equal(t, "graph", rows[2][1])
	assert.Equal(t, "mismatch", rows[2][4])
	assert.Equal(t, []string{
		"3", "binary",
		"http://repo:8080/rest/obj3", "",
		"missing", "not in archive",
	}, rows[3])
}

func TestHistory_RecordAndQuery(t *testing.T) {
	h, err := OpenHistory(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	defer h.Close()

	rep := sampleReport()
	require.NoError(t, h.RecordRun(rep, "http://repo:8080/rest", "/export"))

	runs, err := h.RecentRuns(10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, rep.ID.String(), runs[0].ID)
	assert.Equal(t, "http://repo:8080/rest", runs[0].Repository)
	assert.Equal(t, "/export", runs[0].Archive)
	assert.Equal(t, rep.Counts, runs[0].Counts)
	assert.True(t, runs[0].Started.Equal(rep.Started))

	findings, err := h.Findings(rep.ID.String())
	require.NoError(t, err)
	require.Len(t, findings, 2, "matches are not stored as findings")
	assert.Equal(t, 2, findings[0].Position)
	assert.Equal(t, "/rest/obj2", findings[0].Identifier)
	assert.Equal(t, "mismatch", findings[0].Outcome)
	assert.Equal(t, 3, findings[1].Position)
	assert.Equal(t, "missing", findings[1].Outcome)
}

func TestHistory_RecentRunsNewestFirst(t *testing.T) {
	h, err := OpenHistory(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	defer h.Close()

	older := sampleReport()
	older.Started = older.Started.Add(-2 * time.Hour)
	newer := sampleReport()

	require.NoError(t, h.RecordRun(older, "http://repo:8080/rest", "/export"))
	require.NoError(t, h.RecordRun(newer, "http://repo:8080/rest", "/export"))

	runs, err := h.RecentRuns(10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, newer.ID.String(), runs[0].ID)
	assert.Equal(t, older.ID.String(), runs[1].ID)

	limited, err := h.RecentRuns(1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, newer.ID.String(), limited[0].ID)
}

func TestHistory_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")

	h, err := OpenHistory(path)
	require.NoError(t, err)
	require.NoError(t, h.RecordRun(sampleReport(), "http://repo:8080/rest", "/export"))
	require.NoError(t, h.Close())

	h, err = OpenHistory(path)
	require.NoError(t, err)
	defer h.Close()

	runs, err := h.RecentRuns(10)
	require.NoError(t, err)
	assert.Len(t, runs, 1, "history survives process restarts")
}
