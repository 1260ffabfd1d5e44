package verify

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Record ties one pair to its verdict.
type Record struct {
	Pair    Pair
	Outcome Outcome
}

// Counts summarizes a run by outcome kind.
type Counts struct {
	Matched    int
	Mismatched int
	Errored    int
	Missing    int
}

// Total is the number of outcomes recorded.
func (c Counts) Total() int {
	return c.Matched + c.Mismatched + c.Errored + c.Missing
}

// Findings is everything that is not a match.
func (c Counts) Findings() int {
	return c.Mismatched + c.Errored + c.Missing
}

func (c *Counts) add(k Kind) {
	switch k {
	case Match:
		c.Matched++
	case Mismatch:
		c.Mismatched++
	case Error:
		c.Errored++
	case Missing:
		c.Missing++
	}
}

// Run accumulates outcomes while a verification is in flight. Records are
// slot-addressed by pairing index so the finalized order matches pairing
// order no matter which worker finishes first. Safe for concurrent Record
// calls.
type Run struct {
	ID      uuid.UUID
	Started time.Time

	mu      sync.Mutex
	records []Record
	filled  []bool
	counts  Counts
	done    bool
}

// NewRun sizes the record table for the known pair count.
func NewRun(total int) *Run {
	return &Run{
		ID:      uuid.New(),
		Started: time.Now(),
		records: make([]Record, total),
		filled:  make([]bool, total),
	}
}

// Record stores the outcome for the pair at slot i. Filling a slot twice or
// recording after Finalize panics: either would corrupt the
// one-outcome-per-identifier invariant, and both are bugs in the caller, not
// runtime conditions.
func (r *Run) Record(i int, pair Pair, outcome Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.done {
		panic("verify: Record after Finalize")
	}
	if r.filled[i] {
		panic("verify: duplicate outcome for " + pair.ID)
	}
	r.filled[i] = true
	r.records[i] = Record{Pair: pair, Outcome: outcome}
	r.counts.add(outcome.Kind)
}

// Counts returns a snapshot of the running totals.
func (r *Run) Counts() Counts {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts
}

// Finalize seals the run and returns its immutable report. Slots never
// filled (the run was canceled mid-flight) are dropped; everything already
// recorded stays valid.
func (r *Run) Finalize() *Report {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.done = true

	records := make([]Record, 0, len(r.records))
	for i, rec := range r.records {
		if r.filled[i] {
			records = append(records, rec)
		}
	}
	return &Report{
		ID:       r.ID,
		Started:  r.Started,
		Finished: time.Now(),
		Records:  records,
		Counts:   r.counts,
	}
}

// Report is the finalized view of one verification run, safe to hand to
// concurrent reporters.
type Report struct {
	ID       uuid.UUID
	Started  time.Time
	Finished time.Time
	Records  []Record
	Counts   Counts
}

// Clean reports whether the run found nothing to complain about.
func (rep *Report) Clean() bool { return rep.Counts.Findings() == 0 }
