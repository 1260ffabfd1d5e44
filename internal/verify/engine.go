// Package verify implements the verification pipeline: pair live and
// archived resources by identifier, classify each pair by content type,
// compare content by checksum or by graph equivalence, and aggregate the
// verdicts into a run report.
//
// No failure of a single pair aborts a run. Transport and parse problems,
// oversized isomorphism searches, and per-pair timeouts all become Error
// outcomes on their pair; the remaining pairs still run.
package verify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"fixity/internal/rdf"
)

// Options configures an Engine beyond its two enumerators.
type Options struct {
	// Workers above 1 compares independent pairs in parallel with a bounded
	// pool; 0 and 1 run the sequential baseline.
	Workers int

	// Timeout bounds each pair's comparison. A stalled fetch becomes an
	// Error outcome on its pair instead of blocking the run. Zero means no
	// bound.
	Timeout time.Duration

	// IgnoredPredicates are stripped from both graphs before comparison,
	// for server-managed values such as modification timestamps.
	IgnoredPredicates []string

	// Limits bounds the blank-node isomorphism search.
	Limits rdf.Limits

	// Start, when set, is told the pair count before comparisons begin.
	Start func(total int)

	// Observer, when set, sees every record as it lands. Calls are
	// serialized even in parallel mode.
	Observer func(Record)

	Logger *zap.Logger
}

// Engine drives one verification run over a pair of resource trees. Engines
// are single-use: construct, Verify, read the report.
type Engine struct {
	live     Enumerator
	archive  Enumerator
	workers  int
	timeout  time.Duration
	ignored  map[string]struct{}
	limits   rdf.Limits
	start    func(int)
	observer func(Record)
	obsMu    sync.Mutex
	log      *zap.Logger
}

// New builds an engine. The enumerators and any credential material they
// hold are shared read-only across workers; nothing in the pipeline mutates
// either resource tree.
func New(live, archive Enumerator, opts Options) *Engine {
	ignored := make(map[string]struct{}, len(opts.IgnoredPredicates))
	for _, p := range opts.IgnoredPredicates {
		ignored[p] = struct{}{}
	}

	limits := opts.Limits
	if limits.MaxBlankNodes <= 0 {
		limits.MaxBlankNodes = rdf.DefaultLimits.MaxBlankNodes
	}
	if limits.MaxSteps <= 0 {
		limits.MaxSteps = rdf.DefaultLimits.MaxSteps
	}

	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return &Engine{
		live:     live,
		archive:  archive,
		workers:  workers,
		timeout:  opts.Timeout,
		ignored:  ignored,
		limits:   limits,
		start:    opts.Start,
		observer: opts.Observer,
		log:      log,
	}
}

// Verify runs the full pipeline and returns the finalized report. An
// enumeration failure aborts before any comparison. A canceled context stops
// between pairs and returns the partial report alongside the context error;
// every outcome already recorded remains valid.
func (e *Engine) Verify(ctx context.Context) (*Report, error) {
	pairs, err := CollectPairs(ctx, e.live, e.archive, e.log)
	if err != nil {
		return nil, err
	}
	e.log.Info("resources paired",
		zap.Int("pairs", len(pairs)),
		zap.Int("workers", e.workers))
	if e.start != nil {
		e.start(len(pairs))
	}

	run := NewRun(len(pairs))
	if e.workers <= 1 {
		err = e.runSequential(ctx, run, pairs)
	} else {
		err = e.runParallel(ctx, run, pairs)
	}
	return run.Finalize(), err
}

func (e *Engine) runSequential(ctx context.Context, run *Run, pairs []Pair) error {
	for i, pair := range pairs {
		if err := ctx.Err(); err != nil {
			return err
		}
		e.record(run, i, pair, e.verifyPair(ctx, pair))
	}
	return nil
}

func (e *Engine) runParallel(ctx context.Context, run *Run, pairs []Pair) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, pair := range pairs {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			e.record(run, i, pair, e.verifyPair(ctx, pair))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// verifyPair decides one pair's outcome. Precedence: a missing side, then an
// enumeration failure, then external content, then a classification
// conflict; only a pair that clears all four is compared.
func (e *Engine) verifyPair(ctx context.Context, pair Pair) Outcome {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	switch {
	case pair.Live == nil:
		return Outcome{Kind: Missing, Reason: "not in live repository"}
	case pair.Archive == nil:
		return Outcome{Kind: Missing, Reason: "not in archive"}
	}
	if err := pair.Live.Err; err != nil {
		return Outcome{Kind: Error, Reason: err.Error()}
	}
	if err := pair.Archive.Err; err != nil {
		return Outcome{Kind: Error, Reason: err.Error()}
	}
	if pair.Live.External || pair.Archive.External {
		return Outcome{Kind: Error, Reason: "external binary content not archived"}
	}

	liveClass, archiveClass := Classify(pair.Live), Classify(pair.Archive)
	if liveClass != archiveClass {
		return Outcome{
			Kind:   Mismatch,
			Reason: "content-type classification differs",
			Detail: fmt.Sprintf("live %s (%s), archive %s (%s)",
				liveClass, pair.Live.ContentType, archiveClass, pair.Archive.ContentType),
		}
	}

	if liveClass == ClassBinary {
		return compareBinary(ctx, pair)
	}
	return compareGraphs(ctx, pair, e.ignored, e.limits)
}

func (e *Engine) record(run *Run, i int, pair Pair, out Outcome) {
	run.Record(i, pair, out)

	if out.Kind == Match {
		e.log.Debug("verified", zap.String("id", pair.ID))
	} else {
		e.log.Debug("finding",
			zap.String("id", pair.ID),
			zap.String("outcome", out.Kind.String()),
			zap.String("reason", out.Reason))
	}

	if e.observer == nil {
		return
	}
	e.obsMu.Lock()
	defer e.obsMu.Unlock()
	e.observer(Record{Pair: pair, Outcome: out})
}
