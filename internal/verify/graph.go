package verify

import (
	"context"
	"errors"
	"fmt"

	"fixity/internal/rdf"
	"fixity/internal/resource"
)

// compareGraphs parses both serializations, strips ignored predicates, and
// decides semantic equivalence. Parse and transport failures are Errors; an
// isomorphism search that exceeds its bounds is an Error too, never an
// implicit match or mismatch.
func compareGraphs(ctx context.Context, pair Pair, ignored map[string]struct{}, limits rdf.Limits) Outcome {
	left, err := loadGraph(ctx, pair.Live)
	if err != nil {
		return Outcome{Kind: Error, Reason: err.Error()}
	}
	right, err := loadGraph(ctx, pair.Archive)
	if err != nil {
		return Outcome{Kind: Error, Reason: err.Error()}
	}

	left = left.WithoutPredicates(ignored)
	right = right.WithoutPredicates(ignored)

	equal, diff, err := rdf.Equal(left, right, limits)
	if err != nil {
		if errors.Is(err, rdf.ErrTooLarge) {
			return Outcome{
				Kind:   Error,
				Reason: "graph too large for isomorphism check",
				Detail: fmt.Sprintf("limits: %d blank nodes, %d search steps", limits.MaxBlankNodes, limits.MaxSteps),
			}
		}
		return Outcome{Kind: Error, Reason: err.Error()}
	}
	if equal {
		return Outcome{Kind: Match, Detail: fmt.Sprintf("%d triples", left.Len())}
	}
	return Outcome{
		Kind:   Mismatch,
		Reason: fmt.Sprintf("triple sets differ: %d only in live, %d only in archive", diff.LeftOnly, diff.RightOnly),
	}
}

func loadGraph(ctx context.Context, ref *resource.Ref) (*rdf.Graph, error) {
	rc, err := ref.Opener.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return rdf.Decode(ctxReader{ctx: ctx, r: rc}, ref.ContentType)
}
