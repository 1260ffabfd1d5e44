package verify

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"fixity/internal/resource"
)

// Enumerator yields one side's resources in a stable order and returns
// io.EOF when exhausted.
type Enumerator interface {
	Next(ctx context.Context) (*resource.Ref, error)
}

// Pair holds the two sides of one logical identifier. At least one side is
// always present; a pair with a nil side reports as Missing without any
// content comparison.
type Pair struct {
	ID      string
	Live    *resource.Ref
	Archive *resource.Ref
}

// CollectPairs drains both enumerators and joins them on identifier. Every
// identifier from either side appears in exactly one pair: live encounter
// order first, then archive-only identifiers in archive order, so repeated
// runs over the same trees see the same sequence. A duplicate identifier
// within one side keeps the first ref.
func CollectPairs(ctx context.Context, live, archive Enumerator, log *zap.Logger) ([]Pair, error) {
	if log == nil {
		log = zap.NewNop()
	}

	liveRefs, err := drain(ctx, live)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate live resources: %w", err)
	}
	archiveRefs, err := drain(ctx, archive)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate archived resources: %w", err)
	}

	index := make(map[string]int, len(liveRefs))
	pairs := make([]Pair, 0, len(liveRefs)+len(archiveRefs))
	for _, ref := range liveRefs {
		if _, dup := index[ref.ID]; dup {
			log.Warn("duplicate live identifier", zap.String("id", ref.ID))
			continue
		}
		index[ref.ID] = len(pairs)
		pairs = append(pairs, Pair{ID: ref.ID, Live: ref})
	}
	for _, ref := range archiveRefs {
		i, ok := index[ref.ID]
		if !ok {
			index[ref.ID] = len(pairs)
			pairs = append(pairs, Pair{ID: ref.ID, Archive: ref})
			continue
		}
		if pairs[i].Archive != nil {
			log.Warn("duplicate archive identifier", zap.String("id", ref.ID))
			continue
		}
		pairs[i].Archive = ref
	}
	return pairs, nil
}

func drain(ctx context.Context, e Enumerator) ([]*resource.Ref, error) {
	var refs []*resource.Ref
	for {
		ref, err := e.Next(ctx)
		if err == io.EOF {
			return refs, nil
		}
		if err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
}
