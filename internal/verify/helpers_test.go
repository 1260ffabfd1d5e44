package verify

import (
	"context"
	"crypto/sha1" // #nosec G505 -- test fixtures
	"encoding/hex"
	"io"
	"strings"

	"fixity/internal/resource"
)

// listEnum replays a fixed ref list the way the tree walkers do.
type listEnum struct {
	refs []*resource.Ref
	pos  int
}

func (l *listEnum) Next(ctx context.Context) (*resource.Ref, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if l.pos >= len(l.refs) {
		return nil, io.EOF
	}
	ref := l.refs[l.pos]
	l.pos++
	return ref, nil
}

func enumOf(refs ...*resource.Ref) *listEnum { return &listEnum{refs: refs} }

func stringOpener(s string) resource.Opener {
	return resource.OpenerFunc(func(context.Context) (io.ReadCloser, error) {
		return io.NopCloser(strings.NewReader(s)), nil
	})
}

func binRef(origin resource.Origin, id, content string) *resource.Ref {
	return &resource.Ref{
		ID:          id,
		Origin:      origin,
		ContentType: "application/octet-stream",
		Opener:      stringOpener(content),
	}
}

func rdfRef(origin resource.Origin, id, turtle string) *resource.Ref {
	return &resource.Ref{
		ID:          id,
		Origin:      origin,
		ContentType: "text/turtle",
		Opener:      stringOpener(turtle),
	}
}

// failOpener fails every Open with a fixed error.
type failOpener struct{ err error }

func (f failOpener) Open(context.Context) (io.ReadCloser, error) { return nil, f.err }

// withDigest wraps an opener with a recorded digest.
type withDigest struct {
	resource.Opener
	sum   string
	found bool
	err   error
}

func (w withDigest) Digest(context.Context) (string, bool, error) { return w.sum, w.found, w.err }

// slowOpener blocks until the context ends, standing in for a hung fetch.
type slowOpener struct{}

func (slowOpener) Open(ctx context.Context) (io.ReadCloser, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

// errEnum fails enumeration outright.
type errEnum struct{ err error }

func (e *errEnum) Next(context.Context) (*resource.Ref, error) { return nil, e.err }

func sha1Hex(s string) string {
	sum := sha1.Sum([]byte(s)) // #nosec G401 -- test fixtures
	return hex.EncodeToString(sum[:])
}
