package verify

import (
	"context"
	"crypto/sha1" // #nosec G505 -- content fixity comparison only
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"fixity/internal/resource"
)

// compareBinary digests both sides and compares. SHA-1 is kept for
// continuity with the digests repositories record alongside binaries; any
// collision-resistant digest would serve. An I/O failure on either side is
// an Error, never a Mismatch: a stream that could not be read proves nothing
// about the content.
func compareBinary(ctx context.Context, pair Pair) Outcome {
	liveSum, err := digest(ctx, pair.Live)
	if err != nil {
		return Outcome{Kind: Error, Reason: err.Error()}
	}
	archiveSum, err := digest(ctx, pair.Archive)
	if err != nil {
		return Outcome{Kind: Error, Reason: err.Error()}
	}

	if liveSum == archiveSum {
		return Outcome{Kind: Match, Detail: "sha1 " + liveSum}
	}
	return Outcome{
		Kind:   Mismatch,
		Reason: "checksum differs",
		Detail: fmt.Sprintf("live sha1 %s, archive sha1 %s", liveSum, archiveSum),
	}
}

// digest prefers a digest the origin already recorded, then falls back to
// streaming the content through the hash without buffering it whole.
func digest(ctx context.Context, ref *resource.Ref) (string, error) {
	if d, ok := ref.Opener.(resource.Digester); ok {
		if sum, found, err := d.Digest(ctx); err == nil && found {
			return strings.ToLower(sum), nil
		}
		// A missing or unreadable recorded digest is not fatal; streaming
		// settles it.
	}

	rc, err := ref.Opener.Open(ctx)
	if err != nil {
		return "", err
	}
	defer rc.Close()

	h := sha1.New() // #nosec G401 -- content fixity comparison only
	if _, err := io.Copy(h, ctxReader{ctx: ctx, r: rc}); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// ctxReader makes a blocking read loop cooperatively cancellable: the
// context is checked between chunks, so a timed-out pair stops consuming
// its stream.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
