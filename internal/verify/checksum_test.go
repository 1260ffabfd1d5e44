package verify

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"

	"fixity/internal/resource"
)

func binPair(liveContent, archiveContent string) Pair {
	return Pair{
		ID:      "/obj1",
		Live:    binRef(resource.OriginLive, "/obj1", liveContent),
		Archive: binRef(resource.OriginArchive, "/obj1", archiveContent),
	}
}

func TestCompareBinary_Match(t *testing.T) {
	out := compareBinary(context.Background(), binPair("abc", "abc"))
	assert.Equal(t, Match, out.Kind)
	assert.Equal(t, "sha1 "+sha1Hex("abc"), out.Detail)
}

func TestCompareBinary_Mismatch(t *testing.T) {
	out := compareBinary(context.Background(), binPair("abc", "abd"))
	assert.Equal(t, Mismatch, out.Kind)
	assert.Equal(t, "checksum differs", out.Reason)
	assert.Contains(t, out.Detail, sha1Hex("abc"))
	assert.Contains(t, out.Detail, sha1Hex("abd"))
}

func TestCompareBinary_OpenFailure(t *testing.T) {
	pair := binPair("abc", "abc")
	pair.Archive.Opener = failOpener{err: errors.New("disk gone")}

	out := compareBinary(context.Background(), pair)
	assert.Equal(t, Error, out.Kind, "an unreadable stream is an error, not a mismatch")
	assert.Contains(t, out.Reason, "disk gone")
}

func TestCompareBinary_ReadFailureMidStream(t *testing.T) {
	pair := binPair("abc", "abc")
	pair.Live.Opener = resource.OpenerFunc(func(context.Context) (io.ReadCloser, error) {
		return io.NopCloser(iotest.ErrReader(errors.New("connection reset"))), nil
	})

	out := compareBinary(context.Background(), pair)
	assert.Equal(t, Error, out.Kind)
	assert.Contains(t, out.Reason, "connection reset")
}

func TestCompareBinary_RecordedDigestSkipsStreaming(t *testing.T) {
	pair := binPair("abc", "abc")
	pair.Live.Opener = withDigest{
		Opener: failOpener{err: errors.New("content must not be streamed")},
		sum:    strings.ToUpper(sha1Hex("abc")),
		found:  true,
	}

	out := compareBinary(context.Background(), pair)
	assert.Equal(t, Match, out.Kind, "recorded digest should be trusted without streaming")
}

func TestCompareBinary_DigestFallback(t *testing.T) {
	t.Run("no digest recorded", func(t *testing.T) {
		pair := binPair("abc", "abc")
		pair.Live.Opener = withDigest{Opener: stringOpener("abc"), found: false}

		out := compareBinary(context.Background(), pair)
		assert.Equal(t, Match, out.Kind)
	})

	t.Run("digest lookup fails", func(t *testing.T) {
		pair := binPair("abc", "abc")
		pair.Live.Opener = withDigest{
			Opener: stringOpener("abc"),
			err:    errors.New("metadata fetch: 500"),
		}

		out := compareBinary(context.Background(), pair)
		assert.Equal(t, Match, out.Kind, "an unreadable recorded digest falls back to streaming")
	})
}
