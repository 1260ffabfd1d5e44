// Package resource defines the references exchanged between the tree
// enumerators and the verification engine. A Ref describes one addressable
// resource on one side of the migration; content is never held in a Ref,
// only a handle for fetching it.
package resource

import (
	"context"
	"io"
)

// Origin tags which side of the migration a Ref was enumerated from.
type Origin string

const (
	OriginLive    Origin = "live"
	OriginArchive Origin = "archive"
)

// Ref identifies a single resource. Immutable once created by a walker.
type Ref struct {
	// ID is the logical identifier shared between both sides: the
	// URL-decoded repository path (e.g. "/rest/col1/obj2"). Pairing joins
	// on this value, so both walkers must produce the same namespace.
	ID string

	// Origin is the side this Ref was enumerated from.
	Origin Origin

	// ContentType is the declared media type (live side: Content-Type
	// header; archive side: mapped from the file extension). Parameters
	// such as charset are stripped.
	ContentType string

	// Location is where the content lives: an absolute URL for live
	// resources, a filesystem path for archived ones.
	Location string

	// External marks a binary whose content is hosted outside the
	// repository. Such content is never serialized, so it cannot be
	// verified.
	External bool

	// Opener fetches the resource content. Nil when Err is set or the
	// content is External.
	Opener Opener

	// Err records an enumeration-time failure (e.g. a HEAD request that
	// could not be completed). The resource still participates in pairing;
	// verification of it reports an error outcome instead of comparing.
	Err error
}

// Opener materializes resource content as a stream.
type Opener interface {
	Open(ctx context.Context) (io.ReadCloser, error)
}

// Digester is implemented by openers that can supply a recorded content
// digest without streaming the content, such as a repository that stores
// checksums alongside binaries. The second return is false when no recorded
// digest is available and the caller should stream instead.
type Digester interface {
	Digest(ctx context.Context) (string, bool, error)
}

// OpenerFunc adapts a plain function to the Opener interface.
type OpenerFunc func(ctx context.Context) (io.ReadCloser, error)

func (f OpenerFunc) Open(ctx context.Context) (io.ReadCloser, error) { return f(ctx) }
