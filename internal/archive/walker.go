// Package archive enumerates an exported repository tree on disk. The export
// lays resources out under the archive root using the full repository path,
// one file per resource, with the serialization encoded in the extension and
// special characters percent-encoded per path segment (fcr:metadata is stored
// as fcr%3Ametadata.<ext>).
package archive

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"fixity/internal/resource"
)

// extTypes maps archive file extensions back to the media type the export
// serialized. Inverse of the exporter's media-type-to-extension table; where
// several media types share an extension (text/n3 and text/rdf+n3), the
// canonical one wins.
var extTypes = map[string]string{
	".json": "application/ld+json",
	".nt":   "application/n-triples",
	".xml":  "application/rdf+xml",
	".n3":   "text/n3",
	".txt":  "text/plain",
	".ttl":  "text/turtle",
}

const (
	extBinary   = ".binary"
	extExternal = ".external"

	binaryType = "application/octet-stream"
)

// Walker enumerates archived resources in deterministic lexical order. The
// tree is scanned once at construction; Next only converts entries. Not safe
// for concurrent use.
type Walker struct {
	root     string
	binaries bool
	entries  []entry
	pos      int
	log      *zap.Logger
}

type entry struct {
	path string
	err  error
}

// NewWalker scans the archive rooted at root. When includeBinaries is false,
// binary payloads, external stubs and fcr:metadata descriptions are skipped,
// mirroring what the live walker yields in that mode. A missing or unreadable
// root is an error; per-file problems surface later as Ref.Err.
func NewWalker(root string, includeBinaries bool, log *zap.Logger) (*Walker, error) {
	if log == nil {
		log = zap.NewNop()
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("archive directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("archive path %s is not a directory", root)
	}

	w := &Walker{root: root, binaries: includeBinaries, log: log}
	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			w.entries = append(w.entries, entry{path: path, err: err})
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if !d.Type().IsRegular() {
			w.log.Warn("skipping irregular file", zap.String("path", path))
			return nil
		}
		w.entries = append(w.entries, entry{path: path})
		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("failed to walk archive: %w", walkErr)
	}
	return w, nil
}

// Next returns the next archived resource, or io.EOF when the tree is
// exhausted. Files with an extension outside the export's table are logged
// and skipped; if the live side has the resource, the pairing reports it
// missing from the archive.
func (w *Walker) Next(ctx context.Context) (*resource.Ref, error) {
	for w.pos < len(w.entries) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		e := w.entries[w.pos]
		w.pos++

		ref := &resource.Ref{
			ID:       w.idFor(e.path),
			Origin:   resource.OriginArchive,
			Location: e.path,
		}
		if e.err != nil {
			ref.Err = e.err
			return ref, nil
		}

		switch ext := strings.ToLower(filepath.Ext(e.path)); {
		case ext == extExternal:
			if !w.binaries {
				continue
			}
			ref.External = true
			ref.ContentType = binaryType
		case ext == extBinary:
			if !w.binaries {
				continue
			}
			ref.ContentType = binaryType
			ref.Opener = &fileContent{path: e.path}
		default:
			mt, ok := extTypes[ext]
			if !ok {
				w.log.Warn("unknown archive extension", zap.String("path", e.path))
				continue
			}
			if !w.binaries && isMetadataID(ref.ID) {
				continue
			}
			ref.ContentType = mt
			ref.Opener = &fileContent{path: e.path}
		}
		return ref, nil
	}
	return nil, io.EOF
}

// idFor derives the logical identifier: the path relative to the archive
// root, extension stripped, percent-decoded, in the repository's path
// namespace.
func (w *Walker) idFor(path string) string {
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return path
	}
	rel = filepath.ToSlash(rel)
	rel = strings.TrimSuffix(rel, filepath.Ext(rel))
	decoded, err := url.PathUnescape(rel)
	if err != nil {
		w.log.Warn("undecodable archive path", zap.String("path", path), zap.Error(err))
		decoded = rel
	}
	return "/" + decoded
}

func isMetadataID(id string) bool {
	return strings.HasSuffix(id, "/fcr:metadata")
}

type fileContent struct {
	path string
}

func (f *fileContent) Open(_ context.Context) (io.ReadCloser, error) {
	return os.Open(f.path)
}
