package rdf

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	knakk "github.com/knakk/rdf"
	"github.com/piprate/json-gold/ld"
)

// ErrUnsupported is returned for media types Decode has no parser for.
var ErrUnsupported = errors.New("unsupported RDF serialization")

// IsRDFType reports whether the media type names an RDF serialization the
// decoder understands. text/plain is the legacy N-Triples media type.
func IsRDFType(mediaType string) bool {
	switch mediaType {
	case "text/turtle", "text/n3", "text/plain",
		"application/n-triples", "application/rdf+xml", "application/ld+json":
		return true
	}
	return false
}

// Decode parses one RDF serialization into a Graph. The media type selects
// the parser; terms are canonicalized as they are read (see Term).
func Decode(r io.Reader, mediaType string) (*Graph, error) {
	switch mediaType {
	case "text/turtle":
		return decodeTriples(r, knakk.Turtle, mediaType)
	case "text/n3":
		// No dedicated N3 parser; the Turtle grammar covers the subset
		// the repository actually emits under this type.
		return decodeTriples(r, knakk.Turtle, mediaType)
	case "application/n-triples", "text/plain":
		return decodeTriples(r, knakk.NTriples, mediaType)
	case "application/rdf+xml":
		return decodeTriples(r, knakk.RDFXML, mediaType)
	case "application/ld+json":
		return decodeJSONLD(r)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupported, mediaType)
	}
}

func decodeTriples(r io.Reader, format knakk.Format, mediaType string) (*Graph, error) {
	dec := knakk.NewTripleDecoder(r, format)
	triples, err := dec.DecodeAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", mediaType, err)
	}

	g := &Graph{Triples: make([]Triple, 0, len(triples))}
	for _, t := range triples {
		g.Add(Triple{
			Subj: convertTerm(t.Subj),
			Pred: convertTerm(t.Pred),
			Obj:  convertTerm(t.Obj),
		})
	}
	return g, nil
}

// decodeJSONLD expands a JSON-LD document to N-Quads and parses those. The
// repository serializes without named graphs, so the default-graph quads are
// plain N-Triples.
func decodeJSONLD(r io.Reader) (*Graph, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read JSON-LD: %w", err)
	}

	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse application/ld+json: %w", err)
	}

	proc := ld.NewJsonLdProcessor()
	opts := ld.NewJsonLdOptions("")
	opts.Format = "application/n-quads"
	out, err := proc.ToRDF(doc, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to parse application/ld+json: %w", err)
	}
	nquads, ok := out.(string)
	if !ok {
		return nil, fmt.Errorf("failed to parse application/ld+json: unexpected %T from expansion", out)
	}

	return decodeTriples(strings.NewReader(nquads), knakk.NTriples, "application/ld+json")
}

func convertTerm(t knakk.Term) Term {
	switch x := t.(type) {
	case knakk.IRI:
		return IRI(x.String())
	case knakk.Blank:
		return Blank(x.String())
	case knakk.Literal:
		return Literal(x.String(), x.DataType.String(), x.Lang())
	default:
		// The decoder produces only the three kinds above.
		return Term{Kind: TermLiteral, Value: t.String(), Datatype: xsdString}
	}
}
