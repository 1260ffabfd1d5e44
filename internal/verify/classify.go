package verify

import (
	"fixity/internal/rdf"
	"fixity/internal/resource"
)

// Class says which comparator handles a resource's content.
type Class int

const (
	ClassBinary Class = iota
	ClassGraph
)

func (c Class) String() string {
	if c == ClassGraph {
		return "graph"
	}
	return "binary"
}

// Classify routes by declared content type: RDF media types compare as
// graphs, everything else as opaque bytes.
func Classify(ref *resource.Ref) Class {
	if rdf.IsRDFType(ref.ContentType) {
		return ClassGraph
	}
	return ClassBinary
}
