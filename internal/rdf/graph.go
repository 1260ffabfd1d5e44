// Package rdf models RDF graphs as triple sets and decides semantic
// equivalence between two serializations of the same resource: ground
// triples must match exactly, blank nodes match up to isomorphism, and
// triple order never matters.
package rdf

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Datatype IRIs that plain and language-tagged literals normalize to.
const (
	xsdString     = "http://www.w3.org/2001/XMLSchema#string"
	rdfLangString = "http://www.w3.org/1999/02/22-rdf-syntax-ns#langString"
)

// TermKind discriminates the three RDF term kinds.
type TermKind int

const (
	TermIRI TermKind = iota
	TermBlank
	TermLiteral
)

// Term is one node of a triple in canonical form: literal lexical values are
// NFC-normalized and language tags lowercased, so two serializer versions
// that disagree only on Unicode composition still compare equal.
type Term struct {
	Kind     TermKind
	Value    string // IRI, blank label, or literal lexical form
	Datatype string // literals only; xsd:string when plain
	Lang     string // literals only, lowercased
}

// IRI builds an IRI term.
func IRI(v string) Term { return Term{Kind: TermIRI, Value: v} }

// Blank builds a blank-node term with the given label.
func Blank(label string) Term { return Term{Kind: TermBlank, Value: label} }

// Literal builds a literal term in canonical form.
func Literal(lexical, datatype, lang string) Term {
	lang = strings.ToLower(lang)
	if lang != "" {
		datatype = rdfLangString
	} else if datatype == "" {
		datatype = xsdString
	}
	return Term{
		Kind:     TermLiteral,
		Value:    norm.NFC.String(lexical),
		Datatype: datatype,
		Lang:     lang,
	}
}

// IsBlank reports whether the term is a blank node.
func (t Term) IsBlank() bool { return t.Kind == TermBlank }

// key renders the term to a string that collides only with equal terms.
func (t Term) key() string {
	switch t.Kind {
	case TermIRI:
		return "<" + t.Value + ">"
	case TermBlank:
		return "_:" + t.Value
	default:
		return fmt.Sprintf("%q@%s^^<%s>", t.Value, t.Lang, t.Datatype)
	}
}

// Triple is one RDF statement.
type Triple struct {
	Subj Term
	Pred Term
	Obj  Term
}

func (t Triple) key() string {
	return t.Subj.key() + " " + t.Pred.key() + " " + t.Obj.key()
}

// hasBlank reports whether any position of the triple is a blank node.
// Predicates cannot be blank in RDF, but checking all three keeps the
// partition honest against malformed input.
func (t Triple) hasBlank() bool {
	return t.Subj.IsBlank() || t.Pred.IsBlank() || t.Obj.IsBlank()
}

// Graph is an unordered multiset of triples.
type Graph struct {
	Triples []Triple
}

// Add appends a triple.
func (g *Graph) Add(t Triple) { g.Triples = append(g.Triples, t) }

// Len returns the triple count.
func (g *Graph) Len() int { return len(g.Triples) }

// WithoutPredicates returns a copy of the graph with all triples whose
// predicate IRI appears in ignored removed. Server-managed predicates
// (modification timestamps and the like) are stripped this way before
// comparison.
func (g *Graph) WithoutPredicates(ignored map[string]struct{}) *Graph {
	if len(ignored) == 0 {
		return g
	}
	out := &Graph{Triples: make([]Triple, 0, len(g.Triples))}
	for _, t := range g.Triples {
		if _, skip := ignored[t.Pred.Value]; skip {
			continue
		}
		out.Triples = append(out.Triples, t)
	}
	return out
}

// Objects returns the object terms of all triples with the given subject
// and predicate IRIs, in graph order.
func (g *Graph) Objects(subj, pred string) []Term {
	var out []Term
	for _, t := range g.Triples {
		if t.Subj.Kind == TermIRI && t.Subj.Value == subj &&
			t.Pred.Kind == TermIRI && t.Pred.Value == pred {
			out = append(out, t.Obj)
		}
	}
	return out
}

// partition splits the graph into its ground triples, as a multiset of
// canonical keys, and its blank-node triples.
func (g *Graph) partition() (map[string]int, []Triple) {
	ground := make(map[string]int)
	var blank []Triple
	for _, t := range g.Triples {
		if t.hasBlank() {
			blank = append(blank, t)
		} else {
			ground[t.key()]++
		}
	}
	return ground, blank
}
