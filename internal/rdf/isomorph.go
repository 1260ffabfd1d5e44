package rdf

import (
	"errors"
	"sort"
	"strings"
)

// ErrTooLarge aborts a comparison whose blank-node search space exceeds the
// configured bounds. Callers must report it as an error, never as a match or
// mismatch: an abandoned search proves nothing about the graphs.
var ErrTooLarge = errors.New("graph too large for isomorphism check")

// Limits bounds the blank-node matching search.
type Limits struct {
	// MaxBlankNodes caps the number of distinct blank nodes per graph.
	MaxBlankNodes int

	// MaxSteps caps the total candidate assignments tried while
	// backtracking.
	MaxSteps int
}

// DefaultLimits are generous for real repository graphs, which carry tens of
// blank nodes at most.
var DefaultLimits = Limits{MaxBlankNodes: 256, MaxSteps: 1_000_000}

// Diff counts the triples that failed to line up on each side.
type Diff struct {
	LeftOnly  int
	RightOnly int
}

func (d Diff) Empty() bool { return d.LeftOnly == 0 && d.RightOnly == 0 }

// Equal reports whether two graphs are semantically equivalent: ground
// triples equal as multisets, blank-node triples equal under some consistent
// relabeling of blank nodes. Ground triples are compared first since they
// catch most real mismatches without any search. A non-nil error is always
// ErrTooLarge.
func Equal(left, right *Graph, lim Limits) (bool, Diff, error) {
	if lim.MaxBlankNodes <= 0 {
		lim.MaxBlankNodes = DefaultLimits.MaxBlankNodes
	}
	if lim.MaxSteps <= 0 {
		lim.MaxSteps = DefaultLimits.MaxSteps
	}

	groundL, blankL := left.partition()
	groundR, blankR := right.partition()

	diff := diffCounts(groundL, groundR)
	if !diff.Empty() {
		return false, diff, nil
	}

	if len(blankL) == 0 && len(blankR) == 0 {
		return true, Diff{}, nil
	}
	if len(blankL) != len(blankR) {
		return false, Diff{LeftOnly: len(blankL), RightOnly: len(blankR)}, nil
	}

	nodesL := blankLabels(blankL)
	nodesR := blankLabels(blankR)
	if len(nodesL) != len(nodesR) {
		return false, Diff{LeftOnly: len(blankL), RightOnly: len(blankR)}, nil
	}
	if len(nodesL) > lim.MaxBlankNodes {
		return false, Diff{}, ErrTooLarge
	}

	m, ok := newMatcher(blankL, blankR, lim.MaxSteps)
	if !ok {
		// A node on one side has no structurally compatible counterpart.
		return false, Diff{LeftOnly: len(blankL), RightOnly: len(blankR)}, nil
	}
	found, err := m.match()
	if err != nil {
		return false, Diff{}, err
	}
	if !found {
		return false, Diff{LeftOnly: len(blankL), RightOnly: len(blankR)}, nil
	}
	return true, Diff{}, nil
}

// diffCounts compares two multisets of canonical triple keys.
func diffCounts(a, b map[string]int) Diff {
	var d Diff
	for k, n := range a {
		if n > b[k] {
			d.LeftOnly += n - b[k]
		}
	}
	for k, n := range b {
		if n > a[k] {
			d.RightOnly += n - a[k]
		}
	}
	return d
}

// blankLabels collects the distinct blank-node labels appearing in triples.
func blankLabels(triples []Triple) []string {
	seen := make(map[string]struct{})
	var labels []string
	add := func(t Term) {
		if !t.IsBlank() {
			return
		}
		if _, ok := seen[t.Value]; !ok {
			seen[t.Value] = struct{}{}
			labels = append(labels, t.Value)
		}
	}
	for _, t := range triples {
		add(t.Subj)
		add(t.Pred)
		add(t.Obj)
	}
	return labels
}

// signature describes the local structure around one blank node: the
// multiset of triples it occurs in, with itself marked and other blank
// nodes anonymized. Only nodes with identical signatures can correspond.
func signatures(triples []Triple) map[string]string {
	parts := make(map[string][]string)
	render := func(t Term, self string) string {
		if !t.IsBlank() {
			return t.key()
		}
		if t.Value == self {
			return "~self"
		}
		return "~blank"
	}
	for _, tr := range triples {
		for _, label := range tripleBlanks(tr) {
			s := render(tr.Subj, label) + " " + render(tr.Pred, label) + " " + render(tr.Obj, label)
			parts[label] = append(parts[label], s)
		}
	}
	sigs := make(map[string]string, len(parts))
	for label, ps := range parts {
		sort.Strings(ps)
		sigs[label] = strings.Join(ps, "\n")
	}
	return sigs
}

// tripleBlanks returns the distinct blank labels in one triple.
func tripleBlanks(t Triple) []string {
	var out []string
	add := func(term Term) {
		if !term.IsBlank() {
			return
		}
		for _, l := range out {
			if l == term.Value {
				return
			}
		}
		out = append(out, term.Value)
	}
	add(t.Subj)
	add(t.Pred)
	add(t.Obj)
	return out
}

// matcher runs the backtracking search for a blank-node bijection under
// which the two blank triple multisets coincide. Assignments are explicit
// (a mapping array indexed by assignment depth), so the step budget can cut
// the search off cleanly at any point.
type matcher struct {
	order      []string            // left labels in assignment order
	candidates map[string][]string // left label -> compatible right labels
	triples    []Triple            // left blank triples
	trigger    [][]int             // trigger[d]: triples fully mapped at depth d
	remaining  map[string]int      // right blank triples, canonical keys
	assign     map[string]string
	used       map[string]bool
	steps      int
	maxSteps   int
}

// newMatcher precomputes candidate sets and trigger points. ok is false when
// some node has no candidate at all, which already proves non-equivalence.
func newMatcher(blankL, blankR []Triple, maxSteps int) (*matcher, bool) {
	sigL := signatures(blankL)
	sigR := signatures(blankR)

	bySigR := make(map[string][]string)
	for label, sig := range sigR {
		bySigR[sig] = append(bySigR[sig], label)
	}
	for _, labels := range bySigR {
		sort.Strings(labels) // deterministic search order
	}

	candidates := make(map[string][]string, len(sigL))
	order := make([]string, 0, len(sigL))
	for label, sig := range sigL {
		cands := bySigR[sig]
		if len(cands) == 0 {
			return nil, false
		}
		candidates[label] = cands
		order = append(order, label)
	}

	// Assign the most constrained nodes first; ties broken by label so
	// repeated runs explore identically.
	sort.Slice(order, func(i, j int) bool {
		ci, cj := len(candidates[order[i]]), len(candidates[order[j]])
		if ci != cj {
			return ci < cj
		}
		return order[i] < order[j]
	})

	depth := make(map[string]int, len(order))
	for i, label := range order {
		depth[label] = i
	}

	// A triple can be checked once its last-assigned blank node gets its
	// mapping; record that depth for each triple.
	trigger := make([][]int, len(order))
	for i, t := range blankL {
		d := 0
		for _, label := range tripleBlanks(t) {
			if depth[label] > d {
				d = depth[label]
			}
		}
		trigger[d] = append(trigger[d], i)
	}

	remaining := make(map[string]int, len(blankR))
	for _, t := range blankR {
		remaining[t.key()]++
	}

	return &matcher{
		order:      order,
		candidates: candidates,
		triples:    blankL,
		trigger:    trigger,
		remaining:  remaining,
		assign:     make(map[string]string, len(order)),
		used:       make(map[string]bool, len(order)),
		maxSteps:   maxSteps,
	}, true
}

func (m *matcher) match() (bool, error) {
	return m.matchFrom(0)
}

func (m *matcher) matchFrom(d int) (bool, error) {
	if d == len(m.order) {
		return true, nil
	}
	label := m.order[d]
	for _, cand := range m.candidates[label] {
		if m.used[cand] {
			continue
		}
		m.steps++
		if m.steps > m.maxSteps {
			return false, ErrTooLarge
		}

		m.assign[label] = cand
		m.used[cand] = true

		taken, ok := m.consume(d)
		if ok {
			found, err := m.matchFrom(d + 1)
			if err != nil {
				return false, err
			}
			if found {
				return true, nil
			}
		}
		m.restore(taken)

		delete(m.assign, label)
		m.used[cand] = false
	}
	return false, nil
}

// consume checks every triple completed by the depth-d assignment against
// the right-side multiset, claiming matches as it goes. On failure it
// returns what it claimed so far for the caller to restore.
func (m *matcher) consume(d int) ([]string, bool) {
	var taken []string
	for _, idx := range m.trigger[d] {
		key := m.mappedKey(m.triples[idx])
		if m.remaining[key] == 0 {
			return taken, false
		}
		m.remaining[key]--
		taken = append(taken, key)
	}
	return taken, true
}

func (m *matcher) restore(taken []string) {
	for _, key := range taken {
		m.remaining[key]++
	}
}

// mappedKey renders a left triple with its blank nodes replaced by their
// assigned right-side labels.
func (m *matcher) mappedKey(t Triple) string {
	return m.mappedTerm(t.Subj) + " " + m.mappedTerm(t.Pred) + " " + m.mappedTerm(t.Obj)
}

func (m *matcher) mappedTerm(t Term) string {
	if t.IsBlank() {
		return Term{Kind: TermBlank, Value: m.assign[t.Value]}.key()
	}
	return t.key()
}
