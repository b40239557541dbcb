package termdict

import "sort"

// FST is the field's block index: a byte-keyed transducer from a block's
// prefix bytes to the file offset of that block's header (spec.md §3
// "Index FST"). Arcs at each node are kept sorted by label so seek/seek_ge
// and automaton intersection can binary-search or prune a node's children
// without scanning them all.
//
// This builds an unminimized trie rather than a suffix-shared minimal
// FST: each distinct prefix gets its own node. That costs memory a real
// FST would save by merging common suffixes, but every operation the
// term dictionary needs (exact seek, range descent, matcher-driven
// enumeration) only ever walks root-to-leaf, so the distinction is
// invisible to callers — it is kept under the FST name because that is
// the role it plays, not because it reproduces a minimized automaton.
type FST struct {
	root *fstNode
}

type fstNode struct {
	arcs  []fstArc
	final bool
	out   int64
}

type fstArc struct {
	label byte
	out   int64
	node  *fstNode
}

func (n *fstNode) find(label byte) (int, bool) {
	i := sort.Search(len(n.arcs), func(i int) bool { return n.arcs[i].label >= label })
	if i < len(n.arcs) && n.arcs[i].label == label {
		return i, true
	}
	return i, false
}

// Builder accumulates (prefix, output) pairs in any order; each Add
// inserts its arc at the correct sorted position directly, so callers
// can add block offsets in whatever order they're produced (writeLevel
// in writer.go adds them depth-first, not in prefix order).
type Builder struct {
	root *fstNode
}

// NewBuilder returns an empty FST builder.
func NewBuilder() *Builder {
	return &Builder{root: &fstNode{}}
}

// Add records that prefix resolves to output (a block file offset).
func (b *Builder) Add(prefix []byte, output int64) {
	n := b.root
	for _, label := range prefix {
		i, ok := n.find(label)
		if !ok {
			arc := fstArc{label: label, node: &fstNode{}}
			n.arcs = append(n.arcs, fstArc{})
			copy(n.arcs[i+1:], n.arcs[i:])
			n.arcs[i] = arc
		}
		n = n.arcs[i].node
	}
	n.final = true
	n.out = output
}

// Build finalizes the builder into an immutable FST.
func (b *Builder) Build() *FST {
	return &FST{root: b.root}
}

// Lookup returns the output stored at the exact key, if any.
func (f *FST) Lookup(key []byte) (int64, bool) {
	n := f.root
	for _, label := range key {
		i, ok := n.find(label)
		if !ok {
			return 0, false
		}
		n = n.arcs[i].node
	}
	if n.final {
		return n.out, true
	}
	return 0, false
}

// FloorEntry walks key as far as it matches, returning the output of the
// deepest final node on the path — the block whose prefix key descends
// into, used to resolve seek_ge when key itself isn't a block boundary.
func (f *FST) FloorEntry(key []byte) (int64, bool) {
	n := f.root
	out, ok := n.out, n.final
	for _, label := range key {
		i, found := n.find(label)
		if !found {
			break
		}
		n = n.arcs[i].node
		if n.final {
			out, ok = n.out, true
		}
	}
	return out, ok
}

// FloorEntryPrefix is FloorEntry plus the length of the matched prefix,
// letting a caller resume scanning the file at exactly the point the
// FST's knowledge of key runs out rather than just the block it lands
// on.
func (f *FST) FloorEntryPrefix(key []byte) (output int64, prefixLen int, ok bool) {
	n := f.root
	output, ok = n.out, n.final
	for i, label := range key {
		idx, found := n.find(label)
		if !found {
			break
		}
		n = n.arcs[idx].node
		if n.final {
			output, ok = n.out, true
			prefixLen = i + 1
		}
	}
	return output, prefixLen, ok
}

// Matcher is a byte-driven automaton (e.g. a Levenshtein automaton):
// Step reports the next state and whether label is accepted from state,
// and Accepting reports whether state is itself a match. Intersect walks
// the FST and the matcher together so dead subtrees are pruned without
// visiting every term (spec.md §4.5 "Automaton intersection").
type Matcher interface {
	Start() int
	Step(state int, label byte) (int, bool)
	Accepting(state int) bool
	// CanMatch reports whether any continuation from state can still
	// reach an accepting state; false lets Intersect prune the subtree.
	CanMatch(state int) bool
}

// Intersect enumerates every key accepted by m, calling visit with the
// key bytes and the output stored at that key.
func Intersect(f *FST, m Matcher, visit func(key []byte, output int64)) {
	var path []byte
	var walk func(n *fstNode, state int)
	walk = func(n *fstNode, state int) {
		if n.final && m.Accepting(state) {
			visit(append([]byte(nil), path...), n.out)
		}
		for _, arc := range n.arcs {
			next, ok := m.Step(state, arc.label)
			if !ok || !m.CanMatch(next) {
				continue
			}
			path = append(path, arc.label)
			walk(arc.node, next)
			path = path[:len(path)-1]
		}
	}
	walk(f.root, m.Start())
}
