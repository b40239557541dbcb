package termdict

import "github.com/goedderz/iresearch/postings"

// VisitMatching walks the field's block tree, driving m one suffix byte
// at a time and pruning into a child block only when m.CanMatch still
// holds for the state reached after consuming that block's one-byte
// label. This runs the automaton against the real term bytes rather
// than against the separate index FST: Seek/SeekGE use the FST
// (FieldReader.descend, fst.go) to skip straight to a known block, but
// a fuzzy/prefix scan has no single target to resolve that way — it
// needs every live branch, and pruning on the actual suffix bytes is
// exact down to individual terms rather than just block boundaries, so
// it subsumes what running Intersect over the coarser FST alone would
// give. visit may return false to stop the walk early.
func (r *FieldReader) VisitMatching(m Matcher, visit func(term []byte, stats postings.Stats) bool) error {
	stop := false
	var walk func(offset int64, prefix []byte, state int) error
	walk = func(offset int64, prefix []byte, state int) error {
		entries, err := readBlockAt(r.in, offset)
		if err != nil {
			return err
		}
		for _, e := range entries.entries {
			if stop {
				return nil
			}
			cur, ok := state, true
			for _, b := range e.suffix {
				cur, ok = m.Step(cur, b)
				if !ok {
					break
				}
			}
			if !ok || !m.CanMatch(cur) {
				continue
			}
			switch e.kind {
			case entryTerm:
				if !m.Accepting(cur) {
					continue
				}
				term := append(append([]byte(nil), prefix...), e.suffix...)
				if !visit(term, decodeStats(e.statsBlob)) {
					stop = true
					return nil
				}
			case entryBlock:
				childPrefix := append(append([]byte(nil), prefix...), e.suffix...)
				if err := walk(e.childOffset, childPrefix, cur); err != nil {
					return err
				}
			}
		}
		if entries.hasFloor && !stop {
			return walk(entries.floorNext, prefix, state)
		}
		return nil
	}
	return walk(r.Stats.RootOffset, nil, m.Start())
}
