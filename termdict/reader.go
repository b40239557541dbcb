package termdict

import (
	"bytes"
	"fmt"

	"github.com/goedderz/iresearch/postings"
	"github.com/goedderz/iresearch/store"
)

// rawEntry is a block entry as read back off disk, the mirror of
// blockEntry on the write side.
type rawEntry struct {
	kind        entryKind
	suffix      []byte
	statsBlob   []byte
	childOffset int64
}

// blockHeader is one read-back block: its entries plus, when the block
// is one link of a floor-block chain (blockFlagHasFloorBlock), the
// offset of the next sibling sharing the same level's prefix.
type blockHeader struct {
	entries   []rawEntry
	floorNext int64
	hasFloor  bool
}

func readBlockAt(in store.IndexInput, offset int64) (blockHeader, error) {
	if err := in.Seek(offset); err != nil {
		return blockHeader{}, err
	}
	count, err := in.ReadVarint()
	if err != nil {
		return blockHeader{}, err
	}
	flags, err := in.ReadByte()
	if err != nil {
		return blockHeader{}, err
	}
	blockStart := in.FilePointer()

	hasFloor := flags&blockFlagHasFloorBlock != 0
	var floorNext int64
	if hasFloor {
		delta, err := in.ReadZigzag()
		if err != nil {
			return blockHeader{}, err
		}
		floorNext = blockStart + delta
	}

	entries := make([]rawEntry, count)
	for i := range entries {
		kindByte, err := in.ReadByte()
		if err != nil {
			return blockHeader{}, err
		}
		suffixLen, err := in.ReadVarint()
		if err != nil {
			return blockHeader{}, err
		}
		var suffix []byte
		if suffixLen > 0 {
			suffix = make([]byte, suffixLen)
			if _, err := readFull(in, suffix); err != nil {
				return blockHeader{}, err
			}
		}
		e := rawEntry{kind: entryKind(kindByte), suffix: suffix}
		switch e.kind {
		case entryTerm:
			blobLen, err := in.ReadVarint()
			if err != nil {
				return blockHeader{}, err
			}
			blob := make([]byte, blobLen)
			if blobLen > 0 {
				if _, err := readFull(in, blob); err != nil {
					return blockHeader{}, err
				}
			}
			e.statsBlob = blob
		case entryBlock:
			delta, err := in.ReadZigzag()
			if err != nil {
				return blockHeader{}, err
			}
			e.childOffset = blockStart + delta
		default:
			return blockHeader{}, fmt.Errorf("termdict: unknown block entry kind %d", kindByte)
		}
		entries[i] = e
	}
	return blockHeader{entries: entries, floorNext: floorNext, hasFloor: hasFloor}, nil
}

func readFull(in store.IndexInput, p []byte) (int, error) {
	total := 0
	for total < len(p) {
		n, err := in.Read(p[total:])
		total += n
		if err != nil {
			return total, err
		}
		if n == 0 {
			return total, store.ErrOutOfRange
		}
	}
	return total, nil
}

// FieldReader is a field's term dictionary, opened for lookups. It keeps
// the field's FST loaded and the summary statistics spec.md §4.5 lists
// (min_term, max_term, terms_count, doc_count, doc_freq, term_freq).
type FieldReader struct {
	in    store.IndexInput
	fst   *FST
	Stats FieldStats
}

// OpenFieldReader binds in (the shared .tm stream) to a field's root
// offset and previously built FST.
func OpenFieldReader(in store.IndexInput, fst *FST, stats FieldStats) *FieldReader {
	return &FieldReader{in: in, fst: fst, Stats: stats}
}

// Cookie is an opaque, restartable iterator position: the block offset
// and local entry index immediately following the captured term, plus
// the prefix bytes consumed to reach that block. Restoring it resumes
// Next() without a fresh FST walk, though (per spec.md §4.5) it is only
// valid while the originating FieldReader stays open.
type Cookie struct {
	Term        []byte
	Stats       postings.Stats
	blockOffset int64
	entryIndex  int
	prefix      []byte
}

// frame is one level of the iterator's open-block stack. floorNext/
// hasFloor mirror the block header: when entries runs dry and hasFloor
// is set, the level continues into the sibling floor block at
// floorNext rather than closing out.
type frame struct {
	offset    int64
	prefix    []byte
	entries   []rawEntry
	idx       int
	floorNext int64
	hasFloor  bool
}

func frameOf(offset int64, prefix []byte, hdr blockHeader, idx int) frame {
	return frame{offset: offset, prefix: prefix, entries: hdr.entries, idx: idx, floorNext: hdr.floorNext, hasFloor: hdr.hasFloor}
}

// Iterator is the seek-term iterator spec.md §4.5 describes.
type Iterator struct {
	r       *FieldReader
	stack   []frame
	curTerm []byte
	curStat postings.Stats
	started bool
}

// Iterator returns a fresh, unpositioned iterator over r.
func (r *FieldReader) Iterator() (*Iterator, error) {
	return &Iterator{r: r}, nil
}

func (it *Iterator) ensureRoot() error {
	if len(it.stack) > 0 || it.started {
		return nil
	}
	hdr, err := readBlockAt(it.r.in, it.r.Stats.RootOffset)
	if err != nil {
		return err
	}
	it.stack = []frame{frameOf(it.r.Stats.RootOffset, nil, hdr, 0)}
	it.started = true
	return nil
}

// Next lexicographically advances the iterator; returns false at end.
func (it *Iterator) Next() (bool, error) {
	if err := it.ensureRoot(); err != nil {
		return false, err
	}
	for len(it.stack) > 0 {
		top := &it.stack[len(it.stack)-1]
		if top.idx >= len(top.entries) {
			if top.hasFloor {
				hdr, err := readBlockAt(it.r.in, top.floorNext)
				if err != nil {
					return false, err
				}
				*top = frameOf(top.floorNext, top.prefix, hdr, 0)
				continue
			}
			it.stack = it.stack[:len(it.stack)-1]
			continue
		}
		e := top.entries[top.idx]
		top.idx++
		switch e.kind {
		case entryTerm:
			it.curTerm = append(append([]byte(nil), top.prefix...), e.suffix...)
			it.curStat = decodeStats(e.statsBlob)
			return true, nil
		case entryBlock:
			childHdr, err := readBlockAt(it.r.in, e.childOffset)
			if err != nil {
				return false, err
			}
			childPrefix := append(append([]byte(nil), top.prefix...), e.suffix...)
			it.stack = append(it.stack, frameOf(e.childOffset, childPrefix, childHdr, 0))
		}
	}
	return false, nil
}

// Term returns the current term, valid after Next/Seek/SeekGE returned
// true.
func (it *Iterator) Term() []byte { return it.curTerm }

// Stats returns the current term's postings summary.
func (it *Iterator) Stats() postings.Stats { return it.curStat }

// Seek positions the iterator exactly on term, returning false if term is
// absent. It starts at the deepest block the index FST resolves for
// term's prefix (see descend) and reads one block per remaining trie
// level rather than scanning the whole dictionary.
func (it *Iterator) Seek(term []byte) (bool, error) {
	found, stack, err := it.r.seekExact(term)
	if err != nil || !found {
		return false, err
	}
	it.stack = stack
	it.started = true
	top := &it.stack[len(it.stack)-1]
	it.curTerm = append([]byte(nil), term...)
	it.curStat = decodeStats(top.entries[top.idx-1].statsBlob)
	return true, nil
}

// SeekGE positions the iterator on the least term >= term, returning
// false if none exists.
func (it *Iterator) SeekGE(term []byte) (bool, error) {
	stack, tm, stats, found, err := it.r.seekGE(term)
	if err != nil || !found {
		return false, err
	}
	it.stack = stack
	it.started = true
	it.curTerm = tm
	it.curStat = stats
	return true, nil
}

// Cookie captures the iterator's current position.
func (it *Iterator) Cookie() Cookie {
	top := it.stack[len(it.stack)-1]
	return Cookie{
		Term:        append([]byte(nil), it.curTerm...),
		Stats:       it.curStat,
		blockOffset: top.offset,
		entryIndex:  top.idx,
		prefix:      append([]byte(nil), top.prefix...),
	}
}

// SeekCookie restores a previously captured Cookie, so the next Next()
// resumes right after the captured term without a fresh FST descent.
func (it *Iterator) SeekCookie(c Cookie) error {
	hdr, err := readBlockAt(it.r.in, c.blockOffset)
	if err != nil {
		return err
	}
	it.stack = []frame{frameOf(c.blockOffset, c.prefix, hdr, c.entryIndex)}
	it.started = true
	it.curTerm = append([]byte(nil), c.Term...)
	it.curStat = c.Stats
	return nil
}

// Postings materializes a postings iterator for the current term via the
// supplied postings.Reader.
func (it *Iterator) Postings(pr postings.Reader, features postings.Features) (postings.Iterator, error) {
	return pr.Iterator(it.curStat, features)
}

// descend resolves as much of target as the field's loaded FST already
// knows about — every trie level writeLevel ever wrote is also an FST
// node keyed by its prefix (spec.md §4.4's incremental arc emission) —
// so this lands directly on the deepest on-disk block that is a literal
// prefix of target without reading any of the intermediate levels.
// seek/seek_ge then only need to scan that one block onward, matching
// spec.md §4.5's "O(log n) via FST walk + intra-block ... scan".
func (r *FieldReader) descend(target []byte) (int64, []byte) {
	if r.fst == nil {
		return r.Stats.RootOffset, nil
	}
	offset, n, ok := r.fst.FloorEntryPrefix(target)
	if !ok {
		return r.Stats.RootOffset, nil
	}
	return offset, target[:n]
}

// seekExact walks a single root-to-leaf path comparing target against
// one block's entries at a time, after an FST descent skips straight
// to the deepest block target's bytes already resolve to.
func (r *FieldReader) seekExact(target []byte) (bool, []frame, error) {
	offset, prefix := r.descend(target)
	var stack []frame
	for {
		hdr, err := readBlockAt(r.in, offset)
		if err != nil {
			return false, nil, err
		}
		rest := target[len(prefix):]
		matched := false
		for i, e := range hdr.entries {
			switch e.kind {
			case entryTerm:
				cmp := bytes.Compare(rest, e.suffix)
				if cmp == 0 {
					stack = append(stack, frameOf(offset, prefix, hdr, i+1))
					return true, stack, nil
				}
				if cmp < 0 {
					return false, nil, nil
				}
			case entryBlock:
				label := e.suffix[0]
				if len(rest) == 0 || rest[0] < label {
					return false, nil, nil
				}
				if rest[0] == label {
					stack = append(stack, frameOf(offset, prefix, hdr, i+1))
					offset = e.childOffset
					prefix = append(append([]byte(nil), prefix...), label)
					matched = true
				}
			}
			if matched {
				break
			}
		}
		if matched {
			continue
		}
		if hdr.hasFloor {
			offset = hdr.floorNext
			continue
		}
		return false, nil, nil
	}
}

// seekGE walks the same single path as seekExact but falls through to
// the least following entry (descending into the leftmost term of a
// block that sorts after target) when there is no exact match.
func (r *FieldReader) seekGE(target []byte) ([]frame, []byte, postings.Stats, bool, error) {
	offset, prefix := r.descend(target)
	return r.seekGEInBlock(offset, prefix, target[len(prefix):])
}

func (r *FieldReader) seekGEInBlock(offset int64, prefix []byte, target []byte) ([]frame, []byte, postings.Stats, bool, error) {
	for {
		hdr, err := readBlockAt(r.in, offset)
		if err != nil {
			return nil, nil, postings.Stats{}, false, err
		}
		for i, e := range hdr.entries {
			switch e.kind {
			case entryTerm:
				if bytes.Compare(target, e.suffix) <= 0 {
					term := append(append([]byte(nil), prefix...), e.suffix...)
					stack := []frame{frameOf(offset, prefix, hdr, i+1)}
					return stack, term, decodeStats(e.statsBlob), true, nil
				}
			case entryBlock:
				label := e.suffix[0]
				if len(target) == 0 || target[0] < label {
					childPrefix := append(append([]byte(nil), prefix...), label)
					term, stats, err := r.leftmostTerm(e.childOffset, childPrefix)
					if err != nil {
						return nil, nil, postings.Stats{}, false, err
					}
					stack := []frame{frameOf(offset, prefix, hdr, i+1)}
					return stack, term, stats, true, nil
				}
				if target[0] == label {
					return r.seekGEInBlock(e.childOffset, append(append([]byte(nil), prefix...), label), target[1:])
				}
			}
		}
		if !hdr.hasFloor {
			return nil, nil, postings.Stats{}, false, nil
		}
		offset = hdr.floorNext
	}
}

func (r *FieldReader) leftmostTerm(offset int64, prefix []byte) ([]byte, postings.Stats, error) {
	hdr, err := readBlockAt(r.in, offset)
	if err != nil {
		return nil, postings.Stats{}, err
	}
	entries := hdr.entries
	if len(entries) == 0 {
		return nil, postings.Stats{}, fmt.Errorf("termdict: empty block at offset %d", offset)
	}
	first := entries[0]
	if first.kind == entryTerm {
		return append(append([]byte(nil), prefix...), first.suffix...), decodeStats(first.statsBlob), nil
	}
	return r.leftmostTerm(first.childOffset, append(append([]byte(nil), prefix...), first.suffix...))
}
