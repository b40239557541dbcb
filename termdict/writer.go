package termdict

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/goedderz/iresearch/postings"
	"github.com/goedderz/iresearch/store"
)

// Config carries the burst-trie writer's tuning knobs, per spec.md §6
// ("Configuration options (burst-trie writer)"). Changing either value
// changes the on-disk FST shape but not correctness.
type Config struct {
	MinBlockSize int
	MaxBlockSize int
}

// DefaultConfig matches spec.md §6's defaults.
func DefaultConfig() Config {
	return Config{MinBlockSize: 25, MaxBlockSize: 48}
}

func (c Config) validate() error {
	if c.MinBlockSize <= 0 || c.MaxBlockSize <= 0 {
		return fmt.Errorf("termdict: block sizes must be positive, got min=%d max=%d", c.MinBlockSize, c.MaxBlockSize)
	}
	if c.MinBlockSize >= c.MaxBlockSize {
		return fmt.Errorf("termdict: min_block_size (%d) must be less than max_block_size (%d)", c.MinBlockSize, c.MaxBlockSize)
	}
	return nil
}

// FieldStats summarizes one field's term dictionary, kept by the reader
// alongside its loaded FST (spec.md §4.5).
type FieldStats struct {
	MinTerm    []byte
	MaxTerm    []byte
	TermsCount int64
	DocCount   int64
	DocFreq    int64
	TermFreq   int64
	RootOffset int64
}

type pendingTerm struct {
	term  []byte
	stats postings.Stats
}

// FieldWriter accumulates one field's terms, sorted ascending by the
// caller, and burst-tries them into a terms block stream plus an index
// FST on Finish. Grounded on the recursive structure of
// BlockTreeTermsWriter.TermsWriter.writeBlocks, reworked as explicit
// recursion instead of the teacher's stack-of-pending-entries bookkeeping.
type FieldWriter struct {
	cfg     Config
	out     store.IndexOutput
	pending []pendingTerm
	docIDs  map[uint32]struct{}

	lastTerm []byte
}

// NewFieldWriter returns a writer appending blocks to out (the field's
// region of the shared .tm file).
func NewFieldWriter(out store.IndexOutput, cfg Config) (*FieldWriter, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &FieldWriter{cfg: cfg, out: out, docIDs: make(map[uint32]struct{})}, nil
}

// AddTerm appends term with its postings summary. term must strictly
// follow the previous call's term (spec.md §4.3 "Terms are strictly
// ascending within a field").
func (w *FieldWriter) AddTerm(term []byte, stats postings.Stats, docsSeen int64) error {
	if w.lastTerm != nil && bytes.Compare(term, w.lastTerm) <= 0 {
		return fmt.Errorf("termdict: term %q did not strictly follow %q: %w", term, w.lastTerm, store.ErrCorruptIndex)
	}
	w.lastTerm = append([]byte(nil), term...)
	w.pending = append(w.pending, pendingTerm{term: w.lastTerm, stats: stats})
	return nil
}

// Finish flushes all pending terms as blocks and returns the field's
// summary, including the root block's file offset (the field's
// terms-index root per spec.md §4.4). b receives every block's
// (prefix, offset) pair so the caller can assemble the field's FST.
func (w *FieldWriter) Finish(b *Builder) (FieldStats, error) {
	if len(w.pending) == 0 {
		return FieldStats{}, nil
	}
	root, err := w.writeLevel(b, w.pending, nil)
	if err != nil {
		return FieldStats{}, err
	}
	var docFreq, termFreq int64
	for _, p := range w.pending {
		docFreq += p.stats.DocFreq
		termFreq += p.stats.TotalFreq
	}
	return FieldStats{
		MinTerm:    w.pending[0].term,
		MaxTerm:    w.pending[len(w.pending)-1].term,
		TermsCount: int64(len(w.pending)),
		DocFreq:    docFreq,
		TermFreq:   termFreq,
		RootOffset: root,
	}, nil
}

// writeLevel writes the entries that share prefix as one trie level,
// recursing into a child level for any next-byte group too large to
// stay inline (spec.md §4.4 steps 2-4). The level itself is written by
// writeLocalBlock, which floor-splits it if it still overflows
// max_block_size once every inline run has been accounted for. Returns
// the offset of the level's first (possibly only) block.
func (w *FieldWriter) writeLevel(b *Builder, entries []pendingTerm, prefix []byte) (int64, error) {
	prefixLen := len(prefix)

	var local []blockEntry
	hasSubBlocks := false

	if len(entries) <= w.cfg.MaxBlockSize {
		for _, e := range entries {
			local = append(local, blockEntry{kind: entryTerm, suffix: e.term[prefixLen:], statsBlob: encodeStats(e.stats)})
		}
	} else {
		i := 0
		for i < len(entries) {
			if len(entries[i].term) == prefixLen {
				local = append(local, blockEntry{kind: entryTerm, suffix: nil, statsBlob: encodeStats(entries[i].stats)})
				i++
				continue
			}
			label := entries[i].term[prefixLen]
			j := i + 1
			for j < len(entries) && len(entries[j].term) > prefixLen && entries[j].term[prefixLen] == label {
				j++
			}
			run := entries[i:j]
			if len(run) <= w.cfg.MaxBlockSize {
				for _, e := range run {
					local = append(local, blockEntry{kind: entryTerm, suffix: e.term[prefixLen:], statsBlob: encodeStats(e.stats)})
				}
			} else {
				childPrefix := append(append([]byte(nil), prefix...), label)
				childOffset, err := w.writeLevel(b, run, childPrefix)
				if err != nil {
					return 0, err
				}
				local = append(local, blockEntry{kind: entryBlock, suffix: []byte{label}, childOffset: childOffset})
				hasSubBlocks = true
			}
			i = j
		}
	}

	offset, err := w.writeLocalBlock(local, hasSubBlocks)
	if err != nil {
		return 0, err
	}
	b.Add(prefix, offset)
	return offset, nil
}

// writeLocalBlock writes local as a single block, or, when it overflows
// max_block_size, as a chain of floor blocks per spec.md §4.4
// (`write_blocks`/`merge_blocks`): every floor block shares the level's
// prefix and holds at most max_block_size entries, except that a
// trailing chunk shorter than min_block_size is folded into its
// predecessor, which can then hold up to max+min-1 entries. It returns the
// offset of the first floor block, the one the parent level (or the
// FST) points to; has_floor_blocks on that header tells the reader to
// keep walking its sibling chain instead of stopping at one block.
func (w *FieldWriter) writeLocalBlock(local []blockEntry, hasSubBlocks bool) (int64, error) {
	if len(local) <= w.cfg.MaxBlockSize {
		offset := w.out.FilePointer()
		if err := writeBlock(w.out, local, hasSubBlocks, -1); err != nil {
			return 0, err
		}
		return offset, nil
	}

	chunks := floorChunks(local, w.cfg.MinBlockSize, w.cfg.MaxBlockSize)
	offsets := make([]int64, len(chunks))
	nextOffset := int64(-1)
	for i := len(chunks) - 1; i >= 0; i-- {
		offset := w.out.FilePointer()
		if err := writeBlock(w.out, chunks[i], chunkHasSubBlocks(chunks[i]), nextOffset); err != nil {
			return 0, err
		}
		offsets[i] = offset
		nextOffset = offset
	}
	return offsets[0], nil
}

// floorChunks splits entries into consecutive runs of at most max
// entries each, folding a final run shorter than min into its
// predecessor so no floor block is left degenerately small.
func floorChunks(entries []blockEntry, min, max int) [][]blockEntry {
	var chunks [][]blockEntry
	for i := 0; i < len(entries); i += max {
		end := i + max
		if end > len(entries) {
			end = len(entries)
		}
		chunks = append(chunks, entries[i:end])
	}
	if len(chunks) > 1 && len(chunks[len(chunks)-1]) < min {
		last := chunks[len(chunks)-1]
		chunks = chunks[:len(chunks)-1]
		chunks[len(chunks)-1] = append(chunks[len(chunks)-1], last...)
	}
	return chunks
}

func chunkHasSubBlocks(entries []blockEntry) bool {
	for _, e := range entries {
		if e.kind == entryBlock {
			return true
		}
	}
	return false
}

// writeBlock serializes entries as one block: entry_count, flags,
// optionally the next-floor-block offset, then per-entry (kind, suffix,
// payload) per spec.md §4.4 ("block header records (entry_count,
// is_leaf, has_sub_blocks)"). floorNext is the file offset of the next
// floor block sharing this level's prefix, or -1 if this is the last
// (or only) one.
func writeBlock(out store.IndexOutput, entries []blockEntry, hasSubBlocks bool, floorNext int64) error {
	flags := 0
	if !hasSubBlocks {
		flags |= blockFlagLeaf
	} else {
		flags |= blockFlagHasSubBlocks
	}
	hasFloor := floorNext >= 0
	if hasFloor {
		flags |= blockFlagHasFloorBlock
	}
	if err := out.WriteVarint(uint64(len(entries))); err != nil {
		return err
	}
	if err := out.WriteByte(byte(flags)); err != nil {
		return err
	}
	blockStart := out.FilePointer()
	if hasFloor {
		if err := out.WriteZigzag(floorNext - blockStart); err != nil {
			return err
		}
	}
	for _, e := range entries {
		if err := out.WriteByte(byte(e.kind)); err != nil {
			return err
		}
		if err := out.WriteVarint(uint64(len(e.suffix))); err != nil {
			return err
		}
		if len(e.suffix) > 0 {
			if _, err := out.Write(e.suffix); err != nil {
				return err
			}
		}
		switch e.kind {
		case entryTerm:
			if err := out.WriteVarint(uint64(len(e.statsBlob))); err != nil {
				return err
			}
			if _, err := out.Write(e.statsBlob); err != nil {
				return err
			}
		case entryBlock:
			if err := out.WriteZigzag(e.childOffset - blockStart); err != nil {
				return err
			}
		}
	}
	return nil
}

func encodeStats(s postings.Stats) []byte {
	var buf [4 * binary.MaxVarintLen64]byte
	n := binary.PutVarint(buf[:], s.DocFreq)
	n += binary.PutVarint(buf[n:], s.TotalFreq)
	n += binary.PutVarint(buf[n:], s.BlobOffset)
	n += binary.PutVarint(buf[n:], s.BlobLength)
	return append([]byte(nil), buf[:n]...)
}

func decodeStats(b []byte) postings.Stats {
	var s postings.Stats
	n := 0
	v, k := binary.Varint(b[n:])
	s.DocFreq = v
	n += k
	v, k = binary.Varint(b[n:])
	s.TotalFreq = v
	n += k
	v, k = binary.Varint(b[n:])
	s.BlobOffset = v
	n += k
	v, k = binary.Varint(b[n:])
	s.BlobLength = v
	return s
}
