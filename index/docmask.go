// Package index implements the segment layer: accumulating documents in
// memory, flushing them as an immutable on-disk segment, and opening a
// published segment for query execution.
package index

import (
	"io"

	"github.com/RoaringBitmap/roaring/v2"
)

// MinDoc is the first valid local document id within a segment; 0 is
// reserved as "invalid" per spec.md §3.
const MinDoc uint32 = 1

// MaxDoc is the sentinel "eof" document id.
const MaxDoc uint32 = ^uint32(0)

// DocMask is the sorted set of deleted doc-ids within a segment
// (spec.md §3, §6 ".doc_mask"). A compressed bitmap is the natural
// representation for a monotonic id-range mask: RoaringBitmap's own
// WriteTo/ReadFrom becomes the file's codec directly, the way
// hupe1980-vecgo's metadata/bitmap.go uses roaring for its own deletion
// set.
type DocMask struct {
	bits *roaring.Bitmap
}

// NewDocMask returns an empty mask.
func NewDocMask() *DocMask {
	return &DocMask{bits: roaring.New()}
}

// Add marks docID deleted.
func (m *DocMask) Add(docID uint32) { m.bits.Add(docID) }

// Contains reports whether docID is deleted.
func (m *DocMask) Contains(docID uint32) bool { return m.bits.Contains(docID) }

// Len reports how many documents are deleted.
func (m *DocMask) Len() int64 { return int64(m.bits.GetCardinality()) }

// WriteTo serializes the mask, per spec.md §6's ".doc_mask" file.
func (m *DocMask) WriteTo(w io.Writer) (int64, error) {
	return m.bits.WriteTo(w)
}

// ReadDocMask deserializes a mask previously written by WriteTo.
func ReadDocMask(r io.Reader) (*DocMask, error) {
	bm := roaring.New()
	if _, err := bm.ReadFrom(r); err != nil {
		return nil, err
	}
	return &DocMask{bits: bm}, nil
}

// Each calls f once per deleted doc-id in ascending order, stopping early
// if f returns false.
func (m *DocMask) Each(f func(docID uint32) bool) {
	it := m.bits.Iterator()
	for it.HasNext() {
		if !f(it.Next()) {
			return
		}
	}
}
