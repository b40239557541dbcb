// Package query implements the filter/prepared-filter contract spec.md
// §4.6 describes: term, prefix, range and fuzzy term matching plus
// boolean composition, all driven against a single opened index.Reader.
// Ranking beyond "does this doc match" is out of scope here, per the
// Non-goal on ranking-model internals; filters answer "which docs" and
// hand back plain doc-id sets.
package query

import (
	"github.com/RoaringBitmap/roaring/v2"
	"github.com/goedderz/iresearch"
	"github.com/goedderz/iresearch/index"
)

var log = iresearch.Logger("query")

// degrade turns a structural term-dictionary error into an empty prepared
// filter instead of propagating it, per spec.md §7 ("Query paths return a
// prepared empty filter on any structural error; empty prepared filters
// produce no matches and never throw"). The reason is logged, not lost.
func degrade(field string, err error) (PreparedFilter, error) {
	log.Warn("query: degrading to empty filter", "field", field, "error", err)
	return emptyFilter{}, nil
}

// Filter is a pure, reusable query value. Prepare binds it to a
// specific reader snapshot, doing whatever dictionary/FST work only
// needs to happen once per segment.
type Filter interface {
	Prepare(r *index.Reader) (PreparedFilter, error)
}

// PreparedFilter yields the set of live doc-ids it matches in the
// reader it was prepared against. Matches deliberately returns a
// materialized bitmap rather than a streaming cursor: every filter
// variant below (term, prefix, range, fuzzy, boolean) already needs the
// whole match set in hand to do deletion filtering or boolean
// composition, and an in-memory roaring.Bitmap is cheap relative to a
// single segment's doc-id space (spec.md §5 "in-memory operations...
// never block").
type PreparedFilter interface {
	Matches() (*roaring.Bitmap, error)
}

// rbIterator is the subset of roaring's bitmap iterator this package
// relies on, named locally so DocIterator doesn't have to spell out
// roaring's own iterator type.
type rbIterator interface {
	HasNext() bool
	Next() uint32
}

// DocIterator walks a matched doc-id set in ascending order, the shape
// callers outside this package consume once a filter has been
// prepared and resolved to a bitmap.
type DocIterator struct {
	it rbIterator
}

// NewDocIterator wraps bm for ascending iteration.
func NewDocIterator(bm *roaring.Bitmap) *DocIterator {
	return &DocIterator{it: bm.Iterator()}
}

// Next returns the next doc-id, or ok=false once exhausted.
func (d *DocIterator) Next() (uint32, bool) {
	if !d.it.HasNext() {
		return 0, false
	}
	return d.it.Next(), true
}

// staticFilter wraps an already-computed bitmap as a PreparedFilter.
type staticFilter struct {
	bm *roaring.Bitmap
}

func (f staticFilter) Matches() (*roaring.Bitmap, error) { return f.bm, nil }

// emptyFilter matches nothing. Every filter variant below resolves to
// this instead of erroring when it can prove up front there is no
// match (unknown field, absent term, null fuzzy description).
type emptyFilter struct{}

func (emptyFilter) Matches() (*roaring.Bitmap, error) { return roaring.New(), nil }

// AllFilter matches every live (non-deleted) document in the reader.
// It only exists to give a standalone NotFilter something to subtract
// from, per spec.md §4.6 "a standalone not.prepare wraps its inner
// against the all filter".
type AllFilter struct{}

func (AllFilter) Prepare(r *index.Reader) (PreparedFilter, error) {
	bm := roaring.New()
	next := r.DocsIterator()
	for {
		doc, ok := next()
		if !ok {
			break
		}
		bm.Add(doc)
	}
	return staticFilter{bm}, nil
}
