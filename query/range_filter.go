package query

import (
	"bytes"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/goedderz/iresearch/index"
)

// RangeFilter matches every term in Field within [Lo, Hi], with
// inclusivity of each bound controlled independently (spec.md §4.6
// "two seeks" — SeekGE(Lo) bounds the scan start, the Hi comparison
// bounds its end).
type RangeFilter struct {
	Field  string
	Lo, Hi []byte
	InclLo bool
	InclHi bool
}

func (f *RangeFilter) Prepare(r *index.Reader) (PreparedFilter, error) {
	fm, ok := r.FieldMeta(f.Field)
	if !ok {
		return emptyFilter{}, nil
	}
	fr := r.Field(f.Field)
	if fr == nil {
		return emptyFilter{}, nil
	}
	it, err := fr.Iterator()
	if err != nil {
		return degrade(f.Field, err)
	}
	found, err := it.SeekGE(f.Lo)
	if err != nil {
		return degrade(f.Field, err)
	}
	bm := roaring.New()
	for found {
		term := it.Term()
		if !f.InclLo && bytes.Equal(term, f.Lo) {
			found, err = it.Next()
			if err != nil {
				return nil, err
			}
			continue
		}
		cmp := bytes.Compare(term, f.Hi)
		if cmp > 0 || (cmp == 0 && !f.InclHi) {
			break
		}
		sub, err := matchingDocs(r, it.Stats(), fm.Features)
		if err != nil {
			return nil, err
		}
		bm.Or(sub)
		found, err = it.Next()
		if err != nil {
			return nil, err
		}
	}
	return staticFilter{bm}, nil
}
