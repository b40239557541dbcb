package query

import (
	"bytes"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/goedderz/iresearch/index"
)

// PrefixFilter matches every term in Field beginning with Prefix,
// unioning each matching term's postings (spec.md §4.6 "FST sub-tree").
type PrefixFilter struct {
	Field  string
	Prefix []byte
}

func (f *PrefixFilter) Prepare(r *index.Reader) (PreparedFilter, error) {
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
	found, err := it.SeekGE(f.Prefix)
	if err != nil {
		return degrade(f.Field, err)
	}
	bm := roaring.New()
	for found && bytes.HasPrefix(it.Term(), f.Prefix) {
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
