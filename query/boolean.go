package query

import (
	"github.com/RoaringBitmap/roaring/v2"
	"github.com/goedderz/iresearch/index"
)

// NotFilter is only meaningful as a direct child of AndFilter/OrFilter,
// which both recognize it and route Inner into their exclude set
// instead of calling Prepare on it directly. Prepared standalone, it
// wraps Inner against AllFilter, per spec.md §4.6.
type NotFilter struct {
	Inner Filter
}

func (f *NotFilter) Prepare(r *index.Reader) (PreparedFilter, error) {
	return (&AndFilter{Children: []Filter{AllFilter{}, f}}).Prepare(r)
}

// AndFilter matches the conjunction of its children, per spec.md §4.6:
// NotFilter children contribute to the exclude set instead of the
// include set.
type AndFilter struct {
	Children []Filter
}

func splitNots(children []Filter) (includes, excludes []Filter) {
	for _, c := range children {
		if nf, ok := c.(*NotFilter); ok {
			excludes = append(excludes, nf.Inner)
			continue
		}
		includes = append(includes, c)
	}
	return includes, excludes
}

func (f *AndFilter) Prepare(r *index.Reader) (PreparedFilter, error) {
	includes, excludes := splitNots(f.Children)
	if len(includes) == 0 {
		return emptyFilter{}, nil
	}
	if len(includes) == 1 && len(excludes) == 0 {
		return includes[0].Prepare(r)
	}

	var result *roaring.Bitmap
	for i, inc := range includes {
		pf, err := inc.Prepare(r)
		if err != nil {
			return nil, err
		}
		bm, err := pf.Matches()
		if err != nil {
			return nil, err
		}
		if i == 0 {
			result = bm.Clone()
		} else {
			result.And(bm)
		}
	}
	for _, exc := range excludes {
		pf, err := exc.Prepare(r)
		if err != nil {
			return nil, err
		}
		bm, err := pf.Matches()
		if err != nil {
			return nil, err
		}
		result.AndNot(bm)
	}
	return staticFilter{result}, nil
}

// OrFilter matches any doc hit by at least MinMatch of its children at
// the same doc-id (spec.md §4.6 "or(min_match)"). MinMatch<=1 is a
// plain union; MinMatch>=len(includes) degenerates to a conjunction of
// the same children, which must behave exactly like AndFilter.
type OrFilter struct {
	Children []Filter
	MinMatch int
}

func (f *OrFilter) Prepare(r *index.Reader) (PreparedFilter, error) {
	includes, excludes := splitNots(f.Children)
	minMatch := f.MinMatch
	if minMatch < 1 {
		minMatch = 1
	}
	if minMatch >= len(includes) && len(includes) > 1 {
		return (&AndFilter{Children: f.Children}).Prepare(r)
	}

	counts := make(map[uint32]int)
	for _, inc := range includes {
		pf, err := inc.Prepare(r)
		if err != nil {
			return nil, err
		}
		bm, err := pf.Matches()
		if err != nil {
			return nil, err
		}
		it := bm.Iterator()
		for it.HasNext() {
			counts[it.Next()]++
		}
	}
	result := roaring.New()
	for doc, n := range counts {
		if n >= minMatch {
			result.Add(doc)
		}
	}
	for _, exc := range excludes {
		pf, err := exc.Prepare(r)
		if err != nil {
			return nil, err
		}
		bm, err := pf.Matches()
		if err != nil {
			return nil, err
		}
		result.AndNot(bm)
	}
	return staticFilter{result}, nil
}
