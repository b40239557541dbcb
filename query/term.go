package query

import (
	"io"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/goedderz/iresearch/index"
	"github.com/goedderz/iresearch/postings"
)

// TermFilter matches documents carrying the exact term in Field, per
// spec.md §4.6 "single FST seek".
type TermFilter struct {
	Field string
	Term  []byte
}

func (f *TermFilter) Prepare(r *index.Reader) (PreparedFilter, error) {
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
	found, err := it.Seek(f.Term)
	if err != nil {
		return degrade(f.Field, err)
	}
	if !found {
		return emptyFilter{}, nil
	}
	return &termMatch{r: r, stats: it.Stats(), features: fm.Features}, nil
}

// termMatch is one term's postings; each Matches call runs them against
// the segment's deletion mask.
type termMatch struct {
	r        *index.Reader
	stats    postings.Stats
	features postings.Features
}

func (m *termMatch) Matches() (*roaring.Bitmap, error) {
	return matchingDocs(m.r, m.stats, m.features)
}

// matchingDocs runs stats' postings to completion and returns the
// subset of docs that are still live in r.
func matchingDocs(r *index.Reader, stats postings.Stats, features postings.Features) (*roaring.Bitmap, error) {
	pit, err := r.TermPostings(stats, features)
	if err != nil {
		return nil, err
	}
	bm := roaring.New()
	for {
		doc, err := pit.Next()
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, err
		}
		if !r.IsDeleted(doc) {
			bm.Add(doc)
		}
	}
	return bm, nil
}
