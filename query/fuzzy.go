package query

import (
	"unicode/utf8"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/goedderz/iresearch/index"
	"github.com/goedderz/iresearch/postings"
)

// FuzzyFilter matches every term in Field within Damerau/Levenshtein
// distance MaxEdits of Term, per spec.md §4.6 "by_edit_distance".
// ScoredTermsLimit == 0 selects every match ("all-terms collector");
// otherwise only the ScoredTermsLimit highest-similarity terms are
// kept ("top-terms collector").
type FuzzyFilter struct {
	Field            string
	Term             []byte
	MaxEdits         int
	Transpositions   bool
	ScoredTermsLimit int
}

func (f *FuzzyFilter) Prepare(r *index.Reader) (PreparedFilter, error) {
	if f.MaxEdits == 0 {
		// Special case from spec.md §4.6: max_d == 0 is an exact match.
		return (&TermFilter{Field: f.Field, Term: f.Term}).Prepare(r)
	}

	fm, ok := r.FieldMeta(f.Field)
	if !ok {
		return emptyFilter{}, nil
	}
	desc, err := pdpCache.pdp(f.MaxEdits, f.Transpositions)
	if err != nil {
		// An unsupported bound is a null pdp: empty prepared filter,
		// not an error (spec.md §4.6).
		return emptyFilter{}, nil
	}

	fr := r.Field(f.Field)
	if fr == nil {
		return emptyFilter{}, nil
	}
	automaton := newLevAutomaton(f.Term, desc)
	// automaton.query is already the rune decoding of f.Term that
	// Distance is computed against, so the similarity denominator below
	// stays consistent with the (now rune-level) edit distance.
	queryLen := len(automaton.query)

	collector := newTermCollector(f.ScoredTermsLimit)
	err = fr.VisitMatching(automaton, func(term []byte, stats postings.Stats) bool {
		distance := automaton.Distance(automaton.lastAccepted)
		denom := utf8.RuneCount(term)
		if queryLen < denom {
			denom = queryLen
		}
		if denom < 1 {
			denom = 1
		}
		similarity := 1 - float64(distance)/float64(denom)
		collector.add(fuzzyMatch{
			term:       append([]byte(nil), term...),
			stats:      stats,
			distance:   distance,
			similarity: similarity,
		})
		return true
	})
	if err != nil {
		return degrade(f.Field, err)
	}

	bm := roaring.New()
	for _, m := range collector.results() {
		sub, err := matchingDocs(r, m.stats, fm.Features)
		if err != nil {
			return nil, err
		}
		bm.Or(sub)
	}
	return staticFilter{bm}, nil
}
