package query

import (
	"testing"

	"github.com/goedderz/iresearch/analysis"
	"github.com/goedderz/iresearch/index"
	"github.com/goedderz/iresearch/postings"
	"github.com/goedderz/iresearch/store"
	"github.com/goedderz/iresearch/termdict"
	"github.com/stretchr/testify/require"
)

// tokenStream is a fixed sequence of single-position tokens, enough to
// drive a Writer without pulling in a real analyzer.
type tokenStream struct {
	terms []string
	i     int
}

func tokens(terms ...string) *tokenStream { return &tokenStream{terms: terms} }

func (s *tokenStream) Next() bool {
	if s.i >= len(s.terms) {
		return false
	}
	s.i++
	return true
}
func (s *tokenStream) Term() []byte           { return []byte(s.terms[s.i-1]) }
func (s *tokenStream) PositionIncrement() int { return 1 }
func (s *tokenStream) StartOffset() int       { return 0 }
func (s *tokenStream) EndOffset() int         { return 0 }
func (s *tokenStream) Payload() []byte        { return nil }

var _ analysis.TokenStream = (*tokenStream)(nil)

// openFixture builds a 3-doc segment over field "f":
//
//	doc1={"apple"}, doc2={"apricot"}, doc3={"banana"}
//
// matching spec.md §8 scenario S1, and opens it for querying.
func openFixture(t *testing.T) *index.Reader {
	t.Helper()
	dir := store.NewRAMDirectory()
	w := index.NewWriter(dir, termdict.DefaultConfig())
	require.NoError(t, w.Reset("seg1"))

	features := postings.FeatureFreq

	doc := index.MinDoc
	require.NoError(t, w.IndexField("f", doc, tokens("apple"), features, 1))
	require.NoError(t, w.Finish(doc))

	doc = index.MinDoc + 1
	require.NoError(t, w.IndexField("f", doc, tokens("apricot"), features, 1))
	require.NoError(t, w.Finish(doc))

	doc = index.MinDoc + 2
	require.NoError(t, w.IndexField("f", doc, tokens("banana"), features, 1))
	require.NoError(t, w.Finish(doc))

	meta, err := w.Flush("seg1")
	require.NoError(t, err)

	r, err := index.Open(dir, meta)
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func docSet(t *testing.T, pf PreparedFilter) []uint32 {
	t.Helper()
	bm, err := pf.Matches()
	require.NoError(t, err)
	var out []uint32
	it := NewDocIterator(bm)
	for {
		doc, ok := it.Next()
		if !ok {
			break
		}
		out = append(out, doc)
	}
	return out
}

func TestTermFilter(t *testing.T) {
	r := openFixture(t)
	pf, err := (&TermFilter{Field: "f", Term: []byte("apricot")}).Prepare(r)
	require.NoError(t, err)
	require.Equal(t, []uint32{index.MinDoc + 1}, docSet(t, pf))
}

func TestTermFilterUnknownFieldIsEmpty(t *testing.T) {
	r := openFixture(t)
	pf, err := (&TermFilter{Field: "nope", Term: []byte("x")}).Prepare(r)
	require.NoError(t, err)
	require.Empty(t, docSet(t, pf))
}

func TestPrefixFilter(t *testing.T) {
	r := openFixture(t)
	pf, err := (&PrefixFilter{Field: "f", Prefix: []byte("ap")}).Prepare(r)
	require.NoError(t, err)
	require.Equal(t, []uint32{index.MinDoc, index.MinDoc + 1}, docSet(t, pf))
}

func TestRangeFilter(t *testing.T) {
	r := openFixture(t)
	pf, err := (&RangeFilter{Field: "f", Lo: []byte("a"), Hi: []byte("b"), InclLo: true, InclHi: false}).Prepare(r)
	require.NoError(t, err)
	require.Equal(t, []uint32{index.MinDoc, index.MinDoc + 1}, docSet(t, pf))
}

func TestBooleanAndNot(t *testing.T) {
	r := openFixture(t)
	and := &AndFilter{Children: []Filter{
		&TermFilter{Field: "f", Term: []byte("apple")},
		&NotFilter{Inner: &TermFilter{Field: "f", Term: []byte("banana")}},
	}}
	pf, err := and.Prepare(r)
	require.NoError(t, err)
	require.Equal(t, []uint32{index.MinDoc}, docSet(t, pf))
}

func TestBooleanOr(t *testing.T) {
	r := openFixture(t)
	or := &OrFilter{Children: []Filter{
		&TermFilter{Field: "f", Term: []byte("apple")},
		&TermFilter{Field: "f", Term: []byte("banana")},
	}}
	pf, err := or.Prepare(r)
	require.NoError(t, err)
	require.ElementsMatch(t, []uint32{index.MinDoc, index.MinDoc + 2}, docSet(t, pf))
}

func TestBooleanOrMinMatch(t *testing.T) {
	r := openFixture(t)
	or := &OrFilter{
		Children: []Filter{
			&PrefixFilter{Field: "f", Prefix: []byte("ap")},
			&TermFilter{Field: "f", Term: []byte("apricot")},
		},
		MinMatch: 2,
	}
	pf, err := or.Prepare(r)
	require.NoError(t, err)
	require.Equal(t, []uint32{index.MinDoc + 1}, docSet(t, pf))
}

func TestFuzzyFilterExactCollapsesToTerm(t *testing.T) {
	r := openFixture(t)
	pf, err := (&FuzzyFilter{Field: "f", Term: []byte("apple"), MaxEdits: 0}).Prepare(r)
	require.NoError(t, err)
	require.Equal(t, []uint32{index.MinDoc}, docSet(t, pf))
}

func TestFuzzyFilterOneEdit(t *testing.T) {
	r := openFixture(t)
	// "aplle" -> "apple" is one substitution (l -> p).
	pf, err := (&FuzzyFilter{Field: "f", Term: []byte("aplle"), MaxEdits: 1, Transpositions: true}).Prepare(r)
	require.NoError(t, err)
	require.Equal(t, []uint32{index.MinDoc}, docSet(t, pf))
}

func TestFuzzyFilterUnsupportedBoundIsEmpty(t *testing.T) {
	r := openFixture(t)
	pf, err := (&FuzzyFilter{Field: "f", Term: []byte("apple"), MaxEdits: 1000}).Prepare(r)
	require.NoError(t, err)
	require.Empty(t, docSet(t, pf))
}

// multiByteFixture indexes two multi-byte UTF-8 terms differing by one
// codepoint, so a byte-level automaton (each kanji is 3 bytes) would
// see a distance of 3 where the rune-level one sees 1.
func multiByteFixture(t *testing.T) *index.Reader {
	t.Helper()
	dir := store.NewRAMDirectory()
	w := index.NewWriter(dir, termdict.DefaultConfig())
	require.NoError(t, w.Reset("seg1"))

	features := postings.FeatureFreq

	doc := index.MinDoc
	require.NoError(t, w.IndexField("f", doc, tokens("日本語"), features, 1))
	require.NoError(t, w.Finish(doc))

	doc = index.MinDoc + 1
	require.NoError(t, w.IndexField("f", doc, tokens("日本後"), features, 1))
	require.NoError(t, w.Finish(doc))

	meta, err := w.Flush("seg1")
	require.NoError(t, err)

	r, err := index.Open(dir, meta)
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func TestFuzzyFilterMultiByteUTF8OneEdit(t *testing.T) {
	r := multiByteFixture(t)
	pf, err := (&FuzzyFilter{Field: "f", Term: []byte("日本語"), MaxEdits: 1}).Prepare(r)
	require.NoError(t, err)
	require.ElementsMatch(t, []uint32{index.MinDoc, index.MinDoc + 1}, docSet(t, pf))
}

func TestFuzzyFilterMultiByteUTF8ZeroEditsIsExact(t *testing.T) {
	r := multiByteFixture(t)
	pf, err := (&FuzzyFilter{Field: "f", Term: []byte("日本語"), MaxEdits: 0}).Prepare(r)
	require.NoError(t, err)
	require.Equal(t, []uint32{index.MinDoc}, docSet(t, pf))
}
