package index

import (
	"io"
	"testing"

	"github.com/goedderz/iresearch/postings"
	"github.com/goedderz/iresearch/store"
	"github.com/goedderz/iresearch/termdict"
	"github.com/stretchr/testify/require"
)

func buildSegment(t *testing.T, dir store.Directory, name string) *Meta {
	t.Helper()
	w := NewWriter(dir, termdict.DefaultConfig())
	require.NoError(t, w.Reset(name))
	features := postings.FeatureFreq | postings.FeaturePositions
	require.NoError(t, w.IndexField("body", MinDoc, newTokens("the", "quick", "brown", "fox"), features, 1))
	require.NoError(t, w.StoreField("title", MinDoc, []byte("doc one")))
	require.NoError(t, w.Finish(MinDoc))

	require.NoError(t, w.IndexField("body", MinDoc+1, newTokens("the", "lazy", "dog"), features, 1))
	require.NoError(t, w.StoreField("title", MinDoc+1, []byte("doc two")))
	require.NoError(t, w.Finish(MinDoc+1))

	meta, err := w.Flush(name)
	require.NoError(t, err)
	return meta
}

func TestReaderOpenAndLookupTerm(t *testing.T) {
	dir := store.NewRAMDirectory()
	meta := buildSegment(t, dir, "seg1")

	r, err := Open(dir, meta)
	require.NoError(t, err)
	defer r.Close()

	fr := r.Field("body")
	require.NotNil(t, fr)
	it, err := fr.Iterator()
	require.NoError(t, err)
	ok, err := it.Seek([]byte("the"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int64(2), it.Stats().DocFreq)

	require.Nil(t, r.Field("nonexistent"))
}

func TestReaderTermPostingsRoundTrip(t *testing.T) {
	dir := store.NewRAMDirectory()
	meta := buildSegment(t, dir, "seg1")

	r, err := Open(dir, meta)
	require.NoError(t, err)
	defer r.Close()

	fr := r.Field("body")
	require.NotNil(t, fr)
	it, err := fr.Iterator()
	require.NoError(t, err)
	ok, err := it.Seek([]byte("the"))
	require.NoError(t, err)
	require.True(t, ok)
	stats := it.Stats()
	require.Equal(t, int64(2), stats.DocFreq)

	pit, err := r.TermPostings(stats, postings.FeatureFreq|postings.FeaturePositions)
	require.NoError(t, err)

	doc, err := pit.Next()
	require.NoError(t, err)
	require.Equal(t, MinDoc, doc)
	require.Equal(t, int64(1), pit.Freq())

	doc, err = pit.Next()
	require.NoError(t, err)
	require.Equal(t, MinDoc+1, doc)
	require.Equal(t, int64(1), pit.Freq())

	_, err = pit.Next()
	require.ErrorIs(t, err, io.EOF)
}

func TestReaderValuesRoundTrip(t *testing.T) {
	dir := store.NewRAMDirectory()
	meta := buildSegment(t, dir, "seg1")

	r, err := Open(dir, meta)
	require.NoError(t, err)
	defer r.Close()

	values := r.Values("title")
	v, ok := values(MinDoc)
	require.True(t, ok)
	require.Equal(t, "doc one", string(v))
	v, ok = values(MinDoc + 1)
	require.True(t, ok)
	require.Equal(t, "doc two", string(v))
}

func TestReaderDocsIteratorSkipsDeleted(t *testing.T) {
	dir := store.NewRAMDirectory()
	w := NewWriter(dir, termdict.DefaultConfig())
	require.NoError(t, w.Reset("seg1"))
	features := postings.FeatureFreq
	for i := 0; i < 3; i++ {
		doc := MinDoc + uint32(i)
		require.NoError(t, w.IndexField("body", doc, newTokens("x"), features, 1))
		require.NoError(t, w.Finish(doc))
	}
	require.NoError(t, w.Remove(MinDoc + 1))
	meta, err := w.Flush("seg1")
	require.NoError(t, err)

	r, err := Open(dir, meta)
	require.NoError(t, err)
	defer r.Close()

	next := r.DocsIterator()
	var got []uint32
	for {
		doc, ok := next()
		if !ok {
			break
		}
		got = append(got, doc)
	}
	require.Equal(t, []uint32{MinDoc, MinDoc + 2}, got)
}

func TestReaderReopenSwapsState(t *testing.T) {
	dir := store.NewRAMDirectory()
	meta1 := buildSegment(t, dir, "seg1")
	require.Equal(t, int64(1), meta1.Version)

	r, err := Open(dir, meta1)
	require.NoError(t, err)
	defer r.Close()
	require.Equal(t, int64(2), r.DocsCount())

	// A second flush under the same segment name republishes "seg1" with
	// different content and, per nextVersion, a version one past meta1's.
	w := NewWriter(dir, termdict.DefaultConfig())
	require.NoError(t, w.Reset("seg1"))
	require.NoError(t, w.IndexField("body", MinDoc, newTokens("a"), postings.FeatureFreq, 1))
	require.NoError(t, w.Finish(MinDoc))
	meta2, err := w.Flush("seg1")
	require.NoError(t, err)
	require.Equal(t, int64(2), meta2.Version)

	require.NoError(t, r.Reopen(meta2))
	require.Equal(t, int64(1), r.DocsCount())
}

func TestReaderReopenSameVersionIsNoop(t *testing.T) {
	dir := store.NewRAMDirectory()
	meta := buildSegment(t, dir, "seg1")

	r, err := Open(dir, meta)
	require.NoError(t, err)
	defer r.Close()
	require.Equal(t, int64(2), r.DocsCount())

	require.NoError(t, r.Reopen(meta))
	require.Equal(t, int64(2), r.DocsCount())

	fr := r.Field("body")
	require.NotNil(t, fr)
}
