package termdict

import (
	"sort"
	"testing"

	"github.com/goedderz/iresearch/postings"
	"github.com/goedderz/iresearch/store"
	"github.com/stretchr/testify/require"
)

func buildDict(t *testing.T, terms []string) (*Dictionary, store.Directory, func()) {
	t.Helper()
	dir := store.NewRAMDirectory()

	tmOut, err := dir.Create("a.tm")
	require.NoError(t, err)
	fw, err := NewFieldWriter(tmOut, DefaultConfig())
	require.NoError(t, err)
	for i, term := range terms {
		stats := postings.Stats{DocFreq: 1, TotalFreq: int64(i + 1)}
		require.NoError(t, fw.AddTerm([]byte(term), stats, 1))
	}
	b := NewBuilder()
	fieldStats, err := fw.Finish(b)
	require.NoError(t, err)
	require.NoError(t, tmOut.Close())

	tiOut, err := dir.Create("a.ti")
	require.NoError(t, err)
	dw := NewDictWriter()
	dw.AddField("f", fieldStats, b)
	require.NoError(t, dw.Finish(tiOut))
	require.NoError(t, tiOut.Close())

	tm, err := dir.Open("a.tm", store.AdviceNormal)
	require.NoError(t, err)
	ti, err := dir.Open("a.ti", store.AdviceNormal)
	require.NoError(t, err)

	dict, err := OpenDictionary(ti, tm)
	require.NoError(t, err)
	return dict, dir, func() { tm.Close(); ti.Close() }
}

func sortedTerms(terms []string) []string {
	out := append([]string(nil), terms...)
	sort.Strings(out)
	return out
}

func TestTermDictIteratorVisitsAllInOrder(t *testing.T) {
	terms := []string{"apple", "apricot", "avocado", "banana", "berry", "blueberry", "cherry"}
	dict, _, closeFn := buildDict(t, sortedTerms(terms))
	defer closeFn()

	fr := dict.Field("f")
	require.NotNil(t, fr)
	require.Equal(t, "apple", string(fr.Stats.MinTerm))
	require.Equal(t, "cherry", string(fr.Stats.MaxTerm))

	it, err := fr.Iterator()
	require.NoError(t, err)

	var got []string
	for {
		ok, err := it.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		got = append(got, string(it.Term()))
	}
	require.Equal(t, sortedTerms(terms), got)
}

func TestTermDictSeekExact(t *testing.T) {
	terms := sortedTerms([]string{"apple", "apricot", "avocado", "banana", "berry", "blueberry", "cherry"})
	dict, _, closeFn := buildDict(t, terms)
	defer closeFn()

	fr := dict.Field("f")
	it, err := fr.Iterator()
	require.NoError(t, err)

	for _, term := range terms {
		ok, err := it.Seek([]byte(term))
		require.NoError(t, err)
		require.True(t, ok, "expected to find %q", term)
		require.Equal(t, term, string(it.Term()))
	}

	ok, err := it.Seek([]byte("missing"))
	require.NoError(t, err)
	require.False(t, ok)
}

func TestTermDictSeekGE(t *testing.T) {
	terms := sortedTerms([]string{"apple", "apricot", "avocado", "banana", "berry", "blueberry", "cherry"})
	dict, _, closeFn := buildDict(t, terms)
	defer closeFn()

	fr := dict.Field("f")

	cases := []struct {
		seek, want string
		found      bool
	}{
		{"a", "apple", true},
		{"apple", "apple", true},
		{"apq", "apricot", true},
		{"bz", "cherry", true},
		{"cherry", "cherry", true},
		{"d", "", false},
	}
	for _, c := range cases {
		it, err := fr.Iterator()
		require.NoError(t, err)
		ok, err := it.SeekGE([]byte(c.seek))
		require.NoError(t, err)
		require.Equal(t, c.found, ok, "seek_ge(%q)", c.seek)
		if c.found {
			require.Equal(t, c.want, string(it.Term()), "seek_ge(%q)", c.seek)
		}
	}
}

func TestTermDictCookieResume(t *testing.T) {
	terms := sortedTerms([]string{"apple", "apricot", "avocado", "banana", "berry"})
	dict, _, closeFn := buildDict(t, terms)
	defer closeFn()

	fr := dict.Field("f")
	it, err := fr.Iterator()
	require.NoError(t, err)
	ok, err := it.Seek([]byte("apricot"))
	require.NoError(t, err)
	require.True(t, ok)
	cookie := it.Cookie()
	require.Equal(t, "apricot", string(cookie.Term))

	it2, err := fr.Iterator()
	require.NoError(t, err)
	require.NoError(t, it2.SeekCookie(cookie))
	require.Equal(t, "apricot", string(it2.Term()))

	ok, err = it2.Next()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "avocado", string(it2.Term()))
}

func TestTermDictFloorBlockSplit(t *testing.T) {
	// 120 single-byte terms means 120 distinct next-byte runs of
	// length 1 at the root level: none of them individually exceeds
	// MaxBlockSize (48), so none recurses into a child block, but their
	// sum does — this is the shape that only a floor-block split (not
	// the recursive-by-label path) can bound. floorChunks cuts it into
	// 48 + 72 entries, a two-block floor chain.
	var terms []string
	for i := 0; i < 120; i++ {
		terms = append(terms, string([]byte{byte(0x01 + i)})) // distinct single bytes
	}
	sorted := sortedTerms(terms)
	dict, _, closeFn := buildDict(t, sorted)
	defer closeFn()

	fr := dict.Field("f")
	require.Equal(t, int64(len(sorted)), fr.Stats.TermsCount)

	it, err := fr.Iterator()
	require.NoError(t, err)
	var got []string
	for {
		ok, err := it.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		got = append(got, string(it.Term()))
	}
	require.Equal(t, sorted, got)

	it2, err := fr.Iterator()
	require.NoError(t, err)
	for _, term := range sorted {
		ok, err := it2.Seek([]byte(term))
		require.NoError(t, err)
		require.True(t, ok, "expected to find %q", term)
	}
}

func TestTermDictManyTermsRoundTrip(t *testing.T) {
	var terms []string
	for _, w := range []string{"a", "b", "c", "d"} {
		for i := 0; i < 60; i++ {
			terms = append(terms, w+string(rune('a'+i%26))+string(rune('a'+(i/26)%26)))
		}
	}
	unique := map[string]struct{}{}
	var uniqTerms []string
	for _, t := range terms {
		if _, ok := unique[t]; !ok {
			unique[t] = struct{}{}
			uniqTerms = append(uniqTerms, t)
		}
	}
	sorted := sortedTerms(uniqTerms)

	dict, _, closeFn := buildDict(t, sorted)
	defer closeFn()
	fr := dict.Field("f")
	require.Equal(t, int64(len(sorted)), fr.Stats.TermsCount)

	it, err := fr.Iterator()
	require.NoError(t, err)
	var got []string
	for {
		ok, err := it.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		got = append(got, string(it.Term()))
	}
	require.Equal(t, sorted, got)
}
