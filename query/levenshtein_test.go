package query

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// referenceDistance computes plain (non-Damerau) Levenshtein distance
// over runes, independently of levAutomaton, as the ground truth
// spec.md §8 Testable Property 3 checks against.
func referenceDistance(a, b string) int {
	ar, br := []rune(a), []rune(b)
	prev := make([]int, len(br)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ar); i++ {
		cur := make([]int, len(br)+1)
		cur[0] = i
		for j := 1; j <= len(br); j++ {
			cost := 1
			if ar[i-1] == br[j-1] {
				cost = 0
			}
			best := prev[j-1] + cost
			if v := cur[j-1] + 1; v < best {
				best = v
			}
			if v := prev[j] + 1; v < best {
				best = v
			}
			cur[j] = best
		}
		prev = cur
	}
	return prev[len(br)]
}

// driveAutomaton feeds term's raw bytes through m one byte at a time,
// the same way termdict.FieldReader.VisitMatching does, and returns the
// automaton's reported distance, or ok=false if it was pruned before
// reaching the end.
func driveAutomaton(t *testing.T, a *levAutomaton, term string) (int, bool) {
	t.Helper()
	state := a.Start()
	for _, b := range []byte(term) {
		next, ok := a.Step(state, b)
		if !ok {
			return 0, false
		}
		state = next
	}
	if !a.Accepting(state) {
		return 0, false
	}
	return a.Distance(state), true
}

func TestLevenshteinDistanceMultiByteUTF8(t *testing.T) {
	cases := []struct {
		query, term string
	}{
		{"café", "cafe"},
		{"café", "café"},
		{"日本語", "日本語"},
		{"日本語", "日本後"},
		{"日本語", "日本"},
		{"naïve", "naive"},
		{"北京", "北京市"},
	}
	for _, c := range cases {
		want := referenceDistance(c.query, c.term)
		desc := &levenshteinDescription{maxEdits: maxSupportedEdits, transpositions: false}
		a := newLevAutomaton([]byte(c.query), desc)
		got, ok := driveAutomaton(t, a, c.term)
		require.True(t, ok, "query=%q term=%q", c.query, c.term)
		require.Equal(t, want, got, "query=%q term=%q", c.query, c.term)
	}
}

func TestLevenshteinQueryRuneCountMatchesCodepoints(t *testing.T) {
	desc := &levenshteinDescription{maxEdits: maxSupportedEdits, transpositions: false}
	a := newLevAutomaton([]byte("café"), desc)
	require.Equal(t, 4, len(a.query))
}
