package termdict

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFSTLookupAndFloorEntry(t *testing.T) {
	b := NewBuilder()
	b.Add(nil, 0)
	b.Add([]byte("a"), 10)
	b.Add([]byte("ap"), 20)
	b.Add([]byte("b"), 30)
	f := b.Build()

	out, ok := f.Lookup([]byte("ap"))
	require.True(t, ok)
	require.Equal(t, int64(20), out)

	_, ok = f.Lookup([]byte("apx"))
	require.False(t, ok)

	out, ok = f.FloorEntry([]byte("apple"))
	require.True(t, ok)
	require.Equal(t, int64(20), out)

	out, n, ok := f.FloorEntryPrefix([]byte("apple"))
	require.True(t, ok)
	require.Equal(t, int64(20), out)
	require.Equal(t, 2, n)

	out, n, ok = f.FloorEntryPrefix([]byte("banana"))
	require.True(t, ok)
	require.Equal(t, int64(30), out)
	require.Equal(t, 1, n)

	out, n, ok = f.FloorEntryPrefix([]byte("z"))
	require.True(t, ok)
	require.Equal(t, int64(0), out)
	require.Equal(t, 0, n)
}

type prefixMatcher struct {
	prefix []byte
}

func (m prefixMatcher) Start() int { return 0 }

func (m prefixMatcher) Step(state int, label byte) (int, bool) {
	if state >= len(m.prefix) {
		return state, true
	}
	if m.prefix[state] != label {
		return 0, false
	}
	return state + 1, true
}

func (m prefixMatcher) Accepting(state int) bool { return state >= len(m.prefix) }

func (m prefixMatcher) CanMatch(state int) bool { return true }

func TestFSTIntersect(t *testing.T) {
	b := NewBuilder()
	b.Add(nil, 0)
	b.Add([]byte("a"), 1)
	b.Add([]byte("ap"), 2)
	b.Add([]byte("apt"), 3)
	b.Add([]byte("b"), 4)
	f := b.Build()

	var keys []string
	Intersect(f, prefixMatcher{prefix: []byte("ap")}, func(key []byte, output int64) {
		keys = append(keys, string(key))
	})
	require.ElementsMatch(t, []string{"ap", "apt"}, keys)
}
