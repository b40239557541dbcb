package store

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTrackingDirectorySwap(t *testing.T) {
	under := NewRAMDirectory()
	td := NewTrackingDirectory(under, false)

	writeSample(t, td, "a.seg")
	writeSample(t, td, "b.seg")

	tracked := td.SwapTracked()
	require.Len(t, tracked, 2)
	_, ok := tracked["a.seg"]
	require.True(t, ok)

	require.Empty(t, td.Tracked())
}

func TestRefTrackingDirectoryPreventsCleanup(t *testing.T) {
	under := NewRAMDirectory()
	refs := newFileRefs()
	rtd := NewRefTrackingDirectory(under, refs, false)

	writeSample(t, rtd, "live.seg")

	in, err := rtd.Open("live.seg", AdviceNormal)
	require.NoError(t, err)

	cleaner := NewCleaner(under, refs, nil)
	removed, err := cleaner.Clean(map[string]struct{}{})
	require.NoError(t, err)
	require.Empty(t, removed, "open file must not be collected while referenced")

	require.NoError(t, in.Close())

	removed, err = cleaner.Clean(map[string]struct{}{})
	require.NoError(t, err)
	require.Equal(t, []string{"live.seg"}, removed)
}

func TestCleanerKeepsLiveAndPublished(t *testing.T) {
	under := NewRAMDirectory()
	refs := newFileRefs()
	writeSample(t, under, "segments.live")
	writeSample(t, under, "segments.orphan")

	cleaner := NewCleaner(under, refs, nil)
	removed, err := cleaner.Clean(map[string]struct{}{"segments.live": {}})
	require.NoError(t, err)
	require.Equal(t, []string{"segments.orphan"}, removed)
	require.True(t, under.Exists("segments.live"))
	require.False(t, under.Exists("segments.orphan"))
}

func TestCleanerAcceptorVeto(t *testing.T) {
	under := NewRAMDirectory()
	refs := newFileRefs()
	writeSample(t, under, "keep-me.tmp")

	cleaner := NewCleaner(under, refs, func(name string) bool {
		return name == "keep-me.tmp"
	})
	removed, err := cleaner.Clean(map[string]struct{}{})
	require.NoError(t, err)
	require.Empty(t, removed)
	require.True(t, under.Exists("keep-me.tmp"))
}
