package postings

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSimpleWriterReaderRoundTrip(t *testing.T) {
	w := NewSimpleWriter(FeatureFreq)
	require.NoError(t, w.StartTerm())
	require.NoError(t, w.AddDoc(1, 2))
	require.NoError(t, w.AddDoc(5, 1))
	require.NoError(t, w.AddDoc(9, 3))

	var buf bytes.Buffer
	stats, err := w.FinishTerm(&buf)
	require.NoError(t, err)
	require.Equal(t, int64(3), stats.DocFreq)
	require.Equal(t, int64(6), stats.TotalFreq)

	r := NewSimpleReader(buf.Bytes())
	it, err := r.Iterator(stats, FeatureFreq)
	require.NoError(t, err)

	var docs []uint32
	var freqs []int64
	for {
		d, err := it.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		docs = append(docs, d)
		freqs = append(freqs, it.Freq())
	}
	require.Equal(t, []uint32{1, 5, 9}, docs)
	require.Equal(t, []int64{2, 1, 3}, freqs)
}

func TestSimpleWriterPositions(t *testing.T) {
	w := NewSimpleWriter(FeaturePositions)
	require.NoError(t, w.StartTerm())
	require.NoError(t, w.AddDoc(1, 2))
	require.NoError(t, w.AddPosition(0, 0, 5, nil))
	require.NoError(t, w.AddPosition(3, 10, 15, nil))

	var buf bytes.Buffer
	stats, err := w.FinishTerm(&buf)
	require.NoError(t, err)

	r := NewSimpleReader(buf.Bytes())
	it, err := r.Iterator(stats, FeaturePositions)
	require.NoError(t, err)
	_, err = it.Next()
	require.NoError(t, err)

	p1, err := it.NextPosition()
	require.NoError(t, err)
	require.Equal(t, int64(0), p1)
	p2, err := it.NextPosition()
	require.NoError(t, err)
	require.Equal(t, int64(3), p2)
}
