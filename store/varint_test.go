package store

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVarintRoundTrip(t *testing.T) {
	vals := []uint64{0, 1, 127, 128, 16383, 16384, math.MaxUint32, math.MaxUint64}
	for _, v := range vals {
		buf := make([]byte, 10)
		n := putVarint(buf, v)
		require.Equal(t, varintLen(v), n)

		in := newBufferedInput(&sliceReaderAt{buf[:n]}, int64(n), 0)
		got, err := in.ReadVarint()
		require.NoError(t, err)
		require.Equal(t, v, got)
	}
}

func TestZigzagRoundTrip(t *testing.T) {
	vals := []int64{0, -1, 1, -1000, 1000, math.MinInt64 + 1, math.MaxInt64}
	for _, v := range vals {
		require.Equal(t, v, zigzagDecode(zigzagEncode(v)))
	}
}

func TestZVFloatRoundTrip(t *testing.T) {
	vals := []float32{0, 1, 1.5, -1.5, 3.14159, -0.001}
	for _, v := range vals {
		require.Equal(t, v, zvfloatDecode(zvfloatEncode(v)))
	}
}

type sliceReaderAt struct{ b []byte }

func (s *sliceReaderAt) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(s.b)) {
		return 0, ErrOutOfRange
	}
	n := copy(p, s.b[off:])
	return n, nil
}
