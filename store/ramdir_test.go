package store

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func writeSample(t *testing.T, dir Directory, name string) {
	t.Helper()
	out, err := dir.Create(name)
	require.NoError(t, err)
	require.NoError(t, WriteHeader(out, 1, 0))
	require.NoError(t, out.WriteString("hello"))
	require.NoError(t, out.WriteVarint(12345))
	require.NoError(t, out.WriteZigzag(-7))
	require.NoError(t, out.WriteFloat32(1.5))
	_, err = WriteFooter(out)
	require.NoError(t, err)
	require.NoError(t, out.Close())
}

func readSample(t *testing.T, dir Directory, name string) {
	t.Helper()
	in, err := dir.Open(name, AdviceNormal)
	require.NoError(t, err)
	defer in.Close()

	require.NoError(t, VerifyFooter(in))

	formatID, version, err := ReadHeader(in)
	require.NoError(t, err)
	require.Equal(t, uint16(1), formatID)
	require.Equal(t, uint16(0), version)

	s, err := in.ReadString()
	require.NoError(t, err)
	require.Equal(t, "hello", s)

	v, err := in.ReadVarint()
	require.NoError(t, err)
	require.Equal(t, uint64(12345), v)

	z, err := in.ReadZigzag()
	require.NoError(t, err)
	require.Equal(t, int64(-7), z)

	f, err := in.ReadFloat32()
	require.NoError(t, err)
	require.Equal(t, float32(1.5), f)
}

func TestRAMDirectoryRoundTrip(t *testing.T) {
	dir := NewRAMDirectory()
	writeSample(t, dir, "a.seg")
	require.True(t, dir.Exists("a.seg"))
	readSample(t, dir, "a.seg")
}

func TestRAMDirectoryRemoveRename(t *testing.T) {
	dir := NewRAMDirectory()
	writeSample(t, dir, "a.seg")

	require.NoError(t, dir.Rename("a.seg", "b.seg"))
	require.False(t, dir.Exists("a.seg"))
	require.True(t, dir.Exists("b.seg"))

	require.NoError(t, dir.Remove("b.seg"))
	require.False(t, dir.Exists("b.seg"))
	require.ErrorIs(t, dir.Remove("b.seg"), ErrNotFound)
}

func TestRAMDirectoryLock(t *testing.T) {
	dir := NewRAMDirectory()
	l1 := dir.MakeLock("write.lock")
	l2 := dir.MakeLock("write.lock")

	require.NoError(t, l1.Lock())
	require.True(t, l1.IsLocked())
	require.ErrorIs(t, l2.Lock(), ErrLockHeld)

	require.NoError(t, l1.Unlock())
	require.NoError(t, l2.Lock())
	require.NoError(t, l2.Unlock())
}

func TestRAMDirectoryDupReopen(t *testing.T) {
	dir := NewRAMDirectory()
	writeSample(t, dir, "a.seg")

	in, err := dir.Open("a.seg", AdviceNormal)
	require.NoError(t, err)
	defer in.Close()

	require.NoError(t, in.Seek(headerLen))
	dup, err := in.Dup()
	require.NoError(t, err)
	defer dup.Close()

	s, err := dup.ReadString()
	require.NoError(t, err)
	require.Equal(t, "hello", s)

	reopened, err := in.Reopen()
	require.NoError(t, err)
	defer reopened.Close()
	require.Equal(t, in.Length(), reopened.Length())
}

func TestCorruptFooterDetected(t *testing.T) {
	dir := NewRAMDirectory()
	writeSample(t, dir, "a.seg")

	length, err := dir.Length("a.seg")
	require.NoError(t, err)

	in, err := dir.Open("a.seg", AdviceNormal)
	require.NoError(t, err)
	defer in.Close()
	_ = length

	// Corrupt the underlying bytes by overwriting the file with a flipped
	// last byte, simulating on-disk bitrot.
	raw := dir.files["a.seg"].data
	corrupted := make([]byte, len(raw))
	copy(corrupted, raw)
	corrupted[len(corrupted)-1] ^= 0xFF
	dir.files["a.seg"] = &ramFile{data: corrupted}

	in2, err := dir.Open("a.seg", AdviceNormal)
	require.NoError(t, err)
	defer in2.Close()
	require.ErrorIs(t, VerifyFooter(in2), ErrChecksumMismatch)
}
