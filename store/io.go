package store

import (
	"bufio"
	"errors"
	"io"
)

// bufferedOutput implements the common parts of IndexOutput over any
// io.Writer: internal buffering (default 1 KiB per spec.md §4.1) and a
// running CRC32-C. Concrete directories embed it and supply Close.
type bufferedOutput struct {
	w       *bufio.Writer
	table   *crc32Incremental
	written int64
}

func newBufferedOutput(w io.Writer, bufSize int) *bufferedOutput {
	if bufSize <= 0 {
		bufSize = 1024
	}
	return &bufferedOutput{
		w:     bufio.NewWriterSize(w, bufSize),
		table: newCRC32Incremental(),
	}
}

func (o *bufferedOutput) Write(p []byte) (int, error) {
	n, err := o.w.Write(p)
	o.table.update(p[:n])
	o.written += int64(n)
	return n, err
}

func (o *bufferedOutput) WriteByte(b byte) error {
	_, err := o.Write([]byte{b})
	return err
}

func (o *bufferedOutput) WriteUint32(v uint32) error {
	var b [4]byte
	b[0] = byte(v >> 24)
	b[1] = byte(v >> 16)
	b[2] = byte(v >> 8)
	b[3] = byte(v)
	_, err := o.Write(b[:])
	return err
}

func (o *bufferedOutput) WriteUint64(v uint64) error {
	var b [8]byte
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (56 - 8*i))
	}
	_, err := o.Write(b[:])
	return err
}

func (o *bufferedOutput) WriteVarint(v uint64) error {
	var b [10]byte
	n := putVarint(b[:], v)
	_, err := o.Write(b[:n])
	return err
}

func (o *bufferedOutput) WriteZigzag(v int64) error {
	return o.WriteVarint(zigzagEncode(v))
}

func (o *bufferedOutput) WriteFloat32(v float32) error {
	return o.WriteUint32(float32bitsLE(v))
}

func (o *bufferedOutput) WriteZVFloat(v float32) error {
	return o.WriteVarint(zvfloatEncode(v))
}

func (o *bufferedOutput) WriteString(s string) error {
	if err := o.WriteVarint(uint64(len(s))); err != nil {
		return err
	}
	_, err := o.Write([]byte(s))
	return err
}

func (o *bufferedOutput) Checksum() uint32 {
	if err := o.w.Flush(); err != nil {
		// Flush only fails if the underlying writer fails; callers learn
		// about that through the next Write/Close, Checksum itself has no
		// error return so we report the best value we have.
		return o.table.sum()
	}
	return o.table.sum()
}

func (o *bufferedOutput) FilePointer() int64 {
	return o.written
}

func (o *bufferedOutput) flush() error {
	return o.w.Flush()
}

// bufferedInput implements the common parts of IndexInput over any
// io.ReaderAt: a buffered read window plus checksum-by-range. Concrete
// directories embed it and supply Dup, Reopen and Close.
type bufferedInput struct {
	source io.ReaderAt
	length int64
	pos    int64

	buf      []byte
	bufStart int64
	bufLen   int
	bufSize  int
}

func newBufferedInput(source io.ReaderAt, length int64, bufSize int) *bufferedInput {
	if bufSize <= 0 {
		bufSize = 16 * 1024
	}
	return &bufferedInput{source: source, length: length, bufSize: bufSize}
}

func (in *bufferedInput) Length() int64      { return in.length }
func (in *bufferedInput) FilePointer() int64 { return in.pos }

func (in *bufferedInput) Seek(pos int64) error {
	if pos < 0 || pos > in.length {
		return ErrOutOfRange
	}
	in.pos = pos
	return nil
}

func (in *bufferedInput) fill() error {
	if in.pos >= in.bufStart && in.pos < in.bufStart+int64(in.bufLen) {
		return nil
	}
	if in.pos >= in.length {
		return ErrOutOfRange
	}
	if in.buf == nil {
		in.buf = make([]byte, in.bufSize)
	}
	want := in.bufSize
	if rem := in.length - in.pos; rem < int64(want) {
		want = int(rem)
	}
	n, err := in.source.ReadAt(in.buf[:want], in.pos)
	if n == 0 && err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	in.bufStart = in.pos
	in.bufLen = n
	return nil
}

func (in *bufferedInput) Read(p []byte) (int, error) {
	total := 0
	for total < len(p) {
		if err := in.fill(); err != nil {
			if total > 0 {
				return total, nil
			}
			return 0, err
		}
		off := int(in.pos - in.bufStart)
		n := copy(p[total:], in.buf[off:in.bufLen])
		in.pos += int64(n)
		total += n
		if n == 0 {
			break
		}
	}
	return total, nil
}

func (in *bufferedInput) ReadByte() (byte, error) {
	if err := in.fill(); err != nil {
		return 0, err
	}
	off := int(in.pos - in.bufStart)
	b := in.buf[off]
	in.pos++
	return b, nil
}

func (in *bufferedInput) readN(n int) ([]byte, error) {
	out := make([]byte, n)
	got, err := io.ReadFull(in, out)
	if got < n {
		if err == nil {
			err = ErrOutOfRange
		}
		return nil, err
	}
	return out, nil
}

func (in *bufferedInput) ReadUint32() (uint32, error) {
	b, err := in.readN(4)
	if err != nil {
		return 0, err
	}
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3]), nil
}

func (in *bufferedInput) ReadUint64() (uint64, error) {
	b, err := in.readN(8)
	if err != nil {
		return 0, err
	}
	var v uint64
	for i := 0; i < 8; i++ {
		v = v<<8 | uint64(b[i])
	}
	return v, nil
}

func (in *bufferedInput) ReadVarint() (uint64, error) {
	var v uint64
	var shift uint
	for {
		b, err := in.ReadByte()
		if err != nil {
			return 0, err
		}
		v |= uint64(b&0x7f) << shift
		if b < 0x80 {
			return v, nil
		}
		shift += 7
		if shift >= 70 {
			return 0, errors.New("store: varint too long")
		}
	}
}

func (in *bufferedInput) ReadZigzag() (int64, error) {
	v, err := in.ReadVarint()
	if err != nil {
		return 0, err
	}
	return zigzagDecode(v), nil
}

func (in *bufferedInput) ReadFloat32() (float32, error) {
	v, err := in.ReadUint32()
	if err != nil {
		return 0, err
	}
	return float32bitsToFloatLE(v), nil
}

func (in *bufferedInput) ReadZVFloat() (float32, error) {
	v, err := in.ReadVarint()
	if err != nil {
		return 0, err
	}
	return zvfloatDecode(v), nil
}

func (in *bufferedInput) ReadString() (string, error) {
	n, err := in.ReadVarint()
	if err != nil {
		return "", err
	}
	b, err := in.readN(int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (in *bufferedInput) Checksum(from, to int64) (uint32, error) {
	if from < 0 || to > in.length || from > to {
		return 0, ErrOutOfRange
	}
	h := NewCRC32C()
	buf := make([]byte, 64*1024)
	pos := from
	for pos < to {
		want := int64(len(buf))
		if to-pos < want {
			want = to - pos
		}
		n, err := in.source.ReadAt(buf[:want], pos)
		if n > 0 {
			h.Write(buf[:n])
			pos += int64(n)
		}
		if err != nil {
			if errors.Is(err, io.EOF) && pos >= to {
				break
			}
			if n == 0 {
				return 0, err
			}
		}
	}
	return h.Sum32(), nil
}
