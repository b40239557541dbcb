// Package store implements the byte-addressable storage backend that
// physically holds segment files. It provides three interchangeable
// Directory implementations (in-memory, filesystem, memory-mapped) behind
// a single contract, plus the buffered, checksummed read/write streams and
// the advisory whole-directory lock that the segment writer and reader
// build on.
package store

import (
	"errors"
	"io"
)

// Advice hints how a caller intends to read an opened input, so the
// Directory implementation can size its buffering accordingly.
type Advice int

const (
	AdviceNormal Advice = iota
	AdviceSequential
	AdviceRandom
	AdviceReadOnce
	AdviceReadOnceSequential
	AdviceReadOnceRandom
)

func (a Advice) readOnce() bool {
	return a == AdviceReadOnce || a == AdviceReadOnceSequential || a == AdviceReadOnceRandom
}

func (a Advice) bufferSize() int {
	switch a {
	case AdviceSequential, AdviceReadOnceSequential:
		return 64 * 1024
	case AdviceRandom, AdviceReadOnceRandom:
		return 4 * 1024
	default:
		return 16 * 1024
	}
}

var (
	// ErrAlreadyExists reports a name that is already present. No Create
	// in this package returns it: creating an existing name replaces it.
	ErrAlreadyExists = errors.New("store: file already exists")
	// ErrNotFound is returned when name does not name an existing file.
	ErrNotFound = errors.New("store: file not found")
	// ErrOutOfRange is returned by a read that runs past EOF or a seek
	// before the start of the stream.
	ErrOutOfRange = errors.New("store: read out of range")
	// ErrChecksumMismatch is returned when a trailing CRC32-C does not
	// match the bytes that precede it.
	ErrChecksumMismatch = errors.New("store: checksum mismatch")
	// ErrLockHeld is returned by Lock.Lock when the directory is already
	// locked, including by the current holder re-entering.
	ErrLockHeld = errors.New("store: lock already held")
	ErrClosed   = errors.New("store: directory is closed")
	// ErrCorruptIndex is returned when a file's bytes are well-formed
	// enough to read but semantically inconsistent: a format/version tag
	// that doesn't match what the reading code expects, a count that
	// disagrees with the bytes that follow it, terms out of sorted order.
	ErrCorruptIndex = errors.New("store: corrupt index data")
	// ErrNotSupported is returned for a recognized but unhandled format
	// variant, such as a codec or feature flag newer than this build
	// knows how to read.
	ErrNotSupported = errors.New("store: unsupported format")
)

// Directory is a namespace of named byte blobs. All three concrete
// variants (RAMDirectory, FSDirectory, MMapDirectory) present this exact
// contract, so a SegmentWriter/SegmentReader never needs to know which one
// it was handed.
type Directory interface {
	// Create returns a write-only, append-only stream for a new file.
	// RAMDirectory publishes the file when the returned stream is closed.
	// FSDirectory and MMapDirectory create it on disk under its final name
	// at once, so Exists and Open see it, with whatever bytes have been
	// flushed so far, before the stream is closed.
	Create(name string) (IndexOutput, error)
	// Open returns a random-access read stream over an existing file.
	Open(name string, advice Advice) (IndexInput, error)
	Exists(name string) bool
	Length(name string) (int64, error)
	Mtime(name string) (int64, error)
	Remove(name string) error
	// Rename is best-effort atomic at filesystem granularity.
	Rename(oldName, newName string) error
	// Sync durably persists the named file's bytes.
	Sync(name string) error
	// Visit calls f once per file name currently present. Order is
	// unspecified.
	Visit(f func(name string) error) error
	// MakeLock returns a scoped advisory lock over the whole directory.
	MakeLock(name string) Lock
	Close() error
}

// IndexOutput is the write-stream contract: internally buffered, CRC32-C
// checksummed, and guaranteed to make all previously written bytes visible
// once Close returns.
type IndexOutput interface {
	io.Writer
	WriteByte(b byte) error
	WriteUint32(v uint32) error
	WriteUint64(v uint64) error
	WriteVarint(v uint64) error
	WriteZigzag(v int64) error
	WriteFloat32(v float32) error
	WriteZVFloat(v float32) error
	WriteString(s string) error
	// Checksum returns the running CRC32-C of everything written so far.
	Checksum() uint32
	FilePointer() int64
	Close() error
}

// IndexInput is the read-stream contract. Reading past EOF fails with
// ErrOutOfRange.
type IndexInput interface {
	io.Reader
	io.ReaderAt
	ReadByte() (byte, error)
	ReadUint32() (uint32, error)
	ReadUint64() (uint64, error)
	ReadVarint() (uint64, error)
	ReadZigzag() (int64, error)
	ReadFloat32() (float32, error)
	ReadZVFloat() (float32, error)
	ReadString() (string, error)
	Seek(pos int64) error
	Length() int64
	FilePointer() int64
	// Checksum computes the CRC32-C of the byte range [from, to) without
	// disturbing the input's current position.
	Checksum(from, to int64) (uint32, error)
	// Dup returns an independent cursor sharing the underlying file
	// handle; cheap, but not safe to use concurrently with the original.
	Dup() (IndexInput, error)
	// Reopen returns an independent cursor backed by its own pooled OS
	// handle, safe to use concurrently with the original.
	Reopen() (IndexInput, error)
	Close() error
}
