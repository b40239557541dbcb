package store

import (
	"hash"
	"hash/crc32"
)

// castagnoliTable is computed once; spec.md mandates CRC32-C specifically
// (not the IEEE polynomial), matching the idiom hupe1980-vecgo's
// internal/hash/crc32c.go uses for its own segment checksums.
var castagnoliTable = crc32.MakeTable(crc32.Castagnoli)

// NewCRC32C returns a hash.Hash32 computing the Castagnoli CRC32 variant
// every on-disk file in this package trails its bytes with.
func NewCRC32C() hash.Hash32 {
	return crc32.New(castagnoliTable)
}

// ChecksumOf computes the CRC32-C of data in one call.
func ChecksumOf(data []byte) uint32 {
	return crc32.Checksum(data, castagnoliTable)
}

// Magic and format header shared by every segment file. Every file starts
// with magic(4) | format_id(u16) | version(u16) and ends with a trailing
// checksum(u32) over all preceding bytes, per spec.md §6.
const (
	fileMagic = uint32(0x52534551) // bytes "RSEQ" on disk (WriteUint32 is big-endian)
)

// WriteHeader writes the three-field file header shared by every on-disk
// format this engine defines.
func WriteHeader(out IndexOutput, formatID, version uint16) error {
	if err := out.WriteUint32(fileMagic); err != nil {
		return err
	}
	if err := out.WriteUint32(uint32(formatID)<<16 | uint32(version)); err != nil {
		return err
	}
	return nil
}

// ReadHeader reads and validates the file header, returning the format id
// and version found so the caller can dispatch / range-check them.
func ReadHeader(in IndexInput) (formatID, version uint16, err error) {
	magic, err := in.ReadUint32()
	if err != nil {
		return 0, 0, err
	}
	if magic != fileMagic {
		return 0, 0, ErrCorruptIndex
	}
	packed, err := in.ReadUint32()
	if err != nil {
		return 0, 0, err
	}
	return uint16(packed >> 16), uint16(packed), nil
}

// headerLen is the fixed byte length of WriteHeader's output.
const headerLen = 8

// trailerLen is the fixed byte length of the trailing checksum.
const trailerLen = 4

// WriteFooter appends the running checksum of everything written so far
// and returns it. Every writer of a segment file calls this exactly once,
// last.
func WriteFooter(out IndexOutput) (uint32, error) {
	sum := out.Checksum()
	if err := out.WriteUint32(sum); err != nil {
		return 0, err
	}
	return sum, nil
}

// VerifyFooter reads the trailing CRC32-C of in (whose current length must
// be known) and compares it against the checksum of every byte that
// precedes it. It restores the input's file pointer to 0 before returning.
func VerifyFooter(in IndexInput) error {
	length := in.Length()
	if length < trailerLen {
		return ErrChecksumMismatch
	}
	want, err := in.Checksum(0, length-trailerLen)
	if err != nil {
		return err
	}
	if err := in.Seek(length - trailerLen); err != nil {
		return err
	}
	got, err := in.ReadUint32()
	if err != nil {
		return err
	}
	if err := in.Seek(0); err != nil {
		return err
	}
	if got != want {
		return ErrChecksumMismatch
	}
	return nil
}
