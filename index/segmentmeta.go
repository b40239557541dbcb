package index

import (
	"fmt"

	"github.com/goedderz/iresearch/store"
)

// CodecID identifies which concrete set of sub-writers/readers produced
// a segment, persisted so a reader can dispatch (spec.md §3's "reference
// to the codec used to write it"). It is a plain string, not a
// registration-glue lookup: format-version registration machinery is
// out of this engine's scope (spec.md §1).
const CodecID = "burst-trie+roaring+zstd-columns+v1"

// Meta is a segment's published identity: version, docs_count, the file
// set that must survive garbage collection, and the codec that wrote it
// (spec.md §3 "Segment", §6 ".sm").
type Meta struct {
	Name      string
	Version   int64
	DocsCount int64
	Files     []string
	Codec     string
}

const (
	smFormatID      = 0x534d // "SM"
	smFormatVersion = 1
)

// WriteTo persists m as the segment's ".sm" file.
func (m *Meta) WriteTo(out store.IndexOutput) error {
	if err := store.WriteHeader(out, smFormatID, smFormatVersion); err != nil {
		return err
	}
	if err := out.WriteString(m.Name); err != nil {
		return err
	}
	if err := out.WriteVarint(uint64(m.Version)); err != nil {
		return err
	}
	if err := out.WriteVarint(uint64(m.DocsCount)); err != nil {
		return err
	}
	if err := out.WriteVarint(uint64(len(m.Files))); err != nil {
		return err
	}
	for _, f := range m.Files {
		if err := out.WriteString(f); err != nil {
			return err
		}
	}
	if err := out.WriteString(m.Codec); err != nil {
		return err
	}
	_, err := store.WriteFooter(out)
	return err
}

// ReadMeta reads back a ".sm" file written by WriteTo.
func ReadMeta(in store.IndexInput) (*Meta, error) {
	if err := store.VerifyFooter(in); err != nil {
		return nil, err
	}
	formatID, version, err := store.ReadHeader(in)
	if err != nil {
		return nil, err
	}
	if formatID != smFormatID {
		return nil, fmt.Errorf("index: segment-meta format id %#x: %w", formatID, store.ErrCorruptIndex)
	}
	if version != smFormatVersion {
		return nil, fmt.Errorf("index: segment-meta format version %d: %w", version, store.ErrNotSupported)
	}
	m := &Meta{}
	if m.Name, err = in.ReadString(); err != nil {
		return nil, err
	}
	v, err := in.ReadVarint()
	if err != nil {
		return nil, err
	}
	m.Version = int64(v)
	dc, err := in.ReadVarint()
	if err != nil {
		return nil, err
	}
	m.DocsCount = int64(dc)
	n, err := in.ReadVarint()
	if err != nil {
		return nil, err
	}
	m.Files = make([]string, n)
	for i := range m.Files {
		if m.Files[i], err = in.ReadString(); err != nil {
			return nil, err
		}
	}
	if m.Codec, err = in.ReadString(); err != nil {
		return nil, err
	}
	return m, nil
}
