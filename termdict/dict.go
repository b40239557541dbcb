package termdict

import (
	"fmt"

	"github.com/goedderz/iresearch/store"
)

// formatID/version tag the on-disk ".ti" index file, per spec.md §6's
// shared file header.
const (
	FormatID      = 0x5449 // "TI"
	FormatVersion = 1
)

type fieldEntry struct {
	name  string
	stats FieldStats
	fst   *Builder
}

// DictWriter accumulates every field's FST and stats for one segment and
// flushes them as the segment's ".ti" file. Terms themselves (the ".tm"
// file) are written directly by each field's FieldWriter as it goes;
// DictWriter only owns the index side.
type DictWriter struct {
	entries []fieldEntry
}

// NewDictWriter returns an empty ".ti" writer.
func NewDictWriter() *DictWriter {
	return &DictWriter{}
}

// AddField records name's summary and FST builder for the final Finish
// call. Fields must be added in the order the caller wants them listed;
// spec.md does not require a particular field order in ".ti", unlike
// the columnstore's name-sorted ".csi".
func (w *DictWriter) AddField(name string, stats FieldStats, b *Builder) {
	w.entries = append(w.entries, fieldEntry{name: name, stats: stats, fst: b})
}

// Finish writes the header, one directory entry + FST per field, and the
// trailing checksum footer.
func (w *DictWriter) Finish(out store.IndexOutput) error {
	if err := store.WriteHeader(out, FormatID, FormatVersion); err != nil {
		return err
	}
	if err := out.WriteVarint(uint64(len(w.entries))); err != nil {
		return err
	}
	for _, e := range w.entries {
		if err := out.WriteString(e.name); err != nil {
			return err
		}
		if err := writeFieldStats(out, e.stats); err != nil {
			return err
		}
		if err := WriteFST(out, e.fst.Build()); err != nil {
			return err
		}
	}
	_, err := store.WriteFooter(out)
	return err
}

func writeFieldStats(out store.IndexOutput, s FieldStats) error {
	if err := out.WriteString(string(s.MinTerm)); err != nil {
		return err
	}
	if err := out.WriteString(string(s.MaxTerm)); err != nil {
		return err
	}
	if err := out.WriteVarint(uint64(s.TermsCount)); err != nil {
		return err
	}
	if err := out.WriteVarint(uint64(s.DocCount)); err != nil {
		return err
	}
	if err := out.WriteVarint(uint64(s.DocFreq)); err != nil {
		return err
	}
	if err := out.WriteVarint(uint64(s.TermFreq)); err != nil {
		return err
	}
	return out.WriteZigzag(s.RootOffset)
}

func readFieldStats(in store.IndexInput) (FieldStats, error) {
	var s FieldStats
	minTerm, err := in.ReadString()
	if err != nil {
		return s, err
	}
	maxTerm, err := in.ReadString()
	if err != nil {
		return s, err
	}
	termsCount, err := in.ReadVarint()
	if err != nil {
		return s, err
	}
	docCount, err := in.ReadVarint()
	if err != nil {
		return s, err
	}
	docFreq, err := in.ReadVarint()
	if err != nil {
		return s, err
	}
	termFreq, err := in.ReadVarint()
	if err != nil {
		return s, err
	}
	rootOffset, err := in.ReadZigzag()
	if err != nil {
		return s, err
	}
	s.MinTerm = []byte(minTerm)
	s.MaxTerm = []byte(maxTerm)
	s.TermsCount = int64(termsCount)
	s.DocCount = int64(docCount)
	s.DocFreq = int64(docFreq)
	s.TermFreq = int64(termFreq)
	s.RootOffset = rootOffset
	return s, nil
}

// Dictionary is a segment's opened term dictionary: every field's
// FieldReader, bound to the shared ".tm" terms stream.
type Dictionary struct {
	fields map[string]*FieldReader
	order  []string
}

// OpenDictionary reads ti (the ".ti" file) and binds every field's
// FieldReader to tm (the shared ".tm" file), per spec.md §4.5
// ("field_reader.prepare ... builds an in-memory per-field map").
func OpenDictionary(ti, tm store.IndexInput) (*Dictionary, error) {
	if err := store.VerifyFooter(ti); err != nil {
		return nil, err
	}
	formatID, version, err := store.ReadHeader(ti)
	if err != nil {
		return nil, err
	}
	if formatID != FormatID {
		return nil, fmt.Errorf("termdict: format id %#x: %w", formatID, store.ErrCorruptIndex)
	}
	if version != FormatVersion {
		return nil, fmt.Errorf("termdict: format version %d: %w", version, store.ErrNotSupported)
	}
	count, err := ti.ReadVarint()
	if err != nil {
		return nil, err
	}
	d := &Dictionary{fields: make(map[string]*FieldReader, count)}
	for i := uint64(0); i < count; i++ {
		name, err := ti.ReadString()
		if err != nil {
			return nil, err
		}
		stats, err := readFieldStats(ti)
		if err != nil {
			return nil, err
		}
		fst, err := ReadFST(ti)
		if err != nil {
			return nil, err
		}
		d.fields[name] = OpenFieldReader(tm, fst, stats)
		d.order = append(d.order, name)
	}
	return d, nil
}

// Field returns name's FieldReader, or nil if the field carries no
// terms in this segment.
func (d *Dictionary) Field(name string) *FieldReader {
	return d.fields[name]
}

// Fields returns every field name present, in the order they were added.
func (d *Dictionary) Fields() []string {
	return d.order
}
