package index

import (
	"fmt"

	"github.com/goedderz/iresearch/postings"
	"github.com/goedderz/iresearch/store"
)

// Features is the capability lattice a field's insertions draw from:
// presence of frequencies, positions, offsets, payloads, and a length
// norm (spec.md §3 "Field"). It reuses postings.Features for the
// postings-relevant bits and adds FeatureNorm for the one capability the
// postings codec itself doesn't carry.
type Features = postings.Features

const FeatureNorm Features = 1 << 7

// FieldMeta is one field's persisted identity: (name, id, features,
// norm_column_id?), the ".fm" file's per-field record (spec.md §6).
type FieldMeta struct {
	Name           string
	ID             int32
	Features       Features
	NormColumnID   int32 // -1 if the field carries no norm
	StoredColumnID int32 // -1 if the field carries no stored value
}

// FieldMetaSet is the segment-wide field directory, keyed by both name
// and id for the two lookup directions a reader needs.
type FieldMetaSet struct {
	byName map[string]*FieldMeta
	byID   []*FieldMeta
}

// NewFieldMetaSet returns an empty set.
func NewFieldMetaSet() *FieldMetaSet {
	return &FieldMetaSet{byName: make(map[string]*FieldMeta)}
}

// EnsureField returns name's FieldMeta, allocating one with the next id
// if this is the first time name is seen. Subsequent insertions widen
// features via union; the caller is responsible for checking the subset
// invariant before calling (spec.md §4.2 "Fails if features ⊄
// field.features").
func (s *FieldMetaSet) EnsureField(name string) *FieldMeta {
	if fm, ok := s.byName[name]; ok {
		return fm
	}
	fm := &FieldMeta{Name: name, ID: int32(len(s.byID)), NormColumnID: -1, StoredColumnID: -1}
	s.byName[name] = fm
	s.byID = append(s.byID, fm)
	return fm
}

func (s *FieldMetaSet) ByName(name string) (*FieldMeta, bool) {
	fm, ok := s.byName[name]
	return fm, ok
}

func (s *FieldMetaSet) ByID(id int32) (*FieldMeta, bool) {
	if id < 0 || int(id) >= len(s.byID) {
		return nil, false
	}
	return s.byID[id], true
}

func (s *FieldMetaSet) All() []*FieldMeta { return s.byID }

// WriteTo persists the field directory as the ".fm" file.
func (s *FieldMetaSet) WriteTo(out store.IndexOutput) error {
	if err := store.WriteHeader(out, fmFormatID, fmFormatVersion); err != nil {
		return err
	}
	if err := out.WriteVarint(uint64(len(s.byID))); err != nil {
		return err
	}
	for _, fm := range s.byID {
		if err := out.WriteString(fm.Name); err != nil {
			return err
		}
		if err := out.WriteVarint(uint64(fm.ID)); err != nil {
			return err
		}
		if err := out.WriteByte(byte(fm.Features)); err != nil {
			return err
		}
		if err := out.WriteZigzag(int64(fm.NormColumnID)); err != nil {
			return err
		}
	}
	_, err := store.WriteFooter(out)
	return err
}

const (
	fmFormatID      = 0x464d // "FM"
	fmFormatVersion = 1
)

// ReadFieldMetaSet reads back a ".fm" file written by WriteTo.
func ReadFieldMetaSet(in store.IndexInput) (*FieldMetaSet, error) {
	if err := store.VerifyFooter(in); err != nil {
		return nil, err
	}
	formatID, version, err := store.ReadHeader(in)
	if err != nil {
		return nil, err
	}
	if formatID != fmFormatID {
		return nil, fmt.Errorf("index: field-meta format id %#x: %w", formatID, store.ErrCorruptIndex)
	}
	if version != fmFormatVersion {
		return nil, fmt.Errorf("index: field-meta format version %d: %w", version, store.ErrNotSupported)
	}
	count, err := in.ReadVarint()
	if err != nil {
		return nil, err
	}
	s := NewFieldMetaSet()
	for i := uint64(0); i < count; i++ {
		name, err := in.ReadString()
		if err != nil {
			return nil, err
		}
		id, err := in.ReadVarint()
		if err != nil {
			return nil, err
		}
		features, err := in.ReadByte()
		if err != nil {
			return nil, err
		}
		normCol, err := in.ReadZigzag()
		if err != nil {
			return nil, err
		}
		fm := &FieldMeta{Name: name, ID: int32(id), Features: Features(features), NormColumnID: int32(normCol), StoredColumnID: -1}
		s.byName[name] = fm
		for int32(len(s.byID)) <= fm.ID {
			s.byID = append(s.byID, nil)
		}
		s.byID[fm.ID] = fm
	}
	return s, nil
}
