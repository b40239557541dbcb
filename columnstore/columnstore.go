// Package columnstore defines the per-document, per-column stored-value
// contract (the ".cs"/".csi" files of spec.md §6). Binary layout is
// treated as an opaque companion store: this package states the
// reader/writer interface a segment writer/reader needs, not a fixed
// byte format, per spec.md §1.
package columnstore

import "io"

// ColumnMeta describes one column's identity, as persisted in the
// ".csi" column-meta file. Column meta must be sorted ascending by Name
// once loaded (spec.md §4.3).
type ColumnMeta struct {
	Name string
	ID   int32
	// GranularityPrefix is carried opaquely: persisted in the column
	// directory and read back unchanged, never interpreted by this
	// package. Reserved for a future block-skipping granularity scheme;
	// set via ZstdWriter.SetGranularityPrefix.
	GranularityPrefix uint32
}

// Writer accepts column values for successive documents. Values for a
// given column must be written in ascending doc-id order, matching the
// segment writer's own ordering guarantee.
type Writer interface {
	// Column returns the stable id for name, allocating one on first use.
	// Insertion order defines the id, per spec.md §4.2.
	Column(name string) (int32, error)
	Write(columnID int32, docID uint32, value []byte) error
	// Finish flushes all buffered column data and the column-meta
	// (".csi") file, returning the persisted ColumnMeta in ascending
	// name order.
	Finish(data, meta io.Writer) ([]ColumnMeta, error)
}

// Values answers "has a stored value for this field and doc", the
// callable contract spec.md §4.3 assigns to SegmentReader.values. When no
// columnstore is present at all, a reader must hand back a no-op Values
// that always returns false rather than failing (spec.md §4.3 step 3).
type Values func(docID uint32) ([]byte, bool)

// Reader opens a previously flushed columnstore.
type Reader interface {
	// Prepare loads meta and binds data so Column can hand out per-column
	// Values readers.
	Prepare(data io.ReaderAt, dataLen int64, meta io.Reader) ([]ColumnMeta, error)
	Column(columnID int32) Values
}

// NoValues is the no-op Values returned when a segment has no
// columnstore at all.
func NoValues(docID uint32) ([]byte, bool) { return nil, false }
