package index

import (
	"fmt"
	"io"
	"sync/atomic"

	"github.com/goedderz/iresearch"
	"github.com/goedderz/iresearch/columnstore"
	"github.com/goedderz/iresearch/postings"
	"github.com/goedderz/iresearch/store"
	"github.com/goedderz/iresearch/termdict"
)

var log = iresearch.Logger("index")

// segmentState is everything a published segment needs to answer
// queries. Reader swaps this pointer atomically on Reopen so readers
// already mid-query keep working against the state they started with
// (spec.md §4.3, §5 "readers observe either the old or the new state,
// never a mix").
type segmentState struct {
	meta   *Meta
	fields *FieldMetaSet
	dict   *termdict.Dictionary
	cols   *columnstore.ZstdReader
	mask   *DocMask
	post   []byte

	tiIn, tmIn, csIn, postIn store.IndexInput
}

// Reader opens a published segment for query execution. Grounded on
// golucene's SegmentReader (open/decRef/close over per-format
// sub-readers), reworked around this engine's own file set.
type Reader struct {
	dir   store.Directory
	state atomic.Pointer[segmentState]
}

// Open loads a segment's field meta, term dictionary, columnstore and
// doc mask, in the fixed order spec.md §4.3 describes.
func Open(dir store.Directory, meta *Meta) (*Reader, error) {
	r := &Reader{dir: dir}
	st, err := loadSegmentState(dir, meta)
	if err != nil {
		log.Warn("index: failed to open segment", "segment", meta.Name, "error", err)
		return nil, err
	}
	r.state.Store(st)
	return r, nil
}

func loadSegmentState(dir store.Directory, meta *Meta) (*segmentState, error) {
	fmIn, err := dir.Open(meta.Name+".fm", store.AdviceNormal)
	if err != nil {
		return nil, fmt.Errorf("index: opening field meta: %w", err)
	}
	fields, err := ReadFieldMetaSet(fmIn)
	if err != nil {
		return nil, err
	}

	tiIn, err := dir.Open(meta.Name+".ti", store.AdviceNormal)
	if err != nil {
		return nil, fmt.Errorf("index: opening term index: %w", err)
	}
	tmIn, err := dir.Open(meta.Name+".tm", store.AdviceRandom)
	if err != nil {
		return nil, fmt.Errorf("index: opening term blocks: %w", err)
	}
	dict, err := termdict.OpenDictionary(tiIn, tmIn)
	if err != nil {
		return nil, err
	}

	postIn, err := dir.Open(meta.Name+".doc", store.AdviceSequential)
	if err != nil {
		return nil, fmt.Errorf("index: opening postings: %w", err)
	}
	post, err := io.ReadAll(postIn)
	if err != nil {
		return nil, err
	}

	csIn, err := dir.Open(meta.Name+".cs", store.AdviceRandom)
	if err != nil {
		return nil, fmt.Errorf("index: opening columnstore data: %w", err)
	}
	csLen, err := dir.Length(meta.Name + ".cs")
	if err != nil {
		return nil, err
	}
	csMetaIn, err := dir.Open(meta.Name+".csi", store.AdviceNormal)
	if err != nil {
		return nil, fmt.Errorf("index: opening columnstore meta: %w", err)
	}
	cols := columnstore.NewZstdReader()
	if colMetas, err := cols.Prepare(csIn, csLen, csMetaIn); err != nil {
		// spec.md §4.3 step 3: a columnstore that fails to prepare opens
		// the reader in "no columnstore" mode instead of failing Open
		// outright — every Column lookup falls back to columnstore.NoValues.
		log.Warn("index: columnstore prepare failed, opening in no-columnstore mode", "segment", meta.Name, "error", err)
		_ = csIn.Close()
		_ = csMetaIn.Close()
		csIn = nil
		cols = nil
	} else {
		_ = csMetaIn.Close()
		// .fm does not carry stored-value column ids; recover them from
		// the "$field:<name>" columns the writer's StoreField allocates.
		const storedPrefix = "$field:"
		for _, cm := range colMetas {
			if len(cm.Name) > len(storedPrefix) && cm.Name[:len(storedPrefix)] == storedPrefix {
				if fm, ok := fields.ByName(cm.Name[len(storedPrefix):]); ok {
					fm.StoredColumnID = cm.ID
				}
			}
		}
	}

	var mask *DocMask
	if dir.Exists(meta.Name + ".doc_mask") {
		maskIn, err := dir.Open(meta.Name+".doc_mask", store.AdviceSequential)
		if err != nil {
			return nil, fmt.Errorf("index: opening doc mask: %w", err)
		}
		mask, err = ReadDocMask(maskIn)
		if err != nil {
			return nil, err
		}
		_ = maskIn.Close()
	} else {
		mask = NewDocMask()
	}

	return &segmentState{
		meta:   meta,
		fields: fields,
		dict:   dict,
		cols:   cols,
		mask:   mask,
		post:   post,
		tiIn:   tiIn,
		tmIn:   tmIn,
		csIn:   csIn,
		postIn: postIn,
	}, nil
}

// Meta returns the currently published segment metadata.
func (r *Reader) Meta() *Meta { return r.state.Load().meta }

// Field returns name's term dictionary reader, or nil if name was never
// indexed in this segment.
func (r *Reader) Field(name string) *termdict.FieldReader {
	return r.state.Load().dict.Field(name)
}

// FieldMeta returns name's persisted field identity.
func (r *Reader) FieldMeta(name string) (*FieldMeta, bool) {
	return r.state.Load().fields.ByName(name)
}

// Column returns fieldID's stored-value or norm lookup, per whichever
// column id the caller supplies (FieldMeta.StoredColumnID or
// .NormColumnID). Unset column ids (< 0) resolve to NoValues.
func (r *Reader) Column(columnID int32) columnstore.Values {
	if columnID < 0 {
		return columnstore.NoValues
	}
	st := r.state.Load()
	if st.cols == nil {
		return columnstore.NoValues
	}
	return st.cols.Column(columnID)
}

// TermPostings slices stats' blob out of the segment's postings stream
// and returns an iterator over it. stats normally comes straight from a
// term dictionary lookup (FieldReader.Iterator().Seek or VisitMatching),
// so its BlobOffset/BlobLength already address this same segment.
func (r *Reader) TermPostings(stats postings.Stats, features postings.Features) (postings.Iterator, error) {
	st := r.state.Load()
	end := stats.BlobOffset + stats.BlobLength
	if stats.BlobOffset < 0 || end > int64(len(st.post)) {
		return nil, fmt.Errorf("index: postings blob [%d,%d) out of range (len %d)", stats.BlobOffset, end, len(st.post))
	}
	blob := st.post[stats.BlobOffset:end]
	return postings.NewSimpleReader(blob).Iterator(stats, features)
}

// Values returns fieldName's stored-field lookup.
func (r *Reader) Values(fieldName string) columnstore.Values {
	fm, ok := r.FieldMeta(fieldName)
	if !ok {
		return columnstore.NoValues
	}
	return r.Column(fm.StoredColumnID)
}

// IsDeleted reports whether docID has been removed from this segment.
func (r *Reader) IsDeleted(docID uint32) bool {
	return r.state.Load().mask.Contains(docID)
}

// DocsCount is the segment's total document count, including deletions.
func (r *Reader) DocsCount() int64 { return r.state.Load().meta.DocsCount }

// DocsIterator visits every live (non-deleted) doc id in the segment in
// ascending order.
func (r *Reader) DocsIterator() func() (uint32, bool) {
	st := r.state.Load()
	next := MinDoc
	last := MinDoc + uint32(st.meta.DocsCount)
	return func() (uint32, bool) {
		for next < last {
			doc := next
			next++
			if !st.mask.Contains(doc) {
				return doc, true
			}
		}
		return 0, false
	}
}

// Reopen atomically swaps in a freshly loaded state for newMeta, leaving
// any in-flight query against the previous state unaffected (it keeps
// its own segmentState pointer until it finishes). The old sub-readers
// are closed once swapped out. If newMeta carries the same version the
// reader already has open, Reopen is a no-op (spec.md:150 "returns
// *this unchanged if new_meta.version == current.version"): reopening
// and closing unconditionally would tear down file handles — including
// tmIn, which live termdict.FieldReader/Iterator values still hold a
// reference to — out from under any in-flight query that grabbed them
// before this call, even though nothing actually changed.
func (r *Reader) Reopen(newMeta *Meta) error {
	if cur := r.state.Load(); cur != nil && cur.meta.Version == newMeta.Version {
		return nil
	}
	st, err := loadSegmentState(r.dir, newMeta)
	if err != nil {
		log.Warn("index: failed to reopen segment", "segment", newMeta.Name, "error", err)
		return err
	}
	old := r.state.Swap(st)
	if old != nil {
		closeSegmentState(old)
	}
	return nil
}

// Close releases the currently published state's file handles.
func (r *Reader) Close() error {
	st := r.state.Load()
	if st == nil {
		return nil
	}
	closeSegmentState(st)
	return nil
}

func closeSegmentState(st *segmentState) {
	_ = st.tiIn.Close()
	_ = st.tmIn.Close()
	if st.csIn != nil {
		_ = st.csIn.Close()
	}
	_ = st.postIn.Close()
}
