package index

import (
	"fmt"
	"math"
	"sort"

	"github.com/goedderz/iresearch/analysis"
	"github.com/goedderz/iresearch/columnstore"
	"github.com/goedderz/iresearch/metrics"
	"github.com/goedderz/iresearch/postings"
	"github.com/goedderz/iresearch/store"
	"github.com/goedderz/iresearch/termdict"
)

type occurrence struct {
	doc       uint32
	freq      int64
	positions []postingPos
}

type postingPos struct {
	pos              int64
	startOff, endOff int64
	payload          []byte
}

// fieldInverter accumulates one field's in-progress postings across the
// whole in-memory segment, keyed by term. Terms are sorted only at
// flush time, mirroring the burst-trie writer's own "terms arrive
// sorted" contract (spec.md §4.4 step 1).
type fieldInverter struct {
	features postings.Features
	terms    map[string]*occList
}

type occList struct {
	occs []occurrence
}

func newFieldInverter(features postings.Features) *fieldInverter {
	return &fieldInverter{features: features, terms: make(map[string]*occList)}
}

// Writer accumulates documents in RAM and flushes them as one immutable
// segment. Grounded on golucene's DocumentsWriter/DefaultIndexingChain
// shape (per-field inverter maps, finalize-on-doc-boundary), expressed
// with explicit error returns instead of the teacher's closure-based
// chain.
type Writer struct {
	dir      store.Directory
	tracking *store.TrackingDirectory
	cfg      termdict.Config

	name      string
	fields    *FieldMetaSet
	inverters map[string]*fieldInverter
	cols      *columnstore.ZstdWriter

	docsCount int64
	mask      *DocMask

	curDoc        uint32
	curOpen       bool
	curFieldLen   map[string]int
	curBoost      map[string]float32
	curNormFields map[string]bool
}

// NewWriter returns a Writer over dir, configured with cfg for the
// burst-trie term dictionary it will eventually flush.
func NewWriter(dir store.Directory, cfg termdict.Config) *Writer {
	return &Writer{dir: dir, cfg: cfg}
}

// Reset starts a new segment named name, per spec.md §4.2.
func (w *Writer) Reset(name string) error {
	w.name = name
	w.tracking = store.NewTrackingDirectory(w.dir, false)
	w.fields = NewFieldMetaSet()
	w.inverters = make(map[string]*fieldInverter)
	w.cols = columnstore.NewZstdWriter()
	w.docsCount = 0
	w.mask = NewDocMask()
	w.curOpen = false
	return nil
}

func (w *Writer) beginDocIfNeeded(docID uint32) error {
	if w.curOpen {
		if docID != w.curDoc {
			return fmt.Errorf("index: doc %d opened while doc %d is still open, finish it first", docID, w.curDoc)
		}
		return nil
	}
	expected := MinDoc + uint32(w.docsCount)
	if docID != expected {
		return fmt.Errorf("index: doc %d is out of order, expected %d", docID, expected)
	}
	w.curDoc = docID
	w.curOpen = true
	w.curFieldLen = make(map[string]int)
	w.curBoost = make(map[string]float32)
	w.curNormFields = make(map[string]bool)
	return nil
}

// IndexField appends a field occurrence to the current document. features
// must be a subset of the field's accumulated feature set once unioned
// in (spec.md §4.2 "subset rule").
func (w *Writer) IndexField(name string, docID uint32, tokens analysis.TokenStream, features postings.Features, boost float32) error {
	if err := w.beginDocIfNeeded(docID); err != nil {
		return err
	}
	fm := w.fields.EnsureField(name)
	if fm.Features != 0 && features&^fm.Features != 0 {
		return fmt.Errorf("index: field %q insertion features %#x are not a subset of recorded features %#x", name, features, fm.Features)
	}
	fm.Features |= features

	inv, ok := w.inverters[name]
	if !ok {
		inv = newFieldInverter(features)
		w.inverters[name] = inv
	}
	inv.features |= features

	var pos int64 = -1
	length := 0
	for tokens.Next() {
		term := string(tokens.Term())
		pos += int64(tokens.PositionIncrement())
		length++

		ol, ok := inv.terms[term]
		if !ok {
			ol = &occList{}
			inv.terms[term] = ol
		}
		var cur *occurrence
		if len(ol.occs) > 0 && ol.occs[len(ol.occs)-1].doc == docID {
			cur = &ol.occs[len(ol.occs)-1]
		} else {
			ol.occs = append(ol.occs, occurrence{doc: docID})
			cur = &ol.occs[len(ol.occs)-1]
		}
		cur.freq++
		if features.Has(postings.FeaturePositions) {
			p := postingPos{pos: pos, startOff: int64(tokens.StartOffset()), endOff: int64(tokens.EndOffset())}
			if features.Has(postings.FeaturePayloads) {
				p.payload = append([]byte(nil), tokens.Payload()...)
			}
			cur.positions = append(cur.positions, p)
		}
	}
	w.curFieldLen[name] += length
	if boost == 0 {
		boost = 1
	}
	w.curBoost[name] = boost
	if features.Has(FeatureNorm) {
		w.curNormFields[name] = true
	}
	return nil
}

// StoreField appends a stored value for name, readable back later via
// SegmentReader.Values. Internally this is just a columnstore write
// under a column named for the field; spec.md's ".cs"/".csi" pair
// carries both stored field values and named attributes (spec.md §1
// treats columnstore layout as opaque, so this engine is free to unify
// the two write paths onto one store).
func (w *Writer) StoreField(name string, docID uint32, value []byte) error {
	if err := w.beginDocIfNeeded(docID); err != nil {
		return err
	}
	fm := w.fields.EnsureField(name)
	colName := "$field:" + name
	colID, err := w.cols.Column(colName)
	if err != nil {
		return err
	}
	fm.StoredColumnID = colID
	return w.cols.Write(colID, docID, value)
}

// StoreAttribute appends a column value addressed by name, per spec.md
// §4.2. Insertion order defines the stable column id.
func (w *Writer) StoreAttribute(docID uint32, name string, value []byte) (int32, error) {
	if err := w.beginDocIfNeeded(docID); err != nil {
		return 0, err
	}
	colID, err := w.cols.Column(name)
	if err != nil {
		return 0, err
	}
	return colID, w.cols.Write(colID, docID, value)
}

// Remove marks docID deleted. Fails if docID falls outside the
// in-progress segment's range.
func (w *Writer) Remove(docID uint32) error {
	if docID < MinDoc || docID >= MinDoc+uint32(w.docsCount)+1 {
		return fmt.Errorf("index: doc %d is outside the in-progress segment", docID)
	}
	w.mask.Add(docID)
	return nil
}

// Finish finalizes docID: computes and stores norms for every field
// registered for one, then clears per-document state. Documents must be
// finalized in strictly ascending order (spec.md §4.2).
func (w *Writer) Finish(docID uint32) error {
	if !w.curOpen || docID != w.curDoc {
		return fmt.Errorf("index: finish(%d) does not match the open document %d", docID, w.curDoc)
	}
	for name := range w.curNormFields {
		length := w.curFieldLen[name]
		if length == 0 {
			continue
		}
		norm := w.curBoost[name] / float32(math.Sqrt(float64(length)))
		if norm == 1 {
			continue
		}
		fm := w.fields.EnsureField(name)
		if fm.NormColumnID < 0 {
			colID, err := w.cols.Column("$norm:" + name)
			if err != nil {
				return err
			}
			fm.NormColumnID = colID
		}
		var buf [4]byte
		bits := math.Float32bits(norm)
		buf[0] = byte(bits)
		buf[1] = byte(bits >> 8)
		buf[2] = byte(bits >> 16)
		buf[3] = byte(bits >> 24)
		if err := w.cols.Write(fm.NormColumnID, docID, buf[:]); err != nil {
			return err
		}
	}
	w.docsCount++
	w.curOpen = false
	return nil
}

// nextVersion returns the version number filename's segment meta should
// carry: 1 for a name flushed for the first time, or one past whatever
// version its previous ".sm" file recorded otherwise. This is what makes
// Reader.Reopen's version comparison (spec.md:150) meaningful across
// successive flushes of the same segment name, rather than every
// revision looking identical to a reopening reader.
func (w *Writer) nextVersion(filename string) int64 {
	if !w.dir.Exists(filename + ".sm") {
		return 1
	}
	smIn, err := w.dir.Open(filename+".sm", store.AdviceNormal)
	if err != nil {
		return 1
	}
	defer smIn.Close()
	prev, err := ReadMeta(smIn)
	if err != nil {
		return 1
	}
	return prev.Version + 1
}

// Flush finalizes every sub-writer in spec.md §4.2's fixed order
// (columnstore -> field meta + inverted index -> doc mask -> tracking
// swap -> segment meta) and publishes filename's Meta.
func (w *Writer) Flush(filename string) (*Meta, error) {
	csData, err := w.tracking.Create(filename + ".cs")
	if err != nil {
		return nil, err
	}
	csMeta, err := w.tracking.Create(filename + ".csi")
	if err != nil {
		return nil, err
	}
	if _, err := w.cols.Finish(csData, csMeta); err != nil {
		return nil, err
	}
	if err := csData.Close(); err != nil {
		return nil, err
	}
	if err := csMeta.Close(); err != nil {
		return nil, err
	}

	postOut, err := w.tracking.Create(filename + ".doc")
	if err != nil {
		return nil, err
	}
	tmOut, err := w.tracking.Create(filename + ".tm")
	if err != nil {
		return nil, err
	}
	dw := termdict.NewDictWriter()
	for _, fm := range w.fields.All() {
		inv := w.inverters[fm.Name]
		if inv == nil {
			continue
		}
		fw, err := termdict.NewFieldWriter(tmOut, w.cfg)
		if err != nil {
			return nil, err
		}
		terms := make([]string, 0, len(inv.terms))
		for t := range inv.terms {
			terms = append(terms, t)
		}
		sort.Strings(terms)
		for _, t := range terms {
			ol := inv.terms[t]
			pw := postings.NewSimpleWriter(inv.features)
			if err := pw.StartTerm(); err != nil {
				return nil, err
			}
			for _, occ := range ol.occs {
				if err := pw.AddDoc(occ.doc, occ.freq); err != nil {
					return nil, err
				}
				for _, p := range occ.positions {
					if err := pw.AddPosition(p.pos, p.startOff, p.endOff, p.payload); err != nil {
						return nil, err
					}
				}
			}
			blobOffset := postOut.FilePointer()
			stats, err := pw.FinishTerm(postOut)
			if err != nil {
				return nil, err
			}
			stats.BlobOffset = blobOffset
			if err := fw.AddTerm([]byte(t), stats, int64(len(ol.occs))); err != nil {
				return nil, err
			}
		}
		b := termdict.NewBuilder()
		fieldStats, err := fw.Finish(b)
		if err != nil {
			return nil, err
		}
		fieldStats.DocCount = int64(len(distinctDocs(inv)))
		dw.AddField(fm.Name, fieldStats, b)
	}
	if err := tmOut.Close(); err != nil {
		return nil, err
	}
	if err := postOut.Close(); err != nil {
		return nil, err
	}

	tiOut, err := w.tracking.Create(filename + ".ti")
	if err != nil {
		return nil, err
	}
	if err := dw.Finish(tiOut); err != nil {
		return nil, err
	}
	if err := tiOut.Close(); err != nil {
		return nil, err
	}

	fmOut, err := w.tracking.Create(filename + ".fm")
	if err != nil {
		return nil, err
	}
	if err := w.fields.WriteTo(fmOut); err != nil {
		return nil, err
	}
	if err := fmOut.Close(); err != nil {
		return nil, err
	}

	maskOut, err := w.tracking.Create(filename + ".doc_mask")
	if err != nil {
		return nil, err
	}
	if _, err := w.mask.WriteTo(maskOut); err != nil {
		return nil, err
	}
	if err := maskOut.Close(); err != nil {
		return nil, err
	}

	tracked := w.tracking.SwapTracked()
	files := make([]string, 0, len(tracked))
	for f := range tracked {
		files = append(files, f)
	}
	sort.Strings(files)

	meta := &Meta{Name: filename, Version: w.nextVersion(filename), DocsCount: w.docsCount, Files: files, Codec: CodecID}
	smOut, err := w.dir.Create(filename + ".sm")
	if err != nil {
		return nil, err
	}
	if err := meta.WriteTo(smOut); err != nil {
		return nil, err
	}
	if err := smOut.Close(); err != nil {
		return nil, err
	}
	if err := w.dir.Sync(filename + ".sm"); err != nil {
		return nil, err
	}

	var totalBytes int64
	for _, f := range files {
		if n, err := w.dir.Length(f); err == nil {
			totalBytes += n
		}
	}
	metrics.Default.SegmentsFlushedTotal.Inc()
	metrics.Default.DocsFlushedTotal.Add(float64(w.docsCount))
	metrics.Default.BytesFlushedTotal.Add(float64(totalBytes))

	return meta, nil
}

func distinctDocs(inv *fieldInverter) map[uint32]struct{} {
	docs := make(map[uint32]struct{})
	for _, ol := range inv.terms {
		for _, occ := range ol.occs {
			docs[occ.doc] = struct{}{}
		}
	}
	return docs
}
