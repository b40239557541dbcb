package postings

import (
	"bytes"
	"encoding/binary"
	"io"
)

// SimpleWriter is a minimal concrete Writer: doc ids are delta-varint
// encoded, frequencies as signed varints and positions as signed varint
// deltas within each doc. It exists to give
// the term dictionary something real to drive end to end; production
// deployments are expected to swap in a block-compressed Reader/Writer
// pair behind the same interfaces, per spec.md's "opaque companion
// codec" framing.
type SimpleWriter struct {
	features Features
	buf      bytes.Buffer
	lastDoc  uint32
	lastPos  int64
	docFreq  int64
	total    int64
	started  bool
}

// NewSimpleWriter builds a Writer producing postings carrying features.
func NewSimpleWriter(features Features) *SimpleWriter {
	return &SimpleWriter{features: features}
}

func (w *SimpleWriter) StartTerm() error {
	w.buf.Reset()
	w.lastDoc = 0
	w.docFreq = 0
	w.total = 0
	w.started = true
	return nil
}

func (w *SimpleWriter) AddDoc(docID uint32, freq int64) error {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], uint64(docID-w.lastDoc))
	w.buf.Write(tmp[:n])
	w.lastDoc = docID
	w.lastPos = 0
	w.docFreq++
	if w.features.Has(FeatureFreq) {
		n = binary.PutVarint(tmp[:], freq)
		w.buf.Write(tmp[:n])
	}
	w.total += freq
	return nil
}

func (w *SimpleWriter) AddPosition(pos int64, startOffset, endOffset int64, payload []byte) error {
	if !w.features.Has(FeaturePositions) {
		return nil
	}
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutVarint(tmp[:], pos-w.lastPos)
	w.buf.Write(tmp[:n])
	w.lastPos = pos
	if w.features.Has(FeatureOffsets) {
		n = binary.PutVarint(tmp[:], startOffset)
		w.buf.Write(tmp[:n])
		n = binary.PutVarint(tmp[:], endOffset-startOffset)
		w.buf.Write(tmp[:n])
	}
	if w.features.Has(FeaturePayloads) {
		n = binary.PutUvarint(tmp[:], uint64(len(payload)))
		w.buf.Write(tmp[:n])
		w.buf.Write(payload)
	}
	return nil
}

func (w *SimpleWriter) FinishDoc() error { return nil }

func (w *SimpleWriter) FinishTerm(out io.Writer) (Stats, error) {
	w.started = false
	n, err := out.Write(w.buf.Bytes())
	if err != nil {
		return Stats{}, err
	}
	return Stats{
		DocFreq:    w.docFreq,
		TotalFreq:  w.total,
		BlobLength: int64(n),
	}, nil
}

// SimpleReader reads back postings written by SimpleWriter.
type SimpleReader struct {
	data []byte
}

// NewSimpleReader wraps one term's postings blob; callers slice it out of
// the postings file via Stats.BlobOffset/BlobLength before handing it
// here, so a SimpleReader only ever sees one term at a time.
func NewSimpleReader(blob []byte) *SimpleReader {
	return &SimpleReader{data: blob}
}

func (r *SimpleReader) Iterator(stats Stats, features Features) (Iterator, error) {
	return &simpleIterator{data: r.data, features: features}, nil
}

type simpleIterator struct {
	data     []byte
	pos      int
	features Features
	doc      uint32
	freq     int64
	lastPos  int64
	curPos   int64
	start    int64
	end      int64
	payload  []byte
	posLeft  int64
}

func (it *simpleIterator) Next() (uint32, error) {
	for it.posLeft > 0 {
		if _, err := it.NextPosition(); err != nil {
			return 0, io.ErrUnexpectedEOF
		}
	}
	if it.pos >= len(it.data) {
		return 0, io.EOF
	}
	delta, n := binary.Uvarint(it.data[it.pos:])
	if n <= 0 {
		return 0, io.ErrUnexpectedEOF
	}
	it.pos += n
	it.doc += uint32(delta)
	it.lastPos = 0
	if it.features.Has(FeatureFreq) {
		f, n := binary.Varint(it.data[it.pos:])
		if n <= 0 {
			return 0, io.ErrUnexpectedEOF
		}
		it.pos += n
		it.freq = f
	} else {
		it.freq = 1
	}
	if it.features.Has(FeaturePositions) {
		it.posLeft = it.freq
	}
	return it.doc, nil
}

func (it *simpleIterator) Doc() uint32   { return it.doc }
func (it *simpleIterator) Freq() int64   { return it.freq }
func (it *simpleIterator) StartOffset() int64 { return it.start }
func (it *simpleIterator) EndOffset() int64   { return it.end }
func (it *simpleIterator) Payload() []byte    { return it.payload }

func (it *simpleIterator) NextPosition() (int64, error) {
	if !it.features.Has(FeaturePositions) || it.posLeft <= 0 {
		return 0, io.EOF
	}
	d, n := binary.Varint(it.data[it.pos:])
	if n <= 0 {
		return 0, io.EOF
	}
	it.pos += n
	it.posLeft--
	it.lastPos += d
	it.curPos = it.lastPos
	if it.features.Has(FeatureOffsets) {
		s, n := binary.Varint(it.data[it.pos:])
		it.pos += n
		l, n := binary.Varint(it.data[it.pos:])
		it.pos += n
		it.start = s
		it.end = s + l
	}
	if it.features.Has(FeaturePayloads) {
		l, n := binary.Uvarint(it.data[it.pos:])
		it.pos += n
		it.payload = it.data[it.pos : it.pos+int(l)]
		it.pos += int(l)
	}
	return it.curPos, nil
}
