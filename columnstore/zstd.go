package columnstore

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"sort"

	"github.com/klauspost/compress/zstd"
)

// ZstdWriter concatenates every column's (doc, value) pairs into one
// zstd-compressed block per column. There is no per-doc offset table: the
// reader decompresses a column's whole block on its first lookup.
// Grounded on hupe1980-vecgo's use of klauspost/compress for its WAL
// segment payloads, applied here to columnstore blocks instead.
type ZstdWriter struct {
	names       map[string]int32
	order       []string
	columns     map[int32]*columnBuf
	granularity map[int32]uint32
}

type columnBuf struct {
	docs   []uint32
	values [][]byte
}

// NewZstdWriter returns an empty columnstore Writer.
func NewZstdWriter() *ZstdWriter {
	return &ZstdWriter{
		names:       make(map[string]int32),
		columns:     make(map[int32]*columnBuf),
		granularity: make(map[int32]uint32),
	}
}

func (w *ZstdWriter) Column(name string) (int32, error) {
	if id, ok := w.names[name]; ok {
		return id, nil
	}
	id := int32(len(w.order))
	w.names[name] = id
	w.order = append(w.order, name)
	w.columns[id] = &columnBuf{}
	return id, nil
}

// SetGranularityPrefix records an opaque block-skipping granularity tag
// for columnID, persisted in the column directory and handed back
// unchanged on read. Column must have already allocated columnID.
func (w *ZstdWriter) SetGranularityPrefix(columnID int32, prefix uint32) {
	w.granularity[columnID] = prefix
}

func (w *ZstdWriter) Write(columnID int32, docID uint32, value []byte) error {
	col, ok := w.columns[columnID]
	if !ok {
		return fmt.Errorf("columnstore: unknown column id %d", columnID)
	}
	col.docs = append(col.docs, docID)
	col.values = append(col.values, value)
	return nil
}

// Finish writes one length-prefixed zstd frame per column to data and the
// column directory (name, id, block offset, block length, granularity
// prefix) to meta, both in ascending-name order per spec.md §4.3.
func (w *ZstdWriter) Finish(data, meta io.Writer) ([]ColumnMeta, error) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, err
	}
	defer enc.Close()

	sortedNames := append([]string(nil), w.order...)
	sort.Strings(sortedNames)

	bw := bufio.NewWriter(data)
	out := make([]ColumnMeta, 0, len(sortedNames))
	var offset int64

	for _, name := range sortedNames {
		id := w.names[name]
		col := w.columns[id]

		raw := encodeColumnBlock(col)
		compressed := enc.EncodeAll(raw, nil)

		if err := writeUint64(bw, uint64(len(compressed))); err != nil {
			return nil, err
		}
		if _, err := bw.Write(compressed); err != nil {
			return nil, err
		}

		blockLen := 8 + int64(len(compressed))
		prefix := w.granularity[id]
		if err := writeColumnDirEntry(meta, name, id, offset, blockLen, prefix); err != nil {
			return nil, err
		}
		offset += blockLen

		out = append(out, ColumnMeta{Name: name, ID: id, GranularityPrefix: prefix})
	}
	return out, bw.Flush()
}


func encodeColumnBlock(col *columnBuf) []byte {
	buf := make([]byte, 0, 16*len(col.docs))
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], uint64(len(col.docs)))
	buf = append(buf, tmp[:n]...)
	for i, doc := range col.docs {
		n = binary.PutUvarint(tmp[:], uint64(doc))
		buf = append(buf, tmp[:n]...)
		n = binary.PutUvarint(tmp[:], uint64(len(col.values[i])))
		buf = append(buf, tmp[:n]...)
		buf = append(buf, col.values[i]...)
	}
	return buf
}

func writeUint64(w io.Writer, v uint64) error {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	_, err := w.Write(b[:])
	return err
}

func writeColumnDirEntry(meta io.Writer, name string, id int32, offset, length int64, granularityPrefix uint32) error {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], uint64(len(name)))
	if _, err := meta.Write(tmp[:n]); err != nil {
		return err
	}
	if _, err := meta.Write([]byte(name)); err != nil {
		return err
	}
	n = binary.PutVarint(tmp[:], int64(id))
	if _, err := meta.Write(tmp[:n]); err != nil {
		return err
	}
	n = binary.PutVarint(tmp[:], offset)
	if _, err := meta.Write(tmp[:n]); err != nil {
		return err
	}
	n = binary.PutVarint(tmp[:], length)
	if _, err := meta.Write(tmp[:n]); err != nil {
		return err
	}
	n = binary.PutUvarint(tmp[:], uint64(granularityPrefix))
	_, err := meta.Write(tmp[:n])
	return err
}

// ZstdReader opens a columnstore written by ZstdWriter.
type ZstdReader struct {
	data    io.ReaderAt
	columns map[int32]Values
}

// NewZstdReader returns an empty reader; call Prepare before Column.
func NewZstdReader() *ZstdReader {
	return &ZstdReader{columns: make(map[int32]Values)}
}

func (r *ZstdReader) Prepare(data io.ReaderAt, dataLen int64, meta io.Reader) ([]ColumnMeta, error) {
	r.data = data
	metaBytes, err := io.ReadAll(meta)
	if err != nil {
		return nil, err
	}

	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}

	var out []ColumnMeta
	pos := 0
	for pos < len(metaBytes) {
		nameLen, n := binary.Uvarint(metaBytes[pos:])
		pos += n
		name := string(metaBytes[pos : pos+int(nameLen)])
		pos += int(nameLen)
		id, n := binary.Varint(metaBytes[pos:])
		pos += n
		offset, n := binary.Varint(metaBytes[pos:])
		pos += n
		length, n := binary.Varint(metaBytes[pos:])
		pos += n
		granularityPrefix, n := binary.Uvarint(metaBytes[pos:])
		pos += n

		out = append(out, ColumnMeta{Name: name, ID: int32(id), GranularityPrefix: uint32(granularityPrefix)})
		r.columns[int32(id)] = r.buildValues(dec, offset, length)
	}
	return out, nil
}

func (r *ZstdReader) buildValues(dec *zstd.Decoder, offset, length int64) Values {
	var decoded map[uint32][]byte
	var loadErr error
	loaded := false

	load := func() {
		if loaded {
			return
		}
		loaded = true
		compressed := make([]byte, length-8)
		if _, err := r.data.ReadAt(compressed, offset+8); err != nil {
			loadErr = err
			return
		}
		raw, err := dec.DecodeAll(compressed, nil)
		if err != nil {
			loadErr = err
			return
		}
		decoded = decodeColumnBlock(raw)
	}

	return func(docID uint32) ([]byte, bool) {
		load()
		if loadErr != nil {
			return nil, false
		}
		v, ok := decoded[docID]
		return v, ok
	}
}

func decodeColumnBlock(raw []byte) map[uint32][]byte {
	count, n := binary.Uvarint(raw)
	pos := n
	out := make(map[uint32][]byte, count)
	for i := uint64(0); i < count; i++ {
		doc, n := binary.Uvarint(raw[pos:])
		pos += n
		vlen, n := binary.Uvarint(raw[pos:])
		pos += n
		out[uint32(doc)] = raw[pos : pos+int(vlen)]
		pos += int(vlen)
	}
	return out
}

func (r *ZstdReader) Column(columnID int32) Values {
	if v, ok := r.columns[columnID]; ok {
		return v
	}
	return NoValues
}
