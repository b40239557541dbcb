package termdict

// Block header bits, per spec.md §4.4 ("Block meta bits").
const (
	blockFlagLeaf          = 1 << 0
	blockFlagHasSubBlocks  = 1 << 1
	blockFlagHasFloorBlock = 1 << 2
)

// entryKind distinguishes the two entry shapes a block holds.
type entryKind uint8

const (
	entryTerm entryKind = iota
	entryBlock
)

// blockEntry is one line of a written block: either a TERM carrying its
// suffix and inline postings stats blob, or a BLOCK carrying its suffix
// and a child block's file offset.
type blockEntry struct {
	kind   entryKind
	suffix []byte

	// TERM fields
	statsBlob []byte

	// BLOCK fields
	childOffset int64
}
