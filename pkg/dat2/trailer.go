package dat2

import (
	"encoding/binary"
	"fmt"
)

// TrailerSize is the fixed binary size of the archive trailer.
const TrailerSize = 8 // 4 + 4 bytes

// countSize is the size of the u32 entry count that opens the index.
const countSize = 4

// TreeSizeConvention selects how the tree_size field is interpreted.
type TreeSizeConvention uint8

const (
	// TreeSizeCountsSelf treats tree_size as covering its own 4 bytes plus the index.
	TreeSizeCountsSelf TreeSizeConvention = iota

	// TreeSizeExcludesSelf treats tree_size as covering only the index
	// (entry count and tree entries). Fallout 2 era archives use this.
	TreeSizeExcludesSelf
)

func (c TreeSizeConvention) String() string {
	switch c {
	case TreeSizeCountsSelf:
		return "self"
	case TreeSizeExcludesSelf:
		return "count"
	default:
		return fmt.Sprintf("TreeSizeConvention(%d)", uint8(c))
	}
}

// ParseTreeSizeConvention parses the names returned by String.
func ParseTreeSizeConvention(s string) (TreeSizeConvention, error) {
	switch s {
	case "self", "":
		return TreeSizeCountsSelf, nil
	case "count":
		return TreeSizeExcludesSelf, nil
	default:
		return 0, fmt.Errorf("unknown tree size convention %q", s)
	}
}

// selfBytes returns how many bytes of tree_size belong to the field itself.
func (c TreeSizeConvention) selfBytes() uint64 {
	if c == TreeSizeExcludesSelf {
		return 0
	}
	return 4
}

// Trailer is the 8-byte footer closing every archive.
type Trailer struct {
	TreeSize uint32
	FileSize uint32
}

// MarshalBinary encodes the trailer to binary format.
func (t *Trailer) MarshalBinary() ([]byte, error) {
	buf := make([]byte, TrailerSize)
	t.EncodeTo(buf)
	return buf, nil
}

// EncodeTo writes the trailer to the given buffer.
// The buffer must be at least TrailerSize bytes.
func (t *Trailer) EncodeTo(buf []byte) {
	binary.LittleEndian.PutUint32(buf[0:4], t.TreeSize)
	binary.LittleEndian.PutUint32(buf[4:8], t.FileSize)
}

// UnmarshalBinary decodes the trailer from the last TrailerSize bytes of data.
func (t *Trailer) UnmarshalBinary(data []byte) error {
	if len(data) < TrailerSize {
		return formatErr(ErrTruncatedIndex, "archive length", uint64(len(data)), TrailerSize)
	}
	t.DecodeFrom(data[len(data)-TrailerSize:])
	return nil
}

// DecodeFrom reads the trailer from the given buffer.
// Does not validate - use indexRegion for that.
func (t *Trailer) DecodeFrom(data []byte) {
	t.TreeSize = binary.LittleEndian.Uint32(data[0:4])
	t.FileSize = binary.LittleEndian.Uint32(data[4:8])
}

// indexRegion validates the trailer against an archive of length n and
// returns the [start, end) bounds of the index. start is also the data length.
func (t *Trailer) indexRegion(n int, conv TreeSizeConvention) (start, end uint64, err error) {
	total := uint64(n)
	if uint64(t.FileSize) != total {
		return 0, 0, formatErr(ErrSizeMismatch, "file_size", uint64(t.FileSize), total)
	}

	self := conv.selfBytes()
	tree := uint64(t.TreeSize)
	if tree < self {
		return 0, 0, formatErr(ErrTruncatedIndex, "tree_size", tree, self)
	}

	end = total - TrailerSize
	length := tree - self
	if length > end {
		return 0, 0, formatErr(ErrTruncatedIndex, "index length", length, end)
	}
	return end - length, end, nil
}
