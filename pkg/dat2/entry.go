// Package dat2 reads and writes DAT2 archives.
//
// A DAT2 file is a flat concatenation of member data followed by an index
// ("tree") and an 8-byte trailer:
//
//	[ data ][ u32 count | count x tree_entry ][ u32 tree_size ][ u32 file_size ]
//
// All integers are little-endian. Archives are handled entirely in memory.
package dat2

import "strings"

// entryFixedSize is the byte length of a tree_entry excluding the filename bytes.
const entryFixedSize = 4 + 1 + 4 + 4 + 4

// Entry describes one archive member. It holds coordinates into the
// archive data, never a copy of the bytes.
type Entry struct {
	Name             string
	Flag             byte   // is_compressed as stored; unreliable
	DecompressedSize uint32 // declared size after inflate; unreliable
	PackedSize       uint32 // stored length in data
	Offset           uint32 // start of the stored region in data
}

// IsDeclaredCompressed reports the raw is_compressed flag.
// Use IsCompressed on the stored bytes to decide whether to inflate.
func (e Entry) IsDeclaredCompressed() bool {
	return e.Flag != 0
}

// End returns Offset+PackedSize without wrapping.
func (e Entry) End() uint64 {
	return uint64(e.Offset) + uint64(e.PackedSize)
}

// EncodedSize returns the byte length of the entry's tree_entry record.
func (e Entry) EncodedSize() int {
	return entryFixedSize + len(e.Name)
}

// Path returns Name with DOS separators converted to '/'.
func (e Entry) Path() string {
	return strings.ReplaceAll(e.Name, `\`, "/")
}

// SizeMismatch reports whether n disagrees with the declared decompressed size.
func (e Entry) SizeMismatch(n int) bool {
	return uint64(n) != uint64(e.DecompressedSize)
}
