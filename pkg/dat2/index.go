package dat2

import (
	"encoding/binary"
	"math"
)

// Index is the decoded tree section of an archive, in on-disk order.
type Index struct {
	Entries []Entry
	Trailer Trailer
	DataLen uint64
}

// DecodeIndex parses the trailer and index of a complete archive held in buf.
// Every returned entry lies within the data section.
func DecodeIndex(buf []byte, opts ...Option) (*Index, error) {
	cfg := newConfig(opts)

	var t Trailer
	if err := t.UnmarshalBinary(buf); err != nil {
		return nil, err
	}

	start, end, err := t.indexRegion(len(buf), cfg.convention)
	if err != nil {
		return nil, err
	}

	c := cursor{buf: buf[start:end]}
	count, err := c.uint32("entry count")
	if err != nil {
		return nil, err
	}

	// Cap the preallocation by what the region could possibly hold.
	capHint := uint64(count)
	if maxEntries := uint64(len(c.buf)) / entryFixedSize; capHint > maxEntries {
		capHint = maxEntries
	}
	entries := make([]Entry, 0, capHint)

	for i := uint32(0); i < count; i++ {
		e, err := c.entry()
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}

	if c.pos != len(c.buf) {
		return nil, formatErr(ErrSizeMismatch, "tree_size", uint64(t.TreeSize),
			uint64(t.TreeSize)-uint64(len(c.buf)-c.pos))
	}

	for _, e := range entries {
		if e.End() > start {
			return nil, formatErr(ErrTruncatedIndex, "end of "+e.Name, e.End(), start)
		}
	}

	return &Index{Entries: entries, Trailer: t, DataLen: start}, nil
}

// EncodeIndex serializes entries in the given order followed by the trailer,
// for an archive whose data section is dataLen bytes long.
func EncodeIndex(entries []Entry, dataLen uint64, opts ...Option) ([]byte, Trailer, error) {
	cfg := newConfig(opts)

	if uint64(len(entries)) > math.MaxUint32 {
		return nil, Trailer{}, formatErr(ErrOverflow, "entry count", uint64(len(entries)), math.MaxUint32)
	}

	indexLen := uint64(countSize)
	for _, e := range entries {
		if uint64(len(e.Name)) > math.MaxUint32 {
			return nil, Trailer{}, formatErr(ErrOverflow, "filename_len", uint64(len(e.Name)), math.MaxUint32)
		}
		indexLen += uint64(e.EncodedSize())
	}

	treeSize := indexLen + cfg.convention.selfBytes()
	fileSize := dataLen + indexLen + TrailerSize
	if treeSize > math.MaxUint32 {
		return nil, Trailer{}, formatErr(ErrOverflow, "tree_size", treeSize, math.MaxUint32)
	}
	if fileSize > math.MaxUint32 {
		return nil, Trailer{}, formatErr(ErrOverflow, "file_size", fileSize, math.MaxUint32)
	}

	t := Trailer{TreeSize: uint32(treeSize), FileSize: uint32(fileSize)}

	buf := make([]byte, 0, indexLen+TrailerSize)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(entries)))
	for _, e := range entries {
		buf = appendEntry(buf, e)
	}
	buf = buf[:len(buf)+TrailerSize]
	t.EncodeTo(buf[len(buf)-TrailerSize:])

	return buf, t, nil
}

func appendEntry(buf []byte, e Entry) []byte {
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(e.Name)))
	buf = append(buf, e.Name...)
	buf = append(buf, e.Flag)
	buf = binary.LittleEndian.AppendUint32(buf, e.DecompressedSize)
	buf = binary.LittleEndian.AppendUint32(buf, e.PackedSize)
	buf = binary.LittleEndian.AppendUint32(buf, e.Offset)
	return buf
}

// cursor reads sequential fields from the index region.
type cursor struct {
	buf []byte
	pos int
}

func (c *cursor) need(field string, n uint64) error {
	remaining := uint64(len(c.buf) - c.pos)
	if n > remaining {
		return formatErr(ErrTruncatedIndex, field+" bytes", n, remaining)
	}
	return nil
}

func (c *cursor) uint32(field string) (uint32, error) {
	if err := c.need(field, 4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(c.buf[c.pos:])
	c.pos += 4
	return v, nil
}

func (c *cursor) entry() (Entry, error) {
	nameLen, err := c.uint32("filename_len")
	if err != nil {
		return Entry{}, err
	}
	if err := c.need("tree_entry", uint64(nameLen)+entryFixedSize-4); err != nil {
		return Entry{}, err
	}

	name := string(c.buf[c.pos : c.pos+int(nameLen)])
	c.pos += int(nameLen)

	// The footer length was checked together with the name above.
	footer := c.buf[c.pos : c.pos+entryFixedSize-4]
	c.pos += len(footer)
	return Entry{
		Name:             name,
		Flag:             footer[0],
		DecompressedSize: binary.LittleEndian.Uint32(footer[1:]),
		PackedSize:       binary.LittleEndian.Uint32(footer[5:]),
		Offset:           binary.LittleEndian.Uint32(footer[9:]),
	}, nil
}
