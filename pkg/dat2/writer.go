package dat2

import (
	"bytes"
	"fmt"
	"io"
	"math"
)

// Input is one member handed to the Writer.
type Input struct {
	Name string
	Data []byte

	// Compressed marks Data as an already deflated zlib stream.
	Compressed bool

	// DecompressedSize is the original size. Zero on a stored input means len(Data).
	DecompressedSize uint32
}

// NewInput prepares raw for the Writer, deflating it when compress is set.
// If deflating does not shrink the data the raw bytes are stored instead.
func NewInput(name string, raw []byte, compress bool) (Input, error) {
	if uint64(len(raw)) > math.MaxUint32 {
		return Input{}, formatErr(ErrOverflow, "size of "+name, uint64(len(raw)), math.MaxUint32)
	}
	in := Input{Name: name, Data: raw, DecompressedSize: uint32(len(raw))}
	if !compress {
		return in, nil
	}

	packed, err := Compress(raw)
	if err != nil {
		return Input{}, fmt.Errorf("compress %s: %w", name, err)
	}
	if len(packed) < len(raw) {
		in.Data = packed
		in.Compressed = true
	}
	return in, nil
}

// Writer lays out a new archive. Inputs are appended in call order and the
// index is emitted by Bytes or WriteTo. A Writer is not safe for concurrent use.
type Writer struct {
	cfg     config
	data    bytes.Buffer
	entries []Entry
}

// NewWriter creates an empty archive writer.
func NewWriter(opts ...Option) *Writer {
	return &Writer{cfg: newConfig(opts)}
}

// Add appends in to the data section and records its entry.
// Duplicate names are kept as given.
func (w *Writer) Add(in Input) (Entry, error) {
	offset := uint64(w.data.Len())
	size := uint64(len(in.Data))
	if offset+size > math.MaxUint32 {
		return Entry{}, formatErr(ErrOverflow, "end of "+in.Name, offset+size, math.MaxUint32)
	}

	e := Entry{
		Name:             in.Name,
		DecompressedSize: in.DecompressedSize,
		PackedSize:       uint32(size),
		Offset:           uint32(offset),
	}
	if in.Compressed {
		e.Flag = 1
	} else if e.DecompressedSize == 0 {
		e.DecompressedSize = uint32(size)
	}

	w.data.Write(in.Data)
	w.entries = append(w.entries, e)
	return e, nil
}

// Entries returns the entries added so far, in order.
func (w *Writer) Entries() []Entry {
	out := make([]Entry, len(w.entries))
	copy(out, w.entries)
	return out
}

// Bytes returns the complete archive: data, index and trailer.
func (w *Writer) Bytes() ([]byte, error) {
	index, _, err := EncodeIndex(w.entries, uint64(w.data.Len()), w.optsFromConfig()...)
	if err != nil {
		return nil, fmt.Errorf("encode index: %w", err)
	}

	out := make([]byte, 0, w.data.Len()+len(index))
	out = append(out, w.data.Bytes()...)
	out = append(out, index...)
	return out, nil
}

// WriteTo writes the complete archive to dst.
func (w *Writer) WriteTo(dst io.Writer) (int64, error) {
	index, _, err := EncodeIndex(w.entries, uint64(w.data.Len()), w.optsFromConfig()...)
	if err != nil {
		return 0, fmt.Errorf("encode index: %w", err)
	}

	n, err := dst.Write(w.data.Bytes())
	if err != nil {
		return int64(n), fmt.Errorf("write data: %w", err)
	}
	m, err := dst.Write(index)
	if err != nil {
		return int64(n + m), fmt.Errorf("write index: %w", err)
	}
	return int64(n + m), nil
}

func (w *Writer) optsFromConfig() []Option {
	return []Option{WithTreeSizeConvention(w.cfg.convention)}
}

// Build lays out inputs in order and returns the encoded archive.
func Build(inputs []Input, opts ...Option) ([]byte, error) {
	w := NewWriter(opts...)
	for _, in := range inputs {
		if _, err := w.Add(in); err != nil {
			return nil, err
		}
	}
	return w.Bytes()
}
