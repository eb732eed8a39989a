package dat2

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"
)

// Magic is the zlib header written at best compression. Stored bytes that
// begin with it are treated as compressed, whatever the entry flag says.
var Magic = [2]byte{0x78, 0xDA}

const (
	// CompressionLevel is the zlib level used by Compress. Levels 7-9 are
	// the only ones whose header matches Magic.
	CompressionLevel = zlib.BestCompression

	// maxPreallocRatio and maxPreallocSlack bound how much of the declared
	// size is trusted up front. Larger outputs grow the buffer as they go.
	maxPreallocRatio = 4
	maxPreallocSlack = 64 << 10
)

// IsCompressed reports whether raw looks like a zlib stream.
// Slices shorter than the magic are never compressed.
func IsCompressed(raw []byte) bool {
	if len(raw) < len(Magic) {
		return false
	}
	return raw[0] == Magic[0] && raw[1] == Magic[1]
}

// Decompress inflates a zlib stream. sizeHint is only used to size the
// output buffer. Any failure wraps ErrCompressionFailure.
func Decompress(raw []byte, sizeHint uint32) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: open stream: %v", ErrCompressionFailure, err)
	}
	defer zr.Close()

	capHint := min(uint64(sizeHint), uint64(len(raw))*maxPreallocRatio+maxPreallocSlack)

	out := bytes.NewBuffer(make([]byte, 0, capHint))
	if _, err := io.Copy(out, zr); err != nil {
		return nil, fmt.Errorf("%w: inflate: %v", ErrCompressionFailure, err)
	}
	if data := out.Bytes(); cap(data) > 2*len(data)+maxPreallocSlack {
		return bytes.Clone(data), nil
	}
	return out.Bytes(), nil
}

// Compress deflates raw into a zlib stream starting with Magic.
func Compress(raw []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw, err := zlib.NewWriterLevel(&buf, CompressionLevel)
	if err != nil {
		return nil, fmt.Errorf("create compressor: %w", err)
	}
	if _, err := zw.Write(raw); err != nil {
		return nil, fmt.Errorf("compress: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close compressor: %w", err)
	}
	return buf.Bytes(), nil
}

// decode applies the heuristic to an entry's stored bytes.
// Stored data is copied so the result never aliases the archive.
func decode(e Entry, raw []byte) ([]byte, error) {
	if !IsCompressed(raw) {
		return bytes.Clone(raw), nil
	}
	data, err := Decompress(raw, e.DecompressedSize)
	if err != nil {
		return nil, &DecodeError{Name: e.Name, Err: err}
	}
	return data, nil
}
