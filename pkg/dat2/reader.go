package dat2

import (
	"fmt"
	"iter"
	"os"
)

// Archive is an opened DAT2 archive. It is immutable after Open and safe
// for concurrent extraction.
type Archive struct {
	data       []byte // whole archive; entries index into data[:dataLen]
	dataLen    uint64
	trailer    Trailer
	entries    []Entry // deduplicated, on-disk order
	byName     map[string]int
	duplicates int
}

// Result is the outcome of extracting one entry.
type Result struct {
	Data []byte
	Err  error
}

// Open parses buf as a complete archive. The archive keeps buf; callers
// must not modify it afterwards.
//
// When several entries share a name only the first on disk is listed.
func Open(buf []byte, opts ...Option) (*Archive, error) {
	idx, err := DecodeIndex(buf, opts...)
	if err != nil {
		return nil, fmt.Errorf("decode index: %w", err)
	}

	a := &Archive{
		data:    buf,
		dataLen: idx.DataLen,
		trailer: idx.Trailer,
		entries: make([]Entry, 0, len(idx.Entries)),
		byName:  make(map[string]int, len(idx.Entries)),
	}

	for _, e := range idx.Entries {
		if _, exists := a.byName[e.Name]; exists {
			a.duplicates++
			continue
		}
		a.byName[e.Name] = len(a.entries)
		a.entries = append(a.entries, e)
	}

	return a, nil
}

// OpenFile reads the file at path and opens it as an archive.
func OpenFile(path string, opts ...Option) (*Archive, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read archive: %w", err)
	}
	return Open(buf, opts...)
}

// List returns the archive members in on-disk order, without duplicates.
func (a *Archive) List() []Entry {
	out := make([]Entry, len(a.entries))
	copy(out, a.entries)
	return out
}

// Len returns the number of listed entries.
func (a *Archive) Len() int {
	return len(a.entries)
}

// Duplicates returns how many index records were hidden by an earlier entry of the same name.
func (a *Archive) Duplicates() int {
	return a.duplicates
}

// DataLen returns the length of the data section.
func (a *Archive) DataLen() uint64 {
	return a.dataLen
}

// Trailer returns the decoded tree_size and file_size fields.
func (a *Archive) Trailer() Trailer {
	return a.trailer
}

// Lookup returns the listed entry with the given name.
func (a *Archive) Lookup(name string) (Entry, bool) {
	i, ok := a.byName[name]
	if !ok {
		return Entry{}, false
	}
	return a.entries[i], true
}

// Raw returns the stored bytes of e without decompressing them.
// The slice aliases the archive and must not be modified.
func (a *Archive) Raw(e Entry) []byte {
	return a.data[e.Offset:e.End():e.End()]
}

// Extract returns the contents of the named entry, inflated when its
// stored bytes carry the zlib magic.
func (a *Archive) Extract(name string) ([]byte, error) {
	e, ok := a.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return a.ExtractEntry(e)
}

// ExtractEntry is Extract for an entry obtained from List.
func (a *Archive) ExtractEntry(e Entry) ([]byte, error) {
	if e.End() > a.dataLen {
		return nil, formatErr(ErrTruncatedIndex, "end of "+e.Name, e.End(), a.dataLen)
	}
	return decode(e, a.Raw(e))
}

// ExtractAll yields every listed entry with its contents or decode error.
// A failing entry does not stop the sequence. Each iteration extracts anew.
func (a *Archive) ExtractAll() iter.Seq2[Entry, Result] {
	return func(yield func(Entry, Result) bool) {
		for _, e := range a.entries {
			data, err := a.ExtractEntry(e)
			if !yield(e, Result{Data: data, Err: err}) {
				return
			}
		}
	}
}
