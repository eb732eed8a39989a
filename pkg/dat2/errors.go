package dat2

import (
	"errors"
	"fmt"
)

var (
	// ErrSizeMismatch is returned when a declared size disagrees with the bytes present.
	ErrSizeMismatch = errors.New("size mismatch")

	// ErrTruncatedIndex is returned when the index or an entry's data region
	// extends past the bytes available.
	ErrTruncatedIndex = errors.New("truncated index")

	// ErrOverflow is returned when a computed size does not fit in 32 bits.
	ErrOverflow = errors.New("size overflow")

	// ErrCompressionFailure is returned when an entry looks like a zlib stream but fails to inflate.
	ErrCompressionFailure = errors.New("compression failure")

	// ErrNotFound is returned when a name is not present in the archive listing.
	ErrNotFound = errors.New("entry not found")
)

// FormatError describes a structurally invalid archive.
// Err is one of ErrSizeMismatch, ErrTruncatedIndex or ErrOverflow.
type FormatError struct {
	Field string
	Got   uint64
	Want  uint64
	Err   error
}

func (e *FormatError) Error() string {
	var diff uint64
	if e.Got > e.Want {
		diff = e.Got - e.Want
	} else {
		diff = e.Want - e.Got
	}
	return fmt.Sprintf("%v: %s is %d, expected %d (off by %d)", e.Err, e.Field, e.Got, e.Want, diff)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

func formatErr(err error, field string, got, want uint64) *FormatError {
	return &FormatError{Field: field, Got: got, Want: want, Err: err}
}

// DecodeError reports a failure to decode a single entry.
type DecodeError struct {
	Name string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Name, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
