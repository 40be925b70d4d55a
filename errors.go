package flate

import (
	"fmt"
)

// CorruptInputError is returned when the stream being decompressed contains
// data that violates the compression format standard.
type CorruptInputError struct {
	OffsetTotal  uint64
	OffsetStream uint64
	Problem      string
}

// Error fulfills the error interface.
func (err CorruptInputError) Error() string {
	return fmt.Sprintf("corrupt input at/near byte offset %d: %s", err.OffsetStream, err.Problem)
}

var _ error = CorruptInputError{}

// UnsupportedError is returned when the stream being decompressed is
// well-formed but uses a feature or parameter this Reader declines to
// support, such as a non-DEFLATE compression method or a window size larger
// than this Reader was configured to accept.
type UnsupportedError struct {
	OffsetTotal  uint64
	OffsetStream uint64
	Problem      string
}

// Error fulfills the error interface.
func (err UnsupportedError) Error() string {
	return fmt.Sprintf("unsupported input at/near byte offset %d: %s", err.OffsetStream, err.Problem)
}

var _ error = UnsupportedError{}
