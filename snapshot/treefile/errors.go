package treefile

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kinds of format errors, matched with errors.Is.
var (
	ErrUnknownKindTag   = errors.New("unknown kind tag")
	ErrUnterminatedName = errors.New("unterminated name")
	ErrUnbalancedClose  = errors.New("close marker without open directory")
	ErrTruncatedData    = errors.New("truncated data")
	ErrNonNumericField  = errors.New("non-numeric field")
)

// FormatError describes a malformed line in a snapshot tree listing.
type FormatError struct {
	Kind error

	// Line is the 1-based line number and Offset is the byte offset of the start of that line.
	Line   int
	Offset int64

	Detail string
}

func (e *FormatError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("line %v (offset %v): %v", e.Line, e.Offset, e.Kind)
	}

	return fmt.Sprintf("line %v (offset %v): %v: %v", e.Line, e.Offset, e.Kind, e.Detail)
}

// Unwrap returns the error kind.
func (e *FormatError) Unwrap() error {
	return e.Kind
}
