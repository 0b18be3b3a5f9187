package docstore

import (
	"errors"
	"fmt"

	"github.com/localdb/docstore/reclog"
	"github.com/localdb/docstore/secindex"
)

var (
	// ErrNotFound is returned when Update targets a document that does not
	// exist, or a document lookup misses entirely. Delete of a missing
	// document is a no-op and returns nil.
	ErrNotFound = errors.New("docstore: document not found")

	// ErrClosed is returned by Store.Collection once Close has been called.
	ErrClosed = errors.New("docstore: store is closed")
)

// ErrOutOfRange indicates a numeric value fell outside the encodable range
// for canonical key construction (±10^12).
type ErrOutOfRange struct {
	Field string
	Value float64
	cause error
}

func (e *ErrOutOfRange) Error() string {
	return fmt.Sprintf("docstore: value %g for field %q is out of canonical encoding range", e.Value, e.Field)
}

func (e *ErrOutOfRange) Unwrap() error { return e.cause }

// ParseError indicates a log line or index file could not be parsed.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ParseError struct {
	Path string
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("docstore: parse error in %s at line %d: %v", e.Path, e.Line, e.Err)
	}
	return fmt.Sprintf("docstore: parse error in %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// translateError maps subsystem-internal sentinel errors onto the package's
// public error taxonomy, preserving the original error via %w chaining.
func translateError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, reclog.ErrNotFound) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}

	var pe *reclog.ParseError
	if errors.As(err, &pe) {
		return &ParseError{Path: pe.Path, Line: pe.Line, Err: err}
	}

	var oor *secindex.ErrOutOfRange
	if errors.As(err, &oor) {
		return &ErrOutOfRange{Field: oor.Field, Value: oor.Value, cause: err}
	}

	if errors.Is(err, secindex.ErrCorrupt) {
		return &ParseError{Err: err}
	}

	return err
}
