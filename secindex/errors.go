package secindex

import (
	"errors"
	"fmt"
)

// ErrCorrupt is returned when a persisted index file fails to parse. The
// index manager treats this as a signal to rebuild, not a fatal error.
var ErrCorrupt = errors.New("secindex: corrupt index file")

// ErrOutOfRange indicates a numeric value fell outside the ±10^12 range the
// canonical numeric key encoding supports.
type ErrOutOfRange struct {
	Field string
	Value float64
}

func (e *ErrOutOfRange) Error() string {
	return fmt.Sprintf("secindex: value %g for field %q is out of canonical numeric range", e.Value, e.Field)
}
