package common

import (
	"errors"
	"fmt"
	"strings"

	"forecast-ingest/edi/internal/constants"
)

// StructuralError aborts a whole interchange: a required envelope segment is missing
type StructuralError struct {
	Missing []string
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("invalid interchange envelope: missing %s segment(s)", strings.Join(e.Missing, ", "))
}

// SegmentError rejects a single malformed segment; the batch continues
type SegmentError struct {
	Index  int
	Tag    string
	Reason string
}

func (e *SegmentError) Error() string {
	return fmt.Sprintf("segment %d (%s): %s", e.Index, e.Tag, e.Reason)
}

// MappingError aborts a tabular import before any row is read
type MappingError struct {
	Missing []string
}

func (e *MappingError) Error() string {
	return fmt.Sprintf("missing required column(s): %s", strings.Join(e.Missing, ", "))
}

// RowError rejects a single tabular row
type RowError struct {
	Row    int
	Reason string
	Err    error
}

func (e *RowError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("row %d: %s: %v", e.Row, e.Reason, e.Err)
	}
	return fmt.Sprintf("row %d: %s", e.Row, e.Reason)
}

func (e *RowError) Unwrap() error { return e.Err }

// DateFormatError is returned instead of guessing at an ambiguous or unknown date
type DateFormatError struct {
	Value  string
	Reason string
}

func (e *DateFormatError) Error() string {
	return fmt.Sprintf("unparseable date %q: %s", e.Value, e.Reason)
}

// PersistenceError aborts and rolls back the enclosing batch
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failure during %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// TransportError is logged by the orchestrator; the cycle continues with local files
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s failed: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ErrorCode maps an error onto its ingestion error code
func ErrorCode(err error) string {
	var (
		structural  *StructuralError
		segment     *SegmentError
		mapping     *MappingError
		row         *RowError
		date        *DateFormatError
		persistence *PersistenceError
		transport   *TransportError
	)
	switch {
	case errors.As(err, &structural):
		return constants.ErrCodeStructural
	case errors.As(err, &mapping):
		return constants.ErrCodeMapping
	case errors.As(err, &persistence):
		return constants.ErrCodePersistence
	case errors.As(err, &date):
		return constants.ErrCodeDateFormat
	case errors.As(err, &segment):
		return constants.ErrCodeSegment
	case errors.As(err, &row):
		return constants.ErrCodeRow
	case errors.As(err, &transport):
		return constants.ErrCodeTransport
	default:
		return ""
	}
}
