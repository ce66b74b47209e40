package models

import (
	"errors"
	"fmt"
)

// Error taxonomy of a reconciliation run.
var (
	// ErrMalformedRow a field cannot be parsed into its declared kind; the row is skipped
	ErrMalformedRow = errors.New("malformed row")

	// ErrReferentialGap a foreign key points to an id missing locally; the row is skipped
	ErrReferentialGap = errors.New("referential gap")

	// ErrIntegrityRisk an id names unrelated records on the two replicas; the row is skipped
	ErrIntegrityRisk = errors.New("integrity risk")

	// ErrArchive the bundle cannot be read; the whole run is aborted
	ErrArchive = errors.New("archive error")
)

// RowError is a recoverable, row-level failure recorded in the run result.
type RowError struct {
	Kind   error
	Member string
	Line   int
	Key    string
	Msg    string
}

// NewRowError creates a row error of the given kind.
func NewRowError(kind error, member string, line int, format string, args ...any) *RowError {
	return &RowError{
		Kind:   kind,
		Member: member,
		Line:   line,
		Msg:    fmt.Sprintf(format, args...),
	}
}

func (e *RowError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("%s line %d [%s]: %v: %s", e.Member, e.Line, e.Key, e.Kind, e.Msg)
	}
	return fmt.Sprintf("%s line %d: %v: %s", e.Member, e.Line, e.Kind, e.Msg)
}

func (e *RowError) Unwrap() error {
	return e.Kind
}

// KindLabel returns a short label of the error kind for metrics and reports.
func (e *RowError) KindLabel() string {
	switch {
	case errors.Is(e.Kind, ErrMalformedRow):
		return "malformed_row"
	case errors.Is(e.Kind, ErrReferentialGap):
		return "referential_gap"
	case errors.Is(e.Kind, ErrIntegrityRisk):
		return "integrity_risk"
	}
	return "unknown"
}
