package xunit

import (
	"errors"
	"fmt"
)

// Sentinel errors for report parsing.
var (
	// ErrEmptyReport marks a report without any test-case data. It is recoverable:
	// the report is skipped and the run continues.
	ErrEmptyReport = errors.New("empty report")
	// ErrMalformedReport marks a report that is not well-formed. It aborts the run.
	ErrMalformedReport = errors.New("malformed report")
)

// EmptyReportError is returned when a report is zero-length or contains no test cases.
type EmptyReportError struct {
	Path string
}

func (e *EmptyReportError) Error() string {
	return fmt.Sprintf("report %q seems to be empty", e.Path)
}

// Is matches ErrEmptyReport.
func (e *EmptyReportError) Is(target error) bool {
	return target == ErrEmptyReport
}

// MalformedReportError is returned when a report cannot be parsed.
type MalformedReportError struct {
	Path string
	Err  error
}

func (e *MalformedReportError) Error() string {
	return fmt.Sprintf("malformed report %q: %v", e.Path, e.Err)
}

// Unwrap returns the underlying decoder error.
func (e *MalformedReportError) Unwrap() error {
	return e.Err
}

// Is matches ErrMalformedReport.
func (e *MalformedReportError) Is(target error) bool {
	return target == ErrMalformedReport
}
