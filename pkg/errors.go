package advlab

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyProfile      = errors.New("empty rate profile")
	ErrNoMeasurements    = errors.New("no line measurements")
	ErrPeakCountMismatch = errors.New("angles carry a different number of peaks")
)

// ErrOpenFile represents an error when opening a file.
type ErrOpenFile struct {
	Filename string
	Err      error
}

func (e *ErrOpenFile) Error() string {
	return fmt.Sprintf("error opening file %q: %v", e.Filename, e.Err)
}

func (e *ErrOpenFile) Unwrap() error {
	return e.Err
}

// ErrSingularMatrix is returned when a covariance or information matrix
// of the vertex fit cannot be inverted.
type ErrSingularMatrix struct {
	Matrix string
	Line   int
	Err    error
}

func (e *ErrSingularMatrix) Error() string {
	if e.Line < 0 {
		return fmt.Sprintf("singular matrix %s: %v", e.Matrix, e.Err)
	}
	return fmt.Sprintf("singular matrix %s for line %d: %v", e.Matrix, e.Line, e.Err)
}

func (e *ErrSingularMatrix) Unwrap() error {
	return e.Err
}
