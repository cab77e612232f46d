package bucket

import (
	"errors"
	"fmt"

	"github.com/hupe1980/vecbucket/model"
)

// ErrPrecondition is the category of caller errors: mismatched lengths,
// searching an empty bucket, missing sketches. Every such error matches it
// with errors.Is.
var ErrPrecondition = errors.New("bucket: precondition violated")

var (
	// ErrNotTrained is returned by Add and Search before Train.
	ErrNotTrained = fmt.Errorf("%w: not trained", ErrPrecondition)

	// ErrNotAdded is returned by searches before any Add or after Reset.
	ErrNotAdded = fmt.Errorf("%w: no vectors added", ErrPrecondition)

	// ErrSketchesRequired is returned when a sketch-based bucket gets no sketches.
	ErrSketchesRequired = fmt.Errorf("%w: sketches required", ErrPrecondition)

	// ErrInvalidK is returned when k is not positive.
	ErrInvalidK = fmt.Errorf("%w: k must be positive", ErrPrecondition)

	// ErrEmptyTrainingSet is returned when Train receives no vectors.
	ErrEmptyTrainingSet = fmt.Errorf("%w: empty training set", ErrPrecondition)
)

// ErrUnsupportedKind is returned by New for kinds not compiled into the binary.
var ErrUnsupportedKind = errors.New("bucket: unsupported kind")

// ErrLengthMismatch indicates two parallel inputs of different lengths.
type ErrLengthMismatch struct {
	What     string
	Expected int
	Actual   int
}

func (e *ErrLengthMismatch) Error() string {
	return fmt.Sprintf("bucket: %s length mismatch: expected %d, got %d", e.What, e.Expected, e.Actual)
}

func (e *ErrLengthMismatch) Is(target error) bool { return target == ErrPrecondition }

// ErrDimensionMismatch indicates a vector/query or sketch width mismatch.
type ErrDimensionMismatch struct {
	What     string
	Expected int
	Actual   int
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("bucket: %s dimension mismatch: expected %d, got %d", e.What, e.Expected, e.Actual)
}

func (e *ErrDimensionMismatch) Is(target error) bool { return target == ErrPrecondition }

func checkLength(what string, expected, actual int) error {
	if expected != actual {
		return &ErrLengthMismatch{What: what, Expected: expected, Actual: actual}
	}
	return nil
}

func checkDim(what string, expected, actual int) error {
	if expected != actual {
		return &ErrDimensionMismatch{What: what, Expected: expected, Actual: actual}
	}
	return nil
}

// CheckShape rejects a matrix whose storage does not split into whole rows.
// Actual is the width of the trailing partial row.
func CheckShape(what string, m model.Matrix) error {
	if m.Dim < 0 || (m.Dim == 0 && len(m.Data) > 0) {
		return &ErrDimensionMismatch{What: what, Expected: m.Dim, Actual: len(m.Data)}
	}
	if m.Dim > 0 && len(m.Data)%m.Dim != 0 {
		return &ErrDimensionMismatch{What: what, Expected: m.Dim, Actual: len(m.Data) % m.Dim}
	}
	return nil
}
