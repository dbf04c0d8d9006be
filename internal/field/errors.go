package field

import (
	"errors"
	"fmt"
)

// Domain errors shared across the pipeline.
var (
	// ErrShapeMismatch indicates a rank or dimension disagreement at a
	// component boundary.
	ErrShapeMismatch = errors.New("waveprop: shape mismatch")

	// ErrConfiguration indicates geometry or hyperparameters inconsistent
	// between construction, persistence, training or rollout phases.
	ErrConfiguration = errors.New("waveprop: invalid configuration")

	// ErrDataFormat indicates a trajectory store file that is malformed or
	// missing expected arrays.
	ErrDataFormat = errors.New("waveprop: bad data format")
)

// ShapeError wraps ErrShapeMismatch with the offending dimensions.
type ShapeError struct {
	Op       string
	Expected []int
	Actual   []int
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("%s: %v: expected dims %v, got %v", e.Op, ErrShapeMismatch, e.Expected, e.Actual)
}

func (e *ShapeError) Unwrap() error {
	return ErrShapeMismatch
}

func shapeErr(op string, expected, actual []int) error {
	return &ShapeError{Op: op, Expected: expected, Actual: actual}
}
