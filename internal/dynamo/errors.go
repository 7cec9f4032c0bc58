package dynamo

import "errors"

// Configuration and simulation errors. Configuration errors are
// rejected at the boundary, before any stepping begins.
var (
	// ErrInvalidSpan indicates t0 > tEnd.
	ErrInvalidSpan = errors.New("dynamo: invalid time span")

	// ErrInvalidStep indicates a non-positive step size.
	ErrInvalidStep = errors.New("dynamo: step size must be positive")

	// ErrMissingInit indicates an empty initial state.
	ErrMissingInit = errors.New("dynamo: missing initial state")

	// ErrMissingInput indicates a required input signal is absent.
	ErrMissingInput = errors.New("dynamo: missing input signal")

	// ErrInvalidState indicates a state with NaN or Inf entries.
	ErrInvalidState = errors.New("dynamo: invalid state (NaN or Inf detected)")

	// ErrUnknownField indicates a trajectory column that does not exist.
	ErrUnknownField = errors.New("dynamo: unknown state field")

	// ErrDimensionMismatch indicates mismatched state/model dimensions.
	ErrDimensionMismatch = errors.New("dynamo: dimension mismatch between state and model")
)
