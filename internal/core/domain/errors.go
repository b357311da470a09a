package domain

import "errors"

// Sentinel errors used across the pipeline.
var (
	// ErrInvalidInput indicates malformed or missing input data.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUnsupportedFormat indicates no normaliser handles an artifact.
	ErrUnsupportedFormat = errors.New("unsupported format")
)
