package kernel

import "errors"

// Kernel errors. Both are detected eagerly, before any per-element
// work; a failed call returns no partial results.
var (
	// ErrUnsupported indicates the column's data type is outside the
	// fixed-width integer domain the kernel supports.
	ErrUnsupported = errors.New("unsupported column type")

	// ErrInvalidInput indicates a malformed column, such as a validity
	// bitmap too short for the column length.
	ErrInvalidInput = errors.New("invalid input column")
)
