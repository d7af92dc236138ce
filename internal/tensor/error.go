package tensor

import "errors"

// Error definitions for the tensor package.
var (
	ErrShape = errors.New("tensor shape mismatch")
	ErrDType = errors.New("unsupported tensor dtype")
)
