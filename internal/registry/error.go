package registry

import (
	"errors"
	"fmt"
)

// Error definitions for the registry package.
var (
	ErrNotFound   = errors.New("class not found in registry")
	ErrCapability = errors.New("class does not provide the required capability")
)

// ResolutionError reports a class name that could not be resolved.
type ResolutionError struct {
	Name string
	Want string
	Got  string
	Err  error
}

func (e *ResolutionError) Error() string {
	if e.Got != "" {
		return fmt.Sprintf("registry: resolve %q: %v: want %s, got %s", e.Name, e.Err, e.Want, e.Got)
	}
	return fmt.Sprintf("registry: resolve %q: %v", e.Name, e.Err)
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}
