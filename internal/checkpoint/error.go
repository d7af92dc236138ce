package checkpoint

import (
	"errors"
	"fmt"
)

// Error definitions for the checkpoint package.
var (
	ErrDecode            = errors.New("checkpoint is not a decodable artifact")
	ErrUnsupportedFormat = errors.New("unsupported checkpoint format")
)

// FormatError reports a checkpoint whose content does not match any
// accepted layout.
type FormatError struct {
	Path   string
	Reason string
	Err    error
}

func (e *FormatError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("checkpoint: %v at %s", e.Err, e.Path)
	}
	return fmt.Sprintf("checkpoint: %v at %s: %s", e.Err, e.Path, e.Reason)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}
