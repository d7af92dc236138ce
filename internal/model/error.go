package model

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ekisa-team/some/internal/tensor"
)

// Error definitions for the model package.
var (
	ErrMismatch = errors.New("state dict does not match model parameters")
)

// ShapeMismatch is a parameter present on both sides with different shapes.
type ShapeMismatch struct {
	Name string
	Want []int
	Got  []int
}

// MismatchError lists every discrepancy between a state dict and the
// parameters a module declares.
type MismatchError struct {
	Missing    []string
	Unexpected []string
	Shapes     []ShapeMismatch
}

func (e *MismatchError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, fmt.Sprintf("missing keys: %s", strings.Join(e.Missing, ", ")))
	}
	if len(e.Unexpected) > 0 {
		parts = append(parts, fmt.Sprintf("unexpected keys: %s", strings.Join(e.Unexpected, ", ")))
	}
	for _, s := range e.Shapes {
		parts = append(parts, fmt.Sprintf("size mismatch for %s: checkpoint %s, model %s",
			s.Name, tensor.FormatShape(s.Got), tensor.FormatShape(s.Want)))
	}
	return fmt.Sprintf("model: %v: %s", ErrMismatch, strings.Join(parts, "; "))
}

func (e *MismatchError) Unwrap() error {
	return ErrMismatch
}
