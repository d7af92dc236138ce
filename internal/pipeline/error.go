package pipeline

import (
	"errors"
	"fmt"
)

// Error definitions for the pipeline package.
var (
	ErrNotImplemented = errors.New("pipeline stage not implemented")
)

// Stage names a step of the per-item transformation.
type Stage string

const (
	StagePreprocess  Stage = "preprocess"
	StageForward     Stage = "forward"
	StagePostprocess Stage = "postprocess"
)

// NotImplementedError is returned by a stage a task does not provide.
type NotImplementedError struct {
	Stage Stage
}

func (e *NotImplementedError) Error() string {
	return fmt.Sprintf("pipeline: %s: %v", e.Stage, ErrNotImplemented)
}

func (e *NotImplementedError) Unwrap() error {
	return ErrNotImplemented
}

// ItemError reports the item and stage that aborted an Infer call.
type ItemError struct {
	Index int
	Stage Stage
	Err   error
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("pipeline: item %d: %s: %v", e.Index, e.Stage, e.Err)
}

func (e *ItemError) Unwrap() error {
	return e.Err
}
