package pipeline

import (
	"github.com/ekisa-team/some/internal/registry"
	"github.com/ekisa-team/some/internal/tensor"
)

// Result is one structured output: named channels of numeric data.
type Result map[string][]float64

// Task is the task-specific part of a pipeline: how a waveform becomes model
// input, how the model is invoked, and how its output is read back.
type Task interface {
	// Preprocess turns one waveform into named model inputs.
	Preprocess(waveform []float32) (tensor.Map, error)

	// Forward runs the model on prepared inputs.
	Forward(sample tensor.Map) (tensor.Map, error)

	// Postprocess turns raw model outputs into results for one item.
	Postprocess(outputs tensor.Map) ([]Result, error)
}

// TaskConstructor builds a task around an already-built Base.
type TaskConstructor func(base *Base) (Task, error)

// Register makes a task resolvable by class name.
func Register(className string, ctor TaskConstructor) {
	registry.Register(className, ctor)
}

// Unimplemented can be embedded in a Task to satisfy the interface; every
// stage it provides fails with a *NotImplementedError.
type Unimplemented struct{}

func (Unimplemented) Preprocess([]float32) (tensor.Map, error) {
	return nil, &NotImplementedError{Stage: StagePreprocess}
}

func (Unimplemented) Forward(tensor.Map) (tensor.Map, error) {
	return nil, &NotImplementedError{Stage: StageForward}
}

func (Unimplemented) Postprocess(tensor.Map) ([]Result, error) {
	return nil, &NotImplementedError{Stage: StagePostprocess}
}
