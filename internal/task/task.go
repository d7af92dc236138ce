// Package task maps training task identifiers to the inference task that
// serves them.
package task

import (
	"fmt"
	"maps"
	"slices"

	"github.com/ekisa-team/some/internal/config"
	"github.com/ekisa-team/some/internal/pipeline"
	"github.com/ekisa-team/some/internal/registry"
)

// Training task identifiers.
const (
	MIDIExtraction          = "training.MIDIExtractionTask"
	QuantizedMIDIExtraction = "training.QuantizedMIDIExtractionTask"
)

var inferenceClasses = map[string]string{
	MIDIExtraction:          "some.inference.MIDIExtractionInference",
	QuantizedMIDIExtraction: "some.inference.QuantizedMIDIExtractionInference",
}

// InferenceClass returns the inference class registered for a training task
// identifier. Matching is exact.
func InferenceClass(id string) (string, bool) {
	name, ok := inferenceClasses[id]
	return name, ok
}

// IDs returns the known training task identifiers in sorted order.
func IDs() []string {
	return slices.Sorted(maps.Keys(inferenceClasses))
}

// Resolve returns the constructor of the inference task for id. The class is
// looked up in the registry on every call.
func Resolve(id string) (pipeline.TaskConstructor, error) {
	name, ok := InferenceClass(id)
	if !ok {
		return nil, fmt.Errorf("task: %w", &registry.ResolutionError{Name: id, Err: registry.ErrNotFound})
	}

	ctor, err := registry.Resolve[pipeline.TaskConstructor](name)
	if err != nil {
		return nil, fmt.Errorf("task %s: %w", id, err)
	}
	return ctor, nil
}

// FromConfig builds the pipeline for the task recorded under task_cls.
func FromConfig(cfg *config.Config, modelPath string, opts ...pipeline.Option) (*pipeline.Pipeline, error) {
	id := cfg.TaskClass()
	if id == "" {
		return nil, fmt.Errorf("task: %w: %s", config.ErrMissingKey, config.KeyTaskClass)
	}

	ctor, err := Resolve(id)
	if err != nil {
		return nil, err
	}
	return pipeline.New(cfg, modelPath, ctor, opts...)
}
