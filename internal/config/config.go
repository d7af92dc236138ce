// Package config loads the training-time configuration that accompanies a
// checkpoint.
//
// A configuration is an open mapping: the core reads a handful of keys
// (model_cls, task_cls, hop_size, audio_sample_rate) and hands the whole
// mapping to the architecture and task constructors, which read their own.
package config

import (
	"fmt"
	"maps"
	"slices"
)

// Keys read by the core.
const (
	KeyModelClass = "model_cls"
	KeyTaskClass  = "task_cls"
	KeyHopSize    = "hop_size"
	KeySampleRate = "audio_sample_rate"
)

// Config is an immutable string-keyed configuration mapping.
type Config struct {
	values map[string]any
}

// New wraps values. The map and every nested map or list are copied;
// callers may reuse them.
func New(values map[string]any) *Config {
	if values == nil {
		return &Config{}
	}
	return &Config{values: deepCopy(values).(map[string]any)}
}

// Get returns a copy of the raw value stored under key.
func (c *Config) Get(key string) (any, bool) {
	v, ok := c.values[key]
	return deepCopy(v), ok
}

// Keys returns the top-level keys in sorted order.
func (c *Config) Keys() []string {
	return slices.Sorted(maps.Keys(c.values))
}

// Map returns a deep copy of the underlying mapping.
func (c *Config) Map() map[string]any {
	if c.values == nil {
		return nil
	}
	return deepCopy(c.values).(map[string]any)
}

// deepCopy copies the containers YAML decoding produces. Scalars are
// returned as is.
func deepCopy(v any) any {
	switch x := v.(type) {
	case map[string]any:
		if x == nil {
			return x
		}
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = deepCopy(e)
		}
		return out
	case map[any]any:
		if x == nil {
			return x
		}
		out := make(map[any]any, len(x))
		for k, e := range x {
			out[k] = deepCopy(e)
		}
		return out
	case []any:
		if x == nil {
			return x
		}
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = deepCopy(e)
		}
		return out
	default:
		return v
	}
}

// ModelClass returns the architecture class reference.
func (c *Config) ModelClass() string {
	return Value(c, KeyModelClass, "")
}

// TaskClass returns the training task identifier.
func (c *Config) TaskClass() string {
	return Value(c, KeyTaskClass, "")
}

// HopSize returns the analysis hop size in samples.
func (c *Config) HopSize() float64 {
	return Value(c, KeyHopSize, 0.0)
}

// SampleRate returns the audio sample rate in Hz.
func (c *Config) SampleRate() float64 {
	return Value(c, KeySampleRate, 0.0)
}

// Validate checks the keys the core cannot run without.
func (c *Config) Validate() error {
	if c.ModelClass() == "" {
		return fmt.Errorf("%w: %s", ErrMissingKey, KeyModelClass)
	}
	if c.HopSize() <= 0 {
		return fmt.Errorf("%w: %s must be a positive number", ErrMissingKey, KeyHopSize)
	}
	if c.SampleRate() <= 0 {
		return fmt.Errorf("%w: %s must be a positive number", ErrMissingKey, KeySampleRate)
	}
	return nil
}
