package checkpoint

import (
	"fmt"
	"strings"

	"github.com/ekisa-team/some/internal/tensor"
)

// Layout identifiers and wrapper keys.
const (
	StateDictKey = "state_dict"
	ModelKey     = "model"

	// ModelPrefix namespaces the model's entries inside a training state dict.
	ModelPrefix = "model."
)

// Shape is the on-disk layout a checkpoint was classified as.
type Shape int

const (
	// ShapeUnknown is the zero value; never returned with a nil error.
	ShapeUnknown Shape = iota

	// ShapeStateDict is a training checkpoint: {"state_dict": {"model.x": T, ...}, ...}.
	ShapeStateDict

	// ShapeExported is an exported checkpoint: {"model": {"x": T, ...}}.
	ShapeExported

	// ShapeRaw is a bare parameter mapping: {"x": T, ...}.
	ShapeRaw
)

func (s Shape) String() string {
	switch s {
	case ShapeStateDict:
		return "state_dict"
	case ShapeExported:
		return "exported"
	case ShapeRaw:
		return "raw"
	default:
		return fmt.Sprintf("Shape(%d)", int(s))
	}
}

// ParseShape parses the names returned by Shape.String.
func ParseShape(s string) (Shape, error) {
	switch s {
	case "state_dict", "state-dict":
		return ShapeStateDict, nil
	case "exported", "model":
		return ShapeExported, nil
	case "raw":
		return ShapeRaw, nil
	default:
		return ShapeUnknown, fmt.Errorf("checkpoint: unknown layout %q", s)
	}
}

// matcher extracts the parameter mapping for one layout. It reports ok=false
// when the artifact is not in that layout, and an error when it is but the
// content is malformed.
type matcher func(root map[string]any) (params tensor.Map, ok bool, err error)

// shapes is checked in order; the first match wins. The wrapped layouts must
// come before ShapeRaw, which accepts any mapping.
var shapes = []struct {
	shape Shape
	match matcher
}{
	{ShapeStateDict, matchStateDict},
	{ShapeExported, matchExported},
	{ShapeRaw, matchRaw},
}

// Classify determines the layout of a decoded artifact and extracts its
// parameter mapping. The returned error, if any, is a *FormatError without a
// path.
func Classify(artifact any) (Shape, tensor.Map, error) {
	root, ok := asMap(artifact)
	if !ok {
		return ShapeUnknown, nil, &FormatError{
			Err:    ErrUnsupportedFormat,
			Reason: fmt.Sprintf("artifact is %s, not a mapping", describe(artifact)),
		}
	}

	for _, s := range shapes {
		params, ok, err := s.match(root)
		if err != nil {
			return ShapeUnknown, nil, &FormatError{Err: ErrUnsupportedFormat, Reason: err.Error()}
		}
		if ok {
			return s.shape, params, nil
		}
	}

	return ShapeUnknown, nil, &FormatError{Err: ErrUnsupportedFormat}
}

func matchStateDict(root map[string]any) (tensor.Map, bool, error) {
	v, ok := root[StateDictKey]
	if !ok {
		return nil, false, nil
	}
	sd, ok := asMap(v)
	if !ok {
		return nil, false, fmt.Errorf("%q is %s, not a mapping", StateDictKey, describe(v))
	}

	params := make(tensor.Map)
	for k, v := range sd {
		name, found := strings.CutPrefix(k, ModelPrefix)
		if !found {
			continue
		}
		t, ok := v.(*tensor.Tensor)
		if !ok {
			return nil, false, fmt.Errorf("entry %q is %s, not a tensor", k, describe(v))
		}
		params[name] = t
	}
	return params, true, nil
}

func matchExported(root map[string]any) (tensor.Map, bool, error) {
	v, ok := root[ModelKey]
	if !ok {
		return nil, false, nil
	}
	m, ok := asMap(v)
	if !ok {
		return nil, false, nil
	}

	params, err := tensors(m)
	if err != nil {
		return nil, false, fmt.Errorf("%q: %w", ModelKey, err)
	}
	return params, true, nil
}

func matchRaw(root map[string]any) (tensor.Map, bool, error) {
	if len(root) == 0 {
		return nil, false, fmt.Errorf("parameter mapping is empty")
	}
	params, err := tensors(root)
	if err != nil {
		return nil, false, err
	}
	return params, true, nil
}

func tensors(m map[string]any) (tensor.Map, error) {
	params := make(tensor.Map, len(m))
	for k, v := range m {
		t, ok := v.(*tensor.Tensor)
		if !ok {
			return nil, fmt.Errorf("entry %q is %s, not a tensor", k, describe(v))
		}
		params[k] = t
	}
	return params, nil
}

// asMap normalizes the two map types msgpack may produce.
func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, v := range m {
			s, ok := k.(string)
			if !ok {
				return nil, false
			}
			out[s] = v
		}
		return out, true
	default:
		return nil, false
	}
}

func describe(v any) string {
	if v == nil {
		return "nil"
	}
	return fmt.Sprintf("%T", v)
}
