package tensor

import (
	"maps"
	"slices"
)

// Map is a name-to-tensor mapping: model inputs, model outputs, or a state
// dict of trained parameters.
type Map map[string]*Tensor

// Keys returns the names in sorted order.
func (m Map) Keys() []string {
	return slices.Sorted(maps.Keys(m))
}

// Numel returns the total number of elements across all tensors.
func (m Map) Numel() int {
	n := 0
	for _, t := range m {
		n += t.Numel()
	}
	return n
}
