// Package tensor provides the dense float tensor used for model parameters,
// model inputs and model outputs.
//
// Tensors are stored row-major in float64. On disk they are msgpack extension
// values (see [ExtID]) so that a checkpoint decoded into an untyped tree keeps
// tensors distinguishable from nested mappings.
package tensor

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
)

// ExtID is the msgpack extension type id used for tensors.
const ExtID int8 = 1

func init() {
	msgpack.RegisterExt(ExtID, (*Tensor)(nil))
}

// Tensor is a dense, row-major n-dimensional array.
type Tensor struct {
	Shape []int
	Data  []float64
}

// New creates a tensor, checking that data matches the shape.
func New(shape []int, data []float64) (*Tensor, error) {
	n, err := numel(shape)
	if err != nil {
		return nil, err
	}
	if n != len(data) {
		return nil, fmt.Errorf("%w: shape %s needs %d values, got %d", ErrShape, FormatShape(shape), n, len(data))
	}
	return &Tensor{Shape: slices.Clone(shape), Data: data}, nil
}

// Zeros returns a zero-filled tensor of the given shape.
// It panics on negative dimensions.
func Zeros(shape ...int) *Tensor {
	n, err := numel(shape)
	if err != nil {
		panic(err)
	}
	return &Tensor{Shape: slices.Clone(shape), Data: make([]float64, n)}
}

// FromFloat32 converts float32 values into a tensor.
func FromFloat32(shape []int, data []float32) (*Tensor, error) {
	out := make([]float64, len(data))
	for i, v := range data {
		out[i] = float64(v)
	}
	return New(shape, out)
}

// Numel returns the number of elements.
func (t *Tensor) Numel() int {
	return len(t.Data)
}

// Dim returns the number of dimensions.
func (t *Tensor) Dim() int {
	return len(t.Shape)
}

// SameShape reports whether t and o have identical shapes.
func (t *Tensor) SameShape(o *Tensor) bool {
	return slices.Equal(t.Shape, o.Shape)
}

// Clone returns a deep copy.
func (t *Tensor) Clone() *Tensor {
	return &Tensor{Shape: slices.Clone(t.Shape), Data: slices.Clone(t.Data)}
}

// Reshape returns a view of t with a new shape over the same data.
func (t *Tensor) Reshape(shape ...int) (*Tensor, error) {
	n, err := numel(shape)
	if err != nil {
		return nil, err
	}
	if n != len(t.Data) {
		return nil, fmt.Errorf("%w: cannot reshape %s into %s", ErrShape, FormatShape(t.Shape), FormatShape(shape))
	}
	return &Tensor{Shape: slices.Clone(shape), Data: t.Data}, nil
}

// Row returns row i of a 2-D tensor without copying.
func (t *Tensor) Row(i int) []float64 {
	cols := t.Shape[1]
	return t.Data[i*cols : (i+1)*cols]
}

// String implements fmt.Stringer.
func (t *Tensor) String() string {
	return "Tensor" + FormatShape(t.Shape)
}

// FormatShape renders a shape as "[a, b, c]".
func FormatShape(shape []int) string {
	parts := make([]string, len(shape))
	for i, d := range shape {
		parts[i] = strconv.Itoa(d)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func numel(shape []int) (int, error) {
	n := 1
	for _, d := range shape {
		if d < 0 {
			return 0, fmt.Errorf("%w: negative dimension in %s", ErrShape, FormatShape(shape))
		}
		n *= d
	}
	return n, nil
}
