package tensor

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

const (
	dtypeFloat32 = "float32"
	dtypeFloat64 = "float64"
)

// wireTensor is the payload of the tensor msgpack extension.
type wireTensor struct {
	DType string    `msgpack:"dtype"`
	Shape []int     `msgpack:"shape"`
	F32   []float32 `msgpack:"f32,omitempty"`
	F64   []float64 `msgpack:"f64,omitempty"`
}

// MarshalMsgpack implements msgpack.Marshaler. Values are stored as float32,
// which is what trained checkpoints carry.
func (t *Tensor) MarshalMsgpack() ([]byte, error) {
	w := wireTensor{DType: dtypeFloat32, Shape: t.Shape, F32: make([]float32, len(t.Data))}
	for i, v := range t.Data {
		w.F32[i] = float32(v)
	}
	return msgpack.Marshal(&w)
}

// UnmarshalMsgpack implements msgpack.Unmarshaler.
func (t *Tensor) UnmarshalMsgpack(b []byte) error {
	var w wireTensor
	if err := msgpack.Unmarshal(b, &w); err != nil {
		return fmt.Errorf("tensor: decode: %w", err)
	}

	var data []float64
	switch w.DType {
	case dtypeFloat32:
		data = make([]float64, len(w.F32))
		for i, v := range w.F32 {
			data[i] = float64(v)
		}
	case dtypeFloat64:
		data = w.F64
		if data == nil {
			data = []float64{}
		}
	default:
		return fmt.Errorf("%w: %q", ErrDType, w.DType)
	}

	decoded, err := New(w.Shape, data)
	if err != nil {
		return err
	}
	*t = *decoded
	return nil
}
