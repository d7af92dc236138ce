package model

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/ekisa-team/some/internal/checkpoint"
	"github.com/ekisa-team/some/internal/config"
	"github.com/ekisa-team/some/internal/device"
	"github.com/ekisa-team/some/internal/registry"
	"github.com/ekisa-team/some/internal/tensor"
)

const linearClass = "test.model.Linear"

// linear is y = x W^T + b with a fixed 2x2 weight.
type linear struct {
	Base
	weight *tensor.Tensor
	bias   *tensor.Tensor
	extra  *tensor.Tensor
}

func newLinear(cfg *config.Config) (Module, error) {
	m := &linear{weight: tensor.Zeros(2, 2), bias: tensor.Zeros(2)}
	if config.Value(cfg, "with_extra", false) {
		m.extra = tensor.Zeros(1)
	}
	return m, nil
}

func (m *linear) Parameters() tensor.Map {
	p := tensor.Map{"linear.weight": m.weight, "linear.bias": m.bias}
	if m.extra != nil {
		p["a.b"] = m.extra
	}
	return p
}

func (m *linear) Forward(in tensor.Map) (tensor.Map, error) {
	x := in["x"]
	out := tensor.Zeros(2)
	for i := range 2 {
		out.Data[i] = m.bias.Data[i]
		for j := range 2 {
			out.Data[i] += m.weight.Data[i*2+j] * x.Data[j]
		}
	}
	return tensor.Map{"y": out}, nil
}

func init() {
	Register(linearClass, newLinear)
}

func testConfig(extra map[string]any) *config.Config {
	values := map[string]any{
		"model_cls":         linearClass,
		"hop_size":          512,
		"audio_sample_rate": 44100,
	}
	for k, v := range extra {
		values[k] = v
	}
	return config.New(values)
}

func linearParams(t *testing.T) tensor.Map {
	t.Helper()
	w, err := tensor.New([]int{2, 2}, []float64{1, 0, 0, 2})
	require.NoError(t, err)
	b, err := tensor.New([]int{2}, []float64{0.5, -0.5})
	require.NoError(t, err)
	return tensor.Map{"linear.weight": w, "linear.bias": b}
}

func TestBuild_EveryLayout(t *testing.T) {
	for _, shape := range []checkpoint.Shape{checkpoint.ShapeStateDict, checkpoint.ShapeExported, checkpoint.ShapeRaw} {
		t.Run(shape.String(), func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "model.ckpt")
			require.NoError(t, checkpoint.Save(path, linearParams(t), checkpoint.WithLayout(shape)))

			m, err := Build(testConfig(nil), path, device.CPU)
			require.NoError(t, err)
			assert.False(t, m.Training())
			assert.Equal(t, device.CPU, m.Device())

			x, _ := tensor.New([]int{2}, []float64{1, 1})
			out, err := m.Forward(tensor.Map{"x": x})
			require.NoError(t, err)
			assert.Equal(t, []float64{1.5, 1.5}, out["y"].Data)
		})
	}
}

func TestBuild_PlacesOnRequestedDevice(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.ckpt")
	require.NoError(t, checkpoint.Save(path, linearParams(t)))

	cuda := device.Device{Kind: device.KindCUDA, Index: 1}
	m, err := Build(testConfig(nil), path, cuda)
	require.NoError(t, err)
	assert.Equal(t, cuda, m.Device())
}

func TestBuild_MissingKeyNamed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.ckpt")
	require.NoError(t, checkpoint.Save(path, linearParams(t)))

	_, err := Build(testConfig(map[string]any{"with_extra": true}), path, device.CPU)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMismatch)

	var merr *MismatchError
	require.True(t, errors.As(err, &merr))
	assert.Equal(t, []string{"a.b"}, merr.Missing)
	assert.Contains(t, err.Error(), "a.b")
}

func TestBuild_UnexpectedAndShapeMismatch(t *testing.T) {
	params := linearParams(t)
	params["linear.bias"] = tensor.Zeros(3)
	params["stray"] = tensor.Zeros(1)

	path := filepath.Join(t.TempDir(), "model.ckpt")
	require.NoError(t, checkpoint.Save(path, params))

	_, err := Build(testConfig(nil), path, device.CPU)

	var merr *MismatchError
	require.True(t, errors.As(err, &merr))
	assert.Equal(t, []string{"stray"}, merr.Unexpected)
	require.Len(t, merr.Shapes, 1)
	assert.Equal(t, "linear.bias", merr.Shapes[0].Name)
	assert.Equal(t, []int{2}, merr.Shapes[0].Want)
	assert.Equal(t, []int{3}, merr.Shapes[0].Got)
}

func TestBuild_UnknownClass(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.ckpt")
	require.NoError(t, checkpoint.Save(path, linearParams(t)))

	_, err := Build(testConfig(map[string]any{"model_cls": "test.model.Nope"}), path, device.CPU)
	assert.ErrorIs(t, err, registry.ErrNotFound)
	assert.Contains(t, err.Error(), "test.model.Nope")
}

func TestBuild_UnsupportedCheckpointNamesPath(t *testing.T) {
	b, err := msgpack.Marshal([]any{"not", "a", "mapping"})
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "bad.ckpt")
	require.NoError(t, os.WriteFile(path, b, 0o644))

	_, err = Build(testConfig(nil), path, device.CPU)
	assert.ErrorIs(t, err, checkpoint.ErrUnsupportedFormat)

	var ferr *checkpoint.FormatError
	require.True(t, errors.As(err, &ferr))
	assert.Equal(t, path, ferr.Path)
}

func TestLoadStateDict_NoPartialWrite(t *testing.T) {
	m, err := newLinear(testConfig(nil))
	require.NoError(t, err)

	sd := linearParams(t)
	sd["stray"] = tensor.Zeros(1)

	require.Error(t, LoadStateDict(m, sd))
	assert.Equal(t, []float64{0, 0, 0, 0}, m.Parameters()["linear.weight"].Data)
}
