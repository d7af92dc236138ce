package service

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekisa-team/some/internal/checkpoint"
	"github.com/ekisa-team/some/internal/config"
	_ "github.com/ekisa-team/some/internal/inference"
	"github.com/ekisa-team/some/internal/pipeline"
	"github.com/ekisa-team/some/internal/tensor"
)

const configYAML = `task_cls: training.QuantizedMIDIExtractionTask
model_cls: some.modules.FrameNoteEstimator
hop_size: 16
audio_sample_rate: 1600
fft_size: 64
fmin: 0
audio_num_mel_bins: 4
hidden_size: 2
midi_num_bins: 3
midi_min: 60
`

// writeModel writes a config and a checkpoint whose quantized output is
// always class cls.
func writeModel(t *testing.T, dir string, cls int) (string, string) {
	t.Helper()
	bias := []float64{-5, -5, -5}
	bias[cls] = 5

	params := tensor.Map{
		"encoder.weight":    tensor.Zeros(2, 4),
		"encoder.bias":      tensor.Zeros(2),
		"midi_head.weight":  tensor.Zeros(3, 2),
		"midi_head.bias":    {Shape: []int{3}, Data: bias},
		"bound_head.weight": tensor.Zeros(1, 2),
		"bound_head.bias":   {Shape: []int{1}, Data: []float64{-5}},
	}

	cfgPath := filepath.Join(dir, "config.yaml")
	ckptPath := filepath.Join(dir, "model.ckpt")
	require.NoError(t, os.WriteFile(cfgPath, []byte(configYAML), 0o644))
	require.NoError(t, checkpoint.Save(ckptPath, params))
	return cfgPath, ckptPath
}

func firstMIDI(t *testing.T, m *Manager) float64 {
	t.Helper()
	res, _, err := m.Infer([][]float32{make([]float32, 32)})
	require.NoError(t, err)
	return res[0][0]["note_midi"][0]
}

func TestManager_InferBeforeLoad(t *testing.T) {
	m := NewManager()
	_, _, err := m.Infer([][]float32{{0}})
	assert.ErrorIs(t, err, ErrNotLoaded)
	assert.Equal(t, StatusUnloaded, m.State().Status)
}

func TestManager_Load(t *testing.T) {
	cfgPath, ckptPath := writeModel(t, t.TempDir(), 1)
	cfg, err := config.LoadAndValidate(cfgPath)
	require.NoError(t, err)

	m := NewManager(pipeline.WithDevice("cpu"))
	require.NoError(t, m.Load(cfg, ckptPath))

	s := m.State()
	assert.Equal(t, StatusLoaded, s.Status)
	require.NotNil(t, s.Instance)
	assert.NotEmpty(t, s.Instance.ID)
	assert.Equal(t, "training.QuantizedMIDIExtractionTask", s.Instance.TaskID)
	assert.Equal(t, "cpu", s.Instance.Device)
	assert.InDelta(t, 0.01, s.Instance.Timestep, 1e-12)

	assert.Equal(t, 61.0, firstMIDI(t, m))
}

func TestManager_FailedLoadKeepsPrevious(t *testing.T) {
	cfgPath, ckptPath := writeModel(t, t.TempDir(), 0)
	cfg, err := config.LoadAndValidate(cfgPath)
	require.NoError(t, err)

	m := NewManager(pipeline.WithDevice("cpu"))
	require.NoError(t, m.Load(cfg, ckptPath))
	id := m.State().Instance.ID

	err = m.Load(cfg, filepath.Join(t.TempDir(), "missing.ckpt"))
	require.Error(t, err)

	s := m.State()
	assert.Equal(t, StatusFailed, s.Status)
	assert.NotEmpty(t, s.Error)
	assert.Equal(t, id, s.Instance.ID)
	assert.Equal(t, 60.0, firstMIDI(t, m))
}

func TestManager_CustomBuilderError(t *testing.T) {
	boom := errors.New("boom")
	m := NewManagerWithBuilder(func(*config.Config, string, ...pipeline.Option) (*pipeline.Pipeline, error) {
		return nil, boom
	})

	err := m.Load(config.New(nil), "x")
	assert.ErrorIs(t, err, boom)
	assert.Nil(t, m.State().Instance)
}

func TestManager_WatchReloadsOnCheckpointChange(t *testing.T) {
	dir := t.TempDir()
	cfgPath, ckptPath := writeModel(t, dir, 0)

	m := NewManager(pipeline.WithDevice("cpu"))
	w, err := m.Watch(cfgPath, ckptPath)
	require.NoError(t, err)
	t.Cleanup(func() { w.Close() })

	assert.Equal(t, 60.0, firstMIDI(t, m))

	writeModel(t, dir, 1)
	require.Eventually(t, func() bool { return m.State().Reloads >= 1 }, 5*time.Second, 50*time.Millisecond)
	assert.Equal(t, 61.0, firstMIDI(t, m))
}
