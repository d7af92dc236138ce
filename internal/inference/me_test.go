package inference

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekisa-team/some/internal/checkpoint"
	"github.com/ekisa-team/some/internal/config"
	"github.com/ekisa-team/some/internal/modules"
	"github.com/ekisa-team/some/internal/pipeline"
	"github.com/ekisa-team/some/internal/registry"
	"github.com/ekisa-team/some/internal/tensor"
)

// estimatorConfig describes a tiny FrameNoteEstimator over 1600 Hz audio with
// a 16-sample hop, so one frame lasts 10 ms.
func estimatorConfig(extra map[string]any) *config.Config {
	values := map[string]any{
		config.KeyModelClass:   modules.FrameNoteEstimatorClass,
		config.KeyHopSize:      16,
		config.KeySampleRate:   1600,
		KeyFFTSize:             64,
		KeyWinSize:             64,
		KeyFMin:                0,
		KeyFMax:                800,
		modules.KeyNumMelBins:  4,
		modules.KeyHiddenSize:  2,
		modules.KeyMIDINumBins: 3,
		KeyMIDIMin:             60,
		KeyMIDIMax:             62,
	}
	for k, v := range extra {
		values[k] = v
	}
	return config.New(values)
}

// constantCheckpoint writes weights that ignore the input: every frame gets
// midiBias as its class logits and boundBias as its boundary logit.
func constantCheckpoint(t *testing.T, midiBias []float64, boundBias float64) string {
	t.Helper()
	params := tensor.Map{
		"encoder.weight":    tensor.Zeros(2, 4),
		"encoder.bias":      {Shape: []int{2}, Data: []float64{1, 0}},
		"midi_head.weight":  tensor.Zeros(3, 2),
		"midi_head.bias":    {Shape: []int{3}, Data: midiBias},
		"bound_head.weight": tensor.Zeros(1, 2),
		"bound_head.bias":   {Shape: []int{1}, Data: []float64{boundBias}},
	}
	path := filepath.Join(t.TempDir(), "model.ckpt")
	require.NoError(t, checkpoint.Save(path, params))
	return path
}

func TestTasksAreRegistered(t *testing.T) {
	for _, name := range []string{MIDIExtractionClass, QuantizedMIDIExtractionClass} {
		_, err := registry.Resolve[pipeline.TaskConstructor](name)
		assert.NoError(t, err, name)
	}
}

func TestMIDIExtraction_SingleHeldNote(t *testing.T) {
	p, err := pipeline.New(estimatorConfig(nil), constantCheckpoint(t, []float64{-5, 5, -5}, -5), NewMIDIExtraction, pipeline.WithDevice("cpu"))
	require.NoError(t, err)

	got, err := p.Infer([][]float32{make([]float32, 160)})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Len(t, got[0], 1)

	res := got[0][0]
	assert.InDeltaSlice(t, []float64{61}, res[NoteMIDI], 1e-9)
	assert.InDeltaSlice(t, []float64{0.11}, res[NoteDur], 1e-9)
	assert.Equal(t, []float64{0}, res[NoteRest])
}

func TestMIDIExtraction_BoundaryEveryFrame(t *testing.T) {
	p, err := pipeline.New(estimatorConfig(nil), constantCheckpoint(t, []float64{-5, 5, -5}, 5), NewMIDIExtraction, pipeline.WithDevice("cpu"))
	require.NoError(t, err)

	got, err := p.Infer([][]float32{make([]float32, 32)})
	require.NoError(t, err)

	res := got[0][0]
	assert.Len(t, res[NoteMIDI], 3)
	assert.InDeltaSlice(t, []float64{0.01, 0.01, 0.01}, res[NoteDur], 1e-9)
}

func TestMIDIExtraction_AllRest(t *testing.T) {
	p, err := pipeline.New(estimatorConfig(nil), constantCheckpoint(t, []float64{-9, -9, -9}, -5), NewMIDIExtraction, pipeline.WithDevice("cpu"))
	require.NoError(t, err)

	got, err := p.Infer([][]float32{make([]float32, 48)})
	require.NoError(t, err)
	assert.Equal(t, []float64{1}, got[0][0][NoteRest])
}

func TestMIDIExtraction_EmptyWaveform(t *testing.T) {
	p, err := pipeline.New(estimatorConfig(nil), constantCheckpoint(t, []float64{0, 0, 0}, 0), NewMIDIExtraction, pipeline.WithDevice("cpu"))
	require.NoError(t, err)

	got, err := p.Infer([][]float32{{}})
	require.NoError(t, err)
	assert.Empty(t, got[0][0][NoteMIDI])
}

func TestQuantizedMIDIExtraction(t *testing.T) {
	cases := []struct {
		name string
		bias []float64
		midi float64
		rest float64
	}{
		{"first class", []float64{5, -5, -5}, 60, 0},
		{"second class", []float64{-5, 5, -5}, 61, 0},
		{"rest class", []float64{-5, -5, 5}, 0, 1},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p, err := pipeline.New(estimatorConfig(nil), constantCheckpoint(t, tc.bias, -5), NewQuantizedMIDIExtraction, pipeline.WithDevice("cpu"))
			require.NoError(t, err)

			got, err := p.Infer([][]float32{make([]float32, 64)})
			require.NoError(t, err)

			res := got[0][0]
			assert.Equal(t, []float64{tc.midi}, res[NoteMIDI])
			assert.Equal(t, []float64{tc.rest}, res[NoteRest])
			assert.InDeltaSlice(t, []float64{0.05}, res[NoteDur], 1e-9)
		})
	}
}

func TestNoteTask_RejectsInvertedRange(t *testing.T) {
	cfg := estimatorConfig(map[string]any{KeyMIDIMin: 70, KeyMIDIMax: 60})
	_, err := pipeline.New(cfg, constantCheckpoint(t, []float64{0, 0, 0}, 0), NewMIDIExtraction, pipeline.WithDevice("cpu"))
	assert.ErrorContains(t, err, KeyMIDIMax)
}

func TestNoteTask_RejectsUnframeableAudioSettings(t *testing.T) {
	tests := []struct {
		name  string
		extra map[string]any
		key   string
	}{
		{"window wider than fft", map[string]any{KeyWinSize: 128}, KeyWinSize},
		{"fractional hop", map[string]any{config.KeyHopSize: 0.5}, config.KeyHopSize},
		{"non-integer hop", map[string]any{config.KeyHopSize: 16.5}, config.KeyHopSize},
		{"fractional sample rate", map[string]any{config.KeySampleRate: 1600.5}, config.KeySampleRate},
		{"inverted band", map[string]any{KeyFMin: 900}, KeyFMax},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := estimatorConfig(tt.extra)
			_, err := pipeline.New(cfg, constantCheckpoint(t, []float64{0, 0, 0}, 0), NewMIDIExtraction, pipeline.WithDevice("cpu"))
			assert.ErrorContains(t, err, tt.key)
		})
	}
}

func TestMelConfig_Validate(t *testing.T) {
	ok := MelConfig{SampleRate: 1600, HopSize: 16, WinSize: 64, FFTSize: 64, NumMels: 4, FMax: 800}
	assert.NoError(t, ok.Validate())

	zeroHop := ok
	zeroHop.HopSize = 0
	assert.ErrorContains(t, zeroHop.Validate(), config.KeyHopSize)

	wide := ok
	wide.WinSize = 65
	assert.ErrorContains(t, wide.Validate(), KeyWinSize)
}

func TestNoteTask_RejectsMalformedOutputs(t *testing.T) {
	p, err := pipeline.New(estimatorConfig(nil), constantCheckpoint(t, []float64{0, 0, 0}, 0), NewMIDIExtraction, pipeline.WithDevice("cpu"))
	require.NoError(t, err)

	_, err = p.Task().Postprocess(tensor.Map{})
	assert.ErrorIs(t, err, tensor.ErrShape)

	_, err = p.Task().Postprocess(tensor.Map{
		modules.OutputMIDILogits:  tensor.Zeros(2, 3),
		modules.OutputBoundLogits: tensor.Zeros(3),
	})
	assert.ErrorIs(t, err, tensor.ErrShape)
}
