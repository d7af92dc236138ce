package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validYAML = `
task_cls: training.MIDIExtractionTask
model_cls: some.modules.FrameNoteEstimator
hop_size: 512
audio_sample_rate: 44100
audio_num_mel_bins: 8
midi_min: 0.0
rest_threshold: 0.1
`

func TestParse_Valid(t *testing.T) {
	cfg, err := Parse([]byte(validYAML))
	require.NoError(t, err)

	assert.Equal(t, "some.modules.FrameNoteEstimator", cfg.ModelClass())
	assert.Equal(t, "training.MIDIExtractionTask", cfg.TaskClass())
	assert.Equal(t, 512.0, cfg.HopSize())
	assert.Equal(t, 44100.0, cfg.SampleRate())
	assert.Equal(t, 8, Value(cfg, "audio_num_mel_bins", 0))
	assert.Equal(t, 0.1, Value(cfg, "rest_threshold", 0.5))
	assert.Contains(t, cfg.Keys(), "midi_min")
}

func TestParse_SchemaViolations(t *testing.T) {
	tests := map[string]string{
		"missing model_cls":      "hop_size: 512\naudio_sample_rate: 44100\n",
		"missing hop_size":       "model_cls: a.B\naudio_sample_rate: 44100\n",
		"zero sample rate":       "model_cls: a.B\nhop_size: 512\naudio_sample_rate: 0\n",
		"string hop size":        "model_cls: a.B\nhop_size: big\naudio_sample_rate: 44100\n",
		"threshold out of range": "model_cls: a.B\nhop_size: 1\naudio_sample_rate: 1\nrest_threshold: 2\n",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestParse_InvalidYAML(t *testing.T) {
	_, err := Parse([]byte("model_cls: [unterminated"))
	assert.ErrorContains(t, err, "invalid YAML")
}

func TestLoadAndValidate_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(validYAML), 0o644))

	cfg, err := LoadAndValidate(path)
	require.NoError(t, err)
	assert.Equal(t, "training.MIDIExtractionTask", cfg.TaskClass())

	_, err = LoadAndValidate(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestConfig_IsImmutableCopy(t *testing.T) {
	values := map[string]any{"model_cls": "a.B", "hop_size": 1, "audio_sample_rate": 2}
	cfg := New(values)

	values["model_cls"] = "changed"
	assert.Equal(t, "a.B", cfg.ModelClass())

	m := cfg.Map()
	m["hop_size"] = 99
	assert.Equal(t, 1.0, cfg.HopSize())
}

func TestConfig_NestedValuesAreCopied(t *testing.T) {
	encoder := map[string]any{"layers": 2}
	dims := []any{64, 128}
	cfg := New(map[string]any{"encoder": encoder, "dims": dims})

	encoder["layers"] = 9
	dims[0] = 1
	assert.Equal(t, map[string]any{"layers": 2}, Value[map[string]any](cfg, "encoder", nil))
	assert.Equal(t, []any{64, 128}, Value[[]any](cfg, "dims", nil))

	m := cfg.Map()
	m["encoder"].(map[string]any)["layers"] = 7
	m["dims"].([]any)[1] = 0
	got, ok := cfg.Get("encoder")
	require.True(t, ok)
	assert.Equal(t, map[string]any{"layers": 2}, got)

	got, _ = cfg.Get("dims")
	got.([]any)[0] = "x"
	assert.Equal(t, []any{64, 128}, Value[[]any](cfg, "dims", nil))
}

func TestValue_Conversions(t *testing.T) {
	cfg := New(map[string]any{
		"i":   3,
		"f":   2.5,
		"i64": int64(7),
		"s":   "x",
		"b":   true,
		"l":   []any{1, 2},
	})

	assert.Equal(t, 3.0, Value(cfg, "i", 0.0))
	assert.Equal(t, 2, Value(cfg, "f", 0))
	assert.Equal(t, 7, Value(cfg, "i64", 0))
	assert.Equal(t, "x", Value(cfg, "s", ""))
	assert.True(t, Value(cfg, "b", false))
	assert.Equal(t, []any{1, 2}, Value[[]any](cfg, "l", nil))
	assert.Equal(t, "dflt", Value(cfg, "i", "dflt"))
	assert.Equal(t, 9, Value(cfg, "missing", 9))
}

func TestValidate(t *testing.T) {
	assert.ErrorIs(t, New(map[string]any{}).Validate(), ErrMissingKey)
	assert.ErrorIs(t, New(map[string]any{"model_cls": "a", "hop_size": 1}).Validate(), ErrMissingKey)
	assert.NoError(t, New(map[string]any{"model_cls": "a", "hop_size": 1, "audio_sample_rate": 1}).Validate())
}

func TestResolveCachePath(t *testing.T) {
	t.Setenv("SOME_CACHE_PATH", "/tmp/some-cache")
	assert.Equal(t, "/explicit", ResolveCachePath("/explicit"))
	assert.Equal(t, "/tmp/some-cache", ResolveCachePath(""))
}
