package config

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcher_ReloadsOnConfigAndCompanionChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	companion := filepath.Join(dir, "model.ckpt")
	require.NoError(t, os.WriteFile(path, []byte(validYAML), 0o644))
	require.NoError(t, os.WriteFile(companion, []byte("v1"), 0o644))

	var reloaded atomic.Int32
	w, err := NewWatcher(path, func(cfg *Config, err error) {
		if err == nil && cfg != nil {
			reloaded.Add(1)
		}
	}, companion)
	require.NoError(t, err)
	t.Cleanup(func() { w.Close() })

	assert.Equal(t, "training.MIDIExtractionTask", w.Snapshot().TaskClass())

	updated := validYAML + "hidden_size: 4\n"
	require.NoError(t, os.WriteFile(path, []byte(updated), 0o644))
	require.Eventually(t, func() bool { return reloaded.Load() >= 1 }, 5*time.Second, 50*time.Millisecond)
	assert.Equal(t, 4, Value(w.Snapshot(), "hidden_size", 0))

	before := reloaded.Load()
	require.NoError(t, os.WriteFile(companion, []byte("v2"), 0o644))
	require.Eventually(t, func() bool { return reloaded.Load() > before }, 5*time.Second, 50*time.Millisecond)
	assert.GreaterOrEqual(t, w.ReloadCount(), uint32(2))
}

func TestWatcher_InitialLoadFailure(t *testing.T) {
	_, err := NewWatcher(filepath.Join(t.TempDir(), "missing.yaml"), func(*Config, error) {})
	assert.Error(t, err)
}
