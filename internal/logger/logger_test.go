package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekisa-team/some/internal/env"
)

func TestNew_DevelopmentIsTextAtDebug(t *testing.T) {
	var buf bytes.Buffer
	log := New(env.Development, WithConsole(&buf))

	log.Debug("Loaded model weights", "path", "model.ckpt")
	assert.Contains(t, buf.String(), "Loaded model weights")
	assert.Contains(t, buf.String(), "model.ckpt")
}

func TestNew_ProductionIsJSONAtInfo(t *testing.T) {
	var buf bytes.Buffer
	log := New(env.Production, WithConsole(&buf))

	log.Debug("hidden")
	log.Info("shown", "items", 2)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	assert.Equal(t, "shown", rec["msg"])
	assert.EqualValues(t, 2, rec["items"])
}

func TestNew_LogToFile(t *testing.T) {
	var buf bytes.Buffer
	path := filepath.Join(t.TempDir(), "logs", "some.log")
	log := New(env.Development,
		WithConsole(&buf),
		WithLogToFile(true),
		WithLogFile(path),
		WithLevel(slog.LevelWarn),
	)

	log.Info("dropped")
	log.With("component", "test").Warn("kept")

	assert.NotContains(t, buf.String(), "dropped")
	assert.Contains(t, buf.String(), "kept")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"kept"`)
	assert.Contains(t, string(data), `"component":"test"`)
	assert.NotContains(t, string(data), "dropped")
}
