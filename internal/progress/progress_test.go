package progress

import (
	"bytes"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew_NonTerminalFallsBackToLog(t *testing.T) {
	var buf bytes.Buffer
	_, ok := New(&buf).(*Log)
	assert.True(t, ok)
}

func TestBar_Render(t *testing.T) {
	var buf bytes.Buffer
	b := NewBar(&buf)

	b.Start(4)
	b.Advance()
	b.Advance()

	line := b.Render()
	assert.Contains(t, line, "50%")
	assert.Contains(t, line, "2/4")

	b.Advance()
	b.Advance()
	b.Finish()
	assert.Contains(t, buf.String(), "4/4")
	assert.True(t, strings.HasSuffix(buf.String(), "\n"))
}

func TestBar_EmptyRun(t *testing.T) {
	b := NewBar(&bytes.Buffer{})
	b.Start(0)
	assert.Contains(t, b.Render(), "0/0")
}

func TestLog_Counts(t *testing.T) {
	var buf bytes.Buffer
	l := NewLog(&buf)
	l.Start(3)
	l.Advance()
	l.Advance()
	l.Finish()
	assert.Equal(t, 2, l.done)
	assert.Equal(t, 3, l.total)
}

func TestLog_WritesIndependentlyOfDefaultLogger(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError})))

	var buf bytes.Buffer
	r := New(&buf)
	r.Start(2)
	r.Advance()
	r.Finish()

	out := buf.String()
	assert.Contains(t, out, "Inference started")
	assert.Contains(t, out, "Inference progress")
	assert.Contains(t, out, "Inference finished")
}
