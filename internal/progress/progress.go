// Package progress reports how far a sequential inference run has got.
package progress

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
)

// Reporter receives progress events from a driving loop.
type Reporter interface {
	// Start begins a run over total items.
	Start(total int)

	// Advance marks one more item done.
	Advance()

	// Finish ends the run, successful or not.
	Finish()
}

// New returns a Bar when w is a terminal and a Log reporter otherwise.
func New(w io.Writer) Reporter {
	if f, ok := w.(*os.File); ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) {
		return NewBar(w)
	}
	return NewLog(w)
}

// Nop discards all events.
type Nop struct{}

func (Nop) Start(int) {}
func (Nop) Advance()  {}
func (Nop) Finish()   {}

// Log writes one structured log line per item to its own writer, whatever
// level the process logger runs at.
type Log struct {
	log   *slog.Logger
	total int
	done  int
}

// NewLog creates a Log reporter writing to w.
func NewLog(w io.Writer) *Log {
	return &Log{log: slog.New(tint.NewHandler(w, &tint.Options{
		Level:      slog.LevelInfo,
		TimeFormat: time.Kitchen,
		NoColor:    true,
	}))}
}

func (l *Log) Start(total int) {
	l.total, l.done = total, 0
	l.log.Info("Inference started", "items", total)
}

func (l *Log) Advance() {
	l.done++
	l.log.Info("Inference progress", "done", l.done, "total", l.total)
}

func (l *Log) Finish() {
	l.log.Info("Inference finished", "done", l.done, "total", l.total)
}

// Bar renders a single-line progress bar, redrawn in place.
type Bar struct {
	w       io.Writer
	width   int
	total   int
	done    int
	started time.Time

	fill  lipgloss.Style
	empty lipgloss.Style
	label lipgloss.Style
}

// NewBar creates a bar writing to w.
func NewBar(w io.Writer) *Bar {
	return &Bar{
		w:     w,
		width: 30,
		fill:  lipgloss.NewStyle().Foreground(lipgloss.Color("#00ff9f")),
		empty: lipgloss.NewStyle().Foreground(lipgloss.Color("#6e7681")),
		label: lipgloss.NewStyle().Bold(true),
	}
}

func (b *Bar) Start(total int) {
	b.total = total
	b.done = 0
	b.started = time.Now()
	b.draw()
}

func (b *Bar) Advance() {
	b.done++
	b.draw()
}

func (b *Bar) Finish() {
	fmt.Fprintln(b.w)
}

// Render returns the current bar line without writing it.
func (b *Bar) Render() string {
	ratio := 1.0
	if b.total > 0 {
		ratio = float64(b.done) / float64(b.total)
	}
	filled := int(ratio * float64(b.width))

	var rate string
	if elapsed := time.Since(b.started).Seconds(); elapsed > 0 && b.done > 0 {
		rate = fmt.Sprintf(" %.2fit/s", float64(b.done)/elapsed)
	}

	return fmt.Sprintf("%s %s%s %d/%d%s",
		b.label.Render(fmt.Sprintf("%3d%%", int(ratio*100))),
		b.fill.Render(strings.Repeat("█", filled)),
		b.empty.Render(strings.Repeat("░", b.width-filled)),
		b.done, b.total, rate,
	)
}

func (b *Bar) draw() {
	fmt.Fprint(b.w, "\r"+b.Render())
}
