// Package logger builds the process-wide slog.Logger.
//
// Development logs go to stderr through tint at debug level. Production logs
// are JSON at info level. Either can additionally be written to a rotating
// JSON log file.
package logger

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/lmittmann/tint"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/ekisa-team/some/internal/env"
)

type options struct {
	logToFile bool
	logFile   string
	level     *slog.Level
	console   io.Writer
}

// Option configures New.
type Option func(*options)

// WithLogToFile enables the rotating log file.
func WithLogToFile(on bool) Option {
	return func(o *options) {
		o.logToFile = on
	}
}

// WithLogFile sets the log file path. Default: logs/some.log.
func WithLogFile(path string) Option {
	return func(o *options) {
		o.logFile = path
	}
}

// WithLevel overrides the environment's default level.
func WithLevel(l slog.Level) Option {
	return func(o *options) {
		o.level = &l
	}
}

// WithConsole sets the console writer. Default: os.Stderr.
func WithConsole(w io.Writer) Option {
	return func(o *options) {
		o.console = w
	}
}

// New creates a logger for the given environment.
func New(environment env.Environment, opts ...Option) *slog.Logger {
	o := options{logFile: filepath.Join("logs", "some.log"), console: os.Stderr}
	for _, opt := range opts {
		opt(&o)
	}

	level := slog.LevelDebug
	if environment.IsProduction() {
		level = slog.LevelInfo
	}
	if o.level != nil {
		level = *o.level
	}

	var console slog.Handler
	if environment.IsProduction() {
		console = slog.NewJSONHandler(o.console, &slog.HandlerOptions{Level: level})
	} else {
		console = tint.NewHandler(o.console, &tint.Options{
			Level:      level,
			TimeFormat: time.TimeOnly,
		})
	}

	if !o.logToFile {
		return slog.New(console)
	}

	file := slog.NewJSONHandler(&lumberjack.Logger{
		Filename:   o.logFile,
		MaxSize:    10, // megabytes
		MaxBackups: 5,
		MaxAge:     28, // days
		Compress:   true,
	}, &slog.HandlerOptions{Level: level, AddSource: true})

	return slog.New(fanout{console, file})
}

// fanout sends every record to all handlers that accept its level.
type fanout []slog.Handler

func (f fanout) Enabled(ctx context.Context, l slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, l) {
			return true
		}
	}
	return false
}

func (f fanout) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range f {
		if h.Enabled(ctx, r.Level) {
			errs = append(errs, h.Handle(ctx, r.Clone()))
		}
	}
	return errors.Join(errs...)
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (f fanout) WithGroup(name string) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithGroup(name)
	}
	return out
}
