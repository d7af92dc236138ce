// Package service keeps one inference pipeline loaded and swaps it when its
// configuration or checkpoint changes.
package service

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ekisa-team/some/internal/config"
	"github.com/ekisa-team/some/internal/pipeline"
	"github.com/ekisa-team/some/internal/task"
)

// ErrNotLoaded is returned by Infer before a pipeline has been loaded.
var ErrNotLoaded = errors.New("no pipeline loaded")

// BuildFunc builds a pipeline from a configuration and a checkpoint path.
type BuildFunc func(cfg *config.Config, modelPath string, opts ...pipeline.Option) (*pipeline.Pipeline, error)

// Manager orchestrates the lifecycle of the served pipeline.
type Manager struct {
	build BuildFunc
	opts  []pipeline.Option

	mu      sync.RWMutex // guards the fields below
	current *Instance
	status  Status
	lastErr error
	reloads int

	inferMu sync.Mutex // pipelines are not safe for concurrent Infer calls
}

// NewManager creates a manager that builds pipelines with task.FromConfig.
func NewManager(opts ...pipeline.Option) *Manager {
	return NewManagerWithBuilder(task.FromConfig, opts...)
}

// NewManagerWithBuilder creates a manager with a custom build function.
func NewManagerWithBuilder(build BuildFunc, opts ...pipeline.Option) *Manager {
	return &Manager{build: build, opts: opts, status: StatusUnloaded}
}

// Load builds a pipeline and makes it current. On failure the previous
// pipeline, if any, stays current.
func (m *Manager) Load(cfg *config.Config, modelPath string) error {
	m.mu.Lock()
	m.status = StatusLoading
	m.mu.Unlock()

	started := time.Now()
	p, err := m.build(cfg, modelPath, m.opts...)

	m.mu.Lock()
	defer m.mu.Unlock()

	if err != nil {
		m.status = StatusFailed
		m.lastErr = err
		slog.Error("Failed to load pipeline", "model_path", modelPath, "error", err)
		return fmt.Errorf("service: %w", err)
	}

	now := time.Now()
	inst := &Instance{
		ID:         uuid.NewString(),
		ModelPath:  modelPath,
		ModelClass: cfg.ModelClass(),
		TaskID:     cfg.TaskClass(),
		Device:     p.Device().String(),
		Timestep:   p.Timestep(),
		LoadedAt:   &now,
		pipeline:   p,
	}

	if m.current != nil {
		m.reloads++
	}
	m.current = inst
	m.status = StatusLoaded
	m.lastErr = nil

	slog.Info("Pipeline loaded",
		"id", inst.ID,
		"task", inst.TaskID,
		"model_cls", inst.ModelClass,
		"device", inst.Device,
		"took", time.Since(started).Round(time.Millisecond),
	)
	return nil
}

// State returns the current state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := State{Status: m.status, Reloads: m.reloads}
	if m.lastErr != nil {
		s.Error = m.lastErr.Error()
	}
	if m.current != nil {
		inst := *m.current
		s.Instance = &inst
	}
	return s
}

// Infer runs the current pipeline. Calls are serialized; a reload while a
// call is running takes effect for the next call.
func (m *Manager) Infer(waveforms [][]float32) ([][]pipeline.Result, *Instance, error) {
	m.mu.RLock()
	inst := m.current
	m.mu.RUnlock()

	if inst == nil {
		return nil, nil, ErrNotLoaded
	}

	m.inferMu.Lock()
	defer m.inferMu.Unlock()

	res, err := inst.pipeline.Infer(waveforms)
	return res, inst, err
}

// Watch loads the configuration at configPath with the checkpoint at
// modelPath and reloads whenever either file changes. Close the returned
// watcher to stop.
func (m *Manager) Watch(configPath, modelPath string) (*config.Watcher, error) {
	w, err := config.NewWatcher(configPath, func(cfg *config.Config, err error) {
		if err != nil {
			m.mu.Lock()
			m.status, m.lastErr = StatusFailed, err
			m.mu.Unlock()
			return
		}
		if err := m.Load(cfg, modelPath); err != nil {
			slog.Error("Failed to reload pipeline", "error", err)
		}
	}, modelPath)
	if err != nil {
		return nil, err
	}

	if err := m.Load(w.Snapshot(), modelPath); err != nil {
		w.Close()
		return nil, err
	}
	return w, nil
}
