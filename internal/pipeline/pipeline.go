// Package pipeline runs a loaded model over raw waveforms.
//
// A Pipeline pairs a Base (configuration, device, model) with a Task that
// supplies the three per-item stages:
//
//	waveform -> Preprocess -> Forward -> Postprocess -> []Result
//
// Infer applies them to each waveform in order, one item at a time, and
// returns either every result or an error; partial results are discarded.
package pipeline

import (
	"fmt"

	"github.com/ekisa-team/some/internal/config"
	"github.com/ekisa-team/some/internal/device"
	"github.com/ekisa-team/some/internal/model"
	"github.com/ekisa-team/some/internal/progress"
	"github.com/ekisa-team/some/internal/tensor"
)

// Base holds what every task shares. It is immutable after NewBase.
type Base struct {
	cfg       *config.Config
	modelPath string
	device    device.Device
	timestep  float64
	model     model.Module
}

// NewBase builds the model described by cfg from the checkpoint at
// modelPath on dev.
func NewBase(cfg *config.Config, modelPath string, dev device.Device) (*Base, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}

	m, err := model.Build(cfg, modelPath, dev)
	if err != nil {
		return nil, err
	}

	return &Base{
		cfg:       cfg,
		modelPath: modelPath,
		device:    dev,
		timestep:  cfg.HopSize() / cfg.SampleRate(),
		model:     m,
	}, nil
}

// Config returns the configuration.
func (b *Base) Config() *config.Config {
	return b.cfg
}

// ModelPath returns the checkpoint path the model was loaded from.
func (b *Base) ModelPath() string {
	return b.modelPath
}

// Device returns the device the model is bound to.
func (b *Base) Device() device.Device {
	return b.device
}

// Timestep returns the duration of one model frame in seconds.
func (b *Base) Timestep() float64 {
	return b.timestep
}

// Model returns the loaded model.
func (b *Base) Model() model.Module {
	return b.model
}

// RunModel invokes the model on sample. Tasks without a special calling
// convention use it as their Forward.
func (b *Base) RunModel(sample tensor.Map) (tensor.Map, error) {
	return b.model.Forward(sample)
}

type options struct {
	device   string
	progress progress.Reporter
}

// Option configures New.
type Option func(*options)

// WithDevice pins the device ("cpu", "cuda", "cuda:N"). Without it the
// device is probed.
func WithDevice(name string) Option {
	return func(o *options) {
		o.device = name
	}
}

// WithProgress sets the progress reporter. Default: progress.Nop.
func WithProgress(r progress.Reporter) Option {
	return func(o *options) {
		o.progress = r
	}
}

// Pipeline is a Base driven by a Task.
type Pipeline struct {
	*Base
	task     Task
	progress progress.Reporter
}

// New builds the model and the task.
func New(cfg *config.Config, modelPath string, ctor TaskConstructor, opts ...Option) (*Pipeline, error) {
	o := options{progress: progress.Nop{}}
	for _, opt := range opts {
		opt(&o)
	}

	dev, err := device.Resolve(o.device)
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}

	base, err := NewBase(cfg, modelPath, dev)
	if err != nil {
		return nil, err
	}

	task, err := ctor(base)
	if err != nil {
		return nil, fmt.Errorf("pipeline: construct task: %w", err)
	}

	return &Pipeline{Base: base, task: task, progress: o.progress}, nil
}

// NewWithTask wraps an existing Base and Task.
func NewWithTask(base *Base, task Task, r progress.Reporter) *Pipeline {
	if r == nil {
		r = progress.Nop{}
	}
	return &Pipeline{Base: base, task: task, progress: r}
}

// Task returns the task driving the pipeline.
func (p *Pipeline) Task() Task {
	return p.task
}

// Infer runs every waveform through the task's stages, in order. The first
// failure aborts the call and no results are returned.
func (p *Pipeline) Infer(waveforms [][]float32) ([][]Result, error) {
	results := make([][]Result, 0, len(waveforms))
	if len(waveforms) == 0 {
		return results, nil
	}

	p.progress.Start(len(waveforms))
	defer p.progress.Finish()

	for i, w := range waveforms {
		res, err := p.inferOne(i, w)
		if err != nil {
			return nil, err
		}
		results = append(results, res)
		p.progress.Advance()
	}

	return results, nil
}

func (p *Pipeline) inferOne(i int, waveform []float32) ([]Result, error) {
	sample, err := p.task.Preprocess(waveform)
	if err != nil {
		return nil, &ItemError{Index: i, Stage: StagePreprocess, Err: err}
	}

	out, err := p.task.Forward(sample)
	if err != nil {
		return nil, &ItemError{Index: i, Stage: StageForward, Err: err}
	}

	res, err := p.task.Postprocess(out)
	if err != nil {
		return nil, &ItemError{Index: i, Stage: StagePostprocess, Err: err}
	}
	return res, nil
}
