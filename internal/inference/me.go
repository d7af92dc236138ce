// Package inference implements the inference tasks that turn waveforms into
// note sequences.
package inference

import (
	"fmt"
	"math"

	"github.com/ekisa-team/some/internal/config"
	"github.com/ekisa-team/some/internal/modules"
	"github.com/ekisa-team/some/internal/pipeline"
	"github.com/ekisa-team/some/internal/tensor"
)

// Class names the tasks register under.
const (
	MIDIExtractionClass          = "some.inference.MIDIExtractionInference"
	QuantizedMIDIExtractionClass = "some.inference.QuantizedMIDIExtractionInference"
)

// Configuration keys read by the tasks.
const (
	KeyMIDIMin        = "midi_min"
	KeyMIDIMax        = "midi_max"
	KeyMIDIDeviation  = "midi_deviation"
	KeyRestThreshold  = "rest_threshold"
	KeyBoundThreshold = "bound_threshold"
)

// Result channels.
const (
	NoteMIDI = "note_midi"
	NoteDur  = "note_dur"
	NoteRest = "note_rest"
)

func init() {
	pipeline.Register(MIDIExtractionClass, NewMIDIExtraction)
	pipeline.Register(QuantizedMIDIExtractionClass, NewQuantizedMIDIExtraction)
}

// noteTask is the part both MIDI extraction tasks share: the mel front-end,
// boundary decoding and result packing.
type noteTask struct {
	*pipeline.Base
	mel            *MelExtractor
	midiMin        float64
	midiMax        float64
	boundThreshold float64
}

func newNoteTask(b *pipeline.Base) (*noteTask, error) {
	cfg := b.Config()
	// Frames are hop_size samples apart in both the front end and the
	// timestep, so both rates must be whole sample counts.
	for _, key := range []string{config.KeyHopSize, config.KeySampleRate} {
		if v := config.Value(cfg, key, 0.0); v != math.Trunc(v) {
			return nil, fmt.Errorf("%s must be a whole number, got %g", key, v)
		}
	}
	melCfg := MelConfigFrom(cfg)
	if err := melCfg.Validate(); err != nil {
		return nil, err
	}
	t := &noteTask{
		Base:           b,
		mel:            NewMelExtractor(melCfg),
		midiMin:        config.Value(cfg, KeyMIDIMin, 0.0),
		midiMax:        config.Value(cfg, KeyMIDIMax, 127.0),
		boundThreshold: config.Value(cfg, KeyBoundThreshold, 0.5),
	}
	if t.midiMax <= t.midiMin {
		return nil, fmt.Errorf("%s (%g) must be greater than %s (%g)", KeyMIDIMax, t.midiMax, KeyMIDIMin, t.midiMin)
	}
	return t, nil
}

// Preprocess computes the log-mel spectrogram of the waveform.
func (t *noteTask) Preprocess(waveform []float32) (tensor.Map, error) {
	return tensor.Map{modules.InputMel: t.mel.Extract(waveform)}, nil
}

// Forward runs the model.
func (t *noteTask) Forward(sample tensor.Map) (tensor.Map, error) {
	return t.RunModel(sample)
}

// outputs checks the model outputs and returns the per-frame logits.
func (t *noteTask) outputs(out tensor.Map) (midi, bounds *tensor.Tensor, err error) {
	midi, ok := out[modules.OutputMIDILogits]
	if !ok || midi.Dim() != 2 {
		return nil, nil, fmt.Errorf("%w: model output %q must be [T, bins]", tensor.ErrShape, modules.OutputMIDILogits)
	}
	bounds, ok = out[modules.OutputBoundLogits]
	if !ok || bounds.Dim() != 1 || bounds.Shape[0] != midi.Shape[0] {
		return nil, nil, fmt.Errorf("%w: model output %q must be [%d]", tensor.ErrShape, modules.OutputBoundLogits, midi.Shape[0])
	}
	return midi, bounds, nil
}

// noteIndex decodes boundary logits into a note index per frame.
func (t *noteTask) noteIndex(bounds *tensor.Tensor) []int {
	probs := make([]float64, len(bounds.Data))
	for i, x := range bounds.Data {
		probs[i] = sigmoid(x)
	}
	return segment(probs, t.boundThreshold)
}

// pack turns notes into a Result with durations in seconds.
func (t *noteTask) pack(notes []Note) []pipeline.Result {
	res := pipeline.Result{
		NoteMIDI: make([]float64, len(notes)),
		NoteDur:  make([]float64, len(notes)),
		NoteRest: make([]float64, len(notes)),
	}
	for i, n := range notes {
		res[NoteMIDI][i] = n.MIDI
		res[NoteDur][i] = float64(n.Frames) * t.Timestep()
		if n.Rest {
			res[NoteRest][i] = 1
		}
	}
	return []pipeline.Result{res}
}

// MIDIExtraction decodes continuous pitch from Gaussian-blurred class
// probabilities spread over [midi_min, midi_max].
type MIDIExtraction struct {
	*noteTask
	deviation     float64
	restThreshold float64
}

// NewMIDIExtraction implements pipeline.TaskConstructor.
func NewMIDIExtraction(b *pipeline.Base) (pipeline.Task, error) {
	nt, err := newNoteTask(b)
	if err != nil {
		return nil, err
	}
	cfg := b.Config()
	return &MIDIExtraction{
		noteTask:      nt,
		deviation:     config.Value(cfg, KeyMIDIDeviation, 1.0),
		restThreshold: config.Value(cfg, KeyRestThreshold, 0.1),
	}, nil
}

// Postprocess implements pipeline.Task.
func (t *MIDIExtraction) Postprocess(out tensor.Map) ([]pipeline.Result, error) {
	midi, bounds, err := t.outputs(out)
	if err != nil {
		return nil, err
	}

	frames, bins := midi.Shape[0], midi.Shape[1]
	values := make([]float64, frames)
	rests := make([]bool, frames)
	probs := make([]float64, bins)
	for f := range frames {
		for i, x := range midi.Row(f) {
			probs[i] = sigmoid(x)
		}
		values[f], rests[f] = decodeBlurred(probs, t.midiMin, t.midiMax, t.deviation, t.restThreshold)
	}

	return t.pack(mergeMean(values, rests, t.noteIndex(bounds))), nil
}
