// Package modules holds the network architectures that checkpoints can be
// loaded into.
package modules

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/ekisa-team/some/internal/config"
	"github.com/ekisa-team/some/internal/model"
	"github.com/ekisa-team/some/internal/tensor"
)

// FrameNoteEstimatorClass is the class name FrameNoteEstimator registers under.
const FrameNoteEstimatorClass = "some.modules.FrameNoteEstimator"

// Configuration keys read by FrameNoteEstimator.
const (
	KeyNumMelBins  = "audio_num_mel_bins"
	KeyHiddenSize  = "hidden_size"
	KeyMIDINumBins = "midi_num_bins"
)

// Input and output names.
const (
	InputMel          = "mel"
	OutputMIDILogits  = "midi_logits"
	OutputBoundLogits = "bound_logits"
)

func init() {
	model.Register(FrameNoteEstimatorClass, NewFrameNoteEstimator)
}

// FrameNoteEstimator maps a log-mel spectrogram to per-frame pitch class
// logits and per-frame note boundary logits.
//
//	h      = relu(mel · encoderᵀ + b)
//	midi   = h · midi_headᵀ + b      [T, midi_num_bins]
//	bounds = h · bound_headᵀ + b     [T]
type FrameNoteEstimator struct {
	model.Base

	numMels int
	hidden  int
	bins    int

	encW, encB     *tensor.Tensor
	midiW, midiB   *tensor.Tensor
	boundW, boundB *tensor.Tensor
}

// NewFrameNoteEstimator allocates a zero-initialized estimator sized by cfg.
func NewFrameNoteEstimator(cfg *config.Config) (model.Module, error) {
	numMels := config.Value(cfg, KeyNumMelBins, 128)
	hidden := config.Value(cfg, KeyHiddenSize, 256)
	bins := config.Value(cfg, KeyMIDINumBins, 256)

	for key, v := range map[string]int{KeyNumMelBins: numMels, KeyHiddenSize: hidden, KeyMIDINumBins: bins} {
		if v <= 0 {
			return nil, fmt.Errorf("%s must be positive, got %d", key, v)
		}
	}

	return &FrameNoteEstimator{
		numMels: numMels,
		hidden:  hidden,
		bins:    bins,
		encW:    tensor.Zeros(hidden, numMels),
		encB:    tensor.Zeros(hidden),
		midiW:   tensor.Zeros(bins, hidden),
		midiB:   tensor.Zeros(bins),
		boundW:  tensor.Zeros(1, hidden),
		boundB:  tensor.Zeros(1),
	}, nil
}

// Parameters implements model.Module.
func (m *FrameNoteEstimator) Parameters() tensor.Map {
	return tensor.Map{
		"encoder.weight":    m.encW,
		"encoder.bias":      m.encB,
		"midi_head.weight":  m.midiW,
		"midi_head.bias":    m.midiB,
		"bound_head.weight": m.boundW,
		"bound_head.bias":   m.boundB,
	}
}

// Forward implements model.Module. It expects a [T, audio_num_mel_bins]
// "mel" input.
func (m *FrameNoteEstimator) Forward(in tensor.Map) (tensor.Map, error) {
	mel, ok := in[InputMel]
	if !ok {
		return nil, fmt.Errorf("%w: missing input %q", tensor.ErrShape, InputMel)
	}
	if mel.Dim() != 2 || mel.Shape[1] != m.numMels {
		return nil, fmt.Errorf("%w: %s input must be [T, %d], got %s", tensor.ErrShape, InputMel, m.numMels, tensor.FormatShape(mel.Shape))
	}

	frames := mel.Shape[0]
	if frames == 0 {
		return tensor.Map{
			OutputMIDILogits:  tensor.Zeros(0, m.bins),
			OutputBoundLogits: tensor.Zeros(0),
		}, nil
	}

	x := mat.NewDense(frames, m.numMels, mel.Data)
	h := dense(x, m.encW, m.encB)
	h.Apply(func(_, _ int, v float64) float64 { return max(v, 0) }, h)

	midi := dense(h, m.midiW, m.midiB)
	bound := dense(h, m.boundW, m.boundB)

	return tensor.Map{
		OutputMIDILogits:  &tensor.Tensor{Shape: []int{frames, m.bins}, Data: midi.RawMatrix().Data},
		OutputBoundLogits: &tensor.Tensor{Shape: []int{frames}, Data: bound.RawMatrix().Data},
	}, nil
}

// dense computes x · wᵀ + b for w of shape [out, in].
func dense(x mat.Matrix, w, b *tensor.Tensor) *mat.Dense {
	rows, _ := x.Dims()
	out, in := w.Shape[0], w.Shape[1]

	var y mat.Dense
	y.Mul(x, mat.NewDense(out, in, w.Data).T())
	for i := range rows {
		row := y.RawRowView(i)
		for j := range out {
			row[j] += b.Data[j]
		}
	}
	return &y
}
