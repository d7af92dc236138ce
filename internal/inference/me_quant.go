package inference

import (
	"fmt"

	"github.com/ekisa-team/some/internal/pipeline"
	"github.com/ekisa-team/some/internal/tensor"
)

// QuantizedMIDIExtraction decodes semitone classes: class c is the pitch
// midi_min + c and the last class is a rest. Each note takes the class most
// of its frames voted for.
type QuantizedMIDIExtraction struct {
	*noteTask
}

// NewQuantizedMIDIExtraction implements pipeline.TaskConstructor.
func NewQuantizedMIDIExtraction(b *pipeline.Base) (pipeline.Task, error) {
	nt, err := newNoteTask(b)
	if err != nil {
		return nil, err
	}
	return &QuantizedMIDIExtraction{noteTask: nt}, nil
}

// Postprocess implements pipeline.Task.
func (t *QuantizedMIDIExtraction) Postprocess(out tensor.Map) ([]pipeline.Result, error) {
	midi, bounds, err := t.outputs(out)
	if err != nil {
		return nil, err
	}

	frames, bins := midi.Shape[0], midi.Shape[1]
	if bins < 2 {
		return nil, fmt.Errorf("%w: quantized output needs at least 2 classes, got %d", tensor.ErrShape, bins)
	}

	rest := bins - 1
	classes := make([]int, frames)
	for f := range frames {
		classes[f] = argmax(midi.Row(f))
	}

	notes := mergeVote(classes, rest, t.noteIndex(bounds))
	for i := range notes {
		if !notes[i].Rest {
			notes[i].MIDI += t.midiMin
		}
	}
	return t.pack(notes), nil
}
