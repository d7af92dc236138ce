// Package waveform reads audio files into mono float32 waveforms at the
// sample rate a model was trained on.
package waveform

import (
	"fmt"
	"io"
	"math"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	resampling "github.com/tphakala/go-audio-resampling"
)

// Load reads the WAV file at path, mixes it down to mono and resamples it to
// rate Hz.
func Load(path string, rate int) ([]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio: %w", err)
	}
	defer f.Close()

	samples, srcRate, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return Resample(samples, srcRate, rate)
}

// Decode reads a PCM WAV stream and returns its mono samples in [-1, 1] and
// its sample rate.
func Decode(r io.ReadSeeker) ([]float32, int, error) {
	d := wav.NewDecoder(r)
	if !d.IsValidFile() {
		return nil, 0, ErrInvalidWAV
	}

	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrInvalidWAV, err)
	}
	if buf.Format == nil || buf.Format.NumChannels <= 0 {
		return nil, 0, fmt.Errorf("%w: missing format", ErrInvalidWAV)
	}

	depth := int(d.BitDepth)
	if depth <= 0 || depth > 32 {
		return nil, 0, fmt.Errorf("%w: %d-bit samples", ErrUnsupportedDepth, depth)
	}

	return Mono(buf, depth), buf.Format.SampleRate, nil
}

// Mono averages interleaved channels and scales integer samples of the given
// bit depth into [-1, 1].
func Mono(buf *audio.IntBuffer, depth int) []float32 {
	channels := buf.Format.NumChannels
	scale := math.Ldexp(1, depth-1)

	frames := len(buf.Data) / channels
	out := make([]float32, frames)
	for i := range frames {
		var sum float64
		for c := range channels {
			sum += float64(buf.Data[i*channels+c])
		}
		out[i] = float32(sum / float64(channels) / scale)
	}
	return out
}

// Resample converts mono samples from one rate to another. The output has
// round(len(samples) * to / from) samples.
func Resample(samples []float32, from, to int) ([]float32, error) {
	if from <= 0 || to <= 0 {
		return nil, fmt.Errorf("%w: %d Hz -> %d Hz", ErrSampleRate, from, to)
	}
	if from == to || len(samples) == 0 {
		return samples, nil
	}

	rs, err := resampling.New(&resampling.Config{
		InputRate:  float64(from),
		OutputRate: float64(to),
		Channels:   1,
		Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create resampler: %w", err)
	}

	in := make([]float64, len(samples))
	for i, s := range samples {
		in[i] = float64(s)
	}
	res, err := rs.Process(in)
	if err != nil {
		return nil, fmt.Errorf("failed to resample: %w", err)
	}
	tail, err := rs.Flush()
	if err != nil {
		return nil, fmt.Errorf("failed to flush resampler: %w", err)
	}
	res = append(res, tail...)

	// Trim or zero-pad to the exact output length of the input duration.
	want := int(math.Round(float64(len(samples)) * float64(to) / float64(from)))
	out := make([]float32, want)
	for i := 0; i < want && i < len(res); i++ {
		out[i] = float32(res[i])
	}
	return out, nil
}
