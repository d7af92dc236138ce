package waveform

import "errors"

// Error definitions for the waveform package.
var (
	ErrInvalidWAV       = errors.New("not a valid PCM WAV stream")
	ErrUnsupportedDepth = errors.New("unsupported sample bit depth")
	ErrSampleRate       = errors.New("invalid sample rate")
)
