package inference

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/ekisa-team/some/internal/config"
	"github.com/ekisa-team/some/internal/modules"
	"github.com/ekisa-team/some/internal/tensor"
)

// Configuration keys read by the mel front-end.
const (
	KeyFFTSize = "fft_size"
	KeyWinSize = "win_size"
	KeyFMin    = "fmin"
	KeyFMax    = "fmax"
)

// melFloor clamps filterbank energies before the log.
const melFloor = 1e-5

// MelConfig controls log-mel spectrogram extraction.
type MelConfig struct {
	SampleRate int
	HopSize    int
	WinSize    int
	FFTSize    int
	NumMels    int
	FMin       float64
	FMax       float64
}

// MelConfigFrom reads the front-end parameters from a training configuration.
func MelConfigFrom(cfg *config.Config) MelConfig {
	sr := config.Value(cfg, config.KeySampleRate, 44100)
	fft := config.Value(cfg, KeyFFTSize, 2048)
	return MelConfig{
		SampleRate: sr,
		HopSize:    config.Value(cfg, config.KeyHopSize, 512),
		WinSize:    config.Value(cfg, KeyWinSize, fft),
		FFTSize:    fft,
		NumMels:    config.Value(cfg, modules.KeyNumMelBins, 128),
		FMin:       config.Value(cfg, KeyFMin, 40.0),
		FMax:       config.Value(cfg, KeyFMax, float64(sr)/2),
	}
}

// Validate reports parameters the extractor cannot frame audio with.
func (c MelConfig) Validate() error {
	switch {
	case c.SampleRate < 1:
		return fmt.Errorf("%s must be positive, got %d", config.KeySampleRate, c.SampleRate)
	case c.HopSize < 1:
		return fmt.Errorf("%s must be at least 1, got %d", config.KeyHopSize, c.HopSize)
	case c.FFTSize < 1:
		return fmt.Errorf("%s must be at least 1, got %d", KeyFFTSize, c.FFTSize)
	case c.WinSize < 1 || c.WinSize > c.FFTSize:
		return fmt.Errorf("%s (%d) must be between 1 and %s (%d)", KeyWinSize, c.WinSize, KeyFFTSize, c.FFTSize)
	case c.NumMels < 1:
		return fmt.Errorf("%s must be at least 1, got %d", modules.KeyNumMelBins, c.NumMels)
	case c.FMax <= c.FMin:
		return fmt.Errorf("%s (%g) must be greater than %s (%g)", KeyFMax, c.FMax, KeyFMin, c.FMin)
	}
	return nil
}

// MelExtractor computes log-mel spectrograms.
type MelExtractor struct {
	cfg    MelConfig
	window []float64
	bank   [][]float64
	fft    *fourier.FFT
}

// NewMelExtractor precomputes the window and the filterbank.
func NewMelExtractor(cfg MelConfig) *MelExtractor {
	return &MelExtractor{
		cfg:    cfg,
		window: hannWindow(cfg.WinSize),
		bank:   melFilterBank(cfg.NumMels, cfg.FFTSize, cfg.SampleRate, cfg.FMin, cfg.FMax),
		fft:    fourier.NewFFT(cfg.FFTSize),
	}
}

// Frames returns the number of frames Extract produces for n samples.
// Frames are centered on multiples of the hop size.
func (e *MelExtractor) Frames(n int) int {
	if n == 0 {
		return 0
	}
	return n/e.cfg.HopSize + 1
}

// Extract returns a [T, NumMels] natural-log mel spectrogram of pcm.
func (e *MelExtractor) Extract(pcm []float32) *tensor.Tensor {
	cfg := e.cfg
	frames := e.Frames(len(pcm))
	out := tensor.Zeros(frames, cfg.NumMels)

	buf := make([]float64, cfg.FFTSize)
	coeffs := make([]complex128, cfg.FFTSize/2+1)
	power := make([]float64, len(coeffs))

	// The window sits centered in the FFT frame, which is centered on t*hop.
	offset := (cfg.FFTSize - cfg.WinSize) / 2
	for t := range frames {
		start := t*cfg.HopSize - cfg.FFTSize/2
		clear(buf)
		for i := range cfg.WinSize {
			j := start + offset + i
			if j < 0 || j >= len(pcm) {
				continue
			}
			buf[offset+i] = float64(pcm[j]) * e.window[i]
		}

		coeffs = e.fft.Coefficients(coeffs, buf)
		for k, c := range coeffs {
			power[k] = math.Sqrt(real(c)*real(c) + imag(c)*imag(c))
		}

		row := out.Row(t)
		for m, filter := range e.bank {
			var sum float64
			for k, w := range filter {
				sum += w * power[k]
			}
			row[m] = math.Log(max(sum, melFloor))
		}
	}
	return out
}

// hannWindow is the periodic Hann window of length n.
func hannWindow(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n))
	}
	return w
}

func hzToMel(hz float64) float64 {
	return 2595.0 * math.Log10(1.0+hz/700.0)
}

func melToHz(mel float64) float64 {
	return 700.0 * (math.Pow(10.0, mel/2595.0) - 1.0)
}

// melFilterBank returns numMels triangular filters over fftSize/2+1 bins.
func melFilterBank(numMels, fftSize, sampleRate int, lowFreq, highFreq float64) [][]float64 {
	halfFFT := fftSize/2 + 1
	lowMel := hzToMel(lowFreq)
	highMel := hzToMel(highFreq)

	bins := make([]int, numMels+2)
	step := (highMel - lowMel) / float64(numMels+1)
	for i := range bins {
		hz := melToHz(lowMel + float64(i)*step)
		bins[i] = min(int(math.Round(hz*float64(fftSize)/float64(sampleRate))), halfFFT-1)
	}

	// every filter spans at least one bin
	for i := 1; i < len(bins); i++ {
		if bins[i] <= bins[i-1] {
			bins[i] = bins[i-1] + 1
		}
	}

	bank := make([][]float64, numMels)
	for m := range numMels {
		filter := make([]float64, halfFFT)
		left, center, right := bins[m], bins[m+1], bins[m+2]
		for k := left; k < center && k < halfFFT; k++ {
			filter[k] = float64(k-left) / float64(center-left)
		}
		for k := center; k <= right && k < halfFFT; k++ {
			filter[k] = float64(right-k) / float64(right-center)
		}
		bank[m] = filter
	}
	return bank
}
