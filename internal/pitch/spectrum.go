package pitch

import (
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"
)

// SpectrumDetector implements pitch detection using FFT peak picking
type SpectrumDetector struct {
	cfg     Config
	window  []float64
	minBin  int
	maxBin  int
	binSize float64 // Hz per bin
}

// NewSpectrum creates a new FFT-based pitch detector
func NewSpectrum(cfg Config) (*SpectrumDetector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	binSize := float64(cfg.SampleRate) / float64(cfg.WindowSize)

	minBin := int(cfg.MinFrequency / binSize)
	if minBin < 1 {
		minBin = 1 // Avoid DC component
	}
	maxBin := int(cfg.MaxFrequency/binSize) + 1
	if maxBin >= cfg.WindowSize/2 {
		maxBin = cfg.WindowSize/2 - 1
	}

	return &SpectrumDetector{
		cfg:     cfg,
		window:  window.Hann(cfg.WindowSize),
		minBin:  minBin,
		maxBin:  maxBin,
		binSize: binSize,
	}, nil
}

// Detect implements Detector.
func (d *SpectrumDetector) Detect(samples []int16) Estimate {
	checkWindow(samples, d.cfg.WindowSize)

	signal := make([]float64, d.cfg.WindowSize)
	rms := normalize(samples, signal)
	if rms < d.cfg.MinIntensity || rms == 0 {
		return Estimate{Intensity: rms}
	}

	// Apply windowing function (Hann window)
	for i := range signal {
		signal[i] *= d.window[i]
	}

	spectrum := fft.FFTReal(signal)

	magnitudes := make([]float64, d.maxBin+2)
	for i := range magnitudes {
		magnitudes[i] = cmplx.Abs(spectrum[i])
	}

	// The highest local maximum in range is our candidate for the fundamental
	peak := 0
	for i := d.minBin; i <= d.maxBin; i++ {
		if magnitudes[i] > magnitudes[i-1] && magnitudes[i] >= magnitudes[i+1] {
			if peak == 0 || magnitudes[i] > magnitudes[peak] {
				peak = i
			}
		}
	}
	if peak == 0 {
		return Estimate{Intensity: rms}
	}

	// Use quadratic interpolation for more accurate peak location
	bin := float64(peak) + interpolate(magnitudes[peak-1], magnitudes[peak], magnitudes[peak+1])
	freq := bin * d.binSize
	if freq < d.cfg.MinFrequency || freq > d.cfg.MaxFrequency {
		return Estimate{Intensity: rms}
	}

	return Estimate{Frequency: freq, Intensity: rms}
}
