// Package pitch estimates the fundamental frequency of a window of audio
// samples.
package pitch

import (
	"errors"
	"fmt"
	"math"
)

// Errors
var (
	ErrInvalidConfig = errors.New("invalid detector config")
	ErrUnknownMethod = errors.New("unknown detection method")
)

// Detection methods accepted by New
const (
	MethodAutocorrelation = "autocorrelation"
	MethodSpectrum        = "spectrum"
)

// Estimate is the result of analyzing one window.
// Frequency is 0 when no pitch was found.
type Estimate struct {
	Frequency float64 // Hz
	Intensity float64 // RMS of the normalized window, 0.0-1.0
}

// Detector defines the interface for pitch detection
type Detector interface {
	// Detect analyzes exactly WindowSize samples. It panics on any other length.
	Detect(samples []int16) Estimate
}

// Config holds the detector parameters shared by all methods.
type Config struct {
	SampleRate   int     // Samples per second
	WindowSize   int     // Samples per analyzed window
	MinFrequency float64 // Lowest frequency to detect (Hz)
	MaxFrequency float64 // Highest frequency to detect (Hz)
	MinIntensity float64 // RMS below this is treated as silence
	MinClarity   float64 // Normalized periodicity below this is treated as noise
}

// DefaultConfig covers the range of common stringed instruments.
func DefaultConfig(sampleRate, windowSize int) Config {
	return Config{
		SampleRate:   sampleRate,
		WindowSize:   windowSize,
		MinFrequency: 60.0,   // Below the low D of drop tunings
		MaxFrequency: 1500.0, // Above the high strings of violin and ukulele
		MinIntensity: 0.01,
		MinClarity:   0.3,
	}
}

// Validate checks that the config describes a usable search range.
func (c Config) Validate() error {
	switch {
	case c.SampleRate <= 0:
		return fmt.Errorf("%w: sample rate %d", ErrInvalidConfig, c.SampleRate)
	case c.WindowSize < 64:
		return fmt.Errorf("%w: window size %d is below 64", ErrInvalidConfig, c.WindowSize)
	case !(c.MinFrequency > 0) || !(c.MaxFrequency > c.MinFrequency):
		return fmt.Errorf("%w: frequency range %v-%v Hz", ErrInvalidConfig, c.MinFrequency, c.MaxFrequency)
	case c.MaxFrequency > float64(c.SampleRate)/2:
		return fmt.Errorf("%w: max frequency %v Hz is above Nyquist", ErrInvalidConfig, c.MaxFrequency)
	case c.MinIntensity < 0 || c.MinClarity < 0 || c.MinClarity > 1:
		return fmt.Errorf("%w: gates intensity=%v clarity=%v", ErrInvalidConfig, c.MinIntensity, c.MinClarity)
	}
	return nil
}

// New creates a detector for the named method.
func New(method string, cfg Config) (Detector, error) {
	switch method {
	case MethodAutocorrelation, "":
		return NewAutocorrelation(cfg)
	case MethodSpectrum:
		return NewSpectrum(cfg)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMethod, method)
	}
}

// normalize converts samples to [-1, 1], removes the DC offset and returns
// the RMS of the result.
func normalize(samples []int16, out []float64) float64 {
	sum := 0.0
	for i, s := range samples {
		out[i] = float64(s) / 32768.0
		sum += out[i]
	}
	mean := sum / float64(len(samples))

	sumSquares := 0.0
	for i := range out {
		out[i] -= mean
		sumSquares += out[i] * out[i]
	}

	return math.Sqrt(sumSquares / float64(len(out)))
}

// checkWindow panics when a caller hands in a window of the wrong size.
func checkWindow(samples []int16, size int) {
	if len(samples) != size {
		panic(fmt.Sprintf("pitch: window has %d samples, want %d", len(samples), size))
	}
}

// interpolate returns the offset, within half a sample, of the true peak
// around the middle of three points.
func interpolate(prev, current, next float64) float64 {
	denom := prev - 2*current + next
	if denom == 0 {
		return 0
	}
	delta := 0.5 * (prev - next) / denom
	return math.Max(-0.5, math.Min(0.5, delta))
}
