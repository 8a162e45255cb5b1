package pitch

import (
	"fmt"
	"math"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"
)

// peakRatio picks the first lag whose correlation reaches this share of the
// strongest one. Later lags are usually multiples of the period.
const peakRatio = 0.9

// AutocorrelationDetector finds the period of the signal as the lag of maximum
// self-similarity, computed through the FFT. The window is Hann tapered and
// its correlation divided by the taper's own.
type AutocorrelationDetector struct {
	cfg    Config
	minLag int
	maxLag int
	fftLen int

	window []float64
	// taper holds the normalized autocorrelation of window
	taper []float64
}

// NewAutocorrelation creates an autocorrelation based detector.
func NewAutocorrelation(cfg Config) (*AutocorrelationDetector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// One lag below the shortest period so its peak is a local maximum
	minLag := int(math.Floor(float64(cfg.SampleRate)/cfg.MaxFrequency)) - 1
	if minLag < 1 {
		minLag = 1
	}
	// The taper correlation fades out past half the window
	maxLag := int(math.Ceil(float64(cfg.SampleRate) / cfg.MinFrequency))
	if maxLag > cfg.WindowSize/2 {
		maxLag = cfg.WindowSize / 2
	}
	if maxLag <= minLag+1 {
		return nil, fmt.Errorf("%w: window of %d samples cannot hold %v Hz", ErrInvalidConfig, cfg.WindowSize, cfg.MaxFrequency)
	}

	// Zero padding to twice the window avoids circular wrap around
	fftLen := 1
	for fftLen < 2*cfg.WindowSize {
		fftLen <<= 1
	}

	d := &AutocorrelationDetector{
		cfg:    cfg,
		minLag: minLag,
		maxLag: maxLag,
		fftLen: fftLen,
		window: window.Hann(cfg.WindowSize),
	}

	padded := make([]float64, fftLen)
	copy(padded, d.window)
	d.taper = d.autocorrelate(padded)

	return d, nil
}

// Detect implements Detector.
func (d *AutocorrelationDetector) Detect(samples []int16) Estimate {
	checkWindow(samples, d.cfg.WindowSize)

	signal := make([]float64, d.fftLen)
	rms := normalize(samples, signal[:d.cfg.WindowSize])
	if rms < d.cfg.MinIntensity || rms == 0 {
		return Estimate{Intensity: rms}
	}

	for i, w := range d.window {
		signal[i] *= w
	}
	corr := d.autocorrelate(signal)
	for lag := 0; lag <= d.maxLag+1; lag++ {
		corr[lag] /= d.taper[lag]
	}

	// Strongest peak in range decides the clarity of the signal
	best := 0.0
	for lag := d.minLag; lag <= d.maxLag; lag++ {
		if corr[lag] > best {
			best = corr[lag]
		}
	}
	if best < d.cfg.MinClarity {
		return Estimate{Intensity: rms}
	}

	// The first local maximum close to the strongest one is the period
	lag := 0
	for i := d.minLag + 1; i < d.maxLag; i++ {
		if corr[i] > corr[i-1] && corr[i] >= corr[i+1] && corr[i] >= best*peakRatio {
			lag = i
			break
		}
	}
	if lag == 0 {
		return Estimate{Intensity: rms}
	}

	period := float64(lag) + interpolate(corr[lag-1], corr[lag], corr[lag+1])
	freq := float64(d.cfg.SampleRate) / period
	if freq < d.cfg.MinFrequency || freq > d.cfg.MaxFrequency {
		return Estimate{Intensity: rms}
	}

	return Estimate{Frequency: freq, Intensity: rms}
}

// autocorrelate returns the autocorrelation of signal normalized so that
// lag 0 is 1. signal must be zero padded to fftLen.
func (d *AutocorrelationDetector) autocorrelate(signal []float64) []float64 {
	spectrum := fft.FFTReal(signal)

	// Power spectrum: multiply each bin by its complex conjugate
	for i, c := range spectrum {
		re, im := real(c), imag(c)
		spectrum[i] = complex(re*re+im*im, 0)
	}

	inverse := fft.IFFT(spectrum)

	corr := make([]float64, d.cfg.WindowSize)
	zero := real(inverse[0])
	for i := range corr {
		corr[i] = real(inverse[i]) / zero
	}
	return corr
}
