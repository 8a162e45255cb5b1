package pitch

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSampleRate = 44100
	testWindowSize = 4096
)

// sine generates a window of the given partials, each a (frequency, amplitude)
// pair with amplitude relative to full scale.
func sine(partials ...[2]float64) []int16 {
	samples := make([]int16, testWindowSize)
	for i := range samples {
		v := 0.0
		for _, p := range partials {
			v += p[1] * math.Sin(2*math.Pi*p[0]*float64(i)/testSampleRate)
		}
		samples[i] = int16(v * 32767)
	}
	return samples
}

func newDetectors(t *testing.T) map[string]Detector {
	t.Helper()
	cfg := DefaultConfig(testSampleRate, testWindowSize)

	detectors := make(map[string]Detector)
	for _, method := range []string{MethodAutocorrelation, MethodSpectrum} {
		d, err := New(method, cfg)
		require.NoError(t, err, method)
		detectors[method] = d
	}
	return detectors
}

func TestAutocorrelationDetectsStrings(t *testing.T) {
	d, err := NewAutocorrelation(DefaultConfig(testSampleRate, testWindowSize))
	require.NoError(t, err)

	for _, f := range []float64{82.41, 110.0, 146.83, 196.0, 246.94, 329.63} {
		est := d.Detect(sine([2]float64{f, 0.5}))
		require.NotZero(t, est.Frequency, "target %v Hz", f)
		assert.InDelta(t, 0, cents(est.Frequency, f), 1, "target %v Hz", f)
		assert.InDelta(t, 0.5/math.Sqrt2, est.Intensity, 0.01, "target %v Hz", f)

		est = d.Detect(sine([2]float64{f, 0.5}, [2]float64{2 * f, 0.25}))
		assert.InDelta(t, 0, cents(est.Frequency, f), 1, "target %v Hz with harmonic", f)
	}
}

func TestAutocorrelationTopOfRange(t *testing.T) {
	d, err := NewAutocorrelation(DefaultConfig(testSampleRate, testWindowSize))
	require.NoError(t, err)

	// Periods close to the shortest lag must not fall back to the octave below
	for _, f := range []float64{440.0, 880.0, 1450.0, 1495.0} {
		est := d.Detect(sine([2]float64{f, 0.5}))
		require.NotZero(t, est.Frequency, "target %v Hz", f)
		assert.InDelta(t, 0, cents(est.Frequency, f), 1, "target %v Hz", f)
	}
}

func TestAutocorrelationBottomOfRange(t *testing.T) {
	d, err := NewAutocorrelation(DefaultConfig(testSampleRate, testWindowSize))
	require.NoError(t, err)

	est := d.Detect(sine([2]float64{60.5, 0.5}))
	assert.InDelta(t, 0, cents(est.Frequency, 60.5), 1)
}

func cents(f, ref float64) float64 {
	return 1200 * math.Log2(f/ref)
}

func TestAutocorrelationPrefersFundamental(t *testing.T) {
	d, err := NewAutocorrelation(DefaultConfig(testSampleRate, testWindowSize))
	require.NoError(t, err)

	// Second harmonic louder than the fundamental, as on a plucked string
	est := d.Detect(sine([2]float64{110, 0.3}, [2]float64{220, 0.5}, [2]float64{330, 0.1}))
	assert.InDelta(t, 110.0, est.Frequency, 0.5)
}

func TestSpectrumDetectsSine(t *testing.T) {
	d, err := NewSpectrum(DefaultConfig(testSampleRate, testWindowSize))
	require.NoError(t, err)

	binSize := float64(testSampleRate) / testWindowSize
	for _, f := range []float64{110.0, 196.0, 440.0, 1000.0} {
		est := d.Detect(sine([2]float64{f, 0.5}))
		assert.InDelta(t, f, est.Frequency, binSize, "target %v Hz", f)
	}
}

func TestSilenceIsNoPitch(t *testing.T) {
	for method, d := range newDetectors(t) {
		est := d.Detect(make([]int16, testWindowSize))
		assert.Zero(t, est.Frequency, method)
		assert.Zero(t, est.Intensity, method)

		// Quiet tone below the intensity gate
		est = d.Detect(sine([2]float64{220, 0.005}))
		assert.Zero(t, est.Frequency, method)
		assert.Positive(t, est.Intensity, method)
	}
}

func TestDCOffsetIsNoPitch(t *testing.T) {
	samples := make([]int16, testWindowSize)
	for i := range samples {
		samples[i] = 12000
	}

	for method, d := range newDetectors(t) {
		est := d.Detect(samples)
		assert.Zero(t, est.Frequency, method)
	}
}

func TestOutOfRangeIsNoPitch(t *testing.T) {
	d, err := NewAutocorrelation(DefaultConfig(testSampleRate, testWindowSize))
	require.NoError(t, err)

	// Period longer than the longest lag searched
	est := d.Detect(sine([2]float64{40, 0.5}))
	assert.Zero(t, est.Frequency)
	assert.Positive(t, est.Intensity)
}

func TestDetectIsDeterministic(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	noisy := sine([2]float64{146.83, 0.4})
	for i := range noisy {
		noisy[i] += int16(rng.Intn(2000) - 1000)
	}
	window := make([]int16, len(noisy))
	copy(window, noisy)

	for method, d := range newDetectors(t) {
		first := d.Detect(noisy)
		for i := 0; i < 5; i++ {
			assert.Equal(t, first, d.Detect(noisy), method)
		}
	}
	assert.Equal(t, window, noisy, "input must not be modified")
}

func TestMalformedWindowPanics(t *testing.T) {
	for method, d := range newDetectors(t) {
		assert.Panics(t, func() { d.Detect(make([]int16, testWindowSize-1)) }, method)
		assert.Panics(t, func() { d.Detect(nil) }, method)
	}
}

func TestConfigValidation(t *testing.T) {
	valid := DefaultConfig(testSampleRate, testWindowSize)
	require.NoError(t, valid.Validate())

	tests := map[string]func(*Config){
		"sample rate":   func(c *Config) { c.SampleRate = 0 },
		"window":        func(c *Config) { c.WindowSize = 16 },
		"min frequency": func(c *Config) { c.MinFrequency = 0 },
		"inverted":      func(c *Config) { c.MinFrequency, c.MaxFrequency = 1500, 60 },
		"nyquist":       func(c *Config) { c.MaxFrequency = 30000 },
		"clarity":       func(c *Config) { c.MinClarity = 2 },
		"intensity":     func(c *Config) { c.MinIntensity = -1 },
	}

	for name, mutate := range tests {
		cfg := valid
		mutate(&cfg)
		_, err := New(MethodAutocorrelation, cfg)
		assert.ErrorIs(t, err, ErrInvalidConfig, name)
		_, err = New(MethodSpectrum, cfg)
		assert.ErrorIs(t, err, ErrInvalidConfig, name)
	}
}

func TestAutocorrelationWindowTooShort(t *testing.T) {
	cfg := DefaultConfig(testSampleRate, 64)
	cfg.MaxFrequency = 100
	_, err := NewAutocorrelation(cfg)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestNewUnknownMethod(t *testing.T) {
	_, err := New("zero-crossing", DefaultConfig(testSampleRate, testWindowSize))
	assert.ErrorIs(t, err, ErrUnknownMethod)
}
