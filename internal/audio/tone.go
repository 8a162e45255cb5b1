package audio

import (
	"math"
	"sync"
	"time"
)

// ToneOpener opens a synthetic input playing a plucked-string like tone. It
// stands in for a microphone in demos and tests.
type ToneOpener struct {
	// Frequency returns the fundamental to synthesize for the next window.
	// 0 produces silence.
	Frequency func() float64

	Amplitude float64 // 0.0-1.0 of full scale, default 0.5

	// Realtime paces reads at the stream's sample rate like a real device.
	Realtime bool
}

// FixedFrequency returns a frequency source for ToneOpener that never changes.
func FixedFrequency(hz float64) func() float64 {
	return func() float64 { return hz }
}

// Open implements Opener.
func (o ToneOpener) Open(cfg StreamConfig) (Device, error) {
	amp := o.Amplitude
	if amp <= 0 {
		amp = 0.5
	}
	// Louder than full scale would wrap around int16
	if amp > 1 {
		amp = 1
	}
	freq := o.Frequency
	if freq == nil {
		freq = FixedFrequency(0)
	}

	return &toneDevice{
		cfg:       cfg,
		frequency: freq,
		amplitude: amp,
		realtime:  o.Realtime,
		done:      make(chan struct{}),
		next:      time.Now(),
	}, nil
}

type toneDevice struct {
	cfg       StreamConfig
	frequency func() float64
	amplitude float64
	realtime  bool
	phase     float64
	next      time.Time
	done      chan struct{}
	once      sync.Once
}

// Read implements Device.
func (d *toneDevice) Read(dst []int16) error {
	select {
	case <-d.done:
		return ErrClosed
	default:
	}

	if d.realtime {
		d.next = d.next.Add(time.Duration(len(dst)) * time.Second / time.Duration(d.cfg.SampleRate))
		select {
		case <-d.done:
			return ErrClosed
		case <-time.After(time.Until(d.next)):
		}
	}

	f := d.frequency()
	step := 2 * math.Pi * f / float64(d.cfg.SampleRate)
	for i := range dst {
		// Fundamental plus two weaker harmonics
		v := math.Sin(d.phase) + 0.5*math.Sin(2*d.phase) + 0.25*math.Sin(3*d.phase)
		dst[i] = int16(d.amplitude / 1.75 * v * math.MaxInt16)
		d.phase = math.Mod(d.phase+step, 2*math.Pi)
	}

	return nil
}

// Close implements Device.
func (d *toneDevice) Close() error {
	d.once.Do(func() { close(d.done) })
	return nil
}
