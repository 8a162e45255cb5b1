// Package audio opens monophonic capture streams that deliver fixed size
// windows of 16-bit samples.
package audio

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

// Errors
var (
	// ErrDeviceUnavailable wraps any failure to acquire or open the input,
	// e.g. a missing permission or no input device.
	ErrDeviceUnavailable = errors.New("audio input unavailable")

	// ErrDeviceBusy is returned when another session already holds the input.
	ErrDeviceBusy = errors.New("audio input busy")

	// ErrClosed is returned by Read after Close.
	ErrClosed = errors.New("audio input closed")
)

// StreamConfig describes the stream to open.
type StreamConfig struct {
	SampleRate int // Samples per second
	WindowSize int // Samples returned by each Read
}

// Device is an open capture stream.
type Device interface {
	// Read blocks until len(dst) new samples are available and copies them
	// into dst.
	Read(dst []int16) error

	// Close stops the stream and releases the hardware.
	Close() error
}

// Opener opens a capture stream on some backend.
type Opener interface {
	Open(cfg StreamConfig) (Device, error)
}

// OpenerFunc adapts a function to the Opener interface.
type OpenerFunc func(cfg StreamConfig) (Device, error)

// Open implements Opener.
func (f OpenerFunc) Open(cfg StreamConfig) (Device, error) {
	return f(cfg)
}

// held marks the process wide claim on the capture input
var held atomic.Bool

// Acquire claims the capture input for this process and opens it. Only one
// device may be held at a time; a second call fails with ErrDeviceBusy until
// the first device is closed.
func Acquire(o Opener, cfg StreamConfig) (Device, error) {
	if cfg.SampleRate <= 0 || cfg.WindowSize <= 0 {
		return nil, fmt.Errorf("%w: invalid stream %d Hz x %d samples", ErrDeviceUnavailable, cfg.SampleRate, cfg.WindowSize)
	}
	if !held.CompareAndSwap(false, true) {
		return nil, ErrDeviceBusy
	}

	dev, err := o.Open(cfg)
	if err != nil {
		held.Store(false)
		if !errors.Is(err, ErrDeviceUnavailable) {
			err = fmt.Errorf("%w: %w", ErrDeviceUnavailable, err)
		}
		return nil, err
	}

	return &claimed{Device: dev}, nil
}

// claimed releases the process claim once the wrapped device is closed.
type claimed struct {
	Device
	once sync.Once
}

func (c *claimed) Close() error {
	var err error
	c.once.Do(func() {
		err = c.Device.Close()
		held.Store(false)
	})
	return err
}
