package audio

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gordonklaus/portaudio"
)

// PortAudioOpener opens the default input device through PortAudio.
type PortAudioOpener struct {
	Logger *slog.Logger
}

// Open implements Opener.
func (o PortAudioOpener) Open(cfg StreamConfig) (Device, error) {
	// Initialize PortAudio
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("%w: initialize portaudio: %w", ErrDeviceUnavailable, err)
	}

	in := make([]int16, cfg.WindowSize)
	stream, err := portaudio.OpenDefaultStream(
		1, // input channels
		0, // output channels (we don't need output)
		float64(cfg.SampleRate),
		len(in), // frames per buffer
		in,      // blocking read target
	)
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("%w: open default stream: %w", ErrDeviceUnavailable, err)
	}

	// Start the stream
	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return nil, fmt.Errorf("%w: start stream: %w", ErrDeviceUnavailable, err)
	}

	logger := o.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("portaudio input opened", "sample_rate", cfg.SampleRate, "window", cfg.WindowSize)

	return &portAudioDevice{stream: stream, in: in, logger: logger}, nil
}

// portAudioDevice implements Device using a blocking PortAudio stream
type portAudioDevice struct {
	mu     sync.Mutex
	stream *portaudio.Stream
	in     []int16
	logger *slog.Logger
	closed bool
}

// Read implements Device.
func (d *portAudioDevice) Read(dst []int16) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return ErrClosed
	}
	if len(dst) != len(d.in) {
		return fmt.Errorf("read of %d samples from stream of %d", len(dst), len(d.in))
	}

	err := d.stream.Read()
	if errors.Is(err, portaudio.InputOverflowed) {
		// Samples are still valid, some earlier ones were lost
		d.logger.Debug("portaudio input overflowed")
		err = nil
	}
	if err != nil {
		return fmt.Errorf("read stream: %w", err)
	}

	copy(dst, d.in)
	return nil
}

// Close implements Device.
func (d *portAudioDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}
	d.closed = true

	// Stop and close the stream
	errs := []error{d.stream.Stop(), d.stream.Close()}

	// Terminate PortAudio
	errs = append(errs, portaudio.Terminate())

	d.logger.Info("portaudio input closed")
	return errors.Join(errs...)
}
