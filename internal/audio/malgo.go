package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/gen2brain/malgo"
)

// chunkBacklog bounds the callback chunks waiting for Read
const chunkBacklog = 32

// MalgoOpener opens the default input device through miniaudio.
type MalgoOpener struct {
	Logger *slog.Logger
}

// Open implements Opener.
func (o MalgoOpener) Open(cfg StreamConfig) (Device, error) {
	logger := o.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(message string) {
		logger.Debug("malgo", "message", message)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: init context: %w", ErrDeviceUnavailable, err)
	}

	d := &malgoDevice{
		ctx:    ctx,
		chunks: make(chan []int16, chunkBacklog),
		done:   make(chan struct{}),
		logger: logger,
	}

	config := malgo.DefaultDeviceConfig(malgo.Capture)
	config.Capture.Format = malgo.FormatS16
	config.Capture.Channels = 1
	config.SampleRate = uint32(cfg.SampleRate)
	config.Alsa.NoMMap = 1

	device, err := malgo.InitDevice(ctx.Context, config, malgo.DeviceCallbacks{
		Data: d.onData,
	})
	if err != nil {
		d.freeContext()
		return nil, fmt.Errorf("%w: init device: %w", ErrDeviceUnavailable, err)
	}
	d.device = device

	if err := device.Start(); err != nil {
		device.Uninit()
		d.freeContext()
		return nil, fmt.Errorf("%w: start device: %w", ErrDeviceUnavailable, err)
	}

	logger.Info("malgo input opened", "sample_rate", cfg.SampleRate, "window", cfg.WindowSize)
	return d, nil
}

// malgoDevice turns miniaudio's data callback into blocking reads
type malgoDevice struct {
	ctx     *malgo.AllocatedContext
	device  *malgo.Device
	chunks  chan []int16
	done    chan struct{}
	pending []int16
	dropped atomic.Uint64
	logger  *slog.Logger
	once    sync.Once
}

// onData runs on the miniaudio thread and must not block
func (d *malgoDevice) onData(_, input []byte, _ uint32) {
	if len(input) == 0 {
		return
	}

	select {
	case d.chunks <- decodeS16(input):
	default:
		d.dropped.Add(1)
	}
}

// Read implements Device.
func (d *malgoDevice) Read(dst []int16) error {
	for len(d.pending) < len(dst) {
		select {
		case <-d.done:
			return ErrClosed
		case chunk := <-d.chunks:
			d.pending = append(d.pending, chunk...)
		}
	}

	n := copy(dst, d.pending)
	d.pending = append(d.pending[:0], d.pending[n:]...)

	if dropped := d.dropped.Swap(0); dropped > 0 {
		d.logger.Debug("malgo input overflowed", "chunks", dropped)
	}
	return nil
}

// Close implements Device.
func (d *malgoDevice) Close() error {
	var err error
	d.once.Do(func() {
		close(d.done)
		err = d.device.Stop()
		d.device.Uninit()
		err = errors.Join(err, d.freeContext())
		d.logger.Info("malgo input closed")
	})
	return err
}

func (d *malgoDevice) freeContext() error {
	err := d.ctx.Uninit()
	d.ctx.Free()
	return err
}

// decodeS16 copies little endian signed 16-bit samples out of a callback
// buffer owned by miniaudio.
func decodeS16(b []byte) []int16 {
	samples := make([]int16, len(b)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(b[2*i:]))
	}
	return samples
}
