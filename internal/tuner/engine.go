// Package tuner drives the capture loop: it reads windows from the audio
// input, estimates their pitch and matches it against the active tuning.
package tuner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/0xlemi/stringtune/internal/audio"
	"github.com/0xlemi/stringtune/internal/pitch"
	"github.com/0xlemi/stringtune/internal/tuning"
)

// Audio settings
const (
	DefaultSampleRate = 44100
	DefaultWindowSize = 4096
)

// Result is the outcome of one detection cycle.
type Result struct {
	Seq       uint64  // Capture order, starting at 1 for each session
	Frequency float64 // Hz, 0 when no pitch was detected
	Intensity float64 // RMS of the window, 0.0-1.0
	Index     int     // Matched pitch in Tuning
	Cents     float64 // Deviation from the matched pitch
	Good      bool    // Within tuning.GoodMatchCents

	// Tuning is the snapshot the result was matched against.
	Tuning *tuning.Tuning
}

// Detected reports whether a pitch was found.
func (r Result) Detected() bool {
	return r.Frequency > 0
}

// Pitch returns the matched target pitch.
func (r Result) Pitch() tuning.Pitch {
	return r.Tuning.Pitch(r.Index)
}

// Config configures an Engine.
type Config struct {
	SampleRate int    // Defaults to DefaultSampleRate
	WindowSize int    // Defaults to DefaultWindowSize
	Method     string // Pitch detection method, see pitch.New

	// Opener provides the capture device, PortAudio when nil.
	Opener audio.Opener
	Logger *slog.Logger
}

// Engine owns the capture device and the single goroutine running detection
// cycles. Init, Start and Stop are safe for concurrent use and idempotent.
type Engine struct {
	cfg      Config
	detector pitch.Detector
	listener Listener
	logger   *slog.Logger
	tuning   atomic.Pointer[tuning.Tuning]

	mu   sync.Mutex
	dev  audio.Device // Acquired but not yet handed to a session
	sess *session
	last *session
}

// session is one run of the capture goroutine.
type session struct {
	cancel   context.CancelFunc
	done     chan struct{}
	err      error // Read failure that ended the session
	closeErr error
}

// New creates an engine matching against t and delivering to l. It does not
// touch the audio device.
func New(cfg Config, t *tuning.Tuning, l Listener) (*Engine, error) {
	if t == nil {
		return nil, errors.New("tuner: nil tuning")
	}
	if l == nil {
		return nil, errors.New("tuner: nil listener")
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = DefaultSampleRate
	}
	if cfg.WindowSize == 0 {
		cfg.WindowSize = DefaultWindowSize
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Opener == nil {
		cfg.Opener = audio.PortAudioOpener{Logger: cfg.Logger}
	}

	detector, err := pitch.New(cfg.Method, pitch.DefaultConfig(cfg.SampleRate, cfg.WindowSize))
	if err != nil {
		return nil, fmt.Errorf("tuner: %w", err)
	}

	e := &Engine{
		cfg:      cfg,
		detector: detector,
		listener: l,
		logger:   cfg.Logger,
	}
	e.tuning.Store(t)

	return e, nil
}

// Tuning returns the active tuning.
func (e *Engine) Tuning() *tuning.Tuning {
	return e.tuning.Load()
}

// SetTuning replaces the active tuning. The capture loop keeps running; the
// next cycle to finish is matched against t.
func (e *Engine) SetTuning(t *tuning.Tuning) {
	if t == nil {
		return
	}
	e.tuning.Store(t)
	e.logger.Info("tuning switched", "tuning", t.Name())
}

// Init acquires the capture device. It fails with audio.ErrDeviceUnavailable
// or audio.ErrDeviceBusy.
func (e *Engine) Init() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.initLocked()
}

func (e *Engine) initLocked() error {
	if e.dev != nil || e.runningLocked() {
		return nil
	}

	dev, err := audio.Acquire(e.cfg.Opener, audio.StreamConfig{
		SampleRate: e.cfg.SampleRate,
		WindowSize: e.cfg.WindowSize,
	})
	if err != nil {
		e.logger.Error("acquire audio input", "error", err)
		return err
	}

	e.dev = dev
	return nil
}

// Start begins the capture loop, acquiring the device first if needed.
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.runningLocked() {
		return nil
	}
	if err := e.initLocked(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &session{cancel: cancel, done: make(chan struct{})}
	dev := e.dev
	e.dev = nil
	e.sess = s

	e.logger.Info("capture started",
		"sample_rate", e.cfg.SampleRate,
		"window", e.cfg.WindowSize,
		"tuning", e.tuning.Load().Name())

	go e.run(ctx, dev, s)
	return nil
}

// Stop ends the capture loop and releases the device. The current cycle
// finishes first; once Stop returns the device can be acquired again. Stop
// must not be called from a Listener.
func (e *Engine) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.sess == nil {
		if e.dev == nil {
			return nil
		}
		err := e.dev.Close()
		e.dev = nil
		return err
	}

	s := e.sess
	s.cancel()
	<-s.done
	e.sess = nil
	e.last = s

	e.logger.Info("capture stopped")
	return s.closeErr
}

// Running reports whether the capture loop is active.
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.runningLocked()
}

// runningLocked also retires a session that ended on its own.
func (e *Engine) runningLocked() bool {
	if e.sess == nil {
		return false
	}
	select {
	case <-e.sess.done:
		e.last = e.sess
		e.sess = nil
		return false
	default:
		return true
	}
}

// Done returns a channel closed when the current capture loop exits. With no
// loop running the channel is already closed.
func (e *Engine) Done() <-chan struct{} {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.sess != nil {
		return e.sess.done
	}
	closed := make(chan struct{})
	close(closed)
	return closed
}

// Err returns the error that ended the most recent capture loop, if any.
func (e *Engine) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.runningLocked()
	if e.last == nil {
		return nil
	}
	return e.last.err
}

// run is the capture goroutine. It is the only reader of dev and closes it
// before signaling done.
func (e *Engine) run(ctx context.Context, dev audio.Device, s *session) {
	defer close(s.done)
	defer func() {
		s.closeErr = dev.Close()
	}()

	var (
		prevIndex  int
		prevTuning *tuning.Tuning
	)

	for seq := uint64(1); ctx.Err() == nil; seq++ {
		raw := make([]int16, e.cfg.WindowSize)
		if err := dev.Read(raw); err != nil {
			if ctx.Err() != nil {
				return
			}
			s.err = fmt.Errorf("read audio: %w", err)
			e.logger.Error("capture aborted", "error", err)
			return
		}

		est := e.detector.Detect(raw)

		// Match against whatever tuning is active now that the cycle is done
		t := e.tuning.Load()
		if t != prevTuning {
			prevIndex = 0
			prevTuning = t
		}
		m := tuning.MatchFrequency(est.Frequency, t, prevIndex)
		prevIndex = m.Index

		r := Result{
			Seq:       seq,
			Frequency: est.Frequency,
			Intensity: est.Intensity,
			Index:     m.Index,
			Cents:     m.Cents,
			Good:      m.Good,
			Tuning:    t,
		}
		e.logger.Debug("detection",
			"seq", seq,
			"frequency", est.Frequency,
			"intensity", est.Intensity,
			"pitch", t.Pitch(m.Index).Name,
			"cents", m.Cents)

		e.listener.OnDetection(r, raw)
	}
}
