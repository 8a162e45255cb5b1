package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/0xlemi/stringtune/internal/audio"
	"github.com/0xlemi/stringtune/internal/pitch"
	"github.com/0xlemi/stringtune/internal/tuner"
	"github.com/0xlemi/stringtune/internal/tuning"
	"github.com/0xlemi/stringtune/internal/ui"
)

// Backends accepted by --backend
const (
	backendPortAudio = "portaudio"
	backendMalgo     = "malgo"
	backendTone      = "tone"
)

// Results waiting for the UI before the oldest is dropped
const queueSize = 8

type options struct {
	tuning     string
	custom     string
	backend    string
	method     string
	tone       float64
	sampleRate int
	window     int
	logFile    string
	debug      bool
	list       bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := options{}

	cmd := &cobra.Command{
		Use:          "stringtune",
		Short:        "Tune an instrument against a set of target pitches",
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.list {
				listTunings(cmd.OutOrStdout())
				return nil
			}
			return run(cmd.Context(), opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.tuning, "tuning", "t", tuning.DefaultPreset, "preset tuning to start with")
	f.StringVar(&opts.custom, "custom", "", `user-defined tuning as "name:E2,A2,D3" or "name:E2=82.4,..."`)
	f.StringVarP(&opts.backend, "backend", "b", backendPortAudio, "audio input backend: portaudio, malgo or tone")
	f.StringVarP(&opts.method, "method", "m", pitch.MethodAutocorrelation, "pitch detection method: autocorrelation or spectrum")
	f.Float64Var(&opts.tone, "tone", 110, "frequency synthesized by the tone backend (Hz)")
	f.IntVar(&opts.sampleRate, "sample-rate", tuner.DefaultSampleRate, "capture sample rate (Hz)")
	f.IntVar(&opts.window, "window", tuner.DefaultWindowSize, "samples per detection window")
	f.StringVar(&opts.logFile, "log-file", "", "write logs to this file")
	f.BoolVar(&opts.debug, "debug", false, "log every detection cycle")
	f.BoolVarP(&opts.list, "list", "l", false, "list preset tunings and exit")

	return cmd
}

func listTunings(w io.Writer) {
	for _, key := range tuning.Presets() {
		t, _ := tuning.Lookup(key)
		fmt.Fprintln(w, t)
	}
}

func run(ctx context.Context, opts options) error {
	logger, closeLog, err := newLogger(opts)
	if err != nil {
		return err
	}
	defer closeLog()

	t, err := resolveTuning(opts, logger)
	if err != nil {
		return err
	}

	opener, err := newOpener(opts, logger)
	if err != nil {
		return err
	}

	queue := tuner.NewQueue(queueSize)
	engine, err := tuner.New(tuner.Config{
		SampleRate: opts.sampleRate,
		WindowSize: opts.window,
		Method:     opts.method,
		Opener:     opener,
		Logger:     logger,
	}, t, queue)
	if err != nil {
		return err
	}

	// Start audio capture
	if err := engine.Start(); err != nil {
		if errors.Is(err, audio.ErrDeviceBusy) {
			log.Printf("Audio input is in use by another session")
		} else {
			log.Printf("Audio input unavailable, check the microphone and its permissions")
		}
		return fmt.Errorf("start audio capture: %w", err)
	}
	defer func() {
		if err := engine.Stop(); err != nil {
			logger.Error("stop audio capture", "error", err)
		}
	}()

	p := tea.NewProgram(ui.NewModel(t, engine.SetTuning), tea.WithAltScreen())

	g, ctx := errgroup.WithContext(ctx)
	ctx, cancel := context.WithCancel(ctx)

	// Forward results to the UI without ever blocking the capture loop
	g.Go(func() error {
		done := engine.Done()
		for {
			select {
			case <-ctx.Done():
				return nil
			case d := <-queue.C():
				p.Send(ui.ResultMsg(d))
			case <-done:
				if err := engine.Err(); err != nil {
					p.Send(ui.ErrorMsg{Err: err})
				}
				done = nil
			}
		}
	})

	// Run the UI
	g.Go(func() error {
		defer cancel()
		if _, err := p.Run(); err != nil {
			return fmt.Errorf("run ui: %w", err)
		}
		return nil
	})

	err = g.Wait()
	logger.Info("session ended", "dropped_results", queue.Dropped())
	return err
}

// resolveTuning picks the user-defined tuning if given, else the preset.
func resolveTuning(opts options, logger *slog.Logger) (*tuning.Tuning, error) {
	if opts.custom != "" {
		name, list, found := strings.Cut(opts.custom, ":")
		if !found {
			name, list = "custom", opts.custom
		}
		return tuning.Parse(strings.TrimSpace(name), list)
	}

	t, ok := tuning.Lookup(opts.tuning)
	if !ok {
		logger.Warn("unknown tuning, using default", "tuning", opts.tuning, "default", t.Name())
	}
	return t, nil
}

func newOpener(opts options, logger *slog.Logger) (audio.Opener, error) {
	switch opts.backend {
	case backendPortAudio:
		return audio.PortAudioOpener{Logger: logger}, nil
	case backendMalgo:
		return audio.MalgoOpener{Logger: logger}, nil
	case backendTone:
		return audio.ToneOpener{Frequency: audio.FixedFrequency(opts.tone), Realtime: true}, nil
	default:
		return nil, fmt.Errorf("unknown backend %q", opts.backend)
	}
}

// newLogger writes to --log-file when set. The terminal belongs to the UI,
// so logs are discarded otherwise.
func newLogger(opts options) (*slog.Logger, func(), error) {
	level := slog.LevelInfo
	if opts.debug {
		level = slog.LevelDebug
	}

	if opts.logFile == "" {
		return slog.New(slog.NewTextHandler(io.Discard, nil)), func() {}, nil
	}

	f, err := os.OpenFile(opts.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: level}))
	return logger, func() { f.Close() }, nil
}
