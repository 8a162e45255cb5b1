package main

import (
	"bytes"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xlemi/stringtune/internal/audio"
	"github.com/0xlemi/stringtune/internal/tuning"
)

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestListFlag(t *testing.T) {
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--list"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "standard [E2 A2 D3 G3 B3 E4]")
	assert.Contains(t, out.String(), "drop-d [D2 A2 D3 G3 B3 E4]")
}

func TestRejectsArgs(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{"extra"})

	assert.Error(t, cmd.Execute())
}

func TestResolveTuning(t *testing.T) {
	tn, err := resolveTuning(options{tuning: "open-g"}, quietLogger)
	require.NoError(t, err)
	assert.Equal(t, "open-g", tn.Name())

	tn, err = resolveTuning(options{tuning: "nonsense"}, quietLogger)
	require.NoError(t, err)
	assert.Same(t, tuning.Standard, tn)

	tn, err = resolveTuning(options{custom: "cello:C2,G2,D3,A3"}, quietLogger)
	require.NoError(t, err)
	assert.Equal(t, "cello", tn.Name())
	assert.Equal(t, 4, tn.Len())

	tn, err = resolveTuning(options{custom: "E2=82.41,A2=110"}, quietLogger)
	require.NoError(t, err)
	assert.Equal(t, "custom", tn.Name())

	_, err = resolveTuning(options{custom: "broken:X9"}, quietLogger)
	assert.ErrorIs(t, err, tuning.ErrUnknownNote)
}

func TestNewOpener(t *testing.T) {
	for backend, want := range map[string]any{
		backendPortAudio: audio.PortAudioOpener{},
		backendMalgo:     audio.MalgoOpener{},
		backendTone:      audio.ToneOpener{},
	} {
		o, err := newOpener(options{backend: backend}, quietLogger)
		require.NoError(t, err, backend)
		assert.IsType(t, want, o, backend)
	}

	_, err := newOpener(options{backend: "jack"}, quietLogger)
	assert.Error(t, err)
}

func TestNewLoggerWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stringtune.log")
	logger, closeLog, err := newLogger(options{logFile: path, debug: true})
	require.NoError(t, err)

	logger.Debug("detection", "frequency", 110.0)
	closeLog()

	assert.FileExists(t, path)
}
