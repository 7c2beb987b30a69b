package stt

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/quizlab/go-trivia/pkg/audio"
)

const providerWhisperCPP = "whispercpp"

// WhisperCPP implements Provider using a local whisper.cpp install.
// Transcription runs fully on-box; no audio leaves the machine. The
// model file is probed once at construction so a missing install is a
// startup failure, not a mid-round one.
type WhisperCPP struct {
	config   *Config
	recorder audio.Recorder
	logger   *slog.Logger
	binary   string
	model    string
}

// NewWhisperCPP creates a local transcription provider reading from recorder.
// Fails fast with ErrModelUnavailable when the binary or model file is
// missing.
func NewWhisperCPP(recorder audio.Recorder, opts ...Option) (*WhisperCPP, error) {
	cfg := DefaultConfig()
	cfg.Apply(opts...)

	if recorder == nil {
		return nil, ErrNoRecorder
	}

	binary := cfg.BinaryPath
	if binary == "" {
		binary = "whisper-cli"
	}
	resolved, err := exec.LookPath(binary)
	if err != nil {
		return nil, fmt.Errorf("%w: binary %q not found", ErrModelUnavailable, binary)
	}

	if cfg.ModelPath == "" {
		return nil, fmt.Errorf("%w: model path required", ErrModelUnavailable)
	}
	if _, err := os.Stat(cfg.ModelPath); err != nil {
		return nil, fmt.Errorf("%w: model %q: %v", ErrModelUnavailable, cfg.ModelPath, err)
	}

	return &WhisperCPP{
		config:   cfg,
		recorder: recorder,
		logger:   cfg.Logger.With("component", "stt.whispercpp"),
		binary:   resolved,
		model:    cfg.ModelPath,
	}, nil
}

// Listen records for up to timeout and transcribes the capture locally.
func (w *WhisperCPP) Listen(ctx context.Context, timeout time.Duration) (*Transcript, error) {
	if timeout <= 0 {
		timeout = DefaultListenWindow
	}

	wav, err := w.recorder.Record(ctx, timeout)
	if err != nil {
		return nil, WrapError(providerWhisperCPP, fmt.Errorf("capture: %w", err))
	}

	f, err := os.CreateTemp("", "trivia-whisper-*.wav")
	if err != nil {
		return nil, WrapError(providerWhisperCPP, fmt.Errorf("temp file: %w", err))
	}
	path := f.Name()
	defer os.Remove(path)

	if _, err := f.Write(wav); err != nil {
		f.Close()
		return nil, WrapError(providerWhisperCPP, fmt.Errorf("write capture: %w", err))
	}
	f.Close()

	start := time.Now()

	args := []string{
		"--model", w.model,
		"--no-timestamps",
		"--no-prints",
	}
	if w.config.Language != "" {
		args = append(args, "--language", w.config.Language)
	}
	args = append(args, "--file", path)

	cmd := exec.CommandContext(ctx, w.binary, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, WrapError(providerWhisperCPP,
			fmt.Errorf("whisper-cli: %w: %s", err, strings.TrimSpace(stderr.String())))
	}

	text := strings.TrimSpace(stdout.String())
	if text == "" || isBlankAudioMarker(text) {
		return nil, ErrNoSpeech
	}

	latency := time.Since(start).Milliseconds()
	w.logger.Debug("transcribed speech",
		"chars", len(text),
		"capture_bytes", len(wav),
		"latency_ms", latency,
	)

	return &Transcript{Text: text, LatencyMs: latency}, nil
}

// Health re-checks the model file is still present.
func (w *WhisperCPP) Health(ctx context.Context) error {
	if _, err := os.Stat(w.model); err != nil {
		return fmt.Errorf("%w: model %q: %v", ErrModelUnavailable, w.model, err)
	}
	return nil
}

// Close releases resources. Nothing persists between calls.
func (w *WhisperCPP) Close() error {
	return nil
}

// isBlankAudioMarker recognizes whisper.cpp's markers for non-speech
// audio, e.g. "[BLANK_AUDIO]" or "(silence)".
func isBlankAudioMarker(text string) bool {
	t := strings.ToUpper(strings.TrimSpace(text))
	return strings.HasPrefix(t, "[BLANK_AUDIO]") ||
		strings.HasPrefix(t, "(SILENCE)") ||
		strings.HasPrefix(t, "[SILENCE]")
}

// Verify WhisperCPP implements Provider at compile time.
var _ Provider = (*WhisperCPP)(nil)
