package tts

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

const providerPiper = "piper"

// Piper implements Provider for a local Piper install. Synthesis runs
// fully on-box with no credentials and no network. The voice model file
// stays on disk; Piper maps it per invocation, which is fast enough that
// rounds are not dominated by load cost.
type Piper struct {
	config *Config
	logger *slog.Logger
	binary string
	model  string
}

// NewPiper creates a local Piper TTS provider.
//
// Construction verifies the binary and the voice model file exist and
// fails fast with ErrVoiceUnavailable otherwise, so a bad install is a
// startup error rather than a mid-game one.
func NewPiper(opts ...Option) (*Piper, error) {
	cfg := DefaultConfig()
	cfg.Apply(opts...)

	binary := cfg.BinaryPath
	if binary == "" {
		binary = "piper"
	}
	resolved, err := exec.LookPath(binary)
	if err != nil {
		return nil, fmt.Errorf("%w: binary %q not found", ErrVoiceUnavailable, binary)
	}

	if cfg.VoiceModelPath == "" {
		return nil, fmt.Errorf("%w: voice model path required", ErrVoiceUnavailable)
	}
	if _, err := os.Stat(cfg.VoiceModelPath); err != nil {
		return nil, fmt.Errorf("%w: voice model %q: %v", ErrVoiceUnavailable, cfg.VoiceModelPath, err)
	}

	return &Piper{
		config: cfg,
		logger: cfg.Logger.With("component", "tts.piper"),
		binary: resolved,
		model:  cfg.VoiceModelPath,
	}, nil
}

// Synthesize runs the Piper binary with text on stdin and returns the
// generated WAV.
func (p *Piper) Synthesize(ctx context.Context, text string) (*AudioResult, error) {
	if text == "" {
		return nil, WrapError(providerPiper, ErrEmptyText)
	}

	start := time.Now()

	f, err := os.CreateTemp("", "trivia-piper-*.wav")
	if err != nil {
		return nil, WrapError(providerPiper, fmt.Errorf("temp file: %w", err))
	}
	path := f.Name()
	f.Close()
	defer os.Remove(path)

	cmd := exec.CommandContext(ctx, p.binary,
		"--model", p.model,
		"--output_file", path,
	)
	cmd.Stdin = strings.NewReader(text)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, WrapError(providerPiper,
			fmt.Errorf("piper: %w: %s", err, strings.TrimSpace(stderr.String())))
	}

	audioBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, WrapError(providerPiper, fmt.Errorf("read output: %w", err))
	}

	latency := time.Since(start).Milliseconds()
	p.logger.Debug("synthesized audio",
		"chars", len(text),
		"bytes", len(audioBytes),
		"latency_ms", latency,
	)

	return &AudioResult{
		Audio:     audioBytes,
		Format:    audio.FormatWAV,
		CharCount: len(text),
		LatencyMs: latency,
	}, nil
}

// Health re-checks the binary and model are still present.
func (p *Piper) Health(ctx context.Context) error {
	if _, err := os.Stat(p.model); err != nil {
		return fmt.Errorf("%w: voice model %q: %v", ErrVoiceUnavailable, p.model, err)
	}
	return nil
}

// Close releases resources. Piper holds nothing between calls.
func (p *Piper) Close() error {
	return nil
}

// Verify Piper implements Provider at compile time.
var _ Provider = (*Piper)(nil)
