// Package stt provides a unified interface for speech-to-text providers.
//
// The package supports a remote backend (the OpenAI Whisper transcription
// API) and a local whisper.cpp install. Providers capture audio through
// the audio.Recorder device boundary and return the recognized text; the
// game loop never touches raw audio.
//
// Example usage:
//
//	recorder, _ := audio.NewSystemRecorder("")
//	provider, _ := stt.NewWhisper(recorder,
//	    stt.WithAPIKey(os.Getenv("OPENAI_API_KEY")),
//	)
//	defer provider.Close()
//
//	transcript, err := provider.Listen(ctx, 10*time.Second)
//	if errors.Is(err, stt.ErrNoSpeech) {
//	    // player said nothing
//	}
package stt

import (
	"context"
	"time"
)

// Provider defines the STT provider interface.
type Provider interface {
	// Listen captures from the input device for up to timeout and
	// transcribes what it heard. Returns ErrNoSpeech when the capture
	// contained no recognizable speech.
	Listen(ctx context.Context, timeout time.Duration) (*Transcript, error)

	// Health checks provider readiness.
	Health(ctx context.Context) error

	// Close releases any resources held by the provider.
	Close() error
}

// Transcript is the result of one listen window.
type Transcript struct {
	// Text is the recognized speech.
	Text string

	// LatencyMs is the transcription time in milliseconds, excluding
	// the capture window itself.
	LatencyMs int64
}
