// Package tts provides a unified interface for text-to-speech providers.
//
// The package supports multiple TTS backends: ElevenLabs (HTTP and
// streaming WebSocket), OpenAI, and a local Piper install. All providers
// implement the Provider interface, enabling seamless switching without
// changing caller code. Speaker combines a provider with an audio player
// so callers can say Speak(text) and be done.
//
// Example usage:
//
//	provider, _ := tts.NewElevenLabs(
//	    tts.WithAPIKey(os.Getenv("ELEVENLABS_API_KEY")),
//	    tts.WithVoice("your-voice-id"),
//	)
//	defer provider.Close()
//
//	result, _ := provider.Synthesize(ctx, "Welcome to trivia night!")
//	// result.Audio contains MP3/WAV audio bytes
package tts

import (
	"context"
	"log/slog"
	"time"

	"github.com/quizlab/go-trivia/pkg/audio"
)

// Provider defines the TTS provider interface.
// All implementations must satisfy this interface for seamless provider switching.
type Provider interface {
	// Synthesize converts text to audio, returning the complete audio buffer.
	Synthesize(ctx context.Context, text string) (*AudioResult, error)

	// Health checks provider connectivity and API key validity.
	Health(ctx context.Context) error

	// Close releases any resources held by the provider.
	Close() error
}

// AudioResult represents a complete audio synthesis result.
type AudioResult struct {
	// Audio contains the raw audio data in the specified format.
	Audio []byte

	// Format describes the audio container.
	Format audio.Format

	// CharCount is the number of characters synthesized.
	CharCount int

	// LatencyMs is the time to the full buffer in milliseconds.
	LatencyMs int64
}

// VoiceSettings controls voice characteristics for providers that support it.
type VoiceSettings struct {
	// Stability controls voice consistency (0.0-1.0).
	// Lower values = more expressive/variable, higher = more consistent.
	Stability float64

	// SimilarityBoost controls how closely the voice matches the original (0.0-1.0).
	SimilarityBoost float64

	// Style controls style exaggeration (0.0-1.0).
	Style float64

	// SpeakerBoost enhances speaker clarity.
	SpeakerBoost bool
}

// DefaultVoiceSettings returns sensible defaults for voice synthesis.
func DefaultVoiceSettings() VoiceSettings {
	return VoiceSettings{
		Stability:       0.5,
		SimilarityBoost: 0.75,
		Style:           0.0,
		SpeakerBoost:    true,
	}
}

// Speaker combines a provider with a playback device. Synthesis and
// playback failures are the caller's side channel: the game loop logs
// them and moves on.
type Speaker struct {
	provider Provider
	player   audio.Player
	logger   *slog.Logger

	// MaxSegmentLen splits long host monologues at sentence boundaries
	// before synthesis. Zero disables splitting.
	MaxSegmentLen int
}

// NewSpeaker creates a Speaker for the given provider and playback device.
func NewSpeaker(provider Provider, player audio.Player, logger *slog.Logger) *Speaker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Speaker{
		provider:      provider,
		player:        player,
		logger:        logger.With("component", "tts.speaker"),
		MaxSegmentLen: DefaultMaxSegmentLen,
	}
}

// Speak synthesizes text and plays it on the output device, blocking
// until playback finishes or ctx is done.
func (s *Speaker) Speak(ctx context.Context, text string) error {
	cleaned := CleanText(text)
	segments := SplitText(cleaned, s.MaxSegmentLen)

	start := time.Now()
	for _, segment := range segments {
		if segment == "" {
			continue
		}
		result, err := s.provider.Synthesize(ctx, segment)
		if err != nil {
			return err
		}
		if err := s.player.Play(ctx, result.Audio, result.Format); err != nil {
			return err
		}
	}

	s.logger.Debug("spoke",
		"chars", len(cleaned),
		"segments", len(segments),
		"total_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// Close releases the underlying provider.
func (s *Speaker) Close() error {
	return s.provider.Close()
}
