package config

import (
	"log/slog"

	"github.com/quizlab/go-trivia/pkg/audio"
	"github.com/quizlab/go-trivia/pkg/game"
	"github.com/quizlab/go-trivia/pkg/generation"
	"github.com/quizlab/go-trivia/pkg/stt"
	"github.com/quizlab/go-trivia/pkg/tts"
)

// Bundle holds the constructed providers. Built once at startup and lent
// to the orchestrator for the process lifetime.
type Bundle struct {
	Generator generation.Provider
	Speaker   *tts.Speaker
	Listener  stt.Provider
	Judge     game.Judge
}

// Close releases every provider in the bundle.
func (b *Bundle) Close() error {
	var first error
	if b.Speaker != nil {
		if err := b.Speaker.Close(); err != nil && first == nil {
			first = err
		}
	}
	if b.Listener != nil {
		if err := b.Listener.Close(); err != nil && first == nil {
			first = err
		}
	}
	if b.Generator != nil {
		if err := b.Generator.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Resolve constructs the provider bundle from a validated config file.
// Local backends probe their binaries and models here, so any resource
// problem surfaces before round 1 instead of mid-game.
func Resolve(f *File, creds *Credentials, logger *slog.Logger) (*Bundle, error) {
	b := &Bundle{}

	generator, err := resolveGeneration(f, creds, logger)
	if err != nil {
		return nil, err
	}
	b.Generator = generator

	speaker, err := resolveTTS(f, creds, logger)
	if err != nil {
		b.Close()
		return nil, err
	}
	b.Speaker = speaker

	listener, err := resolveSTT(f, creds, logger)
	if err != nil {
		b.Close()
		return nil, err
	}
	b.Listener = listener

	switch f.Game.Judge {
	case "", "verdict":
		b.Judge = game.VerdictJudge{}
	case "llm":
		b.Judge = game.NewLLMJudge(generator)
	case "off":
		b.Judge = game.NopJudge{}
	}

	return b, nil
}

func resolveGeneration(f *File, creds *Credentials, logger *slog.Logger) (generation.Provider, error) {
	switch {
	case f.Generation.OpenAI.Enabled:
		c := f.Generation.OpenAI
		if err := requiredFor(creds.OpenAIAPIKey, "OPENAI_API_KEY", "generation.openai"); err != nil {
			return nil, err
		}
		opts := []generation.Option{
			generation.WithAPIKey(creds.OpenAIAPIKey),
			generation.WithModel(c.Model),
			generation.WithMaxTokens(c.MaxTokens),
			generation.WithTemperature(c.Temperature),
			generation.WithLogger(logger),
		}
		if c.BaseURL != "" {
			opts = append(opts, generation.WithBaseURL(c.BaseURL))
		}
		if c.RequestsPerMinute > 0 {
			opts = append(opts, generation.WithRateLimit(c.RequestsPerMinute))
		}
		return generation.NewOpenAI(opts...)

	case f.Generation.Ollama.Enabled:
		c := f.Generation.Ollama
		return generation.NewOllama(
			generation.WithModel(c.Model),
			generation.WithBaseURL(c.BaseURL),
			generation.WithLogger(logger),
		)
	}
	// Validate guarantees one branch above matched.
	return nil, &ConfigError{Section: "generation", Reason: "no provider enabled"}
}

func resolveTTS(f *File, creds *Credentials, logger *slog.Logger) (*tts.Speaker, error) {
	var provider tts.Provider
	var err error

	switch {
	case f.TTS.ElevenLabs.Enabled:
		c := f.TTS.ElevenLabs
		if err := requiredFor(creds.ElevenLabsAPIKey, "ELEVENLABS_API_KEY", "tts.elevenlabs"); err != nil {
			return nil, err
		}
		opts := []tts.Option{
			tts.WithAPIKey(creds.ElevenLabsAPIKey),
			tts.WithVoice(c.VoiceID),
			tts.WithLogger(logger),
		}
		if c.ModelID != "" {
			opts = append(opts, tts.WithModel(c.ModelID))
		}
		if c.Stream {
			provider, err = tts.NewElevenLabsWS(opts...)
		} else {
			provider, err = tts.NewElevenLabs(opts...)
		}

	case f.TTS.OpenAI.Enabled:
		c := f.TTS.OpenAI
		if err := requiredFor(creds.OpenAIAPIKey, "OPENAI_API_KEY", "tts.openai"); err != nil {
			return nil, err
		}
		model := "tts-1"
		if c.HighQuality {
			model = "tts-1-hd"
		}
		provider, err = tts.NewOpenAI(
			tts.WithAPIKey(creds.OpenAIAPIKey),
			tts.WithVoice(c.Voice),
			tts.WithModel(model),
			tts.WithLogger(logger),
		)

	case f.TTS.Piper.Enabled:
		c := f.TTS.Piper
		opts := []tts.Option{
			tts.WithVoiceModel(c.VoiceModel),
			tts.WithLogger(logger),
		}
		if c.Binary != "" {
			opts = append(opts, tts.WithBinary(c.Binary))
		}
		provider, err = tts.NewPiper(opts...)

	default:
		return nil, nil // text-only host
	}
	if err != nil {
		return nil, err
	}

	if f.TTS.CacheSize > 0 {
		provider, err = tts.NewCache(provider, f.TTS.CacheSize, logger)
		if err != nil {
			return nil, err
		}
	}

	player, err := audio.NewSystemPlayer()
	if err != nil {
		return nil, err
	}
	return tts.NewSpeaker(provider, player, logger), nil
}

func resolveSTT(f *File, creds *Credentials, logger *slog.Logger) (stt.Provider, error) {
	if !f.STT.Whisper.Enabled && !f.STT.WhisperCPP.Enabled {
		return nil, nil // host answers its own questions
	}

	recorder, err := audio.NewSystemRecorder(f.Audio.CaptureDevice)
	if err != nil {
		return nil, err
	}

	if f.STT.Whisper.Enabled {
		c := f.STT.Whisper
		if err := requiredFor(creds.OpenAIAPIKey, "OPENAI_API_KEY", "stt.whisper"); err != nil {
			return nil, err
		}
		return stt.NewWhisper(recorder,
			stt.WithAPIKey(creds.OpenAIAPIKey),
			stt.WithModel(c.Model),
			stt.WithLanguage(c.Language),
			stt.WithLogger(logger),
		)
	}

	c := f.STT.WhisperCPP
	opts := []stt.Option{
		stt.WithModelPath(c.ModelPath),
		stt.WithLogger(logger),
	}
	if c.Binary != "" {
		opts = append(opts, stt.WithBinary(c.Binary))
	}
	if c.Language != "" {
		opts = append(opts, stt.WithLanguage(c.Language))
	}
	return stt.NewWhisperCPP(recorder, opts...)
}

// Persona maps the config file's personality and game sections onto the
// host personality.
func (f *File) Persona() game.Personality {
	return game.Personality{
		Name:             f.Personality.Name,
		Role:             f.Personality.Role,
		RoleDesc:         f.Personality.RoleDesc,
		RoleBase:         f.Personality.RoleBase,
		LikesToReference: f.Personality.LikesToReference,
		LoveAndPride:     f.Personality.LoveAndPride,
		HopeForPlayer:    f.Personality.HopeForPlayer,
		Extra:            f.Personality.Extra,
		GradeLevel:       f.Game.GradeLevel,
	}
}

// ScriptOptions maps the game section onto script behavior.
func (f *File) ScriptOptions() []game.ScriptOption {
	var opts []game.ScriptOption
	if len(f.Game.Topics) > 0 {
		opts = append(opts, game.WithTopics(f.Game.Topics))
	}
	if !f.Game.UseHistory {
		opts = append(opts, game.WithoutHistory())
	}
	if f.Game.HistorySets > 0 {
		opts = append(opts, game.WithHistorySets(f.Game.HistorySets))
	}
	return opts
}
