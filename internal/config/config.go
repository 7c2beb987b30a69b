// Package config loads the trivia config file, resolves credentials from
// the environment, and constructs the provider bundle the orchestrator
// runs with. Everything that can fail here is a startup failure; once a
// bundle is handed out, config is read-only.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// File is the parsed config file. Fields mirror the TOML sections; the
// same schema loads from YAML or JSON if that is what the path points at.
type File struct {
	Logging     LoggingConfig
	Game        GameConfig
	Personality PersonalityConfig
	Audio       AudioConfig
	Generation  GenerationConfig
	TTS         TTSConfig
	STT         STTConfig
}

type LoggingConfig struct {
	Level string
}

type GameConfig struct {
	MaxRounds    int
	GradeLevel   string
	Topics       []string
	ListenWindow time.Duration
	Judge        string
	UseHistory   bool
	HistorySets  int
}

type PersonalityConfig struct {
	Name             string
	Role             string
	RoleDesc         string
	RoleBase         string
	LikesToReference string
	LoveAndPride     string
	HopeForPlayer    string
	Extra            string
}

type AudioConfig struct {
	CaptureDevice string
}

// GenerationConfig holds the language-generation provider tables.
// Exactly one must be enabled.
type GenerationConfig struct {
	OpenAI OpenAIGenConfig
	Ollama OllamaConfig
}

type OpenAIGenConfig struct {
	Enabled           bool
	Model             string
	BaseURL           string
	MaxTokens         int
	Temperature       float64
	RequestsPerMinute int
}

type OllamaConfig struct {
	Enabled bool
	Model   string
	BaseURL string
}

// TTSConfig holds the text-to-speech provider tables. At most one may be
// enabled; with none enabled the host is text-only.
type TTSConfig struct {
	CacheSize  int
	ElevenLabs ElevenLabsConfig
	OpenAI     OpenAITTSConfig
	Piper      PiperConfig
}

type ElevenLabsConfig struct {
	Enabled bool
	VoiceID string
	ModelID string
	Stream  bool
}

type OpenAITTSConfig struct {
	Enabled     bool
	Voice       string
	HighQuality bool
}

type PiperConfig struct {
	Enabled    bool
	Binary     string
	VoiceModel string
}

// STTConfig holds the speech-to-text provider tables. At most one may be
// enabled; with none enabled the host answers its own questions.
type STTConfig struct {
	Whisper    WhisperConfig
	WhisperCPP WhisperCPPConfig
}

type WhisperConfig struct {
	Enabled  bool
	Model    string
	Language string
}

type WhisperCPPConfig struct {
	Enabled   bool
	Binary    string
	ModelPath string
	Language  string
}

// Provider tables the loader recognizes. Anything else under these
// sections is a typo or an unsupported backend, both fatal.
var (
	knownGeneration = map[string]bool{"openai": true, "ollama": true}
	knownTTS        = map[string]bool{"elevenlabs": true, "openai": true, "piper": true, "cache_size": true}
	knownSTT        = map[string]bool{"whisper": true, "whispercpp": true}
)

// Load reads and validates the config file at path.
func Load(path string) (*File, error) {
	v := viper.New()
	v.SetConfigFile(path)

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := rejectUnknownProviders(v); err != nil {
		return nil, err
	}

	f := &File{}
	f.Logging.Level = v.GetString("logging.level")

	f.Game.MaxRounds = v.GetInt("game.max_rounds")
	f.Game.GradeLevel = v.GetString("game.grade_level")
	f.Game.Topics = v.GetStringSlice("game.topics")
	f.Game.ListenWindow = v.GetDuration("game.listen_window")
	f.Game.Judge = v.GetString("game.judge")
	f.Game.UseHistory = v.GetBool("game.use_history")
	f.Game.HistorySets = v.GetInt("game.history_sets")

	f.Personality.Name = v.GetString("personality.name")
	f.Personality.Role = v.GetString("personality.role")
	f.Personality.RoleDesc = v.GetString("personality.role_desc")
	f.Personality.RoleBase = v.GetString("personality.role_base")
	f.Personality.LikesToReference = v.GetString("personality.likes_to_reference")
	f.Personality.LoveAndPride = v.GetString("personality.love_and_pride")
	f.Personality.HopeForPlayer = v.GetString("personality.hope_for_player")
	f.Personality.Extra = v.GetString("personality.extra")

	f.Audio.CaptureDevice = v.GetString("audio.capture_device")

	f.Generation.OpenAI.Enabled = v.GetBool("generation.openai.enabled")
	f.Generation.OpenAI.Model = v.GetString("generation.openai.model")
	f.Generation.OpenAI.BaseURL = v.GetString("generation.openai.base_url")
	f.Generation.OpenAI.MaxTokens = v.GetInt("generation.openai.max_tokens")
	f.Generation.OpenAI.Temperature = v.GetFloat64("generation.openai.temperature")
	f.Generation.OpenAI.RequestsPerMinute = v.GetInt("generation.openai.requests_per_minute")
	f.Generation.Ollama.Enabled = v.GetBool("generation.ollama.enabled")
	f.Generation.Ollama.Model = v.GetString("generation.ollama.model")
	f.Generation.Ollama.BaseURL = v.GetString("generation.ollama.base_url")

	f.TTS.CacheSize = v.GetInt("tts.cache_size")
	f.TTS.ElevenLabs.Enabled = v.GetBool("tts.elevenlabs.enabled")
	f.TTS.ElevenLabs.VoiceID = v.GetString("tts.elevenlabs.voice_id")
	f.TTS.ElevenLabs.ModelID = v.GetString("tts.elevenlabs.model_id")
	f.TTS.ElevenLabs.Stream = v.GetBool("tts.elevenlabs.stream")
	f.TTS.OpenAI.Enabled = v.GetBool("tts.openai.enabled")
	f.TTS.OpenAI.Voice = v.GetString("tts.openai.voice")
	f.TTS.OpenAI.HighQuality = v.GetBool("tts.openai.high_quality")
	f.TTS.Piper.Enabled = v.GetBool("tts.piper.enabled")
	f.TTS.Piper.Binary = v.GetString("tts.piper.binary")
	f.TTS.Piper.VoiceModel = v.GetString("tts.piper.voice_model")

	f.STT.Whisper.Enabled = v.GetBool("stt.whisper.enabled")
	f.STT.Whisper.Model = v.GetString("stt.whisper.model")
	f.STT.Whisper.Language = v.GetString("stt.whisper.language")
	f.STT.WhisperCPP.Enabled = v.GetBool("stt.whispercpp.enabled")
	f.STT.WhisperCPP.Binary = v.GetString("stt.whispercpp.binary")
	f.STT.WhisperCPP.ModelPath = v.GetString("stt.whispercpp.model_path")
	f.STT.WhisperCPP.Language = v.GetString("stt.whispercpp.language")

	if err := f.Validate(); err != nil {
		return nil, err
	}
	return f, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("game.max_rounds", 10)
	v.SetDefault("game.grade_level", "8th")
	v.SetDefault("game.listen_window", "10s")
	v.SetDefault("game.judge", "verdict")
	v.SetDefault("game.use_history", true)
	v.SetDefault("game.history_sets", 5)
	v.SetDefault("audio.capture_device", "default")
	v.SetDefault("generation.openai.model", "gpt-4o-mini")
	v.SetDefault("generation.openai.max_tokens", 1024)
	v.SetDefault("generation.openai.temperature", 0.8)
	v.SetDefault("generation.ollama.base_url", "http://localhost:11434")
	v.SetDefault("tts.cache_size", 64)
	v.SetDefault("tts.openai.voice", "nova")
	v.SetDefault("stt.whisper.model", "whisper-1")
	v.SetDefault("stt.whisper.language", "en")
	v.SetDefault("stt.whispercpp.binary", "whisper-cli")
}

func rejectUnknownProviders(v *viper.Viper) error {
	sections := []struct {
		name  string
		known map[string]bool
	}{
		{"generation", knownGeneration},
		{"tts", knownTTS},
		{"stt", knownSTT},
	}
	for _, s := range sections {
		for key := range v.GetStringMap(s.name) {
			if !s.known[key] {
				return &ConfigError{
					Section: s.name,
					Reason:  fmt.Sprintf("unknown provider %q", key),
				}
			}
		}
	}
	return nil
}

// Validate enforces the enabled-provider rules: exactly one generation
// backend, at most one TTS backend, at most one STT backend.
func (f *File) Validate() error {
	gen := 0
	if f.Generation.OpenAI.Enabled {
		gen++
	}
	if f.Generation.Ollama.Enabled {
		gen++
	}
	if gen == 0 {
		return &ConfigError{Section: "generation", Reason: "no provider enabled"}
	}
	if gen > 1 {
		return &ConfigError{Section: "generation", Reason: "multiple providers enabled"}
	}

	speech := 0
	if f.TTS.ElevenLabs.Enabled {
		speech++
	}
	if f.TTS.OpenAI.Enabled {
		speech++
	}
	if f.TTS.Piper.Enabled {
		speech++
	}
	if speech > 1 {
		return &ConfigError{Section: "tts", Reason: "multiple providers enabled"}
	}

	listen := 0
	if f.STT.Whisper.Enabled {
		listen++
	}
	if f.STT.WhisperCPP.Enabled {
		listen++
	}
	if listen > 1 {
		return &ConfigError{Section: "stt", Reason: "multiple providers enabled"}
	}

	switch f.Game.Judge {
	case "", "verdict", "llm", "off":
	default:
		return &ConfigError{Section: "game", Reason: fmt.Sprintf("unknown judge %q", f.Game.Judge)}
	}

	if f.TTS.Piper.Enabled && f.TTS.Piper.VoiceModel == "" {
		return &ConfigError{Section: "tts.piper", Reason: "voice_model is required"}
	}
	if f.STT.WhisperCPP.Enabled && f.STT.WhisperCPP.ModelPath == "" {
		return &ConfigError{Section: "stt.whispercpp", Reason: "model_path is required"}
	}
	if f.TTS.ElevenLabs.Enabled && f.TTS.ElevenLabs.VoiceID == "" {
		return &ConfigError{Section: "tts.elevenlabs", Reason: "voice_id is required"}
	}

	return nil
}
