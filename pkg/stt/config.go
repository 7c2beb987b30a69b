package stt

import (
	"log/slog"
	"time"

	"github.com/quizlab/go-trivia/internal/retry"
)

// DefaultListenWindow bounds the capture when the caller passes no timeout.
const DefaultListenWindow = 10 * time.Second

// Config holds STT provider configuration.
// Use functional options (WithXxx) to set these values.
type Config struct {
	// Provider credentials
	APIKey  string
	BaseURL string

	// Model selection
	Model    string
	Language string

	// Local provider paths (whisper.cpp)
	BinaryPath string
	ModelPath  string

	// Timeouts
	Timeout time.Duration

	// Retry policy applied by remote providers.
	Retry retry.Policy

	// Observability
	Logger *slog.Logger
}

// Option is a functional option for configuring STT providers.
type Option func(*Config)

// WithAPIKey sets the API key for the provider.
func WithAPIKey(key string) Option {
	return func(c *Config) {
		c.APIKey = key
	}
}

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *Config) {
		c.BaseURL = url
	}
}

// WithModel sets the transcription model.
func WithModel(model string) Option {
	return func(c *Config) {
		c.Model = model
	}
}

// WithLanguage sets the language hint.
func WithLanguage(lang string) Option {
	return func(c *Config) {
		c.Language = lang
	}
}

// WithBinary sets the local transcription binary path (whisper.cpp).
func WithBinary(path string) Option {
	return func(c *Config) {
		c.BinaryPath = path
	}
}

// WithModelPath sets the local model file path (whisper.cpp).
func WithModelPath(path string) Option {
	return func(c *Config) {
		c.ModelPath = path
	}
}

// WithTimeout sets the transcription request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		c.Timeout = timeout
	}
}

// WithRetryPolicy sets the retry policy for remote requests.
func WithRetryPolicy(p retry.Policy) Option {
	return func(c *Config) {
		c.Retry = p
	}
}

// WithLogger sets the structured logger for the provider.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// DefaultConfig returns sensible default configuration.
func DefaultConfig() *Config {
	return &Config{
		Model:    "whisper-1",
		Language: "en",
		Timeout:  30 * time.Second,
		Retry:    retry.DefaultPolicy(),
		Logger:   slog.Default(),
	}
}

// Apply applies functional options to the config.
func (c *Config) Apply(opts ...Option) {
	for _, opt := range opts {
		opt(c)
	}
}
