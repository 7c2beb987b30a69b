package generation

import (
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/quizlab/go-trivia/internal/retry"
)

// Config holds generation provider configuration.
// Use functional options (WithXxx) to set these values.
type Config struct {
	// Provider credentials
	APIKey  string
	BaseURL string

	// Generation parameters
	Model       string
	MaxTokens   int
	Temperature float64

	// Timeouts
	Timeout time.Duration

	// Retry policy applied by remote providers.
	Retry retry.Policy

	// RequestsPerMinute is the client-side rate limit for remote
	// providers. Zero disables limiting.
	RequestsPerMinute int

	// Observability
	Logger *slog.Logger
}

// Option is a functional option for configuring generation providers.
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

// WithModel sets the model name.
func WithModel(model string) Option {
	return func(c *Config) {
		c.Model = model
	}
}

// WithMaxTokens limits response length.
func WithMaxTokens(n int) Option {
	return func(c *Config) {
		c.MaxTokens = n
	}
}

// WithTemperature sets response randomness.
func WithTemperature(t float64) Option {
	return func(c *Config) {
		c.Temperature = t
	}
}

// WithTimeout sets the per-request timeout.
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

// WithRateLimit sets the client-side request rate limit per minute.
func WithRateLimit(perMinute int) Option {
	return func(c *Config) {
		c.RequestsPerMinute = perMinute
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
		BaseURL:     "https://api.openai.com/v1",
		Model:       "gpt-4o-mini",
		MaxTokens:   1024,
		Temperature: 0.8,
		Timeout:     60 * time.Second,
		Retry:       retry.DefaultPolicy(),
		Logger:      slog.Default(),
	}
}

// Apply applies functional options to the config.
func (c *Config) Apply(opts ...Option) {
	for _, opt := range opts {
		opt(c)
	}
}

// limiter builds the client-side rate limiter, or nil when disabled.
func (c *Config) limiter() *rate.Limiter {
	if c.RequestsPerMinute <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(float64(c.RequestsPerMinute)/60.0), 1)
}
