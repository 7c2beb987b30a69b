package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Credentials are API keys resolved from the environment, never from the
// config file. A key is only required when the provider that uses it is
// enabled; requiredFor enforces that at resolve time.
type Credentials struct {
	OpenAIAPIKey     string `env:"OPENAI_API_KEY"`
	ElevenLabsAPIKey string `env:"ELEVENLABS_API_KEY"`
}

// LoadCredentials reads credentials from the process environment.
func LoadCredentials() (*Credentials, error) {
	creds, err := env.ParseAs[Credentials]()
	if err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}
	return &creds, nil
}

// requiredFor returns a ConfigError when key is empty.
func requiredFor(key, name, section string) error {
	if key == "" {
		return &ConfigError{
			Section: section,
			Reason:  fmt.Sprintf("%s must be set in the environment", name),
		}
	}
	return nil
}
