package config

import "fmt"

// ConfigError reports an invalid or contradictory config file. Always
// fatal at startup.
type ConfigError struct {
	Section string
	Reason  string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: [%s] %s", e.Section, e.Reason)
}
