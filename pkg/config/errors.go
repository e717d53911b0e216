package config

import "fmt"

// ConfigurationError reports missing or invalid bot settings, including a
// socket port that cannot be discovered from the server. It is fatal to
// connecting.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error on %q: %s", e.Field, e.Reason)
}
