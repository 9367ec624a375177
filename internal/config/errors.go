package config

import "fmt"

// ConfigError represents a configuration error
type ConfigError struct {
	message string
}

// NewConfigError creates a new configuration error
func NewConfigError(format string, args ...interface{}) *ConfigError {
	if len(args) == 0 {
		return &ConfigError{message: format}
	}
	return &ConfigError{message: fmt.Sprintf(format, args...)}
}

// Error returns the error message
func (e *ConfigError) Error() string {
	return e.message
}
