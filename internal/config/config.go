package config

import (
	"time"
)

// Store backends understood by the server. The in-memory store has no
// ingestion path and is only constructed directly by tests.
const (
	StoreRedis = "redis"
	StoreFile  = "file"
)

// Config holds the process-level settings of the analytics server. The
// tunable analysis constants live in Policy.
type Config struct {
	// APIPort is the port the API server listens on
	APIPort int

	// CORSOrigins lists allowed browser origins. "*" allows any.
	CORSOrigins []string

	// LogLevel is the default logging level (debug, info, warn, error)
	LogLevel string
	// LogFormat is console or json
	LogFormat string
	// LogFile enables rotated file output when non-empty
	LogFile string

	// StoreKind selects the record store: redis or file
	StoreKind string
	// StorePath is the JSON file read by the file store
	StorePath string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	// RedisKey holds the JSON array published by the ingestion service
	RedisKey string

	// StoreTimeout bounds a single snapshot read
	StoreTimeout time.Duration

	// CacheSize is the number of derived reports kept in memory (0 disables)
	CacheSize int

	// PolicyPath points at an optional analytics policy YAML file
	PolicyPath string
	// WatchPolicy enables hot reload of PolicyPath
	WatchPolicy bool

	// TracingEnabled indicates whether OpenTelemetry tracing is enabled
	TracingEnabled bool
	// TracingEndpoint is the OTLP gRPC endpoint for trace export
	TracingEndpoint string
	// TracingTLSCAPath is the path to the CA certificate for TLS verification
	TracingTLSCAPath string
	// TracingTLSInsecure skips certificate verification
	TracingTLSInsecure bool
}

// Default returns the configuration used when no flags are given.
func Default() *Config {
	return &Config{
		APIPort:      8080,
		CORSOrigins:  []string{"http://localhost:3000"},
		LogLevel:     "info",
		LogFormat:    "console",
		StoreKind:    StoreRedis,
		RedisAddr:    "localhost:6379",
		RedisKey:     "analyzed_errors",
		StoreTimeout: 5 * time.Second,
		CacheSize:    32,
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.APIPort < 1 || c.APIPort > 65535 {
		return NewConfigError("APIPort must be between 1 and 65535")
	}

	switch c.StoreKind {
	case StoreRedis:
		if c.RedisAddr == "" {
			return NewConfigError("RedisAddr must be set for the redis store")
		}
		if c.RedisKey == "" {
			return NewConfigError("RedisKey must not be empty")
		}
		if c.RedisDB < 0 {
			return NewConfigError("RedisDB must not be negative")
		}
	case StoreFile:
		if c.StorePath == "" {
			return NewConfigError("StorePath must be set for the file store")
		}
	default:
		return NewConfigError("StoreKind must be one of redis, file (got %q)", c.StoreKind)
	}

	if c.StoreTimeout <= 0 {
		return NewConfigError("StoreTimeout must be positive")
	}

	if c.CacheSize < 0 {
		return NewConfigError("CacheSize must not be negative")
	}

	if c.LogFormat != "" && c.LogFormat != "console" && c.LogFormat != "json" {
		return NewConfigError("LogFormat must be console or json (got %q)", c.LogFormat)
	}

	if c.WatchPolicy && c.PolicyPath == "" {
		return NewConfigError("PolicyPath must be set when policy watching is enabled")
	}

	if c.TracingEnabled && c.TracingEndpoint == "" {
		return NewConfigError("TracingEndpoint must be set when tracing is enabled")
	}

	return nil
}
