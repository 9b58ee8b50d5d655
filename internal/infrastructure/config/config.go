// Package config loads process configuration from the environment.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds the settings the CLI and HTTP adapters need to stand the
// engine up. The execution config defaults applied to documents live in
// internal/compiler (spec §4.3).
type Config struct {
	Port     string
	LogLevel string

	// DefaultMaxIterations and DefaultTimeout are loaded from the environment
	// but not read by the compiler or scheduler, which use their own defaults.
	DefaultMaxIterations int
	DefaultTimeout       time.Duration
}

// Load reads configuration from the environment, falling back to the same
// defaults spec §3 defines for a document's execution block.
func Load() *Config {
	return &Config{
		Port:                 getEnv("PORT", "8080"),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		DefaultMaxIterations: getEnvInt("DEFAULT_MAX_ITERATIONS", 1000),
		DefaultTimeout:       time.Duration(getEnvInt("DEFAULT_TIMEOUT_MS", 30000)) * time.Millisecond,
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return n
}

// PortInt returns the configured port as an integer, or 0 if unparsable.
func (c *Config) PortInt() int {
	p, _ := strconv.Atoi(c.Port)
	return p
}
