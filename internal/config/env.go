// Package config provides configuration helpers for gamewatch commands.
package config

import (
	"os"
	"strconv"
)

// Defaults for the runner.
const (
	DefaultEventAddr = ":8470"
	DefaultLogLevel  = "info"
)

// Env returns the value of an environment variable, falling back to def.
func Env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// EnvInt returns an integer environment variable, falling back to def on
// absence or parse failure.
func EnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

// LogLevel returns the log level from GAMEWATCH_LOG_LEVEL.
func LogLevel() string {
	return Env("GAMEWATCH_LOG_LEVEL", DefaultLogLevel)
}
