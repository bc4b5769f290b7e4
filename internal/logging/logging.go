// Package logging configures the service's structured JSON logger.
package logging

import (
	"log/slog"
	"os"
	"strings"
)

// New returns a JSON slog logger writing to stderr. The level is taken
// from LOG_LEVEL (debug, info, warn, error); unset or unknown values
// mean info.
func New() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: levelFromEnv(),
	}))
}

func levelFromEnv() slog.Level {
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
