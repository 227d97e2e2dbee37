package internal

import (
	"io"
	"log/slog"
	"strings"
)

// parseLogLevel reads LOG_LEVEL. Anything unrecognised means info.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// NewLogger builds the process logger. Development gets human-readable
// text; every other environment gets JSON for the log pipeline. Each record
// carries service=podcaster and the environment name.
func NewLogger(w io.Writer, env string, level string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLogLevel(level)}

	var h slog.Handler = slog.NewJSONHandler(w, opts)
	if env == EnvDevelopment {
		h = slog.NewTextHandler(w, opts)
	}

	return slog.New(h).With("service", "podcaster", "env", env)
}
