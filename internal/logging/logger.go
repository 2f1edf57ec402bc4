package logging

import (
	"log/slog"
	"os"
	"strings"
)

// ParseLevel maps LOG_LEVEL values onto slog levels. Unknown values fall back to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// StdoutHandler is the JSON handler every process writes to.
func StdoutHandler(level string) slog.Handler {
	return slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: ParseLevel(level),
	})
}

// Setup initializes the global slog logger with JSON output to stdout.
func Setup(level string) {
	slog.SetDefault(slog.New(StdoutHandler(level)))
}
