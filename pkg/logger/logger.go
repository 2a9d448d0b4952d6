package logger

import (
	"log/slog"
	"os"
	"strings"
)

// New constructs the JSON slog logger shared by the API server.
func New() *slog.Logger {
	return NewWithService("health-journal")
}

// NewWithService is New with a custom service attribute; the CLI logs to stderr
// so command output on stdout stays machine readable.
func NewWithService(service string) *slog.Logger {
	level := parseLevel(os.Getenv("LOG_LEVEL"))
	out := os.Stdout
	if service != "health-journal" {
		out = os.Stderr
	}
	handler := slog.NewJSONHandler(out, &slog.HandlerOptions{Level: level})
	return slog.New(handler).With("service", service)
}

func parseLevel(level string) slog.Leveler {
	switch strings.ToLower(level) {
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
