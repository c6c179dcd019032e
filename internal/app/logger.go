package app

import (
	"log/slog"
	"os"
)

// NewLogger builds the process logger. JSON output is meant for log
// shipping in deployed environments; the text handler is for local work.
func NewLogger(cfg *Config) *slog.Logger {
	if cfg != nil && cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{AddSource: true}))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}
