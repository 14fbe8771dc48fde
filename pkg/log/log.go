// Package log configures the process-wide structured logger.
package log

import (
	"log/slog"
	"os"
	"strings"
)

// Setup installs a text handler on the default logger at the given level.
func Setup(logLevel string) {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: ParseLevel(logLevel),
	})))
}

// ParseLevel maps a level name ("debug", "info", "warn", "error", any
// case) to its slog level. Unknown names fall back to info so a typo in
// LOG_LEVEL never silences a binary.
func ParseLevel(logLevel string) slog.Level {
	var level slog.Level

	err := level.UnmarshalText([]byte(strings.TrimSpace(logLevel)))
	if err != nil {
		return slog.LevelInfo
	}

	return level
}

// WithModule tags the default logger with the module attribute every
// package logs under.
func WithModule(module string) *slog.Logger {
	return slog.With("module", module)
}
