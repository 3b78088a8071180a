package stencil

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
)

// LevelOff silences a logger entirely.
const LevelOff = slog.Level(12)

var (
	globalLevel  = new(slog.LevelVar)
	globalLogger atomic.Pointer[slog.Logger]
)

func init() {
	globalLevel.Set(parseLogLevel(GetGlobalConfig().LogLevel))
	globalLogger.Store(NewLogger(os.Stderr, globalLevel))
}

func parseLogLevel(levelStr string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(levelStr)) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	case "off":
		return LevelOff
	default:
		return slog.LevelInfo // Default to info
	}
}

// NewLogger returns a text logger writing to w at the given level.
func NewLogger(w io.Writer, level slog.Leveler) *slog.Logger {
	if w == nil {
		w = io.Discard
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// SetLogger replaces the package logger. A nil logger discards everything.
func SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = NewLogger(io.Discard, LevelOff)
	}
	globalLogger.Store(logger)
}

// Logger returns the package logger.
func Logger() *slog.Logger {
	return globalLogger.Load()
}

// UpdateLoggerFromConfig updates the package log level based on the current global configuration
func UpdateLoggerFromConfig() {
	globalLevel.Set(parseLogLevel(GetGlobalConfig().LogLevel))
}
