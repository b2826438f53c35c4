package main

import (
	"log/slog"
	"os"

	"github.com/lmittmann/tint"
)

// newLogger builds the process-level slog logger. Per-package loggers keep
// their own [PREFIX] style; this one covers startup and shutdown.
func newLogger(levelStr string) *slog.Logger {
	return slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level: parseLogLevel(levelStr),
	}))
}

func parseLogLevel(levelStr string) slog.Level {
	switch levelStr {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
