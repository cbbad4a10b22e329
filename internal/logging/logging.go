// Package logging builds the process-wide structured logger.
package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/developerxnoxs/xnoxs-feed/internal/config"
)

// New creates a slog.Logger from the logging configuration. With a file
// configured, output goes to both stdout and a size-rotated log file.
func New(cfg config.LoggingConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: Level(cfg.Level)}

	writer := io.Writer(os.Stdout)
	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
			// Stdout-only is better than no logs at all.
			return slog.New(slog.NewJSONHandler(os.Stdout, opts))
		}
		fileSink := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
		}
		writer = io.MultiWriter(os.Stdout, fileSink)
	}

	return slog.New(slog.NewJSONHandler(writer, opts))
}

// Level maps a config level string to a slog level. Unknown values fall
// back to info.
func Level(s string) slog.Level {
	switch s {
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
