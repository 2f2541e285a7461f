package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/lmittmann/tint"
)

// Log output formats
const (
	LogFormatJSON = "json"
	LogFormatText = "text"
	LogFormatTint = "tint"
)

// Logger interface for app layer
type Logger interface {
	Debug(format string, args ...interface{})
	Info(format string, args ...interface{})
	Warn(format string, args ...interface{})
	Error(format string, args ...interface{})
}

// slogLogger formats printf-style messages and hands them to a slog handler
type slogLogger struct {
	l *slog.Logger
}

func (s *slogLogger) Debug(format string, args ...interface{}) {
	s.log(slog.LevelDebug, format, args...)
}

func (s *slogLogger) Info(format string, args ...interface{}) {
	s.log(slog.LevelInfo, format, args...)
}

func (s *slogLogger) Warn(format string, args ...interface{}) {
	s.log(slog.LevelWarn, format, args...)
}

func (s *slogLogger) Error(format string, args ...interface{}) {
	s.log(slog.LevelError, format, args...)
}

func (s *slogLogger) log(level slog.Level, format string, args ...interface{}) {
	ctx := context.Background()
	if !s.l.Enabled(ctx, level) {
		return
	}
	s.l.Log(ctx, level, fmt.Sprintf(format, args...))
}

// NewLogger builds a Logger writing to w.
// format is one of json, text or tint; level is a slog level name (debug, info, warn, error).
func NewLogger(w io.Writer, format, level string) (Logger, error) {
	var logLevel slog.Level
	if level == "" {
		level = "info"
	}
	if err := logLevel.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("could not parse log level: %v", err)
	}

	opts := slog.HandlerOptions{Level: logLevel}

	var handler slog.Handler
	switch format {
	case LogFormatJSON:
		handler = slog.NewJSONHandler(w, &opts)
	case LogFormatText:
		handler = slog.NewTextHandler(w, &opts)
	case LogFormatTint, "":
		handler = tint.NewHandler(w, &tint.Options{Level: logLevel, TimeFormat: "15:04:05.000"})
	default:
		return nil, fmt.Errorf("unknown logging type: %s", format)
	}

	return &slogLogger{l: slog.New(handler)}, nil
}

// NewDiscardLogger returns a Logger that drops everything
func NewDiscardLogger() Logger {
	return &slogLogger{l: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

// globalLogger is the logger instance used by app layer
var globalLogger Logger = &slogLogger{l: slog.New(tint.NewHandler(os.Stderr, &tint.Options{Level: slog.LevelInfo}))}

// SetLogger sets the global logger for app layer
func SetLogger(logger Logger) {
	if logger != nil {
		globalLogger = logger
	}
}

// GetLogger returns the current logger
func GetLogger() Logger {
	return globalLogger
}
