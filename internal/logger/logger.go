// Package logger wraps log/slog with the process-wide defaults used by the server.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

type Logger struct {
	logger *slog.Logger
}

type Config struct {
	Level  string
	Format string // "json" or "text"
	Output io.Writer
}

func New(cfg Config) *Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}

	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}

	return &Logger{logger: slog.New(handler)}
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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

func (l *Logger) WithFields(fields map[string]any) *Logger {
	args := make([]any, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, k, v)
	}
	return &Logger{logger: l.logger.With(args...)}
}

func (l *Logger) WithField(key string, value any) *Logger {
	return &Logger{logger: l.logger.With(key, value)}
}

func (l *Logger) Debug(msg string, args ...any) { l.logger.Debug(msg, args...) }
func (l *Logger) Info(msg string, args ...any)  { l.logger.Info(msg, args...) }
func (l *Logger) Warn(msg string, args ...any)  { l.logger.Warn(msg, args...) }

// Error logs msg at error level, attaching err under the "error" key when non-nil.
func (l *Logger) Error(err error, msg string, args ...any) {
	if err != nil {
		args = append(args, "error", err)
	}
	l.logger.Error(msg, args...)
}

var defaultLogger = New(Config{Level: "info", Format: "text"})

// Init replaces the package-level logger. Call it once at startup.
func Init(cfg Config) {
	defaultLogger = New(cfg)
}

func Default() *Logger { return defaultLogger }

func Debug(msg string, args ...any)            { defaultLogger.Debug(msg, args...) }
func Info(msg string, args ...any)             { defaultLogger.Info(msg, args...) }
func Warn(msg string, args ...any)             { defaultLogger.Warn(msg, args...) }
func Error(err error, msg string, args ...any) { defaultLogger.Error(err, msg, args...) }

func WithFields(fields map[string]any) *Logger { return defaultLogger.WithFields(fields) }
func WithField(key string, value any) *Logger  { return defaultLogger.WithField(key, value) }
