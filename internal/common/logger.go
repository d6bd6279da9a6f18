package common

import (
	"context"
	"fmt"
	"log/slog"
	"os"
)

// Fields carries extra key/value context for LogError.
type Fields map[string]any

var logLevels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

// SetupLogger installs the process-wide slog handler. Console output is
// human-readable text; json emits one object per line.
func SetupLogger(level slog.Level, format string) error {
	handler, err := newLogHandler(level, format)
	if err != nil {
		return err
	}
	slog.SetDefault(slog.New(handler))
	return nil
}

func newLogHandler(level slog.Level, format string) (slog.Handler, error) {
	opts := &slog.HandlerOptions{Level: level}

	switch format {
	case "console":
		return slog.NewTextHandler(os.Stderr, opts), nil
	case "json":
		return slog.NewJSONHandler(os.Stderr, opts), nil
	default:
		return nil, fmt.Errorf("%w: unknown log format %q", ErrInvalidConfig, format)
	}
}

// ParseLogLevel maps a config string to a slog level.
func ParseLogLevel(level string) (slog.Level, error) {
	parsed, ok := logLevels[level]
	if !ok {
		return 0, fmt.Errorf("%w: unknown log level %q", ErrInvalidConfig, level)
	}
	return parsed, nil
}

// LogError emits msg at error level with the cause and any extra fields.
func LogError(err error, msg string, fields Fields) {
	attrs := make([]slog.Attr, 0, len(fields)+1)
	attrs = append(attrs, slog.String("error", err.Error()))

	for key, value := range fields {
		attrs = append(attrs, slog.Any(key, value))
	}

	slog.LogAttrs(context.Background(), slog.LevelError, msg, attrs...)
}
