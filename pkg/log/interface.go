// Package log provides the structured logger used by the walkthroughs and
// estimators.
//
// The Logger interface mirrors log/slog: a message followed by key-value
// pairs. Keys shared across packages are declared in attributes.go.
//
//	logger := log.GetLogger().With(log.DatasetKey, "churn")
//	logger.Info("dataset loaded", log.SamplesKey, 10000, log.FeaturesKey, 14)
package log

import (
	"context"
)

// Logger is a leveled structured logger.
type Logger interface {
	Debug(msg string, fields ...any)
	Info(msg string, fields ...any)
	Warn(msg string, fields ...any)
	// Error logs at error level. An error value passed as the first field,
	// or under the "error" key, is attached with its stack trace.
	Error(msg string, fields ...any)
	// With returns a Logger that adds fields to every record.
	With(fields ...any) Logger
	// Enabled reports whether records at level are emitted.
	Enabled(ctx context.Context, level Level) bool
}

// Level is a logging level. Values match slog.Level.
type Level int

const (
	LevelDebug Level = -4
	LevelInfo  Level = 0
	LevelWarn  Level = 4
	LevelError Level = 8
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}
