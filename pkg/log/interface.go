// Package log provides the structured logging interface used by every
// estimator and by the model search engine.
//
// The default backend is zerolog. Components obtain a named logger once and
// enrich it with With:
//
//	logger := log.GetLoggerWithName("automl.search").With(
//	    log.SessionIDKey, session.ID,
//	    log.TierKey, tier.String(),
//	)
//	logger.Info("trial finished",
//	    log.ModelNameKey, "ridge",
//	    log.R2ScoreKey, 0.93,
//	)
package log

import (
	"context"
)

// Logger is a key/value structured logger.
//
// Fields are passed as alternating keys and values. An error passed as the
// first field of Error is logged under the "error" key together with its
// stack trace when one is attached.
type Logger interface {
	Debug(msg string, fields ...any)
	Info(msg string, fields ...any)
	Warn(msg string, fields ...any)
	Error(msg string, fields ...any)

	// With returns a child logger that adds fields to every record.
	With(fields ...any) Logger

	// Enabled reports whether a record at level would be emitted.
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

// String returns the level name.
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

// LoggerProvider creates loggers. Swap it with SetProvider in tests.
type LoggerProvider interface {
	GetLogger() Logger
	GetLoggerWithName(name string) Logger
	SetLevel(level Level)
}
