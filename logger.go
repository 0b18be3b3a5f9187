package docstore

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with docstore-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
// Use this to disable logging entirely.
func NoopLogger() *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithContext returns a copy of the logger; ctx adds no fields to it.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	return &Logger{
		Logger: l.Logger.With(),
	}
}

// WithCollection adds a collection field to the logger.
func (l *Logger) WithCollection(name string) *Logger {
	return &Logger{
		Logger: l.Logger.With("collection", name),
	}
}

// WithDoc adds a document id field to the logger.
func (l *Logger) WithDoc(id string) *Logger {
	return &Logger{
		Logger: l.Logger.With("doc", id),
	}
}

// WithIndex adds an index name field to the logger.
func (l *Logger) WithIndex(name string) *Logger {
	return &Logger{
		Logger: l.Logger.With("index", name),
	}
}

// LogAppend logs a record-log append operation.
func (l *Logger) LogAppend(ctx context.Context, collection, id string, version uint64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "append failed",
			"collection", collection,
			"doc", id,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "append completed",
			"collection", collection,
			"doc", id,
			"version", version,
		)
	}
}

// LogRebuild logs a primary-index rebuild operation.
func (l *Logger) LogRebuild(ctx context.Context, collection string, scanned, live int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "primary index rebuild failed",
			"collection", collection,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "primary index rebuilt",
			"collection", collection,
			"scanned", scanned,
			"live", live,
		)
	}
}

// LogIndexBuild logs a secondary index (re)build.
func (l *Logger) LogIndexBuild(ctx context.Context, index string, onWorker bool, entries int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "index build failed",
			"index", index,
			"worker", onWorker,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "index build completed",
			"index", index,
			"worker", onWorker,
			"entries", entries,
		)
	}
}

// LogQuery logs a query-plan selection and execution.
func (l *Logger) LogQuery(ctx context.Context, collection, strategy string, matched int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "query failed",
			"collection", collection,
			"strategy", strategy,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "query completed",
			"collection", collection,
			"strategy", strategy,
			"matched", matched,
		)
	}
}

// LogNotify logs a change-notification dispatch.
func (l *Logger) LogNotify(ctx context.Context, collection, id string, subscribers int) {
	l.DebugContext(ctx, "notification dispatched",
		"collection", collection,
		"doc", id,
		"subscribers", subscribers,
	)
}
