package docstore

import (
	"log/slog"
)

type options struct {
	logger         *Logger
	useWorker      bool
	watch          bool
	fsync          bool
	queryLimit     int
	idStrategy     func() (string, error)
	compress       bool
	autoCompactOps int
}

// Option configures Store construction behavior.
//
// Today options primarily exist to avoid exploding the API surface
// (e.g. id-strategy-specific constructor variants).
//
// Breaking changes are expected while docstore is pre-release.
type Option func(*options)

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := docstore.NewJSONLogger(slog.LevelInfo)
//	st, _ := docstore.Open(root, docstore.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithWorker controls whether secondary index (re)builds run on a dedicated
// worker goroutine pool instead of inline on the calling task. Defaults to
// true. Disabling this is mainly useful for deterministic tests.
func WithWorker(enabled bool) Option {
	return func(o *options) {
		o.useWorker = enabled
	}
}

// WithWatch enables a filesystem watch on every opened collection directory,
// so that out-of-process writers trigger in-process change notifications.
// Defaults to true.
func WithWatch(enabled bool) Option {
	return func(o *options) {
		o.watch = enabled
	}
}

// WithFsync controls whether the record log and index files are fsynced
// after every write. Defaults to true. Disabling trades durability for
// throughput and should only be used when callers accept data loss on
// crash.
func WithFsync(enabled bool) Option {
	return func(o *options) {
		o.fsync = enabled
	}
}

// WithQueryLimit sets the default result-count limit applied to indexed
// query paths when the query descriptor does not specify one. Full scans
// remain unbounded unless the descriptor sets a limit explicitly.
func WithQueryLimit(limit int) Option {
	return func(o *options) {
		if limit > 0 {
			o.queryLimit = limit
		}
	}
}

// WithIDStrategy overrides the function used to mint document ids when the
// caller does not supply one. The default draws a 20-character alphanumeric
// string from a cryptographic RNG; pass [UUIDIDStrategy] for RFC 4122 UUIDs
// instead.
func WithIDStrategy(fn func() (string, error)) Option {
	return func(o *options) {
		if fn != nil {
			o.idStrategy = fn
		}
	}
}

// WithCompression zstd-compresses every secondary/composite index snapshot
// file, and the archival log snapshot Compact writes, using
// github.com/klauspost/compress/zstd — the same role the teacher's WAL
// compressor/decompressor play. Defaults to false; reads transparently
// accept either compressed or plain files regardless of this setting, so
// toggling it doesn't require migrating existing data.
func WithCompression(enabled bool) Option {
	return func(o *options) {
		o.compress = enabled
	}
}

// WithAutoCompact triggers an automatic record-log compaction after every
// opsThreshold writes to a collection. opsThreshold <= 0 (the default)
// disables auto-compaction; Store offers no separate compaction call.
func WithAutoCompact(opsThreshold int) Option {
	return func(o *options) {
		o.autoCompactOps = opsThreshold
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		logger:         NoopLogger(),
		useWorker:      true,
		watch:          true,
		fsync:          true,
		queryLimit:     1000,
		idStrategy:     randomID,
		compress:       false,
		autoCompactOps: 0,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}
