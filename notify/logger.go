package notify

import "context"

// Logger is the logging seam notify depends on, satisfied structurally by
// the root package's *Logger without importing it.
type Logger interface {
	LogNotify(ctx context.Context, collection, id string, subscribers int)
}

type noopLogger struct{}

func (noopLogger) LogNotify(context.Context, string, string, int) {}
