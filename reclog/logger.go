package reclog

import "context"

// Logger is the logging seam reclog depends on, satisfied structurally by
// the root package's *Logger without importing it.
type Logger interface {
	LogAppend(ctx context.Context, collection, id string, version uint64, err error)
	LogRebuild(ctx context.Context, collection string, scanned, live int, err error)
}

type noopLogger struct{}

func (noopLogger) LogAppend(context.Context, string, string, uint64, error) {}
func (noopLogger) LogRebuild(context.Context, string, int, int, error)      {}
