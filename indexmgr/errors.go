package indexmgr

import "errors"

// ErrClosed is returned by WorkerPool.Run once the pool has been closed.
var ErrClosed = errors.New("indexmgr: worker pool closed")
