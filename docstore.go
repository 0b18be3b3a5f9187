// Package docstore implements an embedded, file-backed document store with
// a Firestore-style API over local JSON collections. See doc.go for a
// walkthrough and SPEC_FULL.md-equivalent component documentation in each
// subpackage: [github.com/localdb/docstore/reclog], [github.com/localdb/docstore/secindex],
// [github.com/localdb/docstore/indexmgr], [github.com/localdb/docstore/query], and
// [github.com/localdb/docstore/notify].
package docstore

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/localdb/docstore/indexmgr"
	"github.com/localdb/docstore/internal/fs"
	"github.com/localdb/docstore/notify"
	"github.com/localdb/docstore/reclog"
)

const rebuildWorkerCount = 4

// collectionState holds the fully wired subsystem handles for one open
// collection: the record log, its index manager, and its notification hub
// (plus an optional filesystem watch).
type collectionState struct {
	log   *reclog.Log
	mgr   *indexmgr.Manager
	hub   *notify.Hub
	watch *notify.Watch
}

// Store is an open document store rooted at a single directory. Each
// subdirectory of root is a collection, opened lazily on first access and
// kept open until Close.
type Store struct {
	root string
	opts options
	pool *indexmgr.WorkerPool

	mu          sync.Mutex
	collections map[string]*collectionState
	closed      bool
}

// Open opens (creating if necessary) a document store rooted at root.
func Open(root string, optFns ...Option) (*Store, error) {
	o := applyOptions(optFns)
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}

	var pool *indexmgr.WorkerPool
	if o.useWorker {
		pool = indexmgr.NewWorkerPool(rebuildWorkerCount)
	}

	return &Store{
		root:        root,
		opts:        o,
		pool:        pool,
		collections: map[string]*collectionState{},
	}, nil
}

// Collection returns a reference to the named collection, opening its log,
// index manager, and notification hub on first access.
func (s *Store) Collection(name string) (*CollectionRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}

	cs, ok := s.collections[name]
	if !ok {
		var err error
		cs, err = s.openCollection(name)
		if err != nil {
			return nil, err
		}
		s.collections[name] = cs
	}
	return &CollectionRef{name: name, store: s, state: cs}, nil
}

// IndexManager returns the index manager of the named collection, opening
// the collection on first access. It returns nil if the store is closed or
// the collection cannot be opened.
func (s *Store) IndexManager(collection string) *indexmgr.Manager {
	c, err := s.Collection(collection)
	if err != nil {
		return nil
	}
	return c.state.mgr
}

func (s *Store) openCollection(name string) (*collectionState, error) {
	dir := filepath.Join(s.root, name)

	codec := reclog.NoCompression
	if s.opts.compress {
		codec = reclog.ZstdCompression
	}
	log, err := reclog.Open(dir, fs.Default, s.opts.fsync, s.opts.logger,
		reclog.WithCompaction(codec),
		reclog.WithAutoCompact(s.opts.autoCompactOps),
	)
	if err != nil {
		return nil, translateError(err)
	}

	mgr := indexmgr.New(dir, fs.Default, log, s.opts.fsync, s.opts.compress, s.pool, s.opts.logger)

	hub := notify.NewHub(name, func(id string) (map[string]any, bool) {
		doc, err := log.GetByID(id)
		if err != nil {
			return nil, false
		}
		return doc, true
	}, s.opts.logger)

	var watch *notify.Watch
	if s.opts.watch {
		w, werr := notify.StartWatch(dir, hub)
		if werr != nil {
			s.opts.logger.WarnContext(context.Background(), "could not start collection file watch", "collection", name, "error", werr)
		} else {
			watch = w
		}
	}

	return &collectionState{log: log, mgr: mgr, hub: hub, watch: watch}, nil
}

// Close tears down every open collection: it stops file watches, closes
// notification channels, closes record logs, and shuts down the shared
// worker pool. No global mutable state survives a Store beyond what it
// owns directly, so Close leaves nothing running.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	var firstErr error
	for _, cs := range s.collections {
		if cs.watch != nil {
			if err := cs.watch.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		cs.hub.Close()
		if err := cs.log.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if s.pool != nil {
		s.pool.Close()
	}
	return firstErr
}
