package indexmgr

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/localdb/docstore/internal/fs"
	"github.com/localdb/docstore/reclog"
	"github.com/localdb/docstore/secindex"
)

// Logger is the logging seam indexmgr depends on, satisfied structurally by
// the root package's *Logger without importing it.
type Logger interface {
	LogIndexBuild(ctx context.Context, index string, onWorker bool, entries int, err error)
}

type noopLogger struct{}

func (noopLogger) LogIndexBuild(context.Context, string, bool, int, error) {}

// Manager owns every named index definition for one collection: the
// registry of metadata, the lazily loaded in-memory Index instances, and
// the protocol that keeps loaded indexes consistent with the record log
// under update and delete.
type Manager struct {
	dir      string
	fsys     fs.FileSystem
	rl       *reclog.Log
	fsync    bool
	compress bool
	pool     *WorkerPool
	logger   Logger

	mu     sync.Mutex
	metas  map[string]secindex.Meta
	loaded map[string]*secindex.Index
}

// New builds a Manager for one collection directory. pool may be nil, in
// which case EnsureIndex always builds inline regardless of useWorker.
// compress controls whether persisted index files are zstd-compressed.
func New(dir string, fsys fs.FileSystem, rl *reclog.Log, doFsync bool, compress bool, pool *WorkerPool, logger Logger) *Manager {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Manager{
		dir:      dir,
		fsys:     fsys,
		rl:       rl,
		fsync:    doFsync,
		compress: compress,
		pool:     pool,
		logger:   logger,
		metas:    map[string]secindex.Meta{},
		loaded:   map[string]*secindex.Index{},
	}
}

// EnsureIndex records meta under its name, then ensures it is loaded: a
// prior load is reused; otherwise the on-disk file is loaded, and on a
// missing or corrupt file the index is rebuilt from the record log's live
// set. useWorker routes the rebuild through the manager's WorkerPool when
// one was supplied.
func (m *Manager) EnsureIndex(ctx context.Context, meta secindex.Meta, useWorker bool) error {
	name := meta.Name()

	m.mu.Lock()
	m.metas[name] = meta
	if _, ok := m.loaded[name]; ok {
		m.mu.Unlock()
		return nil
	}
	m.mu.Unlock()

	ix, loadErr := secindex.Load(m.fsys, m.dir, meta)
	if loadErr == nil && ix != nil {
		m.mu.Lock()
		m.loaded[name] = ix
		m.mu.Unlock()
		m.logger.LogIndexBuild(ctx, name, false, ix.Len(), nil)
		return nil
	}

	var built *secindex.Index
	build := func() error {
		live, err := m.rl.ReadAllLive()
		if err != nil {
			return err
		}
		b := secindex.New(meta)
		for id, doc := range live {
			key, ok, kerr := indexKeyFor(meta, doc)
			if kerr != nil {
				return kerr
			}
			if ok {
				b.Add(key, id)
			}
		}
		if err := secindex.Save(m.fsys, m.dir, b, m.fsync, m.compress); err != nil {
			return err
		}
		built = b
		return nil
	}

	onWorker := useWorker && m.pool != nil
	var err error
	if onWorker {
		err = m.pool.Run(build)
	} else {
		err = build()
	}
	if err != nil {
		m.logger.LogIndexBuild(ctx, name, onWorker, 0, err)
		return fmt.Errorf("indexmgr: build index %q: %w", name, err)
	}

	m.mu.Lock()
	m.loaded[name] = built
	m.mu.Unlock()
	m.logger.LogIndexBuild(ctx, name, onWorker, built.Len(), nil)
	return nil
}

// ApplyChangesOnUpdate updates every currently loaded index to reflect a
// write that replaced prev with newDoc for id (newDoc nil means delete).
// Single-field indexes unlink prev's value and link newDoc's value,
// whichever are present. Composite indexes always unlink the old composite
// key (substituting "" for any field prev lacks) and, if newDoc is
// non-nil, link the new composite key the same way.
//
// Each loaded index is independent, so the update-and-persist step for
// every index runs in its own goroutine under an errgroup. A failure does
// not cancel the other indexes' updates; all run to completion and the
// first error is returned.
func (m *Manager) ApplyChangesOnUpdate(ctx context.Context, id string, prev, newDoc map[string]any) error {
	m.mu.Lock()
	names := make([]string, 0, len(m.loaded))
	for name := range m.loaded {
		names = append(names, name)
	}
	m.mu.Unlock()

	g, _ := errgroup.WithContext(ctx)
	for _, name := range names {
		name := name
		g.Go(func() error {
			m.mu.Lock()
			meta := m.metas[name]
			ix := m.loaded[name]
			m.mu.Unlock()

			changed, err := applyChangeToIndex(ix, meta, id, prev, newDoc)
			if err != nil {
				return fmt.Errorf("indexmgr: apply change to index %q: %w", name, err)
			}
			if changed {
				if err := secindex.Save(m.fsys, m.dir, ix, m.fsync, m.compress); err != nil {
					return fmt.Errorf("indexmgr: persist index %q: %w", name, err)
				}
			}
			return nil
		})
	}
	return g.Wait()
}

func applyChangeToIndex(ix *secindex.Index, meta secindex.Meta, id string, prev, newDoc map[string]any) (bool, error) {
	changed := false

	if len(meta.Fields) == 1 {
		field := meta.Fields[0]
		kt := firstKeyType(meta)
		if prev != nil {
			if v, ok := prev[field]; ok {
				k, err := secindex.Canonical(field, v, kt)
				if err != nil {
					return false, err
				}
				ix.Remove(k, id)
				changed = true
			}
		}
		if newDoc != nil {
			if v, ok := newDoc[field]; ok {
				k, err := secindex.Canonical(field, v, kt)
				if err != nil {
					return false, err
				}
				ix.Add(k, id)
				changed = true
			}
		}
		return changed, nil
	}

	if prev != nil {
		oldKey, err := compositeKeyWithSubstitution(meta, prev)
		if err != nil {
			return false, err
		}
		ix.Remove(oldKey, id)
		changed = true
	}
	if newDoc != nil {
		newKey, err := compositeKeyWithSubstitution(meta, newDoc)
		if err != nil {
			return false, err
		}
		ix.Add(newKey, id)
		changed = true
	}
	return changed, nil
}

// GetLoaded returns the in-memory Index for name, if currently loaded.
func (m *Manager) GetLoaded(name string) (*secindex.Index, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ix, ok := m.loaded[name]
	return ix, ok
}

// Lookup returns the registered metadata for name.
func (m *Manager) Lookup(name string) (secindex.Meta, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	meta, ok := m.metas[name]
	return meta, ok
}

// Metas returns every registered index's metadata, in no particular order.
func (m *Manager) Metas() []secindex.Meta {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]secindex.Meta, 0, len(m.metas))
	for _, meta := range m.metas {
		out = append(out, meta)
	}
	return out
}

// EnsureOnDemandField builds (if necessary) and returns a single-field,
// auto-keyed index for field, for use by the equality-intersection query
// strategy when no index was explicitly registered for it.
func (m *Manager) EnsureOnDemandField(ctx context.Context, field string) (*secindex.Index, error) {
	meta := secindex.Meta{Fields: []string{field}, KeyTypes: []secindex.KeyType{secindex.KeyTypeAuto}}
	if err := m.EnsureIndex(ctx, meta, false); err != nil {
		return nil, err
	}
	ix, _ := m.GetLoaded(meta.Name())
	return ix, nil
}

func firstKeyType(meta secindex.Meta) secindex.KeyType {
	if len(meta.KeyTypes) > 0 {
		return meta.KeyTypes[0]
	}
	return secindex.KeyTypeAuto
}

func indexKeyFor(meta secindex.Meta, doc map[string]any) (key string, ok bool, err error) {
	if len(meta.Fields) == 1 {
		v, present := doc[meta.Fields[0]]
		if !present {
			return "", false, nil
		}
		k, err := secindex.Canonical(meta.Fields[0], v, firstKeyType(meta))
		if err != nil {
			return "", false, err
		}
		return k, true, nil
	}
	k, err := compositeKeyWithSubstitution(meta, doc)
	if err != nil {
		return "", false, err
	}
	return k, true, nil
}

func compositeKeyWithSubstitution(meta secindex.Meta, doc map[string]any) (string, error) {
	parts := make([]string, len(meta.Fields))
	for i, f := range meta.Fields {
		v, present := doc[f]
		if !present {
			parts[i] = ""
			continue
		}
		kt := secindex.KeyTypeAuto
		if i < len(meta.KeyTypes) {
			kt = meta.KeyTypes[i]
		}
		k, err := secindex.Canonical(f, v, kt)
		if err != nil {
			return "", err
		}
		parts[i] = k
	}
	return secindex.Composite(parts...), nil
}
