package reclog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/localdb/docstore/internal/fs"
)

const dataFileName = "data.ndjson"

// Log is the append-only record log and primary offset index for a single
// collection directory.
type Log struct {
	dir            string
	collection     string
	fsys           fs.FileSystem
	fsync          bool
	logger         Logger
	codec          CompressionCodec
	autoCompactOps int

	mu       sync.Mutex
	file     fs.File
	size     int64
	primary  map[string]*PrimaryEntry
	nextVer  uint64
	opsSince int
}

// Open ensures dir and its data.ndjson file exist, loads primary.idx.json if
// present, and sets the next version to one more than the maximum version
// observed in the loaded index. logger may be nil (a no-op logger is used).
//
// Per the crash-recovery contract, a primary index that exists but fails to
// parse is never treated as fatal: the failure is logged and the index
// starts empty, then Rebuild immediately reconstructs it by replaying
// data.ndjson, so a corrupt primary.idx.json degrades to a slower open
// rather than bricking the collection. A missing or empty primary index next
// to a non-empty data.ndjson is rebuilt the same way.
func Open(dir string, fsys fs.FileSystem, doFsync bool, logger Logger, opts ...Option) (*Log, error) {
	if fsys == nil {
		fsys = fs.Default
	}
	if logger == nil {
		logger = noopLogger{}
	}
	lo := applyLogOptions(opts)

	if err := fsys.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("reclog: create collection dir: %w", err)
	}

	dataPath := filepath.Join(dir, dataFileName)
	f, err := fsys.OpenFile(dataPath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("reclog: open data log: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("reclog: stat data log: %w", err)
	}

	collection := filepath.Base(dir)

	primary, loadErr := loadPrimaryIndex(fsys, dir)
	corrupt := loadErr != nil
	if corrupt {
		logger.LogRebuild(context.Background(), collection, 0, 0, loadErr)
		primary = map[string]*PrimaryEntry{}
	}
	needRebuild := corrupt || (len(primary) == 0 && info.Size() > 0)

	var nextVer uint64
	for _, e := range primary {
		if e.Version >= nextVer {
			nextVer = e.Version + 1
		}
	}

	l := &Log{
		dir:            dir,
		collection:     collection,
		fsys:           fsys,
		fsync:          doFsync,
		logger:         logger,
		codec:          lo.codec,
		autoCompactOps: lo.autoCompact,
		file:           f,
		size:           info.Size(),
		primary:        primary,
		nextVer:        nextVer,
	}

	if needRebuild {
		if _, _, err := l.Rebuild(); err != nil {
			f.Close()
			return nil, fmt.Errorf("reclog: rebuild primary index on open: %w", err)
		}
	}

	return l, nil
}

// Close releases the underlying file handle. It does not flush the primary
// index, which is kept durable on every write.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}

// Entry returns the current primary entry for id, if any. Callers use this
// to obtain prevIndexedValues before computing a new write's index deltas.
func (l *Log) Entry(id string) (PrimaryEntry, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.primary[id]
	if !ok {
		return PrimaryEntry{}, false
	}
	return *e, true
}

// Append serializes obj to JSON and appends it, followed by a single
// newline, at the current end of the log. indexedValues becomes the new
// entry's Prev field: the values this write indexed under, handed back on
// the next write so the index manager can unlink them without re-reading
// the old record. obj must carry a string "id" field.
//
// When the Log was opened with WithAutoCompact, Append triggers a Compact
// once the configured number of writes have accumulated since the last one.
func (l *Log) Append(obj map[string]any, indexedValues map[string]any) (entry PrimaryEntry, err error) {
	id, ok := obj["id"].(string)
	if !ok || id == "" {
		return PrimaryEntry{}, fmt.Errorf("reclog: record missing string id field")
	}
	defer func() {
		l.logger.LogAppend(context.Background(), l.collection, id, entry.Version, err)
	}()

	line, merr := json.Marshal(obj)
	if merr != nil {
		return PrimaryEntry{}, fmt.Errorf("reclog: marshal record: %w", merr)
	}
	line = append(line, '\n')

	l.mu.Lock()

	offset := l.size
	n, werr := l.file.Write(line)
	if werr != nil {
		l.mu.Unlock()
		return PrimaryEntry{}, fmt.Errorf("reclog: append record: %w", werr)
	}
	l.size += int64(n)

	if l.fsync {
		if serr := l.file.Sync(); serr != nil {
			l.mu.Unlock()
			return PrimaryEntry{}, fmt.Errorf("reclog: sync record log: %w", serr)
		}
	}

	tombstone, _ := obj["_deleted"].(bool)
	entry = PrimaryEntry{
		Offset:    offset,
		Length:    int64(n),
		Version:   l.nextVer,
		Tombstone: tombstone,
		Prev:      indexedValues,
	}
	l.nextVer++
	l.primary[id] = &entry
	l.opsSince++
	dueForCompact := l.autoCompactOps > 0 && l.opsSince >= l.autoCompactOps

	if perr := savePrimaryIndexAtomic(l.fsys, l.dir, l.primary, l.fsync); perr != nil {
		l.mu.Unlock()
		return PrimaryEntry{}, fmt.Errorf("reclog: flush primary index: %w", perr)
	}
	l.mu.Unlock()

	if dueForCompact {
		if cerr := l.Compact(); cerr != nil {
			return entry, fmt.Errorf("reclog: auto-compact: %w", cerr)
		}
	}

	return entry, nil
}

// GetByID returns the live record for id, or ErrNotFound if id is absent,
// tombstoned, or its bytes fail to parse.
func (l *Log) GetByID(id string) (map[string]any, error) {
	l.mu.Lock()
	entry, ok := l.primary[id]
	var e PrimaryEntry
	if ok {
		e = *entry
	}
	l.mu.Unlock()

	if !ok || e.Tombstone {
		return nil, ErrNotFound
	}
	obj, err := l.readAt(e.Offset, e.Length)
	var pe *ParseError
	if errors.As(err, &pe) {
		return nil, fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	return obj, err
}

func (l *Log) readAt(offset, length int64) (map[string]any, error) {
	buf := make([]byte, length)
	l.mu.Lock()
	_, err := l.file.ReadAt(buf, offset)
	l.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("reclog: read record at %d: %w", offset, err)
	}

	var obj map[string]any
	if err := json.Unmarshal(bytes.TrimRight(buf, "\n"), &obj); err != nil {
		return nil, &ParseError{Path: filepath.Join(l.dir, dataFileName), Err: err}
	}
	return obj, nil
}

// ExistsLive reports whether id is present in the primary index and not
// tombstoned.
func (l *Log) ExistsLive(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.primary[id]
	return ok && !e.Tombstone
}

// ReadAllLive enumerates every non-tombstoned id and returns its parsed
// record. Records whose bytes fail to parse are skipped.
func (l *Log) ReadAllLive() (map[string]map[string]any, error) {
	l.mu.Lock()
	type loc struct {
		id     string
		offset int64
		length int64
	}
	locs := make([]loc, 0, len(l.primary))
	for id, e := range l.primary {
		if !e.Tombstone {
			locs = append(locs, loc{id, e.Offset, e.Length})
		}
	}
	l.mu.Unlock()

	out := make(map[string]map[string]any, len(locs))
	for _, lo := range locs {
		obj, err := l.readAt(lo.offset, lo.length)
		if err != nil {
			continue
		}
		out[lo.id] = obj
	}
	return out, nil
}

// LiveIDs returns every non-tombstoned id currently in the primary index,
// in no particular order.
func (l *Log) LiveIDs() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	ids := make([]string, 0, len(l.primary))
	for id, e := range l.primary {
		if !e.Tombstone {
			ids = append(ids, id)
		}
	}
	return ids
}

// Size returns the current length of the data log in bytes.
func (l *Log) Size() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.size
}
