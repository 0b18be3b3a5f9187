package reclog

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Rebuild streams the data log line by line, tracking byte offsets and
// reconstructing the primary index from scratch: later lines for the same
// id win. A line that fails to parse counts toward the running offset but
// is skipped for indexing purposes, so a truncated tail after a crash never
// blocks recovery of the intact prefix. The rebuilt index is flushed
// atomically and the in-memory state is swapped in.
//
// Rebuild returns the number of lines scanned and the number of ids left
// live after reconciliation.
func (l *Log) Rebuild() (scanned, live int, err error) {
	defer func() {
		l.logger.LogRebuild(context.Background(), l.collection, scanned, live, err)
	}()

	dataPath := filepath.Join(l.dir, dataFileName)

	l.mu.Lock()
	if err := l.file.Sync(); err != nil {
		l.mu.Unlock()
		return 0, 0, fmt.Errorf("reclog: sync before rebuild: %w", err)
	}
	l.mu.Unlock()

	f, err := l.fsys.OpenFile(dataPath, os.O_RDONLY, 0o644)
	if err != nil {
		return 0, 0, fmt.Errorf("reclog: open data log for rebuild: %w", err)
	}
	defer f.Close()

	primary := map[string]*PrimaryEntry{}
	var version uint64
	var offset int64

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		scanned++
		line := scanner.Bytes()
		lineLen := int64(len(line)) + 1 // account for the stripped newline

		var obj map[string]any
		if jsonErr := json.Unmarshal(line, &obj); jsonErr != nil {
			offset += lineLen
			continue
		}
		id, ok := obj["id"].(string)
		if !ok || id == "" {
			offset += lineLen
			continue
		}

		tombstone, _ := obj["_deleted"].(bool)
		primary[id] = &PrimaryEntry{
			Offset:    offset,
			Length:    lineLen,
			Version:   version,
			Tombstone: tombstone,
			Prev:      extractPrev(obj),
		}
		version++
		offset += lineLen
	}
	if scanErr := scanner.Err(); scanErr != nil {
		return scanned, 0, fmt.Errorf("reclog: scan data log: %w", scanErr)
	}

	if err := savePrimaryIndexAtomic(l.fsys, l.dir, primary, l.fsync); err != nil {
		return scanned, 0, err
	}

	l.mu.Lock()
	l.primary = primary
	l.nextVer = version
	l.mu.Unlock()

	for _, e := range primary {
		if !e.Tombstone {
			live++
		}
	}
	return scanned, live, nil
}

// extractPrev carries forward a record's own field values as the
// prevIndexedValues hint when rebuilding from the log alone, since the
// original Append-time indexedValues argument isn't recoverable from the
// record bytes. The index manager treats this as a conservative hint: any
// index field the record doesn't carry is simply absent from Prev.
func extractPrev(obj map[string]any) map[string]any {
	if len(obj) == 0 {
		return nil
	}
	prev := make(map[string]any, len(obj))
	for k, v := range obj {
		if k == "id" || k == "_deleted" {
			continue
		}
		prev[k] = v
	}
	return prev
}
