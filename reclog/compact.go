package reclog

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"

	"github.com/localdb/docstore/internal/fs"
)

// Compact rewrites the data log to contain only the newest record for every
// id in the primary index, discarding dead bytes left behind by updates,
// deletes, and overwritten tombstones. A deleted id keeps its newest
// (tombstone) record. It is not required for correctness — Rebuild
// tolerates an arbitrarily large dead tail — but bounds log growth for
// long-lived, frequently-updated collections.
//
// Compact rewrites into a temp file and renames it over the live log, then
// rebuilds the primary index against the new offsets. When the Log was
// opened with WithCompaction(ZstdCompression), it additionally writes a
// zstd-compressed archival copy of the compacted records to
// data.ndjson.snapshot.zst, mirroring the teacher's WAL checkpoint
// compressor; the live data.ndjson itself is always left as plain NDJSON so
// Append can keep appending to it directly.
func (l *Log) Compact() error {
	l.mu.Lock()
	type loc struct {
		id     string
		offset int64
		length int64
	}
	locs := make([]loc, 0, len(l.primary))
	for id, e := range l.primary {
		locs = append(locs, loc{id, e.Offset, e.Length})
	}
	l.mu.Unlock()

	dataPath := filepath.Join(l.dir, dataFileName)
	tmpPath := dataPath + ".compact.tmp"

	tmp, err := l.fsys.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("reclog: create compaction temp file: %w", err)
	}

	var snapPath string
	var snapTmp fs.File
	var zw *zstd.Encoder
	if l.codec == ZstdCompression {
		snapPath = dataPath + ".snapshot.zst"
		snapTmp, err = l.fsys.OpenFile(snapPath+".tmp", os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
		if err != nil {
			tmp.Close()
			return fmt.Errorf("reclog: create compaction snapshot temp file: %w", err)
		}
		zw, err = zstd.NewWriter(snapTmp)
		if err != nil {
			tmp.Close()
			snapTmp.Close()
			return fmt.Errorf("reclog: create zstd snapshot writer: %w", err)
		}
	}

	abort := func() {
		tmp.Close()
		if zw != nil {
			zw.Close()
			snapTmp.Close()
		}
	}

	for _, lo := range locs {
		buf := make([]byte, lo.length)
		if _, err := l.file.ReadAt(buf, lo.offset); err != nil {
			abort()
			return fmt.Errorf("reclog: read record during compaction: %w", err)
		}
		if _, err := tmp.Write(buf); err != nil {
			abort()
			return fmt.Errorf("reclog: write compacted record: %w", err)
		}
		if zw != nil {
			if _, err := zw.Write(buf); err != nil {
				abort()
				return fmt.Errorf("reclog: write compacted snapshot record: %w", err)
			}
		}
	}
	if l.fsync {
		if err := tmp.Sync(); err != nil {
			abort()
			return fmt.Errorf("reclog: sync compacted log: %w", err)
		}
	}
	if err := tmp.Close(); err != nil {
		if zw != nil {
			zw.Close()
			snapTmp.Close()
		}
		return fmt.Errorf("reclog: close compacted log: %w", err)
	}

	if zw != nil {
		if err := zw.Close(); err != nil {
			snapTmp.Close()
			return fmt.Errorf("reclog: close zstd snapshot writer: %w", err)
		}
		if l.fsync {
			if err := snapTmp.Sync(); err != nil {
				snapTmp.Close()
				return fmt.Errorf("reclog: sync compacted snapshot: %w", err)
			}
		}
		if err := snapTmp.Close(); err != nil {
			return fmt.Errorf("reclog: close compacted snapshot: %w", err)
		}
		if err := l.fsys.Rename(snapPath+".tmp", snapPath); err != nil {
			return fmt.Errorf("reclog: rename compacted snapshot into place: %w", err)
		}
	}

	l.mu.Lock()
	if err := l.file.Close(); err != nil {
		l.mu.Unlock()
		return fmt.Errorf("reclog: close live log before compaction swap: %w", err)
	}
	if err := l.fsys.Rename(tmpPath, dataPath); err != nil {
		l.mu.Unlock()
		return fmt.Errorf("reclog: rename compacted log into place: %w", err)
	}
	f, err := l.fsys.OpenFile(dataPath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		l.mu.Unlock()
		return fmt.Errorf("reclog: reopen compacted log: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		l.mu.Unlock()
		return fmt.Errorf("reclog: stat compacted log: %w", err)
	}
	l.file = f
	l.size = info.Size()
	l.opsSince = 0
	base := l.nextVer
	l.mu.Unlock()

	if _, _, err := l.Rebuild(); err != nil {
		return fmt.Errorf("reclog: rebuild index after compaction: %w", err)
	}

	// Rebuild numbers the rewritten records from 0; shift them above every
	// version issued before the compaction so versions keep increasing.
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.primary {
		e.Version += base
	}
	l.nextVer += base
	if err := savePrimaryIndexAtomic(l.fsys, l.dir, l.primary, l.fsync); err != nil {
		return fmt.Errorf("reclog: flush primary index after compaction: %w", err)
	}
	return nil
}
