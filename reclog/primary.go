package reclog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/localdb/docstore/internal/fs"
)

// PrimaryEntry is the primary index record for one document id: it locates
// the newest log record for that id and carries the bookkeeping fields an
// index manager needs to unlink stale secondary-index postings without
// re-reading the old record.
type PrimaryEntry struct {
	Offset    int64          `json:"offset"`
	Length    int64          `json:"length"`
	Version   uint64         `json:"version"`
	Tombstone bool           `json:"tombstone"`
	Prev      map[string]any `json:"prev,omitempty"`
}

const primaryIndexName = "primary.idx.json"

func loadPrimaryIndex(fsys fs.FileSystem, dir string) (map[string]*PrimaryEntry, error) {
	path := filepath.Join(dir, primaryIndexName)
	f, err := fsys.OpenFile(path, os.O_RDONLY, 0o644)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]*PrimaryEntry{}, nil
		}
		return nil, err
	}
	defer f.Close()

	var entries map[string]*PrimaryEntry
	if err := json.NewDecoder(f).Decode(&entries); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	if entries == nil {
		entries = map[string]*PrimaryEntry{}
	}
	return entries, nil
}

// savePrimaryIndexAtomic writes the primary index to a temp file and renames
// it into place, so a reader never observes a partially written index.
func savePrimaryIndexAtomic(fsys fs.FileSystem, dir string, entries map[string]*PrimaryEntry, doFsync bool) error {
	path := filepath.Join(dir, primaryIndexName)
	tmp := path + ".tmp"

	f, err := fsys.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("reclog: create temp primary index: %w", err)
	}

	enc := json.NewEncoder(f)
	if err := enc.Encode(entries); err != nil {
		f.Close()
		return fmt.Errorf("reclog: encode primary index: %w", err)
	}
	if doFsync {
		if err := f.Sync(); err != nil {
			f.Close()
			return fmt.Errorf("reclog: sync primary index: %w", err)
		}
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("reclog: close primary index: %w", err)
	}
	if err := fsys.Rename(tmp, path); err != nil {
		return fmt.Errorf("reclog: rename primary index: %w", err)
	}
	return nil
}
