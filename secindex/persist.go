package secindex

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"

	"github.com/localdb/docstore/internal/fs"
)

// zstdMagic is the four-byte frame magic number every zstd frame starts
// with; Load sniffs it to tell a compressed index file from a plain JSON
// one without needing a separate flag on read.
var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// wireFormat mirrors the on-disk index file contract:
// { "keys": [...], "postings": { "<key>": ["id",...], ... } }.
type wireFormat struct {
	Keys     []string            `json:"keys"`
	Postings map[string][]string `json:"postings"`
}

// Load reads and parses an index file. It returns ErrCorrupt (wrapped) if
// the file exists but fails to parse, and (nil, nil) if the file doesn't
// exist — callers rebuild in that case. A zstd-compressed file (written by
// Save with compress=true) is transparently decompressed.
func Load(fsys fs.FileSystem, dir string, meta Meta) (*Index, error) {
	path := filepath.Join(dir, meta.FileName())
	f, err := fsys.OpenFile(path, os.O_RDONLY, 0o644)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("secindex: open %s: %w", path, err)
	}
	defer f.Close()

	br := bufio.NewReader(f)
	magic, _ := br.Peek(len(zstdMagic))

	var r io.Reader = br
	if bytes.Equal(magic, zstdMagic) {
		zr, err := zstd.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, path, err)
		}
		defer zr.Close()
		r = zr
	}

	var wf wireFormat
	if err := json.NewDecoder(r).Decode(&wf); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, path, err)
	}

	ix := New(meta)
	ix.keys = wf.Keys
	ix.postings = wf.Postings
	if ix.postings == nil {
		ix.postings = map[string][]string{}
	}
	return ix, nil
}

// Save atomically persists ix via write-tmp-then-rename, optionally
// fsyncing the content, and optionally zstd-compressing the encoded index
// snapshot when compress is true. Load auto-detects a zstd-framed file by
// its magic header, so compressed and uncompressed index files can coexist
// across a store's collections.
func Save(fsys fs.FileSystem, dir string, ix *Index, doFsync bool, compress bool) error {
	path := filepath.Join(dir, ix.meta.FileName())
	tmp := path + ".tmp"

	f, err := fsys.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("secindex: create temp index file: %w", err)
	}

	wf := wireFormat{Keys: ix.keys, Postings: ix.postings}

	var w io.Writer = f
	var zw *zstd.Encoder
	if compress {
		zw, err = zstd.NewWriter(f)
		if err != nil {
			f.Close()
			return fmt.Errorf("secindex: create zstd writer: %w", err)
		}
		w = zw
	}

	if err := json.NewEncoder(w).Encode(wf); err != nil {
		if zw != nil {
			zw.Close()
		}
		f.Close()
		return fmt.Errorf("secindex: encode index file: %w", err)
	}
	if zw != nil {
		if err := zw.Close(); err != nil {
			f.Close()
			return fmt.Errorf("secindex: close zstd writer: %w", err)
		}
	}
	if doFsync {
		if err := f.Sync(); err != nil {
			f.Close()
			return fmt.Errorf("secindex: sync index file: %w", err)
		}
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("secindex: close index file: %w", err)
	}
	if err := fsys.Rename(tmp, path); err != nil {
		return fmt.Errorf("secindex: rename index file into place: %w", err)
	}
	return nil
}
