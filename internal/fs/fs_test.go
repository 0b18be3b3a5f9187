package fs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// These tests exercise LocalFS and FaultyFS against the write-tmp,
// fsync, rename-into-place sequence that reclog and secindex use for every
// durable write, rather than the raw os package calls in isolation.

func TestLocalFSAtomicWriteSequence(t *testing.T) {
	tmp := t.TempDir()
	lfs := LocalFS{}

	dir := filepath.Join(tmp, "people")
	require.NoError(t, lfs.MkdirAll(dir, 0o755))

	final := filepath.Join(dir, "primary.idx.json")
	staging := final + ".tmp"

	f, err := lfs.OpenFile(staging, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	require.NoError(t, err)
	_, err = f.Write([]byte(`{"ada":{"offset":0,"length":10}}`))
	require.NoError(t, err)
	require.NoError(t, f.Sync())
	require.NoError(t, f.Close())

	// Before rename, only the staging file exists; nothing is at the final name.
	_, err = lfs.Stat(final)
	assert.True(t, os.IsNotExist(err))

	require.NoError(t, lfs.Rename(staging, final))

	info, err := lfs.Stat(final)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))

	entries, err := lfs.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestLocalFSTruncateAndRemove(t *testing.T) {
	tmp := t.TempDir()
	lfs := LocalFS{}

	path := filepath.Join(tmp, "data.ndjson")
	f, err := lfs.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	require.NoError(t, err)
	_, err = f.Write([]byte(`{"id":"a"}` + "\n" + `{"id":"b"}` + "\n"))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	require.NoError(t, lfs.Truncate(path, 11))
	info, err := lfs.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, int64(11), info.Size())

	require.NoError(t, lfs.Remove(path))
	_, err = lfs.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

// TestFaultyFSSimulatesCrashMidAppend models an append that fails after an
// earlier record was written: the failed write leaves none of its bytes on
// disk, so the file still ends at the last whole record.
func TestFaultyFSSimulatesCrashMidAppend(t *testing.T) {
	tmp := t.TempDir()
	ffs := NewFaultyFS(LocalFS{})
	ffs.AddRule("data.ndjson", Fault{FailAfterBytes: 12})

	path := filepath.Join(tmp, "data.ndjson")
	f, err := ffs.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	require.NoError(t, err)

	n, err := f.Write([]byte(`{"id":"a"}` + "\n"))
	require.NoError(t, err)
	assert.Equal(t, 11, n)

	_, err = f.Write([]byte(`{"id":"b"}` + "\n"))
	assert.Error(t, err)
	require.NoError(t, f.Close())

	info, err := LocalFS{}.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, int64(11), info.Size())
}

func TestFaultyFSFailOnSyncAndClose(t *testing.T) {
	tmp := t.TempDir()
	ffs := NewFaultyFS(LocalFS{})
	ffs.AddRule("primary.idx.json", Fault{FailAfterBytes: -1, FailOnSync: true})

	path := filepath.Join(tmp, "primary.idx.json")
	f, err := ffs.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	require.NoError(t, err)
	_, err = f.Write([]byte(`{}`))
	require.NoError(t, err)
	assert.Error(t, f.Sync())
	require.NoError(t, f.Close())

	ffs2 := NewFaultyFS(LocalFS{})
	ffs2.AddRule("index.json", Fault{FailOnClose: true})
	path2 := filepath.Join(tmp, "index.json")
	f2, err := ffs2.OpenFile(path2, os.O_CREATE|os.O_RDWR, 0o644)
	require.NoError(t, err)
	assert.Error(t, f2.Close())
}

func TestFaultyFSPerFileRuleDoesNotAffectOtherFiles(t *testing.T) {
	tmp := t.TempDir()
	ffs := NewFaultyFS(LocalFS{})
	ffs.AddRule("age.idx", Fault{FailAfterBytes: 0})

	okPath := filepath.Join(tmp, "name.idx")
	f, err := ffs.OpenFile(okPath, os.O_CREATE|os.O_RDWR, 0o644)
	require.NoError(t, err)
	n, err := f.Write([]byte("unaffected"))
	require.NoError(t, err)
	assert.Equal(t, len("unaffected"), n)
	require.NoError(t, f.Close())

	failPath := filepath.Join(tmp, "age.idx")
	f2, err := ffs.OpenFile(failPath, os.O_CREATE|os.O_RDWR, 0o644)
	require.NoError(t, err)
	_, err = f2.Write([]byte("x"))
	assert.Error(t, err)
}
