package docstore_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/localdb/docstore"
	"github.com/localdb/docstore/query"
	"github.com/localdb/docstore/secindex"
)

func tempRoot(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "docstore-test-*")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })
	return dir
}

func openStore(t *testing.T, opts ...docstore.Option) *docstore.Store {
	t.Helper()
	st, err := docstore.Open(tempRoot(t), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestAddAndGetRoundTrip(t *testing.T) {
	st := openStore(t, docstore.WithWatch(false))
	people, err := st.Collection("people")
	require.NoError(t, err)

	id, err := people.Add(context.Background(), map[string]any{"name": "Ada", "age": float64(30)})
	require.NoError(t, err)
	require.Len(t, id, 20)

	snap, err := people.Doc(id).Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, id, snap.ID)
	assert.Equal(t, "Ada", snap.Data["name"])
	assert.Equal(t, float64(30), snap.Data["age"])
}

func TestGetMissingDocumentReturnsErrNotFound(t *testing.T) {
	st := openStore(t, docstore.WithWatch(false))
	people, err := st.Collection("people")
	require.NoError(t, err)

	_, err = people.Doc("does-not-exist").Get(context.Background())
	assert.ErrorIs(t, err, docstore.ErrNotFound)
}

func TestSetMergeOverlaysExistingFields(t *testing.T) {
	st := openStore(t, docstore.WithWatch(false))
	people, err := st.Collection("people")
	require.NoError(t, err)

	id, err := people.Add(context.Background(), map[string]any{"name": "Ada", "age": float64(30)})
	require.NoError(t, err)

	require.NoError(t, people.Doc(id).Set(context.Background(), map[string]any{"age": float64(31)}, true))

	snap, err := people.Doc(id).Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Ada", snap.Data["name"])
	assert.Equal(t, float64(31), snap.Data["age"])
}

func TestSetWithoutMergeReplacesContent(t *testing.T) {
	st := openStore(t, docstore.WithWatch(false))
	people, err := st.Collection("people")
	require.NoError(t, err)

	id, err := people.Add(context.Background(), map[string]any{"name": "Ada", "age": float64(30)})
	require.NoError(t, err)

	require.NoError(t, people.Doc(id).Set(context.Background(), map[string]any{"age": float64(40)}, false))

	snap, err := people.Doc(id).Get(context.Background())
	require.NoError(t, err)
	assert.Nil(t, snap.Data["name"])
	assert.Equal(t, float64(40), snap.Data["age"])
}

func TestUpdateOnMissingDocumentErrors(t *testing.T) {
	st := openStore(t, docstore.WithWatch(false))
	people, err := st.Collection("people")
	require.NoError(t, err)

	err = people.Doc("ghost").Update(context.Background(), map[string]any{"age": float64(1)})
	assert.ErrorIs(t, err, docstore.ErrNotFound)
}

func TestDeleteThenGetSurvivesReopen(t *testing.T) {
	root := tempRoot(t)
	st, err := docstore.Open(root, docstore.WithWatch(false))
	require.NoError(t, err)

	people, err := st.Collection("people")
	require.NoError(t, err)
	id, err := people.Add(context.Background(), map[string]any{"name": "Ada"})
	require.NoError(t, err)
	require.NoError(t, people.Doc(id).Delete(context.Background()))

	_, err = people.Doc(id).Get(context.Background())
	assert.ErrorIs(t, err, docstore.ErrNotFound)
	require.NoError(t, st.Close())

	// Reopening loads the persisted primary index; the tombstone must still
	// be observed as deleted.
	st2, err := docstore.Open(root, docstore.WithWatch(false))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st2.Close() })

	people2, err := st2.Collection("people")
	require.NoError(t, err)
	_, err = people2.Doc(id).Get(context.Background())
	assert.ErrorIs(t, err, docstore.ErrNotFound)
}

func TestEnsureIndexAndRangeQuery(t *testing.T) {
	st := openStore(t, docstore.WithWatch(false), docstore.WithWorker(false))
	people, err := st.Collection("people")
	require.NoError(t, err)

	require.NoError(t, people.EnsureIndex(context.Background(), secindex.Meta{
		Fields:   []string{"age"},
		KeyTypes: []secindex.KeyType{secindex.KeyTypeNum},
		Ordered:  true,
	}))

	ages := []float64{20, 25, 30, 35, 40}
	for _, age := range ages {
		_, err := people.Add(context.Background(), map[string]any{"age": age})
		require.NoError(t, err)
	}

	result, err := people.Get(context.Background(), &query.Descriptor{
		Where: []query.Clause{
			{Field: "age", Op: query.OpGe, Value: float64(25)},
			{Field: "age", Op: query.OpLe, Value: float64(35)},
		},
		OrderBy: &query.OrderBy{Field: "age"},
	})
	require.NoError(t, err)
	require.Len(t, result.Docs, 3)
	assert.Equal(t, float64(25), result.Docs[0].Data["age"])
	assert.Equal(t, float64(30), result.Docs[1].Data["age"])
	assert.Equal(t, float64(35), result.Docs[2].Data["age"])
}

func TestFullScanFallsBackWithoutIndex(t *testing.T) {
	st := openStore(t, docstore.WithWatch(false))
	people, err := st.Collection("people")
	require.NoError(t, err)

	_, err = people.Add(context.Background(), map[string]any{"city": "Berlin"})
	require.NoError(t, err)
	_, err = people.Add(context.Background(), map[string]any{"city": "Lagos"})
	require.NoError(t, err)

	result, err := people.Get(context.Background(), &query.Descriptor{
		Where: []query.Clause{{Field: "city", Op: query.OpEq, Value: "Lagos"}},
	})
	require.NoError(t, err)
	require.Len(t, result.Docs, 1)
	assert.Equal(t, "Lagos", result.Docs[0].Data["city"])
}

func TestDocumentSnapshotsStreamOnWrite(t *testing.T) {
	st := openStore(t, docstore.WithWatch(false))
	people, err := st.Collection("people")
	require.NoError(t, err)

	id, err := people.Add(context.Background(), map[string]any{"name": "Ada", "age": float64(30)})
	require.NoError(t, err)

	ch, cancel, err := people.Doc(id).Snapshots(context.Background())
	require.NoError(t, err)
	defer cancel()

	select {
	case snap := <-ch:
		assert.Equal(t, "Ada", snap.Data["name"])
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for initial snapshot")
	}

	require.NoError(t, people.Doc(id).Set(context.Background(), map[string]any{"age": float64(31)}, true))

	select {
	case snap := <-ch:
		assert.Equal(t, float64(31), snap.Data["age"])
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for updated snapshot")
	}
}

func TestCollectionSnapshotsStreamOnEveryWrite(t *testing.T) {
	st := openStore(t, docstore.WithWatch(false))
	people, err := st.Collection("people")
	require.NoError(t, err)

	ch, cancel, err := people.Snapshots(context.Background(), nil)
	require.NoError(t, err)
	defer cancel()

	select {
	case snap := <-ch:
		assert.Empty(t, snap.Docs)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for initial empty snapshot")
	}

	_, err = people.Add(context.Background(), map[string]any{"name": "Grace"})
	require.NoError(t, err)

	select {
	case snap := <-ch:
		require.Len(t, snap.Docs, 1)
		assert.Equal(t, "Grace", snap.Docs[0].Data["name"])
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for post-write snapshot")
	}
}

func TestCloseIsIdempotentAndClosedStoreRejectsCollection(t *testing.T) {
	st := openStore(t, docstore.WithWatch(false))
	_, err := st.Collection("people")
	require.NoError(t, err)

	require.NoError(t, st.Close())
	require.NoError(t, st.Close())

	_, err = st.Collection("people")
	assert.ErrorIs(t, err, docstore.ErrClosed)
}

func TestWithCompressionProducesZstdIndexFiles(t *testing.T) {
	root := tempRoot(t)
	st, err := docstore.Open(root, docstore.WithWatch(false), docstore.WithWorker(false), docstore.WithCompression(true))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	people, err := st.Collection("people")
	require.NoError(t, err)
	require.NoError(t, people.EnsureIndex(context.Background(), secindex.Meta{
		Fields:   []string{"age"},
		KeyTypes: []secindex.KeyType{secindex.KeyTypeNum},
		Ordered:  true,
	}))
	_, err = people.Add(context.Background(), map[string]any{"age": float64(30)})
	require.NoError(t, err)

	entries, err := os.ReadDir(filepath.Join(root, "people"))
	require.NoError(t, err)
	var sawIndexFile bool
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".idx.json") && e.Name() != "primary.idx.json" {
			sawIndexFile = true
			raw, rerr := os.ReadFile(filepath.Join(root, "people", e.Name()))
			require.NoError(t, rerr)
			require.GreaterOrEqual(t, len(raw), 4)
			assert.Equal(t, []byte{0x28, 0xb5, 0x2f, 0xfd}, raw[:4])
		}
	}
	assert.True(t, sawIndexFile)

	result, err := people.Get(context.Background(), &query.Descriptor{
		Where: []query.Clause{{Field: "age", Op: query.OpEq, Value: float64(30)}},
	})
	require.NoError(t, err)
	require.Len(t, result.Docs, 1)
}

func TestWithAutoCompactKeepsLogSmall(t *testing.T) {
	root := tempRoot(t)
	st, err := docstore.Open(root, docstore.WithWatch(false), docstore.WithAutoCompact(2))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	people, err := st.Collection("people")
	require.NoError(t, err)

	id, err := people.Add(context.Background(), map[string]any{"v": float64(0)})
	require.NoError(t, err)
	for i := 1; i < 5; i++ {
		require.NoError(t, people.Doc(id).Set(context.Background(), map[string]any{"v": float64(i)}, false))
	}

	snap, err := people.Doc(id).Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, float64(4), snap.Data["v"])

	// Five writes with a threshold of 2: compactions after the 2nd and 4th
	// leave one line each, and the 5th write appends a second line.
	raw, err := os.ReadFile(filepath.Join(root, "people", "data.ndjson"))
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(raw), "\n"))
}

func TestUUIDIDStrategyProducesValidUUIDs(t *testing.T) {
	st := openStore(t, docstore.WithWatch(false), docstore.WithIDStrategy(docstore.UUIDIDStrategy))
	people, err := st.Collection("people")
	require.NoError(t, err)

	id, err := people.Add(context.Background(), map[string]any{"name": "Linus"})
	require.NoError(t, err)
	assert.Len(t, id, 36)
}
