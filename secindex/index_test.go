package secindex_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/localdb/docstore/secindex"
)

func TestAddGetExact(t *testing.T) {
	ix := secindex.New(secindex.Meta{Fields: []string{"age"}, KeyTypes: []secindex.KeyType{secindex.KeyTypeNum}})
	k30, err := secindex.Canonical("age", float64(30), secindex.KeyTypeNum)
	require.NoError(t, err)

	ix.Add(k30, "doc1")
	ix.Add(k30, "doc2")
	assert.Equal(t, []string{"doc1", "doc2"}, ix.GetExact(k30))
}

func TestRemoveDropsEmptyKey(t *testing.T) {
	ix := secindex.New(secindex.Meta{Fields: []string{"age"}})
	ix.Add("k", "a")
	ix.Remove("k", "a")
	assert.Nil(t, ix.GetExact("k"))
	assert.Equal(t, 0, ix.Len())
}

func TestNumericCanonicalPreservesOrder(t *testing.T) {
	values := []float64{-500, -1, 0, 1, 42, 1000, 999999}
	var keys []string
	for _, v := range values {
		k, err := secindex.Canonical("n", v, secindex.KeyTypeNum)
		require.NoError(t, err)
		keys = append(keys, k)
	}
	for i := 1; i < len(keys); i++ {
		assert.Less(t, keys[i-1], keys[i])
	}
}

func TestNumericOutOfRange(t *testing.T) {
	_, err := secindex.Canonical("n", float64(2e12), secindex.KeyTypeNum)
	require.Error(t, err)
	var oor *secindex.ErrOutOfRange
	assert.ErrorAs(t, err, &oor)
}

func TestGetRangeOrdersByKey(t *testing.T) {
	ix := secindex.New(secindex.Meta{Fields: []string{"age"}, KeyTypes: []secindex.KeyType{secindex.KeyTypeNum}})
	for _, age := range []float64{10, 20, 30, 40} {
		k, err := secindex.Canonical("age", age, secindex.KeyTypeNum)
		require.NoError(t, err)
		ix.Add(k, "doc-"+k)
	}

	start, err := secindex.Canonical("age", float64(20), secindex.KeyTypeNum)
	require.NoError(t, err)
	end, err := secindex.Canonical("age", float64(35), secindex.KeyTypeNum)
	require.NoError(t, err)

	got := ix.GetRange(&start, &end, true, true, 0)
	require.Len(t, got, 2)
	k30, err := secindex.Canonical("age", float64(30), secindex.KeyTypeNum)
	require.NoError(t, err)
	assert.Equal(t, []string{"doc-" + start, "doc-" + k30}, got)
}

func TestCompositeKeyPreservesFieldPrefixOrder(t *testing.T) {
	a1, _ := secindex.Canonical("age", float64(30), secindex.KeyTypeNum)
	a2, _ := secindex.Canonical("age", float64(31), secindex.KeyTypeNum)
	c1 := secindex.Composite(a1, "2024-01")
	c2 := secindex.Composite(a1, "2024-02")
	c3 := secindex.Composite(a2, "2024-01")

	assert.Less(t, c1, c2)
	assert.Less(t, c2, c3)
}
