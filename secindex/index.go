package secindex

import (
	"sort"
)

// Index is the in-memory ordered-key, posting-list structure for a single
// secondary or composite index. It holds no knowledge of persistence or of
// the collection it indexes; the index manager owns loading, building, and
// saving it.
type Index struct {
	meta     Meta
	keys     []string            // sorted, unique
	postings map[string][]string // key -> ids, insertion order
}

// New creates an empty index for the given metadata.
func New(meta Meta) *Index {
	return &Index{
		meta:     meta,
		postings: map[string][]string{},
	}
}

// Meta returns the metadata this index was constructed with.
func (ix *Index) Meta() Meta { return ix.meta }

// Add links id under key. If key is new it is inserted into the sorted key
// list at its lexicographic position. id is appended to the key's posting
// list unless already present.
func (ix *Index) Add(key, id string) {
	ids, exists := ix.postings[key]
	if !exists {
		pos := sort.SearchStrings(ix.keys, key)
		ix.keys = append(ix.keys, "")
		copy(ix.keys[pos+1:], ix.keys[pos:])
		ix.keys[pos] = key
		ix.postings[key] = []string{id}
		return
	}
	for _, existing := range ids {
		if existing == id {
			return
		}
	}
	ix.postings[key] = append(ids, id)
}

// Remove unlinks id from key's posting list. If the list becomes empty, the
// key is dropped from both the posting map and the sorted key list.
func (ix *Index) Remove(key, id string) {
	ids, exists := ix.postings[key]
	if !exists {
		return
	}
	out := ids[:0]
	for _, existing := range ids {
		if existing != id {
			out = append(out, existing)
		}
	}
	if len(out) == 0 {
		delete(ix.postings, key)
		pos := sort.SearchStrings(ix.keys, key)
		if pos < len(ix.keys) && ix.keys[pos] == key {
			ix.keys = append(ix.keys[:pos], ix.keys[pos+1:]...)
		}
		return
	}
	ix.postings[key] = out
}

// GetExact returns the posting list for key, or nil if key is absent. The
// returned slice must not be mutated by the caller.
func (ix *Index) GetExact(key string) []string {
	return ix.postings[key]
}

// Cardinality returns the number of ids posted under key.
func (ix *Index) Cardinality(key string) int {
	return len(ix.postings[key])
}

// Len returns the number of distinct keys currently held.
func (ix *Index) Len() int { return len(ix.keys) }

// GetRange returns the concatenation of posting lists for every key in
// [startKey, endKey] (bounds optional and inclusive by default), in
// key-sorted order, truncated to limit entries. Within a key, posting order
// is insertion order.
func (ix *Index) GetRange(startKey, endKey *string, startInclusive, endInclusive bool, limit int) []string {
	lo := 0
	if startKey != nil {
		lo = sort.SearchStrings(ix.keys, *startKey)
		if !startInclusive {
			for lo < len(ix.keys) && ix.keys[lo] == *startKey {
				lo++
			}
		}
	}
	hi := len(ix.keys)
	if endKey != nil {
		hi = sort.SearchStrings(ix.keys, *endKey)
		if endInclusive {
			for hi < len(ix.keys) && ix.keys[hi] == *endKey {
				hi++
			}
		}
	}

	out := make([]string, 0, limit)
	for i := lo; i < hi && i < len(ix.keys); i++ {
		for _, id := range ix.postings[ix.keys[i]] {
			out = append(out, id)
			if limit > 0 && len(out) >= limit {
				return out
			}
		}
	}
	return out
}

// Keys returns the sorted key list. The returned slice must not be mutated.
func (ix *Index) Keys() []string { return ix.keys }
