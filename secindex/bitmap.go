package secindex

import (
	"sort"

	"github.com/RoaringBitmap/roaring/v2"
)

// IntersectPostings intersects several posting lists drawn from different
// equality clauses. Lists are sorted by ascending cardinality first (the
// smallest list drives the scan) and intersected via compressed bitmaps,
// which stays cheap even when individual posting lists are large.
//
// The result preserves the insertion order of the smallest input list,
// filtered down to ids present in every list.
func IntersectPostings(lists [][]string) []string {
	switch len(lists) {
	case 0:
		return nil
	case 1:
		return lists[0]
	}

	ordered := make([][]string, len(lists))
	copy(ordered, lists)
	sort.Slice(ordered, func(i, j int) bool { return len(ordered[i]) < len(ordered[j]) })

	ordinal := map[string]uint32{}
	var idOf []string
	toBitmap := func(ids []string) *roaring.Bitmap {
		bm := roaring.New()
		for _, id := range ids {
			ord, ok := ordinal[id]
			if !ok {
				ord = uint32(len(idOf))
				ordinal[id] = ord
				idOf = append(idOf, id)
			}
			bm.Add(ord)
		}
		return bm
	}

	acc := toBitmap(ordered[0])
	for _, l := range ordered[1:] {
		if acc.IsEmpty() {
			break
		}
		acc.And(toBitmap(l))
	}

	present := make(map[string]bool, acc.GetCardinality())
	it := acc.Iterator()
	for it.HasNext() {
		present[idOf[it.Next()]] = true
	}

	out := make([]string, 0, len(present))
	for _, id := range ordered[0] {
		if present[id] {
			out = append(out, id)
		}
	}
	return out
}
