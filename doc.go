// Package docstore provides an embedded, file-backed document store for Go.
//
// docstore is a Firestore-style API over local JSON collections: documents
// persist as append-only newline-delimited JSON records, a primary offset
// index gives O(1) random reads, and user-defined secondary and composite
// indexes serve range and equality queries without a full scan.
//
// # Quick Start
//
//	st, _ := docstore.Open("./data")
//	defer st.Close()
//
//	people, _ := st.Collection("people")
//	id, _ := people.Add(ctx, map[string]any{"name": "Ada", "age": 30})
//
//	snap, _ := people.Doc(id).Get(ctx)
//	fmt.Println(snap.Data["name"])
//
// # Indexing
//
// Queries against an unindexed field fall back to a full collection scan.
// Register an index to serve range or repeated equality queries in
// key-sorted order instead of scanning:
//
//	people.EnsureIndex(ctx, secindex.Meta{
//	    Fields:   []string{"age"},
//	    KeyTypes: []secindex.KeyType{secindex.KeyTypeNum},
//	    Ordered:  true,
//	})
//
//	result, _ := people.Get(ctx, &query.Descriptor{
//	    Where: []query.Clause{
//	        {Field: "age", Op: query.OpGe, Value: float64(20)},
//	        {Field: "age", Op: query.OpLe, Value: float64(35)},
//	    },
//	    OrderBy: &query.OrderBy{Field: "age"},
//	})
//
// # Writes
//
// Set replaces a document's content; Set with merge overlays new fields
// onto the existing ones. Update requires the document to already exist.
// Delete appends a tombstone; the document's id remains addressable in the
// primary index (with no live content) until overwritten again.
//
//	people.Doc(id).Set(ctx, map[string]any{"age": 31}, true)  // merge update
//	people.Doc(id).Update(ctx, map[string]any{"age": 32})     // errors if absent
//	people.Doc(id).Delete(ctx)
//
// # Snapshots
//
// DocumentRef.Snapshots and CollectionRef.Snapshots deliver a live stream of
// results: an immediate value followed by a fresh one on every subsequent
// change. CollectionRef.Snapshots also re-runs on changes made by another
// process writing into the same collection directory (when the store was
// opened with watch enabled); DocumentRef.Snapshots sees only writes made
// through this Store, and only the first concurrent subscriber to a
// document gets the immediate value.
//
//	ch, cancel, _ := people.Doc(id).Snapshots(ctx)
//	defer cancel()
//	for snap := range ch {
//	    fmt.Println(snap.Data)
//	}
//
// # Durability Model
//
// Every write is synchronous and, by default, fsynced before it returns:
// the record log append, the primary index flush, and any touched
// secondary index flush all complete (or the write fails cleanly) before
// Set/Update/Delete return. Crash recovery tolerates a partially written
// final log line; Rebuild reconciles the primary index against whatever
// whole lines made it to disk.
//
// # Key Features
//
//   - Append-only record log with crash-recoverable primary index rebuild
//   - Secondary and composite indexes with ordered-key range queries
//   - Four-tier query planner (composite, single-field ordered, equality
//     intersection via Roaring-bitmap posting-set intersection, full scan)
//   - Non-blocking change notifications, including cross-process file-watch
//     events
//   - Off-thread index (re)builds via a small worker pool
package docstore
