// Package indexmgr owns the set of secondary and composite index
// definitions registered for a collection: loading them from disk, building
// them from the record log when missing or corrupt (optionally on a
// background worker pool), and keeping loaded indexes consistent with the
// log under update and delete via incremental add/unlink.
//
// indexmgr depends on [secindex] for the index data structure itself and on
// [reclog] for reading the live document set during a build. It never reads
// or writes document bytes outside of a full rebuild scan.
package indexmgr
