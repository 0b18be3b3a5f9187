// Package secindex implements the in-memory ordered-key, posting-list
// structure behind a single-field or composite secondary index, its
// canonical key encoding, and its on-disk persistence.
//
// [Index] itself has no notion of collections, primary entries, or
// rebuild scheduling — it is a pure ordered map from canonical key to an
// insertion-ordered id list, with binary-search range queries. The
// [indexmgr] package owns when an Index gets built, reloaded, or
// incrementally updated.
package secindex
