// Package reclog implements the append-only record log and primary offset
// index that back a single collection.
//
// Every collection owns one [Log]: an append-only newline-delimited JSON
// file (data.ndjson) plus an in-memory map from document id to the byte
// range of its newest record ([PrimaryEntry]). The map is persisted
// alongside the log (primary.idx.json) via write-tmp-then-rename so readers
// never observe a half-written index, and can always be rebuilt from the
// log alone by [Log.Rebuild].
//
// The log never edits or removes bytes in place. Updates and deletes are
// new records appended at the current end-of-file; the primary index always
// points at the newest record for an id, so earlier bytes for that id
// become dead weight that only [Log.Compact] reclaims.
package reclog
