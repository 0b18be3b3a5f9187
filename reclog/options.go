package reclog

// CompressionCodec selects the codec used for the archival snapshot Compact
// writes alongside the rewritten data log.
type CompressionCodec int

const (
	// NoCompression makes Compact write no archival snapshot.
	NoCompression CompressionCodec = iota
	// ZstdCompression zstd-compresses Compact's archival snapshot, mirroring
	// the teacher's WAL checkpoint compressor.
	ZstdCompression
)

type logOptions struct {
	codec       CompressionCodec
	autoCompact int
}

// Option configures Log construction behavior.
type Option func(*logOptions)

// WithCompaction sets the codec Compact uses for the archival snapshot it
// writes next to the rewritten data log. With ZstdCompression the snapshot
// is written to <dir>/data.ndjson.snapshot.zst; with NoCompression no
// snapshot is written. It does not affect the live
// data.ndjson file, which must stay append-friendly plain NDJSON.
func WithCompaction(codec CompressionCodec) Option {
	return func(o *logOptions) {
		o.codec = codec
	}
}

// WithAutoCompact triggers an automatic Compact after every opsThreshold
// Append calls. opsThreshold <= 0 disables auto-compaction (the default).
func WithAutoCompact(opsThreshold int) Option {
	return func(o *logOptions) {
		o.autoCompact = opsThreshold
	}
}

func applyLogOptions(opts []Option) logOptions {
	o := logOptions{codec: NoCompression}
	for _, fn := range opts {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}
