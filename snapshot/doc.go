// Package snapshot serializes sets of buffers to a byte stream and
// restores them.
//
// The format is framed and block-compressed: a fixed header, then per
// buffer a length and a sequence of independently compressed blocks,
// each carrying a CRC32C of its stored payload. Incompressible blocks
// are stored raw, so the worst case costs only the frame overhead.
// Restored buffers are 64-byte aligned regardless of how they were
// backed when written, which keeps the SIMD origin guarantee across a
// spill/restore cycle.
//
//	var sink bytes.Buffer
//	err := snapshot.Write(&sink, []*minarrow.Buffer{colData, maskBytes},
//	    snapshot.WithCompression(snapshot.CompressionLZ4))
//	bufs, err := snapshot.Read(&sink)
//
// Blocks are compressed in parallel; writing is sequential and the
// stream layout is deterministic for a given input and options.
package snapshot
