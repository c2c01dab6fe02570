// Package hash computes CRC32-Castagnoli content checksums.
//
// CRC32C is the integrity code behind Buffer.Checksum and the snapshot
// block frames. Castagnoli rather than IEEE because it is what the CPU
// accelerates and what storage formats (iSCSI, RocksDB, Parquet
// footers) standardized on, so checksums here stay comparable with
// data written by those systems.
//
// CRC32C covers the one-shot case; NewCRC32C serves writers that
// checksum data in chunks.
package hash
