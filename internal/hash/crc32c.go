package hash

import (
	"hash"
	"hash/crc32"
)

// Castagnoli table, built once at package init.
var crc32cTable = crc32.MakeTable(crc32.Castagnoli)

// CRC32C returns the CRC32-Castagnoli checksum of data. The stdlib
// dispatches to the CPU's CRC instructions where present (SSE4.2,
// ARMv8 CRC).
func CRC32C(data []byte) uint32 {
	return crc32.Checksum(data, crc32cTable)
}

// NewCRC32C returns a streaming CRC32-Castagnoli hash.Hash32 for data
// that arrives in chunks.
func NewCRC32C() hash.Hash32 {
	return crc32.New(crc32cTable)
}
