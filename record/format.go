// Package record implements the .takrec container: a crash-recoverable,
// append-only capture of every inbound/outbound frame the bridge moved,
// paced for deterministic replay. See format.go for the on-disk layout.
package record

import "hash/crc32"

// Magic bytes opening every .takrec file, and the terminator bytes
// closing the footer.
var (
	magicHeader     = [4]byte{'T', 'A', 'K', 'R'}
	magicTerminator = [4]byte{'R', 'K', 'A', 'T'}
)

// FormatVersion is the .takrec container version this package writes
// and the minimum version it reads.
const FormatVersion uint32 = 1

// ChunkType identifies what a chunk's payload carries.
type ChunkType uint8

const (
	// ChunkTypeEntry carries one encoded Entry.
	ChunkTypeEntry ChunkType = 0x01
	// ChunkTypeIndex carries the (monotonic_offset_ns, file_offset)
	// index built on Close, or rebuilt during recovery.
	ChunkTypeIndex ChunkType = 0xFE
	// ChunkTypeIntegrity carries the rolling SHA-256 chain over every
	// prior chunk's checksum.
	ChunkTypeIntegrity ChunkType = 0xFF
)

// crc32cTable is the Castagnoli CRC-32 table used for every chunk
// checksum, matching the container format's checksum_crc32c field.
var crc32cTable = crc32.MakeTable(crc32.Castagnoli)

func checksumCRC32C(payload []byte) uint32 {
	return crc32.Checksum(payload, crc32cTable)
}
