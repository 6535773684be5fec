package record

import (
	"crypto/sha256"
	"encoding/binary"
	"os"
	"time"

	"github.com/NERVsystems/takbridge/errs"
	"github.com/NERVsystems/takbridge/limits"
)

// Header is the decoded .takrec file header.
type Header struct {
	Version               uint32
	CreationWall          time.Time
	SessionMonotonicEpoch time.Time
	Limits                limits.Limits
}

// chunk is one parsed chunk, independent of what it carries.
type chunk struct {
	typ      ChunkType
	payload  []byte
	checksum uint32
	offset   int64 // file offset of the chunk's length field
}

// Reader opens a .takrec file and recovers its entries, tolerating a
// file truncated mid-chunk by a crash (spec.md §8 scenario 6).
type Reader struct {
	Header Header

	entries   []Entry
	index     []indexEntry
	truncated bool
	// TruncatedAt is the byte offset of the first unreadable chunk, set
	// only when the file ends mid-chunk or fails its checksum.
	TruncatedAt int64
	// IntegrityVerified reports whether a ChunkTypeIntegrity chunk was
	// present and matched the recomputed chain.
	IntegrityVerified bool
}

// Open reads and validates path, recovering as many entries as
// possible. A truncated or checksum-broken tail never prevents access
// to the entries read successfully before it; Reader.TruncatedAt
// reports where recovery stopped, and the returned error's Kind is
// errs.KindWriteTruncated in that case (still returning a usable
// *Reader, so callers can inspect r.Entries() after checking the Kind).
func Open(path string) (*Reader, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Wrap(errs.KindPersistenceFailed, "reading record file", err)
	}
	return OpenBytes(data)
}

// OpenBytes parses an in-memory .takrec image, used by Open and by
// tests exercising truncation without touching the filesystem.
func OpenBytes(data []byte) (*Reader, error) {
	hdr, body, err := parseHeader(data)
	if err != nil {
		return nil, err
	}

	r := &Reader{Header: hdr}

	footer, footerOK := parseFooter(data)
	if footerOK {
		if idx, integrityPayload, err := r.readViaFooter(data, footer); err == nil {
			r.index = idx
			if err := r.loadEntriesFromIndex(data, idx); err == nil {
				if len(integrityPayload) > 0 {
					r.IntegrityVerified = r.verifyIntegrity(data, footer, integrityPayload)
				}
				return r, nil
			}
		}
	}

	// Fast path unavailable or itself corrupt: fall back to a forward
	// scan from just past the header, stopping at the first bad chunk.
	return r.scanForward(body, int64(len(data)-len(body)))
}

func parseHeader(data []byte) (Header, []byte, error) {
	const fixedLen = 4 + 4 + 4 + 8 + 8 + 4
	if len(data) < fixedLen {
		return Header{}, nil, errs.New(errs.KindUnsupportedVersion, "record file shorter than header")
	}
	if string(data[:4]) != string(magicHeader[:]) {
		return Header{}, nil, errs.New(errs.KindUnsupportedVersion, "record file missing magic header")
	}
	pos := 4
	version := binary.LittleEndian.Uint32(data[pos:])
	pos += 4
	if version > FormatVersion {
		return Header{}, nil, errs.Field(errs.KindUnsupportedVersion, "version", "record file version newer than supported")
	}
	pos += 4 // flags, ignored
	creationNs := binary.LittleEndian.Uint64(data[pos:])
	pos += 8
	epochNs := binary.LittleEndian.Uint64(data[pos:])
	pos += 8
	blobLen := binary.LittleEndian.Uint32(data[pos:])
	pos += 4
	if len(data) < pos+int(blobLen) {
		return Header{}, nil, errs.New(errs.KindUnsupportedVersion, "record file truncated in header blob")
	}
	lims, err := decodeLimitsBlob(data[pos : pos+int(blobLen)])
	if err != nil {
		return Header{}, nil, err
	}
	pos += int(blobLen)

	hdr := Header{
		Version:               version,
		CreationWall:          time.Unix(0, int64(creationNs)).UTC(),
		SessionMonotonicEpoch: time.Unix(0, int64(epochNs)).UTC(),
		Limits:                lims,
	}
	return hdr, data[pos:], nil
}

type footerInfo struct {
	indexOffset     uint64
	integrityOffset uint64
}

func parseFooter(data []byte) (footerInfo, bool) {
	const footerLen = 4 + 8 + 8 + 4
	if len(data) < footerLen {
		return footerInfo{}, false
	}
	tail := data[len(data)-footerLen:]
	if string(tail[:4]) != string(magicTerminator[:]) {
		return footerInfo{}, false
	}
	body := tail[:4+8+8]
	checksum := binary.LittleEndian.Uint32(tail[4+8+8:])
	if checksumCRC32C(body) != checksum {
		return footerInfo{}, false
	}
	indexOffset := binary.LittleEndian.Uint64(tail[4:12])
	integrityOffset := binary.LittleEndian.Uint64(tail[12:20])
	return footerInfo{indexOffset: indexOffset, integrityOffset: integrityOffset}, true
}

func (r *Reader) readViaFooter(data []byte, f footerInfo) ([]indexEntry, []byte, error) {
	idxChunk, err := readChunkAt(data, int64(f.indexOffset))
	if err != nil || idxChunk.typ != ChunkTypeIndex {
		return nil, nil, errs.New(errs.KindIndexCorrupt, "index chunk missing or wrong type")
	}
	idx, err := decodeIndex(idxChunk.payload)
	if err != nil {
		return nil, nil, err
	}

	var integrityPayload []byte
	if f.integrityOffset != 0 {
		ic, err := readChunkAt(data, int64(f.integrityOffset))
		if err == nil && ic.typ == ChunkTypeIntegrity {
			integrityPayload = ic.payload
		}
	}
	return idx, integrityPayload, nil
}

func (r *Reader) loadEntriesFromIndex(data []byte, idx []indexEntry) error {
	entries := make([]Entry, 0, len(idx))
	for _, ie := range idx {
		c, err := readChunkAt(data, int64(ie.fileOffset))
		if err != nil || c.typ != ChunkTypeEntry {
			return errs.New(errs.KindIndexCorrupt, "index referenced an unreadable entry chunk")
		}
		e, err := decodeEntry(c.payload)
		if err != nil {
			return err
		}
		entries = append(entries, e)
	}
	r.entries = entries
	return nil
}

// verifyIntegrity recomputes the rolling SHA-256 chain over every entry
// and the index chunk (the chunks preceding the integrity chunk) and
// compares it against the stored final link.
func (r *Reader) verifyIntegrity(data []byte, f footerInfo, stored []byte) bool {
	var prev []byte
	offset := headerLen(data)
	for {
		if uint64(offset) >= f.integrityOffset {
			break
		}
		c, err := readChunkAt(data, offset)
		if err != nil {
			return false
		}
		var sumBuf [4]byte
		binary.LittleEndian.PutUint32(sumBuf[:], c.checksum)
		h := sha256.New()
		if prev != nil {
			h.Write(prev)
		}
		h.Write(sumBuf[:])
		prev = h.Sum(nil)
		offset += chunkTotalLen(c.payload)
	}
	return string(prev) == string(stored)
}

func headerLen(data []byte) int64 {
	_, body, err := parseHeader(data)
	if err != nil {
		return 0
	}
	return int64(len(data) - len(body))
}

func chunkTotalLen(payload []byte) int64 {
	return int64(4 + 1 + 4 + len(payload))
}

// readChunkAt parses the chunk whose length field begins at offset.
func readChunkAt(data []byte, offset int64) (chunk, error) {
	if offset < 0 || offset+9 > int64(len(data)) {
		return chunk{}, errs.AtOffset(errs.KindWriteTruncated, offset, "chunk header truncated")
	}
	b := data[offset:]
	length := binary.LittleEndian.Uint32(b[:4])
	ct := ChunkType(b[4])
	checksum := binary.LittleEndian.Uint32(b[5:9])
	if int64(9+length) > int64(len(b)) {
		return chunk{}, errs.AtOffset(errs.KindWriteTruncated, offset, "chunk payload truncated")
	}
	payload := b[9 : 9+length]
	if checksumCRC32C(payload) != checksum {
		return chunk{}, errs.AtOffset(errs.KindChunkChecksumMismatch, offset, "chunk checksum mismatch")
	}
	return chunk{typ: ct, payload: payload, checksum: checksum, offset: offset}, nil
}

// scanForward recovers entries by reading chunks sequentially from the
// start of body (located at baseOffset in data), stopping at the first
// unreadable or checksum-failing chunk. Used both as the crash-recovery
// path (no valid footer) and whenever the footer-driven fast path
// itself turns out to be corrupt.
func (r *Reader) scanForward(body []byte, baseOffset int64) (*Reader, error) {
	offset := int64(0)
	var entries []Entry
	var idx []indexEntry
	for offset < int64(len(body)) {
		c, err := readChunkAt(body, offset)
		if err != nil {
			r.truncated = true
			r.TruncatedAt = baseOffset + offset
			r.entries = entries
			r.index = idx
			return r, errs.AtOffset(errs.KindWriteTruncated, r.TruncatedAt, "record file truncated during recovery scan")
		}
		if c.typ == ChunkTypeEntry {
			e, err := decodeEntry(c.payload)
			if err != nil {
				r.truncated = true
				r.TruncatedAt = baseOffset + offset
				r.entries = entries
				r.index = idx
				return r, errs.AtOffset(errs.KindWriteTruncated, r.TruncatedAt, "malformed entry encountered during recovery scan")
			}
			entries = append(entries, e)
			idx = append(idx, indexEntry{
				monotonicOffsetNs: uint64(e.MonotonicOffset),
				fileOffset:        uint64(baseOffset + offset),
			})
		}
		offset += chunkTotalLen(c.payload)
	}
	r.entries = entries
	r.index = idx
	return r, nil
}

// Entries returns every entry recovered, in append order.
func (r *Reader) Entries() []Entry {
	return r.entries
}

// Truncated reports whether recovery stopped before the file's
// declared end (crash recovery engaged).
func (r *Reader) Truncated() bool {
	return r.truncated
}

// IndexLen reports how many (monotonic_offset, file_offset) pairs the
// index holds — the trailing index chunk when present, or the index
// rebuilt by the forward recovery scan otherwise.
func (r *Reader) IndexLen() int {
	return len(r.index)
}
