package record

import (
	"crypto/sha256"
	"encoding/binary"
	"io"
	"os"
	"sync"
	"time"

	"github.com/NERVsystems/takbridge/errs"
	"github.com/NERVsystems/takbridge/limits"
)

// indexEntry is one (monotonic_offset_ns, file_offset) pair recorded as
// entries are appended, flushed as the trailing index chunk on Close.
type indexEntry struct {
	monotonicOffsetNs uint64
	fileOffset        uint64
}

// Writer appends Entry values to a .takrec file, flushing each as a
// whole chunk or not at all so a crash mid-write never corrupts a
// previously committed chunk (spec.md §4.8, §8 scenario 6).
type Writer struct {
	mu sync.Mutex
	f  *os.File

	offset   uint64
	index    []indexEntry
	lastMono time.Duration

	withIntegrity  bool
	integrityChain [][]byte // one SHA-256 link per committed chunk checksum
}

// WriterOptions configures a new .takrec file.
type WriterOptions struct {
	// SessionMonotonicEpoch is the wall-clock instant the session's
	// monotonic clock reads zero, stored in the header so offsets can
	// be re-anchored to wall time on replay.
	SessionMonotonicEpoch time.Time
	// Limits is the negotiated resource-budget profile in force for
	// this session, stored in the header for audit and for
	// ValidateAgainstTransport-style checks against a recorded session.
	Limits limits.Limits
	// WithIntegrity enables the rolling SHA-256 checksum chain chunk.
	WithIntegrity bool
}

// Create opens path for writing and emits the .takrec header.
func Create(path string, opts WriterOptions) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, errs.Wrap(errs.KindPersistenceFailed, "creating record file", err)
	}

	w := &Writer{f: f, lastMono: -1, withIntegrity: opts.WithIntegrity}
	if err := w.writeHeader(opts); err != nil {
		f.Close()
		return nil, err
	}
	return w, nil
}

func (w *Writer) writeHeader(opts WriterOptions) error {
	blob := encodeLimitsBlob(opts.Limits)

	buf := make([]byte, 0, 4+4+4+8+8+4+len(blob))
	buf = append(buf, magicHeader[:]...)
	buf = appendU32(buf, FormatVersion)
	buf = appendU32(buf, 0) // flags, reserved
	buf = appendU64(buf, uint64(time.Now().UnixNano()))
	buf = appendU64(buf, uint64(opts.SessionMonotonicEpoch.UnixNano()))
	buf = appendU32(buf, uint32(len(blob)))
	buf = append(buf, blob...)

	n, err := w.f.Write(buf)
	if err != nil {
		return errs.Wrap(errs.KindPersistenceFailed, "writing record header", err)
	}
	w.offset = uint64(n)
	return nil
}

func encodeLimitsBlob(l limits.Limits) []byte {
	buf := make([]byte, 0, 48)
	for _, v := range []uint64{
		l.MaxFrameBytes, l.MaxXMLScanBytes, l.MaxProtobufBytes,
		l.MaxQueueMessages, l.MaxQueueBytes, l.MaxDetailElements,
	} {
		buf = appendU64(buf, v)
	}
	return buf
}

func decodeLimitsBlob(buf []byte) (limits.Limits, error) {
	if len(buf) != 48 {
		return limits.Limits{}, errs.New(errs.KindIndexCorrupt, "malformed limits profile blob")
	}
	vals := make([]uint64, 6)
	for i := range vals {
		vals[i] = binary.LittleEndian.Uint64(buf[i*8 : i*8+8])
	}
	return limits.Limits{
		MaxFrameBytes:     vals[0],
		MaxXMLScanBytes:   vals[1],
		MaxProtobufBytes:  vals[2],
		MaxQueueMessages:  vals[3],
		MaxQueueBytes:     vals[4],
		MaxDetailElements: vals[5],
	}, nil
}

// Append writes e as one ChunkTypeEntry chunk. Monotonic offsets must be
// non-decreasing across calls, matching the per-direction arrival order
// the bridge observed (spec.md §8 invariant 5).
func (w *Writer) Append(e Entry) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.lastMono >= 0 && e.MonotonicOffset < w.lastMono {
		return errs.New(errs.KindInvalidValue, "record entry monotonic offset went backwards")
	}
	w.lastMono = e.MonotonicOffset

	payload := e.encode()
	fileOffset := w.offset
	if err := w.writeChunk(ChunkTypeEntry, payload); err != nil {
		return err
	}

	w.index = append(w.index, indexEntry{
		monotonicOffsetNs: uint64(e.MonotonicOffset),
		fileOffset:        fileOffset,
	})
	return nil
}

// writeChunk serializes and flushes one chunk atomically: the whole
// buffer is built in memory first so a single Write call either lands
// in full or not at all.
func (w *Writer) writeChunk(ct ChunkType, payload []byte) error {
	checksum := checksumCRC32C(payload)

	buf := make([]byte, 0, 4+1+4+len(payload))
	buf = appendU32(buf, uint32(len(payload)))
	buf = append(buf, byte(ct))
	buf = appendU32(buf, checksum)
	buf = append(buf, payload...)

	n, err := w.f.Write(buf)
	if err != nil {
		return errs.Wrap(errs.KindPersistenceFailed, "writing record chunk", err)
	}
	w.offset += uint64(n)

	if w.withIntegrity {
		var sumBuf [4]byte
		binary.LittleEndian.PutUint32(sumBuf[:], checksum)
		h := sha256.New()
		if len(w.integrityChain) > 0 {
			h.Write(w.integrityChain[len(w.integrityChain)-1])
		}
		h.Write(sumBuf[:])
		w.integrityChain = append(w.integrityChain, h.Sum(nil))
	}
	return nil
}

// Close flushes the index chunk, the optional integrity chunk, and the
// footer, then closes the underlying file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	indexOffset := w.offset
	if err := w.writeChunk(ChunkTypeIndex, encodeIndex(w.index)); err != nil {
		w.f.Close()
		return err
	}

	var integrityOffset uint64
	if w.withIntegrity && len(w.integrityChain) > 0 {
		integrityOffset = w.offset
		if err := w.writeChunk(ChunkTypeIntegrity, w.integrityChain[len(w.integrityChain)-1]); err != nil {
			w.f.Close()
			return err
		}
	}

	footer := make([]byte, 0, 4+8+8+4)
	footer = append(footer, magicTerminator[:]...)
	footer = appendU64(footer, indexOffset)
	footer = appendU64(footer, integrityOffset)
	trailerChecksum := checksumCRC32C(footer)
	footer = appendU32(footer, trailerChecksum)

	if _, err := w.f.Write(footer); err != nil {
		w.f.Close()
		return errs.Wrap(errs.KindPersistenceFailed, "writing record footer", err)
	}

	if err := w.f.Sync(); err != nil {
		w.f.Close()
		return errs.Wrap(errs.KindPersistenceFailed, "syncing record file", err)
	}
	return w.f.Close()
}

func encodeIndex(entries []indexEntry) []byte {
	buf := make([]byte, 0, 4+len(entries)*16)
	buf = appendU32(buf, uint32(len(entries)))
	for _, e := range entries {
		buf = appendU64(buf, e.monotonicOffsetNs)
		buf = appendU64(buf, e.fileOffset)
	}
	return buf
}

func decodeIndex(buf []byte) ([]indexEntry, error) {
	if len(buf) < 4 {
		return nil, errs.New(errs.KindIndexCorrupt, "index chunk truncated")
	}
	count := binary.LittleEndian.Uint32(buf[:4])
	buf = buf[4:]
	if uint64(len(buf)) != uint64(count)*16 {
		return nil, errs.New(errs.KindIndexCorrupt, "index chunk length mismatch")
	}
	out := make([]indexEntry, count)
	for i := range out {
		out[i].monotonicOffsetNs = binary.LittleEndian.Uint64(buf[i*16 : i*16+8])
		out[i].fileOffset = binary.LittleEndian.Uint64(buf[i*16+8 : i*16+16])
	}
	return out, nil
}

func appendU32(buf []byte, v uint32) []byte {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	return append(buf, tmp[:]...)
}

func appendU64(buf []byte, v uint64) []byte {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	return append(buf, tmp[:]...)
}

var _ io.Closer = (*Writer)(nil)
