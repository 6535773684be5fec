package record

import (
	"encoding/binary"
	"time"

	"github.com/rs/xid"

	"github.com/NERVsystems/takbridge/errs"
	"github.com/NERVsystems/takbridge/transport"
)

// ProtocolKind identifies which wire protocol produced an entry's raw
// frame, per spec.md §6's frame catalogue.
type ProtocolKind uint8

const (
	ProtocolTakXml ProtocolKind = iota
	ProtocolTakProtoV1Stream
	ProtocolTakProtoV1Mesh
	ProtocolSapientV2
)

// Entry is one recorded frame: direction, timing, protocol, and payload
// captured as a raw wire frame, a decoded/re-serialized form, both, or
// neither (capture policy governs which; Writer.Append does not require
// either to be present).
type Entry struct {
	ID              xid.ID
	Direction       transport.Direction
	WallTime        time.Time
	MonotonicOffset time.Duration
	Protocol        ProtocolKind
	Peer            string
	RawFrame        []byte
	Decoded         []byte
	Metadata        map[string]string
}

// NewEntry builds an Entry with a freshly generated correlation id.
func NewEntry(dir transport.Direction, wallTime time.Time, monotonicOffset time.Duration, proto ProtocolKind) Entry {
	return Entry{
		ID:              xid.New(),
		Direction:       dir,
		WallTime:        wallTime,
		MonotonicOffset: monotonicOffset,
		Protocol:        proto,
	}
}

// encode serializes e into a length-prefixed binary payload, the format
// every ChunkTypeEntry chunk carries.
func (e Entry) encode() []byte {
	var buf []byte
	buf = append(buf, e.ID.Bytes()...)
	buf = append(buf, byte(e.Direction[0])) // 'i' or 'o', first byte of "inbound"/"outbound" disambiguates
	buf = append(buf, byte(e.Protocol))

	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], uint64(e.WallTime.UnixNano()))
	buf = append(buf, tmp[:]...)
	binary.LittleEndian.PutUint64(tmp[:], uint64(e.MonotonicOffset))
	buf = append(buf, tmp[:]...)

	buf = appendLenPrefixed(buf, []byte(e.Peer))
	buf = appendLenPrefixed(buf, e.RawFrame)
	buf = appendLenPrefixed(buf, e.Decoded)

	var countBuf [2]byte
	binary.LittleEndian.PutUint16(countBuf[:], uint16(len(e.Metadata)))
	buf = append(buf, countBuf[:]...)
	for k, v := range e.Metadata {
		buf = appendLenPrefixed(buf, []byte(k))
		buf = appendLenPrefixed(buf, []byte(v))
	}
	return buf
}

func appendLenPrefixed(buf, data []byte) []byte {
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(data)))
	buf = append(buf, lenBuf[:]...)
	return append(buf, data...)
}

// decodeEntry parses a ChunkTypeEntry payload back into an Entry.
func decodeEntry(payload []byte) (Entry, error) {
	var e Entry
	r := &byteReader{buf: payload}

	idBytes, err := r.take(12)
	if err != nil {
		return Entry{}, err
	}
	id, err := xid.FromBytes(idBytes)
	if err != nil {
		return Entry{}, errs.Wrap(errs.KindIndexCorrupt, "malformed entry correlation id", err)
	}
	e.ID = id

	dirByte, err := r.byte1()
	if err != nil {
		return Entry{}, err
	}
	if dirByte == byte(transport.DirectionInbound[0]) {
		e.Direction = transport.DirectionInbound
	} else {
		e.Direction = transport.DirectionOutbound
	}

	protoByte, err := r.byte1()
	if err != nil {
		return Entry{}, err
	}
	e.Protocol = ProtocolKind(protoByte)

	wallNs, err := r.u64()
	if err != nil {
		return Entry{}, err
	}
	e.WallTime = time.Unix(0, int64(wallNs)).UTC()

	monoNs, err := r.u64()
	if err != nil {
		return Entry{}, err
	}
	e.MonotonicOffset = time.Duration(monoNs)

	peer, err := r.lenPrefixed()
	if err != nil {
		return Entry{}, err
	}
	e.Peer = string(peer)

	e.RawFrame, err = r.lenPrefixed()
	if err != nil {
		return Entry{}, err
	}
	e.Decoded, err = r.lenPrefixed()
	if err != nil {
		return Entry{}, err
	}

	count, err := r.u16()
	if err != nil {
		return Entry{}, err
	}
	if count > 0 {
		e.Metadata = make(map[string]string, count)
		for i := uint16(0); i < count; i++ {
			k, err := r.lenPrefixed()
			if err != nil {
				return Entry{}, err
			}
			v, err := r.lenPrefixed()
			if err != nil {
				return Entry{}, err
			}
			e.Metadata[string(k)] = string(v)
		}
	}

	return e, nil
}

// byteReader is a minimal bounds-checked cursor over a decode buffer;
// every read reports IndexCorrupt on underrun rather than panicking.
type byteReader struct {
	buf []byte
	pos int
}

func (r *byteReader) take(n int) ([]byte, error) {
	if r.pos+n > len(r.buf) {
		return nil, errs.New(errs.KindIndexCorrupt, "entry payload truncated")
	}
	out := r.buf[r.pos : r.pos+n]
	r.pos += n
	return out, nil
}

func (r *byteReader) byte1() (byte, error) {
	b, err := r.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *byteReader) u16() (uint16, error) {
	b, err := r.take(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (r *byteReader) u64() (uint64, error) {
	b, err := r.take(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (r *byteReader) lenPrefixed() ([]byte, error) {
	b, err := r.take(4)
	if err != nil {
		return nil, err
	}
	n := binary.LittleEndian.Uint32(b)
	return r.take(int(n))
}
