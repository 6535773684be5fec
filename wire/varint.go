package wire

import (
	"bufio"

	"github.com/NERVsystems/takbridge/errs"
)

// maxVarintBytes bounds the varint encoding at 10 bytes: 10*7 = 70 bits
// of payload is enough to reject any value that does not fit in a
// uint64, per the boundary case in the specification (varint of 2^64
// is rejected as overflow).
const maxVarintBytes = 10

// ReadVarint reads an unsigned LEB128 varint (7 bits per byte,
// little-endian group order, MSB continuation bit) from r, rejecting
// encodings longer than maxVarintBytes or whose value overflows
// uint64.
func ReadVarint(r *bufio.Reader) (uint64, error) {
	var result uint64
	var shift uint
	for i := 0; i < maxVarintBytes; i++ {
		b, err := r.ReadByte()
		if err != nil {
			return 0, errs.Wrap(errs.KindVarintOverflow, "varint read failed", err)
		}
		if shift == 63 && b > 1 {
			// 10th byte may only contribute a single extra bit.
			return 0, errs.New(errs.KindVarintOverflow, "varint exceeds uint64 range")
		}
		result |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			return result, nil
		}
		shift += 7
	}
	return 0, errs.New(errs.KindVarintOverflow, "varint exceeds maximum 10-byte encoding")
}

// AppendVarint appends v to b as an unsigned LEB128 varint.
func AppendVarint(b []byte, v uint64) []byte {
	for v >= 0x80 {
		b = append(b, byte(v)|0x80)
		v >>= 7
	}
	return append(b, byte(v))
}

// DecodeVarintBytes decodes a varint from the start of b (used for
// already-buffered datagrams, where there is no stream to read
// incrementally), returning the value and the number of bytes consumed.
func DecodeVarintBytes(b []byte) (value uint64, n int, err error) {
	var shift uint
	for n = 0; n < maxVarintBytes; n++ {
		if n >= len(b) {
			return 0, 0, errs.New(errs.KindVarintOverflow, "truncated varint")
		}
		c := b[n]
		if shift == 63 && c > 1 {
			return 0, 0, errs.New(errs.KindVarintOverflow, "varint exceeds uint64 range")
		}
		value |= uint64(c&0x7f) << shift
		if c&0x80 == 0 {
			return value, n + 1, nil
		}
		shift += 7
	}
	return 0, 0, errs.New(errs.KindVarintOverflow, "varint exceeds maximum 10-byte encoding")
}
