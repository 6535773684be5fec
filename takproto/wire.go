package takproto

import (
	"math"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/NERVsystems/takbridge/errs"
)

// appendString appends a length-delimited string field, omitted entirely if empty.
func appendString(b []byte, num protowire.Number, v string) []byte {
	if v == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, v)
}

// appendBytes appends a length-delimited bytes field, omitted if empty.
func appendBytes(b []byte, num protowire.Number, v []byte) []byte {
	if len(v) == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

// appendDouble appends a fixed64 field, omitted if v == 0.
func appendDouble(b []byte, num protowire.Number, v float64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.Fixed64Type)
	return protowire.AppendFixed64(b, math.Float64bits(v))
}

// appendVarint appends an unsigned varint field, omitted if v == 0.
func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

// appendSVarint appends a zigzag-encoded signed varint field, omitted if v == 0.
func appendSVarint(b []byte, num protowire.Number, v int64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, protowire.EncodeZigZag(v))
}

// appendBool appends a varint-encoded bool field, omitted if false.
func appendBool(b []byte, num protowire.Number, v bool) []byte {
	if !v {
		return b
	}
	return appendVarint(b, num, 1)
}

// appendMessage appends a nested message field, omitted if inner is empty.
func appendMessage(b []byte, num protowire.Number, inner []byte) []byte {
	if len(inner) == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, inner)
}

// fieldReader walks a protobuf message payload field by field. It
// enforces no size budget of its own; Decode checks the payload size
// before reading.
type fieldReader struct {
	buf []byte
}

func newFieldReader(buf []byte) *fieldReader { return &fieldReader{buf: buf} }

func (r *fieldReader) done() bool { return len(r.buf) == 0 }

// next returns the next field's number and wire type, plus its raw value
// bytes (for BytesType) or its scalar value in n (for varint and fixed64
// fields), advancing the reader past the field.
func (r *fieldReader) next() (num protowire.Number, typ protowire.Type, val []byte, n int64, err error) {
	num, typ, tagLen := protowire.ConsumeTag(r.buf)
	if tagLen < 0 {
		return 0, 0, nil, 0, errs.New(errs.KindSchemaMismatch, "malformed field tag")
	}
	r.buf = r.buf[tagLen:]

	switch typ {
	case protowire.VarintType:
		v, n := protowire.ConsumeVarint(r.buf)
		if n < 0 {
			return 0, 0, nil, 0, errs.New(errs.KindSchemaMismatch, "malformed varint field")
		}
		r.buf = r.buf[n:]
		return num, typ, nil, int64(v), nil
	case protowire.Fixed64Type:
		v, n := protowire.ConsumeFixed64(r.buf)
		if n < 0 {
			return 0, 0, nil, 0, errs.New(errs.KindSchemaMismatch, "malformed fixed64 field")
		}
		r.buf = r.buf[n:]
		return num, typ, nil, int64(v), nil
	case protowire.BytesType:
		v, n := protowire.ConsumeBytes(r.buf)
		if n < 0 {
			return 0, 0, nil, 0, errs.New(errs.KindSchemaMismatch, "malformed length-delimited field")
		}
		r.buf = r.buf[n:]
		return num, typ, v, 0, nil
	default:
		n := protowire.ConsumeFieldValue(num, typ, r.buf)
		if n < 0 {
			return 0, 0, nil, 0, errs.New(errs.KindSchemaMismatch, "malformed field")
		}
		r.buf = r.buf[n:]
		return num, typ, nil, 0, nil
	}
}

func bitsToFloat(v int64) float64 { return math.Float64frombits(uint64(v)) }
