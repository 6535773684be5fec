package sapient

import (
	"math"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/NERVsystems/takbridge/errs"
)

// The appendXxx/fieldReader pair here mirrors takproto/wire.go's
// convention for the same reason: protowire exposes tag/varint/fixed
// primitives but no message-level codegen, and SAPIENT's wire shape
// (strings, a double, varints, nested messages, repeated fields) is
// the same shape takproto already solves.

func appendString(b []byte, num protowire.Number, v string) []byte {
	if v == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, v)
}

func appendDouble(b []byte, num protowire.Number, v float64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.Fixed64Type)
	return protowire.AppendFixed64(b, math.Float64bits(v))
}

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendBool(b []byte, num protowire.Number, v bool) []byte {
	if !v {
		return b
	}
	return appendVarint(b, num, 1)
}

func appendMessage(b []byte, num protowire.Number, inner []byte) []byte {
	if len(inner) == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, inner)
}

type fieldReader struct {
	buf []byte
}

func newFieldReader(buf []byte) *fieldReader { return &fieldReader{buf: buf} }

func (r *fieldReader) done() bool { return len(r.buf) == 0 }

func (r *fieldReader) next() (num protowire.Number, typ protowire.Type, val []byte, n int64, err error) {
	num, typ, tagLen := protowire.ConsumeTag(r.buf)
	if tagLen < 0 {
		return 0, 0, nil, 0, errs.New(errs.KindSchemaMismatch, "malformed sapient tag")
	}
	r.buf = r.buf[tagLen:]

	switch typ {
	case protowire.VarintType:
		v, l := protowire.ConsumeVarint(r.buf)
		if l < 0 {
			return 0, 0, nil, 0, errs.New(errs.KindSchemaMismatch, "malformed sapient varint field")
		}
		r.buf = r.buf[l:]
		return num, typ, nil, int64(v), nil
	case protowire.Fixed64Type:
		v, l := protowire.ConsumeFixed64(r.buf)
		if l < 0 {
			return 0, 0, nil, 0, errs.New(errs.KindSchemaMismatch, "malformed sapient fixed64 field")
		}
		r.buf = r.buf[l:]
		return num, typ, nil, int64(v), nil
	case protowire.BytesType:
		v, l := protowire.ConsumeBytes(r.buf)
		if l < 0 {
			return 0, 0, nil, 0, errs.New(errs.KindSchemaMismatch, "malformed sapient bytes field")
		}
		r.buf = r.buf[l:]
		return num, typ, v, 0, nil
	default:
		l := protowire.ConsumeFieldValue(num, typ, r.buf)
		if l < 0 {
			return 0, 0, nil, 0, errs.New(errs.KindSchemaMismatch, "malformed sapient field")
		}
		r.buf = r.buf[l:]
		return num, typ, nil, 0, nil
	}
}

func bitsToFloat(v int64) float64 { return math.Float64frombits(uint64(v)) }
