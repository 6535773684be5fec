package takproto

import (
	"time"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/NERVsystems/takbridge/cot"
	"github.com/NERVsystems/takbridge/errs"
	"github.com/NERVsystems/takbridge/limits"
)

func unixNano(nanos int64) time.Time {
	return time.Unix(0, nanos).UTC()
}

const (
	fieldVersion protowire.Number = 1
	fieldUid     protowire.Number = 2
	fieldType    protowire.Number = 3
	fieldHow     protowire.Number = 4
	fieldTime    protowire.Number = 5
	fieldStart   protowire.Number = 6
	fieldStale   protowire.Number = 7
	fieldPoint   protowire.Number = 8
	fieldDetail  protowire.Number = 9
)

const (
	fieldPointLat    protowire.Number = 1
	fieldPointLon    protowire.Number = 2
	fieldPointHae    protowire.Number = 3
	fieldPointHaeSet protowire.Number = 4
	fieldPointCe     protowire.Number = 5
	fieldPointCeSet  protowire.Number = 6
	fieldPointLe     protowire.Number = 7
	fieldPointLeSet  protowire.Number = 8
)

// Encode renders ev as a TAK Protocol v1 protobuf payload. Field order
// is always ascending and zero-valued optional fields are omitted, so
// encoding is canonical: equal events always produce identical bytes.
func Encode(ev cot.CotEvent) ([]byte, error) {
	var b []byte
	b = appendString(b, fieldVersion, ev.Version())
	b = appendString(b, fieldUid, ev.Uid().String())
	b = appendString(b, fieldType, ev.Type().String())
	b = appendString(b, fieldHow, ev.How())
	b = appendSVarint(b, fieldTime, ev.Time().Time().UnixNano())
	b = appendSVarint(b, fieldStart, ev.Start().Time().UnixNano())
	b = appendSVarint(b, fieldStale, ev.Stale().Time().UnixNano())
	b = appendMessage(b, fieldPoint, encodePoint(ev.Point()))
	for _, el := range ev.Detail().Elements() {
		inner, err := encodeDetailElement(el)
		if err != nil {
			return nil, err
		}
		b = appendMessage(b, fieldDetail, inner)
	}
	return b, nil
}

func encodePoint(p cot.Position) []byte {
	var b []byte
	b = appendDouble(b, fieldPointLat, p.Lat())
	b = appendDouble(b, fieldPointLon, p.Lon())
	if hae, ok := p.HAE(); ok {
		b = appendDouble(b, fieldPointHae, hae)
		b = appendBool(b, fieldPointHaeSet, true)
	}
	if ce, ok := p.CE(); ok {
		b = appendDouble(b, fieldPointCe, ce)
		b = appendBool(b, fieldPointCeSet, true)
	}
	if le, ok := p.LE(); ok {
		b = appendDouble(b, fieldPointLe, le)
		b = appendBool(b, fieldPointLeSet, true)
	}
	return b
}

// Decode parses a TAK Protocol v1 payload into a cot.CotEvent, failing
// with KindProtoBudget if data exceeds lims.MaxProtobufBytes, with
// KindSchemaMismatch on malformed field encodings or a missing
// required field (uid, type, point), and with whatever KindOutOfRange/
// KindInvalidField error the cot package's validating constructors
// return for an out-of-range scalar.
func Decode(data []byte, lims limits.Limits) (cot.CotEvent, error) {
	if uint64(len(data)) > lims.MaxProtobufBytes {
		return cot.CotEvent{}, errs.New(errs.KindProtoBudget, "protobuf payload exceeds max_protobuf_bytes")
	}

	var params cot.EventParams
	var pointBytes []byte
	var sawPoint bool
	var detailBytes [][]byte

	r := newFieldReader(data)
	for !r.done() {
		num, typ, val, n, err := r.next()
		if err != nil {
			return cot.CotEvent{}, err
		}
		switch num {
		case fieldVersion:
			params.Version = string(val)
		case fieldUid:
			uid, err := cot.NewUid(string(val))
			if err != nil {
				return cot.CotEvent{}, err
			}
			params.Uid = uid
		case fieldType:
			ct, err := cot.ParseCotType(string(val))
			if err != nil {
				return cot.CotEvent{}, err
			}
			params.Type = ct
		case fieldHow:
			params.How = string(val)
		case fieldTime:
			params.Time = cot.NewTimestamp(unixNano(protowire.DecodeZigZag(uint64(n))))
		case fieldStart:
			params.Start = cot.NewTimestamp(unixNano(protowire.DecodeZigZag(uint64(n))))
		case fieldStale:
			params.Stale = cot.NewTimestamp(unixNano(protowire.DecodeZigZag(uint64(n))))
		case fieldPoint:
			pointBytes = val
			sawPoint = true
		case fieldDetail:
			detailBytes = append(detailBytes, val)
		default:
			_ = typ // unknown field already skipped by fieldReader
		}
	}

	if params.Uid == "" {
		return cot.CotEvent{}, errs.Field(errs.KindSchemaMismatch, "uid", "missing required field")
	}
	if params.Type.String() == "" {
		return cot.CotEvent{}, errs.Field(errs.KindSchemaMismatch, "type", "missing required field")
	}
	if !sawPoint {
		return cot.CotEvent{}, errs.Field(errs.KindSchemaMismatch, "point", "missing required field")
	}

	point, err := decodePoint(pointBytes)
	if err != nil {
		return cot.CotEvent{}, err
	}
	params.Point = point

	elements := make([]cot.DetailElement, 0, len(detailBytes))
	for _, db := range detailBytes {
		el, err := decodeDetailElement(db)
		if err != nil {
			return cot.CotEvent{}, err
		}
		elements = append(elements, el)
	}
	params.Detail = cot.NewCotDetail(elements...)

	return cot.NewEvent(params)
}

func decodePoint(data []byte) (cot.Position, error) {
	var lat, lon, hae, ce, le float64
	var haeSet, ceSet, leSet bool

	r := newFieldReader(data)
	for !r.done() {
		num, _, _, n, err := r.next()
		if err != nil {
			return cot.Position{}, err
		}
		switch num {
		case fieldPointLat:
			lat = bitsToFloat(n)
		case fieldPointLon:
			lon = bitsToFloat(n)
		case fieldPointHae:
			hae = bitsToFloat(n)
		case fieldPointHaeSet:
			haeSet = n != 0
		case fieldPointCe:
			ce = bitsToFloat(n)
		case fieldPointCeSet:
			ceSet = n != 0
		case fieldPointLe:
			le = bitsToFloat(n)
		case fieldPointLeSet:
			leSet = n != 0
		}
	}
	return cot.NewPositionFull(lat, lon, hae, haeSet, ce, ceSet, le, leSet)
}
