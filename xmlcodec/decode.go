package xmlcodec

import (
	"encoding/xml"
	"io"
	"strconv"

	"github.com/NERVsystems/takbridge/cot"
	"github.com/NERVsystems/takbridge/errs"
	"github.com/NERVsystems/takbridge/limits"
)

// Decode parses a single XML <event> payload into a cot.CotEvent using
// the default extension registry, enforcing lims.MaxXMLScanBytes and
// lims.MaxDetailElements.
func Decode(data []byte, lims limits.Limits) (cot.CotEvent, error) {
	return DecodeWithRegistry(data, lims, DefaultRegistry())
}

// DecodeWithRegistry is Decode with an explicit extension Registry.
func DecodeWithRegistry(data []byte, lims limits.Limits, reg *Registry) (cot.CotEvent, error) {
	pd := getDecoder(data)
	defer putDecoder(pd)
	secure := xml.NewTokenDecoder(&boundedTokenReader{dec: pd.dec, maxScanBytes: int64(lims.MaxXMLScanBytes)})

	start, err := nextStart(secure)
	if err != nil {
		return cot.CotEvent{}, err
	}
	if start.Name.Local != "event" {
		return cot.CotEvent{}, errs.Field(errs.KindInvalidField, "event", "root element is not <event>")
	}

	attrs := attrMap(start.Attr)
	params := cot.EventParams{
		Version: attrs["version"],
		How:     attrs["how"],
	}

	uid, err := cot.NewUid(attrs["uid"])
	if err != nil {
		return cot.CotEvent{}, err
	}
	params.Uid = uid

	ct, err := cot.ParseCotType(attrs["type"])
	if err != nil {
		return cot.CotEvent{}, err
	}
	params.Type = ct

	if params.Time, err = parseTimestampAttr(attrs, "time"); err != nil {
		return cot.CotEvent{}, err
	}
	if params.Start, err = parseTimestampAttr(attrs, "start"); err != nil {
		return cot.CotEvent{}, err
	}
	if params.Stale, err = parseTimestampAttr(attrs, "stale"); err != nil {
		return cot.CotEvent{}, err
	}

	var sawPoint bool
	var detailCount int

loop:
	for {
		tok, err := secure.Token()
		if err != nil {
			if err == io.EOF {
				break loop
			}
			return cot.CotEvent{}, wrapTokenErr(err)
		}
		switch el := tok.(type) {
		case xml.StartElement:
			switch el.Name.Local {
			case "point":
				p, err := decodePoint(el)
				if err != nil {
					return cot.CotEvent{}, err
				}
				params.Point = p
				sawPoint = true
			case "detail":
				d, err := decodeDetail(secure, reg, int(lims.MaxDetailElements), &detailCount)
				if err != nil {
					return cot.CotEvent{}, err
				}
				params.Detail = d
			default:
				if err := skipElement(secure); err != nil {
					return cot.CotEvent{}, err
				}
			}
		case xml.EndElement:
			if el.Name.Local == "event" {
				break loop
			}
		}
	}

	if !sawPoint {
		return cot.CotEvent{}, errs.Field(errs.KindInvalidField, "point", "event missing required <point>")
	}
	return cot.NewEvent(params)
}

func attrMap(attrs []xml.Attr) map[string]string {
	m := make(map[string]string, len(attrs))
	for _, a := range attrs {
		m[a.Name.Local] = a.Value
	}
	return m
}

func parseTimestampAttr(attrs map[string]string, name string) (cot.Timestamp, error) {
	v, ok := attrs[name]
	if !ok || v == "" {
		return cot.Timestamp{}, errs.Field(errs.KindInvalidField, name, "missing required time attribute")
	}
	ts, err := cot.ParseRFC3339(v)
	if err != nil {
		return cot.Timestamp{}, errs.Field(errs.KindInvalidField, name, err.Error())
	}
	return ts, nil
}

func parseFloatAttr(attrs map[string]string, name string, required bool) (float64, bool, error) {
	v, ok := attrs[name]
	if !ok || v == "" {
		if required {
			return 0, false, errs.Field(errs.KindInvalidField, name, "missing required attribute")
		}
		return 0, false, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false, errs.Field(errs.KindInvalidField, name, "not a number: "+v)
	}
	return f, true, nil
}

func decodePoint(el xml.StartElement) (cot.Position, error) {
	attrs := attrMap(el.Attr)
	lat, _, err := parseFloatAttr(attrs, "lat", true)
	if err != nil {
		return cot.Position{}, err
	}
	lon, _, err := parseFloatAttr(attrs, "lon", true)
	if err != nil {
		return cot.Position{}, err
	}
	hae, haeSet, err := parseFloatAttr(attrs, "hae", false)
	if err != nil {
		return cot.Position{}, err
	}
	ce, ceSet, err := parseFloatAttr(attrs, "ce", false)
	if err != nil {
		return cot.Position{}, err
	}
	le, leSet, err := parseFloatAttr(attrs, "le", false)
	if err != nil {
		return cot.Position{}, err
	}
	return cot.NewPositionFull(lat, lon, hae, haeSet, ce, ceSet, le, leSet)
}

// nextStart skips leading non-element tokens (e.g. a processing
// instruction or whitespace) and returns the first StartElement.
func nextStart(dec xml.TokenReader) (xml.StartElement, error) {
	for {
		tok, err := dec.Token()
		if err != nil {
			return xml.StartElement{}, wrapTokenErr(err)
		}
		if se, ok := tok.(xml.StartElement); ok {
			return se, nil
		}
	}
}

// skipElement consumes tokens up to and including the matching
// EndElement for a StartElement already consumed.
func skipElement(dec xml.TokenReader) error {
	depth := 1
	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			return wrapTokenErr(err)
		}
		switch tok.(type) {
		case xml.StartElement:
			depth++
		case xml.EndElement:
			depth--
		}
	}
	return nil
}

func wrapTokenErr(err error) error {
	if xe, ok := err.(*errs.Error); ok {
		return xe
	}
	return errs.Wrap(errs.KindInvalidField, "malformed xml", err)
}
