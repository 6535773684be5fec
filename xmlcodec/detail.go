package xmlcodec

import (
	"bytes"
	"encoding/xml"
	"io"

	"github.com/NERVsystems/takbridge/cot"
	"github.com/NERVsystems/takbridge/errs"
)

// decodeDetail walks the children of an already-consumed <detail>
// StartElement into a cot.CotDetail, preserving order. maxElements
// bounds the number of immediate children; count lets the bound be
// shared across repeated calls within a single Decode (there is
// exactly one <detail> per event, but the shared counter keeps the
// check in one place alongside the XML scan budget).
func decodeDetail(dec xml.TokenReader, reg *Registry, maxElements int, count *int) (cot.CotDetail, error) {
	var elements []cot.DetailElement
	for {
		tok, err := dec.Token()
		if err != nil {
			return cot.CotDetail{}, wrapTokenErr(err)
		}
		switch el := tok.(type) {
		case xml.EndElement:
			if el.Name.Local == "detail" {
				return cot.NewCotDetail(elements...), nil
			}
		case xml.StartElement:
			*count++
			if maxElements > 0 && *count > maxElements {
				return cot.CotDetail{}, errs.New(errs.KindDetailBudget, "detail element budget exceeded")
			}
			de, err := decodeDetailChild(dec, reg, el)
			if err != nil {
				return cot.CotDetail{}, err
			}
			elements = append(elements, de)
		}
	}
}

func decodeDetailChild(dec xml.TokenReader, reg *Registry, el xml.StartElement) (cot.DetailElement, error) {
	attrs := attrMap(el.Attr)

	switch el.Name.Local {
	case "contact":
		if err := skipElement(dec); err != nil {
			return nil, err
		}
		return cot.Contact{Callsign: attrs["callsign"], Endpoint: attrs["endpoint"]}, nil
	case "__group":
		if err := skipElement(dec); err != nil {
			return nil, err
		}
		return cot.Group{Name: attrs["name"], Role: attrs["role"]}, nil
	case "track":
		if err := skipElement(dec); err != nil {
			return nil, err
		}
		course, _, _ := parseFloatAttr(attrs, "course", false)
		speed, _, _ := parseFloatAttr(attrs, "speed", false)
		return cot.Track{CourseDeg: course, SpeedMps: speed}, nil
	case "status":
		if err := skipElement(dec); err != nil {
			return nil, err
		}
		battery, _, _ := parseFloatAttr(attrs, "battery", false)
		return cot.Status{BatteryPercent: int(battery)}, nil
	case "takv":
		if err := skipElement(dec); err != nil {
			return nil, err
		}
		return cot.TakVersion{
			Device:   attrs["device"],
			Platform: attrs["platform"],
			OS:       attrs["os"],
			Version:  attrs["version"],
		}, nil
	case "sensor":
		if err := skipElement(dec); err != nil {
			return nil, err
		}
		fov, _, _ := parseFloatAttr(attrs, "fov", false)
		vfov, _, _ := parseFloatAttr(attrs, "vfov", false)
		north, _, _ := parseFloatAttr(attrs, "north", false)
		rng, _, _ := parseFloatAttr(attrs, "range", false)
		az, _, _ := parseFloatAttr(attrs, "azimuth", false)
		return cot.Sensor{FOVDeg: fov, VFOVDeg: vfov, NorthDeg: north, RangeM: rng, AzimuthDeg: az}, nil
	case "link":
		if err := skipElement(dec); err != nil {
			return nil, err
		}
		return cot.Link{Uid: attrs["uid"], Type: attrs["type"], Relation: attrs["relation"]}, nil
	case "remarks":
		text, err := readCharData(dec, "remarks")
		if err != nil {
			return nil, err
		}
		return cot.Remarks{Text: text, Source: attrs["source"]}, nil
	case "shape":
		return decodeShape(dec, attrs)
	case "geofence":
		if err := skipElement(dec); err != nil {
			return nil, err
		}
		return cot.Geofence{Trigger: attrs["trigger"], Monitor: attrs["monitor"]}, nil
	case "drone":
		if err := skipElement(dec); err != nil {
			return nil, err
		}
		return cot.Drone{Category: attrs["category"], Registration: attrs["registration"]}, nil
	case "provenance":
		return decodeProvenance(dec)
	default:
		if el.Name.Space != "" {
			raw, err := captureRaw(dec, el)
			if err != nil {
				return nil, err
			}
			return cot.Unknown{XMLName: el.Name.Space + ":" + el.Name.Local, RawXML: raw}, nil
		}
		return decodeExtension(dec, reg, el, attrs)
	}
}

func decodeExtension(dec xml.TokenReader, reg *Registry, el xml.StartElement, attrs map[string]string) (cot.DetailElement, error) {
	raw, err := captureRaw(dec, el)
	if err != nil {
		return nil, err
	}
	if reg != nil {
		if entry, ok := reg.lookup(el.Name.Local); ok && entry.Decode != nil {
			v, err := entry.Decode(attrs)
			if err != nil {
				return nil, errs.Wrap(errs.KindInvalidField, "extension decode failed: "+el.Name.Local, err)
			}
			return cot.Extension{Key: el.Name.Local, Value: v, Raw: raw}, nil
		}
	}
	return cot.Extension{Key: el.Name.Local, Raw: raw}, nil
}

func decodeShape(dec xml.TokenReader, attrs map[string]string) (cot.DetailElement, error) {
	radius, _, _ := parseFloatAttr(attrs, "radius", false)
	shape := cot.Shape{Type: attrs["type"], RadiusM: radius}
	var points []cot.Position
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, wrapTokenErr(err)
		}
		switch t := tok.(type) {
		case xml.EndElement:
			if t.Name.Local == "shape" {
				shape.Points = points
				return shape, nil
			}
		case xml.StartElement:
			if t.Name.Local == "vertex" {
				pAttrs := attrMap(t.Attr)
				lat, _, err := parseFloatAttr(pAttrs, "lat", true)
				if err != nil {
					return nil, err
				}
				lon, _, err := parseFloatAttr(pAttrs, "lon", true)
				if err != nil {
					return nil, err
				}
				pos, err := cot.NewPosition(lat, lon)
				if err != nil {
					return nil, err
				}
				points = append(points, pos)
				if err := skipElement(dec); err != nil {
					return nil, err
				}
			} else if err := skipElement(dec); err != nil {
				return nil, err
			}
		}
	}
}

func decodeProvenance(dec xml.TokenReader) (cot.DetailElement, error) {
	var classes []cot.ClassProbability
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, wrapTokenErr(err)
		}
		switch t := tok.(type) {
		case xml.EndElement:
			if t.Name.Local == "provenance" {
				return cot.Provenance{Classifications: classes}, nil
			}
		case xml.StartElement:
			if t.Name.Local == "class" {
				attrs := attrMap(t.Attr)
				p, _, _ := parseFloatAttr(attrs, "probability", false)
				classes = append(classes, cot.ClassProbability{Label: attrs["label"], Probability: p})
			}
			if err := skipElement(dec); err != nil {
				return nil, err
			}
		}
	}
}

// readCharData reads character data up to the matching end element,
// concatenating multiple CharData tokens (which encoding/xml may split
// across reads).
func readCharData(dec xml.TokenReader, localName string) (string, error) {
	var buf bytes.Buffer
	for {
		tok, err := dec.Token()
		if err != nil {
			return "", wrapTokenErr(err)
		}
		switch t := tok.(type) {
		case xml.CharData:
			buf.Write(t)
		case xml.EndElement:
			if t.Name.Local == localName {
				return buf.String(), nil
			}
		case xml.StartElement:
			if err := skipElement(dec); err != nil {
				return "", err
			}
		}
	}
}

// captureRaw replays the subtree rooted at the already-consumed start
// element el back through an xml.Encoder, yielding an XML
// representation equivalent to (though not necessarily byte-identical
// with) the source; byte-identical preservation is not attempted.
func captureRaw(dec xml.TokenReader, el xml.StartElement) ([]byte, error) {
	var buf bytes.Buffer
	enc := xml.NewEncoder(&buf)
	if err := enc.EncodeToken(el); err != nil {
		return nil, err
	}
	depth := 1
	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			if err == io.EOF {
				return nil, errs.New(errs.KindInvalidField, "unexpected eof capturing detail element")
			}
			return nil, wrapTokenErr(err)
		}
		switch tok.(type) {
		case xml.StartElement:
			depth++
		case xml.EndElement:
			depth--
		}
		if err := enc.EncodeToken(tok); err != nil {
			return nil, err
		}
	}
	if err := enc.Flush(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
