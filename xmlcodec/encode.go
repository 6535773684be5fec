package xmlcodec

import (
	"bytes"
	"sort"
	"strconv"
	"strings"

	"github.com/NERVsystems/takbridge/cot"
)

// Encode renders a CotEvent as a legacy CoT XML <event> payload using
// the default extension registry. Output is deterministic: detail
// children are emitted in the event's own order, attributes within
// each element are sorted lexicographically by local name, and
// floating point numbers use a fixed, locale-independent
// representation (strconv's 'f' format, shortest round-trippable
// precision).
//
// Output is built by hand rather than through encoding/xml's Encoder:
// Unknown and unregistered Extension children must be spliced back in
// verbatim (they were captured as already-serialized bytes), and
// encoding/xml has no supported way to inject raw markup into a token
// stream.
func Encode(ev cot.CotEvent) ([]byte, error) {
	return EncodeWithRegistry(ev, DefaultRegistry())
}

// EncodeWithRegistry is Encode with an explicit extension Registry.
func EncodeWithRegistry(ev cot.CotEvent, reg *Registry) ([]byte, error) {
	buf := getBuffer()
	defer putBuffer(buf)
	writeStartTag(buf, "event", map[string]string{
		"version": ev.Version(),
		"uid":     ev.Uid().String(),
		"type":    ev.Type().String(),
		"how":     ev.How(),
		"time":    ev.Time().RFC3339(),
		"start":   ev.Start().RFC3339(),
		"stale":   ev.Stale().RFC3339(),
	})
	writePoint(buf, ev.Point())
	if err := writeDetail(buf, reg, ev.Detail()); err != nil {
		return nil, err
	}
	writeEndTag(buf, "event")
	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())
	return out, nil
}

func writePoint(buf *bytes.Buffer, p cot.Position) {
	attrs := map[string]string{
		"lat": formatFloat(p.Lat()),
		"lon": formatFloat(p.Lon()),
	}
	if hae, ok := p.HAE(); ok {
		attrs["hae"] = formatFloat(hae)
	}
	if ce, ok := p.CE(); ok {
		attrs["ce"] = formatFloat(ce)
	}
	if le, ok := p.LE(); ok {
		attrs["le"] = formatFloat(le)
	}
	writeSelfClosingTag(buf, "point", attrs)
}

func writeDetail(buf *bytes.Buffer, reg *Registry, d cot.CotDetail) error {
	writeStartTag(buf, "detail", nil)
	for _, el := range d.Elements() {
		if err := writeDetailChild(buf, reg, el); err != nil {
			return err
		}
	}
	writeEndTag(buf, "detail")
	return nil
}

func writeDetailChild(buf *bytes.Buffer, reg *Registry, el cot.DetailElement) error {
	switch v := el.(type) {
	case cot.Contact:
		writeSelfClosingTag(buf, "contact", map[string]string{"callsign": v.Callsign, "endpoint": v.Endpoint})
	case cot.Group:
		writeSelfClosingTag(buf, "__group", map[string]string{"name": v.Name, "role": v.Role})
	case cot.Track:
		writeSelfClosingTag(buf, "track", map[string]string{
			"course": formatFloat(v.CourseDeg),
			"speed":  formatFloat(v.SpeedMps),
		})
	case cot.Status:
		writeSelfClosingTag(buf, "status", map[string]string{"battery": strconv.Itoa(v.BatteryPercent)})
	case cot.TakVersion:
		writeSelfClosingTag(buf, "takv", map[string]string{
			"device": v.Device, "platform": v.Platform, "os": v.OS, "version": v.Version,
		})
	case cot.Sensor:
		writeSelfClosingTag(buf, "sensor", map[string]string{
			"fov": formatFloat(v.FOVDeg), "vfov": formatFloat(v.VFOVDeg),
			"north": formatFloat(v.NorthDeg), "range": formatFloat(v.RangeM),
			"azimuth": formatFloat(v.AzimuthDeg),
		})
	case cot.Link:
		writeSelfClosingTag(buf, "link", map[string]string{"uid": v.Uid, "type": v.Type, "relation": v.Relation})
	case cot.Remarks:
		writeStartTag(buf, "remarks", map[string]string{"source": v.Source})
		buf.WriteString(escapeText(v.Text))
		writeEndTag(buf, "remarks")
	case cot.Shape:
		writeShape(buf, v)
	case cot.Geofence:
		writeSelfClosingTag(buf, "geofence", map[string]string{"trigger": v.Trigger, "monitor": v.Monitor})
	case cot.Drone:
		writeSelfClosingTag(buf, "drone", map[string]string{"category": v.Category, "registration": v.Registration})
	case cot.Provenance:
		writeProvenance(buf, v)
	case cot.Unknown:
		buf.Write(v.RawXML)
	case cot.Extension:
		return writeExtension(buf, reg, v)
	}
	return nil
}

func writeShape(buf *bytes.Buffer, s cot.Shape) {
	writeStartTag(buf, "shape", map[string]string{
		"type":   s.Type,
		"radius": formatFloat(s.RadiusM),
	})
	for _, p := range s.Points {
		writeSelfClosingTag(buf, "vertex", map[string]string{
			"lat": formatFloat(p.Lat()),
			"lon": formatFloat(p.Lon()),
		})
	}
	writeEndTag(buf, "shape")
}

func writeProvenance(buf *bytes.Buffer, p cot.Provenance) {
	writeStartTag(buf, "provenance", nil)
	for _, c := range p.Classifications {
		writeSelfClosingTag(buf, "class", map[string]string{
			"label":       c.Label,
			"probability": formatFloat(c.Probability),
		})
	}
	writeEndTag(buf, "provenance")
}

func writeExtension(buf *bytes.Buffer, reg *Registry, e cot.Extension) error {
	if reg != nil && e.Value != nil {
		if entry, ok := reg.lookup(e.Key); ok && entry.Encode != nil {
			attrs, err := entry.Encode(e.Value)
			if err == nil {
				writeSelfClosingTag(buf, e.Key, attrs)
				return nil
			}
		}
	}
	buf.Write(e.Raw)
	return nil
}

func writeStartTag(buf *bytes.Buffer, name string, attrs map[string]string) {
	buf.WriteByte('<')
	buf.WriteString(name)
	writeAttrs(buf, attrs)
	buf.WriteByte('>')
}

func writeSelfClosingTag(buf *bytes.Buffer, name string, attrs map[string]string) {
	buf.WriteByte('<')
	buf.WriteString(name)
	writeAttrs(buf, attrs)
	buf.WriteString("/>")
}

func writeEndTag(buf *bytes.Buffer, name string) {
	buf.WriteString("</")
	buf.WriteString(name)
	buf.WriteByte('>')
}

func writeAttrs(buf *bytes.Buffer, attrs map[string]string) {
	for _, k := range sortedKeys(attrs) {
		buf.WriteByte(' ')
		buf.WriteString(k)
		buf.WriteString(`="`)
		buf.WriteString(escapeAttr(attrs[k]))
		buf.WriteByte('"')
	}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k, v := range m {
		if v == "" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

var attrEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"\n", "&#10;",
	"\t", "&#9;",
)

var textEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
)

func escapeAttr(s string) string { return attrEscaper.Replace(s) }

func escapeText(s string) string { return textEscaper.Replace(s) }

// formatFloat renders f using a fixed, locale-independent
// representation: plain decimal notation, shortest form that
// round-trips exactly.
func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
