package xmlcodec

import (
	"strconv"
	"sync"
)

// ExtensionDecoder builds a typed value from a detail child element's
// flat attribute map. Nested child elements are not supported by the
// registry path; register a hand-written case in decodeDetailChild
// instead if an extension needs them.
type ExtensionDecoder func(attrs map[string]string) (any, error)

// ExtensionEncoder renders a typed value back into a flat attribute map.
type ExtensionEncoder func(v any) (map[string]string, error)

// ExtensionEntry pairs the decode/encode functions registered for one
// detail element key (its XML local name).
type ExtensionEntry struct {
	Decode ExtensionDecoder
	Encode ExtensionEncoder
}

// Registry holds the known-extension table consulted by decodeDetail
// for same-namespace detail children that are not one of the
// hardcoded core kinds (contact, group, track, ...). A key with no
// registry entry still round-trips, as an Extension with a nil Value
// and its raw bytes preserved.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]ExtensionEntry
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]ExtensionEntry)}
}

// Register installs the codec for the given element key, overwriting
// any existing entry.
func (r *Registry) Register(key string, e ExtensionEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[key] = e
}

func (r *Registry) lookup(key string) (ExtensionEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[key]
	return e, ok
}

var (
	defaultRegistryOnce sync.Once
	defaultRegistry     *Registry
)

// DefaultRegistry returns the package-level registry seeded with the
// extensions this bridge understands out of the box. Callers needing
// additional extensions should build their own Registry with
// NewRegistry and pass it to DecodeWithRegistry/EncodeWithRegistry
// rather than mutating the default from multiple goroutines.
func DefaultRegistry() *Registry {
	defaultRegistryOnce.Do(func() {
		defaultRegistry = NewRegistry()
		defaultRegistry.Register("precisionlocation", ExtensionEntry{
			Decode: func(attrs map[string]string) (any, error) {
				return PrecisionLocation{
					GeoPointSrc: attrs["geopointsrc"],
					AltSrc:      attrs["altsrc"],
				}, nil
			},
			Encode: func(v any) (map[string]string, error) {
				pl, _ := v.(PrecisionLocation)
				return map[string]string{
					"geopointsrc": pl.GeoPointSrc,
					"altsrc":      pl.AltSrc,
				}, nil
			},
		})
		defaultRegistry.Register("takpSupportOffer", ExtensionEntry{
			Decode: func(attrs map[string]string) (any, error) {
				return SupportOffer{
					ProtoUid:   attrs["protouid"],
					MinVersion: parseUint32(attrs["minver"]),
					MaxVersion: parseUint32(attrs["maxver"]),
				}, nil
			},
			Encode: func(v any) (map[string]string, error) {
				o, _ := v.(SupportOffer)
				return map[string]string{
					"protouid": o.ProtoUid,
					"minver":   strconv.FormatUint(uint64(o.MinVersion), 10),
					"maxver":   strconv.FormatUint(uint64(o.MaxVersion), 10),
				}, nil
			},
		})
		defaultRegistry.Register("takpResponse", ExtensionEntry{
			Decode: func(attrs map[string]string) (any, error) {
				return ProtocolResponse{
					ProtoUid: attrs["protouid"],
					Accept:   attrs["accept"] == "true",
					Version:  parseUint32(attrs["version"]),
				}, nil
			},
			Encode: func(v any) (map[string]string, error) {
				r, _ := v.(ProtocolResponse)
				return map[string]string{
					"protouid": r.ProtoUid,
					"accept":   strconv.FormatBool(r.Accept),
					"version":  strconv.FormatUint(uint64(r.Version), 10),
				}, nil
			},
		})
		defaultRegistry.Register("takpMeshAdvert", ExtensionEntry{
			Decode: func(attrs map[string]string) (any, error) {
				return MeshAdvert{
					MinVersion: parseUint32(attrs["minver"]),
					MaxVersion: parseUint32(attrs["maxver"]),
				}, nil
			},
			Encode: func(v any) (map[string]string, error) {
				a, _ := v.(MeshAdvert)
				return map[string]string{
					"minver": strconv.FormatUint(uint64(a.MinVersion), 10),
					"maxver": strconv.FormatUint(uint64(a.MaxVersion), 10),
				}, nil
			},
		})
	})
	return defaultRegistry
}

func parseUint32(s string) uint32 {
	v, _ := strconv.ParseUint(s, 10, 32)
	return uint32(v)
}

// PrecisionLocation is the well-known "precisionlocation" detail
// extension carrying the provenance of the point's horizontal and
// vertical sources (e.g. "GPS", "USER").
type PrecisionLocation struct {
	GeoPointSrc string
	AltSrc      string
}

// SupportOffer is the detail payload of a TakProtocolSupport control
// event: the correlation id for the handshake and the offering node's
// supported version range.
type SupportOffer struct {
	ProtoUid   string
	MinVersion uint32
	MaxVersion uint32
}

// ProtocolResponse is the detail payload of a TakResponse control
// event: whether the peer accepts the upgrade and, if so, the chosen
// version.
type ProtocolResponse struct {
	ProtoUid string
	Accept   bool
	Version  uint32
}

// MeshAdvert is the detail payload of a TakControl mesh advertisement:
// the advertising node's supported version range.
type MeshAdvert struct {
	MinVersion uint32
	MaxVersion uint32
}
