// Package limits is the single source of truth for the resource-budget
// contract consumed by every boundary in the bridge: the XML codec, the
// TAK Protocol v1 codec, the wire framing readers, the SAPIENT session
// reader, and the transport send queues. No boundary invents its own
// budget; every one is constructed with (or defaults to) a *Limits.
package limits

import "github.com/NERVsystems/takbridge/errs"

// Limits is the validated resource-budget contract. All fields are
// non-zero positive integers; see Validate for the cross-field
// invariants.
type Limits struct {
	// MaxFrameBytes bounds any single wire frame (legacy XML event,
	// TAK Protocol v1 streaming/mesh payload).
	MaxFrameBytes uint64
	// MaxXMLScanBytes bounds how many bytes the legacy XML delimiter
	// scanner and the bounded XML decoder will consume looking for a
	// complete <event>...</event>.
	MaxXMLScanBytes uint64
	// MaxProtobufBytes bounds a single TAK Protocol v1 or SAPIENT
	// protobuf payload before it is decoded.
	MaxProtobufBytes uint64
	// MaxQueueMessages bounds the number of messages a transport send
	// queue may hold.
	MaxQueueMessages uint64
	// MaxQueueBytes bounds the total payload bytes a transport send
	// queue may hold.
	MaxQueueBytes uint64
	// MaxDetailElements bounds the number of CoT detail child elements
	// accepted by the XML codec.
	MaxDetailElements uint64
}

// ConservativeDefaults returns the profile named in the specification:
// 1 MiB frame, 1 MiB XML scan, 1 MiB protobuf, 1024 queued messages,
// 8 MiB queue bytes, 512 detail elements.
func ConservativeDefaults() Limits {
	const mib = 1 << 20
	return Limits{
		MaxFrameBytes:     1 * mib,
		MaxXMLScanBytes:   1 * mib,
		MaxProtobufBytes:  1 * mib,
		MaxQueueMessages:  1024,
		MaxQueueBytes:     8 * mib,
		MaxDetailElements: 512,
	}
}

// Validate checks the cross-field invariants and returns a structured
// *errs.Error (Kind one of KindZeroField, KindXMLScanExceedsFrame,
// KindProtobufExceedsFrame, KindQueueBytesBelowFrame,
// KindQueueMessagesExceedQueueBytes) on the first violation found, or
// nil if the limits are internally consistent. Strict deployments MUST
// reject Limits that fail Validate at startup.
func (l Limits) Validate() error {
	fields := []struct {
		name string
		v    uint64
	}{
		{"max_frame_bytes", l.MaxFrameBytes},
		{"max_xml_scan_bytes", l.MaxXMLScanBytes},
		{"max_protobuf_bytes", l.MaxProtobufBytes},
		{"max_queue_messages", l.MaxQueueMessages},
		{"max_queue_bytes", l.MaxQueueBytes},
		{"max_detail_elements", l.MaxDetailElements},
	}
	for _, f := range fields {
		if f.v == 0 {
			return errs.Field(errs.KindZeroField, f.name, "must be non-zero")
		}
	}
	if l.MaxXMLScanBytes > l.MaxFrameBytes {
		return errs.Field(errs.KindXMLScanExceedsFrame, "max_xml_scan_bytes",
			"max_xml_scan_bytes must be <= max_frame_bytes")
	}
	if l.MaxProtobufBytes > l.MaxFrameBytes {
		return errs.Field(errs.KindProtobufExceedsFrame, "max_protobuf_bytes",
			"max_protobuf_bytes must be <= max_frame_bytes")
	}
	if l.MaxQueueBytes < l.MaxFrameBytes {
		return errs.Field(errs.KindQueueBytesBelowFrame, "max_queue_bytes",
			"max_queue_bytes must be >= max_frame_bytes")
	}
	if l.MaxQueueMessages > l.MaxQueueBytes {
		return errs.Field(errs.KindQueueMessagesExceedQueueBytes, "max_queue_messages",
			"max_queue_messages must be <= max_queue_bytes (one byte per queued message minimum)")
	}
	return nil
}

// LessOrEqual reports whether every field of l is <= the corresponding
// field of other, i.e. whether l stays within other's budget on every
// corresponding field.
func (l Limits) LessOrEqual(other Limits) bool {
	return l.MaxFrameBytes <= other.MaxFrameBytes &&
		l.MaxXMLScanBytes <= other.MaxXMLScanBytes &&
		l.MaxProtobufBytes <= other.MaxProtobufBytes &&
		l.MaxQueueMessages <= other.MaxQueueMessages &&
		l.MaxQueueBytes <= other.MaxQueueBytes &&
		l.MaxDetailElements <= other.MaxDetailElements
}
