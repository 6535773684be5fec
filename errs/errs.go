// Package errs defines the closed error taxonomy shared by every
// subsystem of the bridge (limits, core model, wire, transport, bridge,
// record). Every boundary returns a *Error carrying a subsystem-scoped
// Kind plus the offending field/offset and a human reason, so the error
// is explainable to an operator without lossy downcasting.
package errs

import "fmt"

// Kind identifies the class of failure within a subsystem. Kinds are
// grouped by the subsystem that raises them; callers compare with
// errors.Is against an &Error{Kind: ...} target (see Error.Is), or
// inspect Error.Kind directly.
type Kind string

const (
	// Limits
	KindZeroField                     Kind = "zero_field"
	KindXMLScanExceedsFrame           Kind = "xml_scan_exceeds_frame"
	KindProtobufExceedsFrame          Kind = "protobuf_exceeds_frame"
	KindQueueBytesBelowFrame          Kind = "queue_bytes_below_frame"
	KindQueueMessagesExceedQueueBytes Kind = "queue_messages_exceed_queue_bytes"

	// Core / model
	KindInvalidCotType Kind = "invalid_cot_type"
	KindInvalidUid     Kind = "invalid_uid"
	KindInvalidValue   Kind = "invalid_value"
	KindOutOfRange     Kind = "out_of_range"

	// Wire
	KindFrameTooLarge     Kind = "frame_too_large"
	KindVarintOverflow    Kind = "varint_overflow"
	KindMalformedHeader   Kind = "malformed_header"
	KindMalformedControl  Kind = "malformed_control"
	KindUnsupportedVer    Kind = "unsupported_version"
	KindTimeout           Kind = "timeout"
	KindPolicyDenied      Kind = "policy_denied"
	KindDetailBudget      Kind = "detail_budget_exceeded"
	KindXMLScanBudget     Kind = "xml_scan_budget_exceeded"
	KindProtoBudget       Kind = "proto_budget_exceeded"
	KindSchemaMismatch    Kind = "schema_mismatch"
	KindInvalidField      Kind = "invalid_field"

	// Transport
	KindClosed             Kind = "closed"
	KindOverloaded         Kind = "overloaded"
	KindHandshakeFailed    Kind = "handshake_failed"
	KindCertificateInvalid Kind = "certificate_invalid"
	KindUnreachable        Kind = "unreachable"
	KindInterrupted        Kind = "interrupted"

	// Bridge
	KindMappingIncomplete   Kind = "mapping_incomplete"
	KindUnknownClassReject  Kind = "unknown_class_rejected"
	KindStrictStartupFailed Kind = "strict_startup_failed"
	KindPersistenceFailed   Kind = "persistence_failed"
	KindDeduped             Kind = "deduped"
	KindEmitted             Kind = "emitted"

	// Record
	KindChunkChecksumMismatch Kind = "chunk_checksum_mismatch"
	KindIndexCorrupt          Kind = "index_corrupt"
	KindIntegrityBroken       Kind = "integrity_broken"
	KindWriteTruncated        Kind = "write_truncated"
	KindUnsupportedVersion    Kind = "unsupported_format_version"
)

// Error is the structured error value returned across subsystem
// boundaries. Field and Offset are optional context about where in the
// input the failure was detected; Reason is a short operator-facing
// explanation. Cause, if present, is the underlying error and is
// reachable via Unwrap.
type Error struct {
	Kind   Kind
	Field  string
	Offset int64
	Reason string
	Cause  error
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Field != "" {
		msg += fmt.Sprintf(" field=%s", e.Field)
	}
	if e.Offset != 0 {
		msg += fmt.Sprintf(" offset=%d", e.Offset)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Cause != nil {
		msg += fmt.Sprintf(" (%v)", e.Cause)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Cause }

// Is reports whether target is an *Error with the same Kind, so callers
// can do errors.Is(err, &errs.Error{Kind: errs.KindFrameTooLarge}).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind == "" {
		return false
	}
	return e.Kind == t.Kind
}

// New builds a minimal *Error of the given kind with a reason.
func New(kind Kind, reason string) *Error {
	return &Error{Kind: kind, Reason: reason}
}

// Field builds an *Error naming the offending field.
func Field(kind Kind, field, reason string) *Error {
	return &Error{Kind: kind, Field: field, Reason: reason}
}

// Wrap builds an *Error wrapping an underlying cause.
func Wrap(kind Kind, reason string, cause error) *Error {
	return &Error{Kind: kind, Reason: reason, Cause: cause}
}

// AtOffset builds an *Error annotated with a byte offset into the input
// that triggered it (used by the wire/xmlcodec/takproto decoders).
func AtOffset(kind Kind, offset int64, reason string) *Error {
	return &Error{Kind: kind, Offset: offset, Reason: reason}
}
