// Package takproto implements the TAK Protocol v1 payload codec: a
// protobuf encoding of the CoT semantic model, hand-rolled on top of
// google.golang.org/protobuf/encoding/protowire rather than generated
// by protoc, since the wire schema here is private to this bridge and
// does not need to interoperate with a .proto-driven toolchain.
//
// The message layout mirrors the cot package's model one field at a
// time: Event carries the same scalar fields as cot.CotEvent, Point
// mirrors cot.Position, and each DetailElement variant gets its own
// field number inside a single "detail element" message (a hand-rolled
// oneof, since protowire has no oneof support of its own). Encoding is
// canonical: fields are always written in ascending field-number order
// and a field carrying its zero value is omitted entirely, so two
// equal events always serialize to the same bytes.
package takproto
