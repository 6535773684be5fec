// Package sapient implements the SAPIENT v2.0 session codec and TCP
// session helpers: a hand-rolled protobuf encoding (via
// google.golang.org/protobuf/encoding/protowire, no protoc codegen) of
// the registration/status/detection/alert/task/ack message family,
// framed over TCP as u32_le(length) || payload.
//
// As with the takproto package, each message kind occupies a distinct
// field number inside a SapientMessage wrapper (a hand-rolled oneof);
// Decode dispatches on whichever field is actually present.
package sapient
