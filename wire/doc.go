// Package wire implements the two coexisting frame formats carried on
// a TAK bridge connection — legacy CoT XML delimiter framing and TAK
// Protocol v1 varint-length-prefixed binary framing — plus the
// Negotiator state machine that decides, per connection, which framing
// governs the stream at any given moment.
package wire
