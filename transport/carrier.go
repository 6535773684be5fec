// Package transport abstracts the wire carriers this bridge sends CoT
// (or SAPIENT) frames over: UDP unicast/multicast/broadcast, TCP,
// TCP+TLS (mutually authenticated when TLSConfig.RequireClientCert is
// set), and WebSocket over TLS. Every carrier exposes the same direct
// send / blocking recv contract via
// envelope.Sink[[]byte]/envelope.Source[[]byte] (bounded queueing is
// provided separately by SendQueue, placed in front of a carrier), so the
// bridge's emitter and the wire negotiator never need to know which
// concrete carrier they are driving.
package transport

import (
	"net"

	"github.com/NERVsystems/takbridge/envelope"
)

// Carrier is the uniform contract every transport implements. Payloads
// are already-framed wire bytes (a legacy XML event, a TAK Protocol v1
// frame, or a SAPIENT frame) — the carrier moves bytes, it does not
// interpret them.
type Carrier interface {
	envelope.Sink[[]byte]
	envelope.Source[[]byte]
	LocalAddr() net.Addr
	RemoteAddr() net.Addr
}

// Direction labels an envelope or metric sample as inbound or outbound,
// matching the .takrec record entry's direction field (§4.8).
type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)
