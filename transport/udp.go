package transport

import (
	"context"
	"log/slog"
	"net"
	"syscall"
	"time"

	"github.com/NERVsystems/takbridge/envelope"
	"github.com/NERVsystems/takbridge/errs"
)

// UDPMode selects how a UDPCarrier's socket is set up.
type UDPMode int

const (
	UDPUnicast UDPMode = iota
	UDPMulticast
	UDPBroadcast
)

// UDPConfig governs a UDPCarrier's MTU policy. Per the mesh datagram
// framing (0xBF || varint(version) || payload), one datagram is always
// exactly one frame: there is no reassembly across datagrams, so an
// oversize payload can only be dropped, never split.
type UDPConfig struct {
	Mode            UDPMode
	MaxPayloadBytes int
	MulticastIface  *net.Interface
	Logger          *slog.Logger
}

// UDPCarrier is a Carrier over a UDP socket. Unlike streamCarrier it is
// message-oriented: every Send/Recv moves exactly one datagram, which
// is also exactly one mesh frame.
type UDPCarrier struct {
	conn   *net.UDPConn
	remote *net.UDPAddr // nil for a listening/multicast socket taking datagrams from any sender
	cfg    UDPConfig
	epoch  time.Time
	logger *slog.Logger
}

// DialUDP opens a unicast UDP socket bound to remote, used for sending
// (and receiving replies from) a single known peer.
func DialUDP(remote string, cfg UDPConfig, epoch time.Time) (*UDPCarrier, error) {
	addr, err := net.ResolveUDPAddr("udp", remote)
	if err != nil {
		return nil, err
	}
	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		return nil, err
	}
	if cfg.Mode == UDPBroadcast {
		if err := setBroadcast(conn); err != nil {
			_ = conn.Close()
			return nil, errs.Wrap(errs.KindUnreachable, "enabling SO_BROADCAST failed", err)
		}
	}
	return newUDPCarrier(conn, addr, cfg, epoch), nil
}

// setBroadcast enables SO_BROADCAST, required by the OS before a
// unicast-shaped UDP socket may send to a broadcast address.
func setBroadcast(conn *net.UDPConn) error {
	raw, err := conn.SyscallConn()
	if err != nil {
		return err
	}
	var sockErr error
	if err := raw.Control(func(fd uintptr) {
		sockErr = syscall.SetsockoptInt(int(fd), syscall.SOL_SOCKET, syscall.SO_BROADCAST, 1)
	}); err != nil {
		return err
	}
	return sockErr
}

// ListenUDP opens a UDP socket for unicast or broadcast reception on
// addr. Use ListenMulticastUDP for a multicast group.
func ListenUDP(addr string, cfg UDPConfig, epoch time.Time) (*UDPCarrier, error) {
	laddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, err
	}
	conn, err := net.ListenUDP("udp", laddr)
	if err != nil {
		return nil, err
	}
	return newUDPCarrier(conn, nil, cfg, epoch), nil
}

// ListenMulticastUDP joins the multicast group at addr on cfg.MulticastIface
// (nil selects the default interface per net.ListenMulticastUDP).
func ListenMulticastUDP(addr string, cfg UDPConfig, epoch time.Time) (*UDPCarrier, error) {
	gaddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, err
	}
	conn, err := net.ListenMulticastUDP("udp", cfg.MulticastIface, gaddr)
	if err != nil {
		return nil, err
	}
	cfg.Mode = UDPMulticast
	return newUDPCarrier(conn, gaddr, cfg, epoch), nil
}

func newUDPCarrier(conn *net.UDPConn, remote *net.UDPAddr, cfg UDPConfig, epoch time.Time) *UDPCarrier {
	if cfg.MaxPayloadBytes <= 0 {
		cfg.MaxPayloadBytes = 1472 // common Ethernet MTU minus IPv4+UDP headers
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &UDPCarrier{conn: conn, remote: remote, cfg: cfg, epoch: epoch, logger: logger}
}

// Send writes one datagram. A payload exceeding cfg.MaxPayloadBytes is
// dropped and logged rather than truncated or fragmented: the mesh
// framing has no way to express a partial frame.
func (c *UDPCarrier) Send(ctx context.Context, env envelope.Envelope[[]byte]) error {
	if len(env.Message) > c.cfg.MaxPayloadBytes {
		c.logger.Warn("udp payload exceeds max_udp_payload_bytes, dropping",
			"size", len(env.Message), "max", c.cfg.MaxPayloadBytes)
		return errs.New(errs.KindFrameTooLarge, "udp payload exceeds max_udp_payload_bytes")
	}
	if dl, ok := ctx.Deadline(); ok {
		_ = c.conn.SetWriteDeadline(dl)
	}
	var err error
	if c.remote != nil {
		_, err = c.conn.WriteToUDP(env.Message, c.remote)
	} else {
		_, err = c.conn.Write(env.Message)
	}
	if err != nil {
		return errs.Wrap(errs.KindUnreachable, "udp write failed", err)
	}
	return nil
}

// Recv reads one datagram. Datagrams larger than cfg.MaxPayloadBytes are
// dropped and logged, and Recv keeps waiting for the following datagram.
func (c *UDPCarrier) Recv(ctx context.Context) (envelope.Envelope[[]byte], error) {
	if dl, ok := ctx.Deadline(); ok {
		_ = c.conn.SetReadDeadline(dl)
	}
	buf := make([]byte, c.cfg.MaxPayloadBytes+64)
	for {
		n, peer, err := c.conn.ReadFromUDP(buf)
		if err != nil {
			return envelope.Envelope[[]byte]{}, err
		}
		if n > c.cfg.MaxPayloadBytes {
			c.logger.Warn("udp datagram exceeds max_udp_payload_bytes, dropping", "size", n, "peer", peer)
			continue
		}
		payload := make([]byte, n)
		copy(payload, buf[:n])
		return envelope.New(c.epoch, peer, payload, payload), nil
	}
}

// Close closes the underlying socket.
func (c *UDPCarrier) Close() error { return c.conn.Close() }

// LocalAddr reports the socket's bound local address.
func (c *UDPCarrier) LocalAddr() net.Addr { return c.conn.LocalAddr() }

// RemoteAddr reports the configured peer for a dialed/multicast socket,
// or nil for a plain listening socket with no fixed peer.
func (c *UDPCarrier) RemoteAddr() net.Addr {
	if c.remote != nil {
		return c.remote
	}
	return nil
}
