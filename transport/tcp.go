package transport

import (
	"context"
	"net"
	"time"

	"github.com/NERVsystems/takbridge/limits"
)

// TCPCarrier is a Carrier over a plain (unencrypted) TCP connection,
// framed by streamCarrier. Use TLSCarrier for production links; plain
// TCP is for loopback testing and trusted networks only.
type TCPCarrier struct {
	*streamCarrier
}

// DialTCP connects to addr and returns a Carrier starting in
// FrameModeLegacyXML, the framing every peer must speak until a
// successful wire.Negotiator upgrade.
func DialTCP(ctx context.Context, addr string, lims limits.Limits, epoch time.Time) (*TCPCarrier, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	return &TCPCarrier{streamCarrier: newStreamCarrier(conn, lims, epoch)}, nil
}

// TCPListener accepts TCP connections and wraps each one as a Carrier.
type TCPListener struct {
	ln    net.Listener
	lims  limits.Limits
	epoch time.Time
}

// ListenTCP opens addr for accepting inbound connections.
func ListenTCP(addr string, lims limits.Limits, epoch time.Time) (*TCPListener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &TCPListener{ln: ln, lims: lims, epoch: epoch}, nil
}

// Accept blocks for the next inbound connection.
func (l *TCPListener) Accept() (*TCPCarrier, error) {
	conn, err := l.ln.Accept()
	if err != nil {
		return nil, err
	}
	return &TCPCarrier{streamCarrier: newStreamCarrier(conn, l.lims, l.epoch)}, nil
}

// Addr reports the listener's bound address.
func (l *TCPListener) Addr() net.Addr { return l.ln.Addr() }

// Close stops accepting new connections.
func (l *TCPListener) Close() error { return l.ln.Close() }
