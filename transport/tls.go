package transport

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"net"
	"time"

	"github.com/NERVsystems/takbridge/limits"
)

// TLSConfig holds the material needed to dial or listen with mutual
// authentication. The zero value does not request client certificates:
// a listener requires and verifies them only when RequireClientCert is
// true, and callers set ClientCAs to the pool that verification uses.
type TLSConfig struct {
	Certificates []tls.Certificate
	RootCAs      *x509.CertPool
	ClientCAs    *x509.CertPool
	MinVersion   uint16
	// RequireClientCert, when true, sets ClientAuth to
	// tls.RequireAndVerifyClientCert for listeners; when false (the zero
	// value) listeners use tls.NoClientCert.
	RequireClientCert bool
}

func (c TLSConfig) serverConfig() *tls.Config {
	cfg := &tls.Config{
		Certificates: c.Certificates,
		ClientCAs:    c.ClientCAs,
		MinVersion:   minVersionOr(c.MinVersion, tls.VersionTLS12),
	}
	if c.RequireClientCert {
		cfg.ClientAuth = tls.RequireAndVerifyClientCert
	} else {
		cfg.ClientAuth = tls.NoClientCert
	}
	return cfg
}

func (c TLSConfig) clientConfig(serverName string) *tls.Config {
	return &tls.Config{
		Certificates: c.Certificates,
		RootCAs:      c.RootCAs,
		ServerName:   serverName,
		MinVersion:   minVersionOr(c.MinVersion, tls.VersionTLS12),
	}
}

func minVersionOr(v, def uint16) uint16 {
	if v == 0 {
		return def
	}
	return v
}

// TLSCarrier is a Carrier over a TLS connection (mutually authenticated
// when the listener sets RequireClientCert), framed by streamCarrier exactly like TCPCarrier since *tls.Conn
// satisfies net.Conn.
type TLSCarrier struct {
	*streamCarrier
}

// DialTLS connects to addr, performs the TLS handshake (presenting a
// client certificate if cfg.Certificates is set), and returns a
// Carrier starting in FrameModeLegacyXML.
func DialTLS(ctx context.Context, addr, serverName string, cfg TLSConfig, lims limits.Limits, epoch time.Time) (*TLSCarrier, error) {
	d := tls.Dialer{Config: cfg.clientConfig(serverName)}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	return &TLSCarrier{streamCarrier: newStreamCarrier(conn, lims, epoch)}, nil
}

// TLSListener accepts TLS connections, verifying client certificates
// when RequireClientCert is set, and wraps each as a Carrier.
type TLSListener struct {
	ln    net.Listener
	lims  limits.Limits
	epoch time.Time
}

// ListenTLS opens addr for accepting inbound TLS connections, mutually
// authenticated when cfg.RequireClientCert is set.
func ListenTLS(addr string, cfg TLSConfig, lims limits.Limits, epoch time.Time) (*TLSListener, error) {
	ln, err := tls.Listen("tcp", addr, cfg.serverConfig())
	if err != nil {
		return nil, err
	}
	return &TLSListener{ln: ln, lims: lims, epoch: epoch}, nil
}

// Accept blocks for the next inbound connection, completing its TLS
// handshake before returning.
func (l *TLSListener) Accept() (*TLSCarrier, error) {
	conn, err := l.ln.Accept()
	if err != nil {
		return nil, err
	}
	if tc, ok := conn.(*tls.Conn); ok {
		if err := tc.Handshake(); err != nil {
			_ = conn.Close()
			return nil, err
		}
	}
	return &TLSCarrier{streamCarrier: newStreamCarrier(conn, l.lims, l.epoch)}, nil
}

// Addr reports the listener's bound address.
func (l *TLSListener) Addr() net.Addr { return l.ln.Addr() }

// Close stops accepting new connections.
func (l *TLSListener) Close() error { return l.ln.Close() }
