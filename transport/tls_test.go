package transport_test

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/NERVsystems/takbridge/envelope"
	"github.com/NERVsystems/takbridge/limits"
	"github.com/NERVsystems/takbridge/transport"
)

// issueCert mints a self-signed leaf certificate for name, usable as
// both a CA (for the peer's RootCAs/ClientCAs pool) and a leaf (for
// Certificates) since the pair is generated fresh per test.
func issueCert(t *testing.T, name string) tls.Certificate {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: name},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth, x509.ExtKeyUsageClientAuth},
		BasicConstraintsValid: true,
		IsCA:                  true,
		DNSNames:              []string{name},
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)

	cert, err := x509.ParseCertificate(der)
	require.NoError(t, err)

	return tls.Certificate{Certificate: [][]byte{der}, PrivateKey: key, Leaf: cert}
}

func TestTLSCarrierMutualAuthRoundTrip(t *testing.T) {
	serverCert := issueCert(t, "server.local")
	clientCert := issueCert(t, "client.local")

	serverCAs := x509.NewCertPool()
	serverCAs.AddCert(clientCert.Leaf)
	clientCAs := x509.NewCertPool()
	clientCAs.AddCert(serverCert.Leaf)

	serverCfg := transport.TLSConfig{
		Certificates:      []tls.Certificate{serverCert},
		ClientCAs:         serverCAs,
		RequireClientCert: true,
	}
	clientCfg := transport.TLSConfig{
		Certificates: []tls.Certificate{clientCert},
		RootCAs:      clientCAs,
	}

	lims := limits.ConservativeDefaults()
	epoch := time.Now()

	ln, err := transport.ListenTLS("127.0.0.1:0", serverCfg, lims, epoch)
	require.NoError(t, err)
	defer ln.Close()

	serverCh := make(chan *transport.TLSCarrier, 1)
	errCh := make(chan error, 1)
	go func() {
		c, err := ln.Accept()
		if err != nil {
			errCh <- err
			return
		}
		serverCh <- c
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	client, err := transport.DialTLS(ctx, ln.Addr().String(), "server.local", clientCfg, lims, epoch)
	require.NoError(t, err)
	defer client.Close()

	var server *transport.TLSCarrier
	select {
	case server = <-serverCh:
	case err := <-errCh:
		t.Fatalf("accept/handshake failed: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for TLS accept")
	}
	defer server.Close()

	frame := []byte("<event uid=\"u1\"></event>")
	require.NoError(t, client.Send(ctx, envelope.New(epoch, nil, frame, frame)))

	env, err := server.Recv(ctx)
	require.NoError(t, err)
	require.Equal(t, frame, env.Message)
}

func TestTLSListenerRejectsUntrustedClient(t *testing.T) {
	serverCert := issueCert(t, "server.local")
	untrustedClientCert := issueCert(t, "untrusted.local")
	trustedClientCert := issueCert(t, "trusted.local")

	serverCAs := x509.NewCertPool()
	serverCAs.AddCert(trustedClientCert.Leaf) // untrusted cert is deliberately not added

	serverCfg := transport.TLSConfig{
		Certificates:      []tls.Certificate{serverCert},
		ClientCAs:         serverCAs,
		RequireClientCert: true,
	}
	clientCAs := x509.NewCertPool()
	clientCAs.AddCert(serverCert.Leaf)
	clientCfg := transport.TLSConfig{
		Certificates: []tls.Certificate{untrustedClientCert},
		RootCAs:      clientCAs,
	}

	lims := limits.ConservativeDefaults()
	epoch := time.Now()

	ln, err := transport.ListenTLS("127.0.0.1:0", serverCfg, lims, epoch)
	require.NoError(t, err)
	defer ln.Close()

	acceptErrCh := make(chan error, 1)
	go func() {
		_, err := ln.Accept()
		acceptErrCh <- err
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, dialErr := transport.DialTLS(ctx, ln.Addr().String(), "server.local", clientCfg, lims, epoch)
	require.Error(t, dialErr, "handshake with an untrusted client certificate must fail")

	select {
	case err := <-acceptErrCh:
		require.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server accept/handshake never returned")
	}
}
