package transport_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/NERVsystems/takbridge/envelope"
	"github.com/NERVsystems/takbridge/limits"
	"github.com/NERVsystems/takbridge/transport"
)

func TestTCPCarrierRoundTrip(t *testing.T) {
	lims := limits.ConservativeDefaults()
	epoch := time.Now()

	ln, err := transport.ListenTCP("127.0.0.1:0", lims, epoch)
	require.NoError(t, err)
	defer ln.Close()

	serverCh := make(chan *transport.TCPCarrier, 1)
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
	client, err := transport.DialTCP(ctx, ln.Addr().String(), lims, epoch)
	require.NoError(t, err)
	defer client.Close()

	var server *transport.TCPCarrier
	select {
	case server = <-serverCh:
	case err := <-errCh:
		t.Fatalf("accept failed: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for accept")
	}
	defer server.Close()

	frame := []byte("<event uid=\"u1\"></event>")
	require.NoError(t, client.Send(ctx, envelope.New(epoch, nil, frame, frame)))

	env, err := server.Recv(ctx)
	require.NoError(t, err)
	require.Equal(t, frame, env.Message)
}

func TestTCPCarrierAddrs(t *testing.T) {
	lims := limits.ConservativeDefaults()
	epoch := time.Now()

	ln, err := transport.ListenTCP("127.0.0.1:0", lims, epoch)
	require.NoError(t, err)
	defer ln.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	client, err := transport.DialTCP(ctx, ln.Addr().String(), lims, epoch)
	require.NoError(t, err)
	defer client.Close()

	require.NotNil(t, client.LocalAddr())
	require.NotNil(t, client.RemoteAddr())
}
