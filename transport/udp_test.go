package transport_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/NERVsystems/takbridge/envelope"
	"github.com/NERVsystems/takbridge/transport"
)

func TestUDPCarrierRoundTrip(t *testing.T) {
	epoch := time.Now()
	server, err := transport.ListenUDP("127.0.0.1:0", transport.UDPConfig{}, epoch)
	require.NoError(t, err)
	defer server.Close()

	client, err := transport.DialUDP(server.LocalAddr().String(), transport.UDPConfig{}, epoch)
	require.NoError(t, err)
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	payload := []byte("datagram-1")
	require.NoError(t, client.Send(ctx, envelope.New(epoch, nil, payload, payload)))

	env, err := server.Recv(ctx)
	require.NoError(t, err)
	require.Equal(t, payload, env.Message)
}

func TestUDPCarrierSendDropsOversizePayload(t *testing.T) {
	epoch := time.Now()
	cfg := transport.UDPConfig{MaxPayloadBytes: 16}
	server, err := transport.ListenUDP("127.0.0.1:0", cfg, epoch)
	require.NoError(t, err)
	defer server.Close()

	client, err := transport.DialUDP(server.LocalAddr().String(), cfg, epoch)
	require.NoError(t, err)
	defer client.Close()

	oversize := bytes.Repeat([]byte("x"), 32)
	ctx := context.Background()
	err = client.Send(ctx, envelope.New(epoch, nil, oversize, oversize))
	require.Error(t, err, "a payload over MaxPayloadBytes must be dropped, never fragmented")
}

func TestUDPCarrierRecvSkipsOversizeDatagramAndContinues(t *testing.T) {
	epoch := time.Now()
	serverCfg := transport.UDPConfig{MaxPayloadBytes: 16}
	server, err := transport.ListenUDP("127.0.0.1:0", serverCfg, epoch)
	require.NoError(t, err)
	defer server.Close()

	// A client with a larger MaxPayloadBytes can still originate a
	// datagram the server considers oversize.
	clientCfg := transport.UDPConfig{MaxPayloadBytes: 64}
	client, err := transport.DialUDP(server.LocalAddr().String(), clientCfg, epoch)
	require.NoError(t, err)
	defer client.Close()

	ctx := context.Background()
	oversize := bytes.Repeat([]byte("y"), 32) // within the 16+64 read buffer, over the server's 16-byte max
	require.NoError(t, client.Send(ctx, envelope.New(epoch, nil, oversize, oversize)))

	good := []byte("ok")
	require.NoError(t, client.Send(ctx, envelope.New(epoch, nil, good, good)))

	recvCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	env, err := server.Recv(recvCtx)
	require.NoError(t, err)
	require.Equal(t, good, env.Message, "the oversize datagram must be skipped, not returned")
}
