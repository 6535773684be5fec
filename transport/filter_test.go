package transport_test

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NERVsystems/takbridge/envelope"
	"github.com/NERVsystems/takbridge/transport"
)

type queueSource struct {
	envs []envelope.Envelope[[]byte]
	i    int
}

func (s *queueSource) Recv(ctx context.Context) (envelope.Envelope[[]byte], error) {
	if s.i >= len(s.envs) {
		return envelope.Envelope[[]byte]{}, errors.New("exhausted")
	}
	env := s.envs[s.i]
	s.i++
	return env, nil
}

func (s *queueSource) Close() error { return nil }

func TestFilterSourceSkipsRejectedEnvelopes(t *testing.T) {
	epoch := time.Now()
	src := &queueSource{envs: []envelope.Envelope[[]byte]{
		envelope.New(epoch, nil, []byte("reject-me"), []byte("reject-me")),
		envelope.New(epoch, nil, []byte("keep-me"), []byte("keep-me")),
	}}

	filtered := transport.FilterSource(src, func(env envelope.Envelope[[]byte]) bool {
		return !bytes.Equal(env.Message, []byte("reject-me"))
	})

	env, err := filtered.Recv(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []byte("keep-me"), env.Message)
}

func TestFilterSourcePropagatesUnderlyingError(t *testing.T) {
	src := &queueSource{}
	filtered := transport.FilterSource(src, func(envelope.Envelope[[]byte]) bool { return true })

	_, err := filtered.Recv(context.Background())
	assert.Error(t, err)
}
