package transport

import (
	"context"

	"github.com/NERVsystems/takbridge/envelope"
)

// filteredSource wraps a Source, silently skipping envelopes rejected
// by accept before they reach the caller — the inbound half of the
// per-connection predicate described alongside envelope.FilterMiddleware
// (which covers the outbound half).
type filteredSource struct {
	next   envelope.Source[[]byte]
	accept envelope.FilterFunc[[]byte]
}

// FilterSource wraps a carrier (or any Source[[]byte]) so that Recv
// only ever returns envelopes for which accept reports true.
func FilterSource(next envelope.Source[[]byte], accept envelope.FilterFunc[[]byte]) envelope.Source[[]byte] {
	return &filteredSource{next: next, accept: accept}
}

func (s *filteredSource) Recv(ctx context.Context) (envelope.Envelope[[]byte], error) {
	for {
		env, err := s.next.Recv(ctx)
		if err != nil {
			return envelope.Envelope[[]byte]{}, err
		}
		if s.accept(env) {
			return env, nil
		}
	}
}

func (s *filteredSource) Close() error { return s.next.Close() }
