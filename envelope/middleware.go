package envelope

import (
	"context"
	"log/slog"
)

// Middleware wraps a Sink with additional behavior (logging, metrics,
// filtering) without the wrapped Sink needing to know about it.
type Middleware[T any] func(next Sink[T]) Sink[T]

// Chain applies middlewares in order, so Chain(a, b)(sink) behaves as
// a(b(sink)) — the first middleware listed is outermost.
func Chain[T any](mws ...Middleware[T]) Middleware[T] {
	return func(next Sink[T]) Sink[T] {
		for i := len(mws) - 1; i >= 0; i-- {
			next = mws[i](next)
		}
		return next
	}
}

type loggingSink[T any] struct {
	next   Sink[T]
	logger *slog.Logger
	label  string
}

// LoggingMiddleware logs every Send at debug level and every Send error
// at warn level, tagged with label (e.g. the transport/connection name).
func LoggingMiddleware[T any](logger *slog.Logger, label string) Middleware[T] {
	return func(next Sink[T]) Sink[T] {
		return &loggingSink[T]{next: next, logger: logger, label: label}
	}
}

func (s *loggingSink[T]) Send(ctx context.Context, env Envelope[T]) error {
	err := s.next.Send(ctx, env)
	if err != nil {
		s.logger.Warn("envelope send failed", "sink", s.label, "error", err)
	} else {
		s.logger.Debug("envelope sent", "sink", s.label)
	}
	return err
}

func (s *loggingSink[T]) Close() error { return s.next.Close() }

// FilterFunc reports whether an envelope should be forwarded.
type FilterFunc[T any] func(Envelope[T]) bool

type filterSink[T any] struct {
	next   Sink[T]
	accept FilterFunc[T]
}

// FilterMiddleware drops envelopes for which accept returns false
// before they reach next. It wraps Sinks, so it filters the outbound
// direction only; transport.FilterSource covers inbound.
func FilterMiddleware[T any](accept FilterFunc[T]) Middleware[T] {
	return func(next Sink[T]) Sink[T] {
		return &filterSink[T]{next: next, accept: accept}
	}
}

func (s *filterSink[T]) Send(ctx context.Context, env Envelope[T]) error {
	if !s.accept(env) {
		return nil
	}
	return s.next.Send(ctx, env)
}

func (s *filterSink[T]) Close() error { return s.next.Close() }
