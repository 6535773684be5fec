package transport

import (
	"context"
	"log/slog"
	"time"

	"github.com/NERVsystems/takbridge/envelope"
)

// Keepalive drives an application-level heartbeat over a Carrier: it
// sends ping on every interval tick and requires some byte to arrive
// (tracked via Touch, called by the carrier's read loop on every
// successful Recv) within timeout of the previous Touch (or of Run's
// start), else it calls onTimeout so the caller can reconnect. Sending
// a ping does not reset the timeout.
type Keepalive struct {
	interval time.Duration
	timeout  time.Duration
	ping     []byte
	logger   *slog.Logger

	touch chan struct{}
}

// NewKeepalive builds a Keepalive that writes ping over sink every
// interval, treating any inbound traffic observed via Touch as proof
// of liveness.
func NewKeepalive(interval, timeout time.Duration, ping []byte, logger *slog.Logger) *Keepalive {
	if logger == nil {
		logger = slog.Default()
	}
	return &Keepalive{
		interval: interval,
		timeout:  timeout,
		ping:     ping,
		logger:   logger,
		touch:    make(chan struct{}, 1),
	}
}

// Touch records that traffic was just observed on the carrier,
// resetting the missing-timeout clock.
func (k *Keepalive) Touch() {
	select {
	case k.touch <- struct{}{}:
	default:
	}
}

// Run sends heartbeats on sink every interval and calls onTimeout if
// no Touch call lands within timeout of the previous Touch (or of Run's
// start). It returns when ctx is done or after calling onTimeout.
func (k *Keepalive) Run(ctx context.Context, sink envelope.Sink[[]byte], epoch time.Time, onTimeout func()) {
	ticker := time.NewTicker(k.interval)
	defer ticker.Stop()
	timer := time.NewTimer(k.timeout)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-k.touch:
			if !timer.Stop() {
				<-timer.C
			}
			timer.Reset(k.timeout)
		case <-timer.C:
			k.logger.Warn("keepalive timeout, no traffic observed", "timeout", k.timeout)
			onTimeout()
			return
		case <-ticker.C:
			env := envelope.New(epoch, nil, k.ping, k.ping)
			if err := sink.Send(ctx, env); err != nil {
				k.logger.Warn("keepalive ping send failed", "error", err)
			}
		}
	}
}
