package transport

import (
	"context"
	"log/slog"
	"time"

	"github.com/jpillora/backoff"

	"github.com/NERVsystems/takbridge/errs"
)

// ReconnectPolicy configures Reconnector's exponential-backoff-with-jitter.
type ReconnectPolicy struct {
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
	Jitter        float64 // in [0,1]
}

// Reconnector retries Dial until it succeeds or ctx is done. Every
// Carrier it returns is freshly dialed, so the caller starts negotiation
// over on it; Reconnector itself holds no negotiation state. Three
// consecutive dial failures within 5*InitialDelay escalate to a
// fatal error, matching the transport error-propagation policy.
type Reconnector struct {
	policy ReconnectPolicy
	dial   func(context.Context) (Carrier, error)
	logger *slog.Logger
	onFail func(err error, attempt int)
}

// NewReconnector builds a Reconnector that calls dial to (re)establish
// a Carrier.
func NewReconnector(policy ReconnectPolicy, dial func(context.Context) (Carrier, error), logger *slog.Logger) *Reconnector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconnector{policy: policy, dial: dial, logger: logger}
}

// Connect dials until success or ctx is done, sleeping with
// exponential backoff and jitter between attempts. It returns a fatal
// error if three consecutive attempts fail within 5*InitialDelay.
func (r *Reconnector) Connect(ctx context.Context) (Carrier, error) {
	b := &backoff.Backoff{
		Min:    r.policy.InitialDelay,
		Max:    r.policy.MaxDelay,
		Factor: r.policy.BackoffFactor,
		Jitter: r.policy.Jitter > 0,
	}
	escalateWindow := 5 * r.policy.InitialDelay
	windowStart := time.Now()
	consecutiveFailures := 0

	for {
		carrier, err := r.dial(ctx)
		if err == nil {
			return carrier, nil
		}
		consecutiveFailures++
		if time.Since(windowStart) > escalateWindow {
			windowStart = time.Now()
			consecutiveFailures = 1
		}
		if consecutiveFailures >= 3 && time.Since(windowStart) <= escalateWindow {
			return nil, errs.Wrap(errs.KindHandshakeFailed, "three consecutive reconnect failures within escalation window", err)
		}

		delay := b.Duration()
		r.logger.Warn("reconnect attempt failed, backing off", "attempt", consecutiveFailures, "delay", delay, "error", err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
}
