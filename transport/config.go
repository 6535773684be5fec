package transport

import (
	"time"

	"github.com/NERVsystems/takbridge/errs"
)

// CarrierKind selects which concrete Carrier a Config describes.
type CarrierKind string

const (
	CarrierTCP       CarrierKind = "tcp"
	CarrierTLS       CarrierKind = "tls"
	CarrierUDP       CarrierKind = "udp"
	CarrierWebSocket CarrierKind = "websocket"
)

// Config is a validated description of one transport link: which
// carrier to use, its queueing behavior, and its timing. Construction
// never touches the network — Validate only checks internal
// consistency, matching limits.Limits's validate-then-use convention.
type Config struct {
	Kind CarrierKind
	Addr string

	TLS TLSConfig
	UDP UDPConfig

	QueueMode      Mode
	OverloadPolicy OverloadPolicy

	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	Reconnect ReconnectPolicy

	KeepaliveInterval time.Duration
	KeepaliveTimeout  time.Duration
}

// Validate checks Config for internal consistency. It does not dial or
// listen.
func (c Config) Validate() error {
	switch c.Kind {
	case CarrierTCP, CarrierTLS, CarrierUDP, CarrierWebSocket:
	default:
		return errs.Field(errs.KindInvalidValue, "kind", "unknown carrier kind")
	}
	if c.Addr == "" {
		return errs.Field(errs.KindInvalidValue, "addr", "addr must not be empty")
	}
	if c.ReadTimeout <= 0 {
		return errs.Field(errs.KindInvalidValue, "read_timeout", "read_timeout must be positive")
	}
	if c.WriteTimeout <= 0 {
		return errs.Field(errs.KindInvalidValue, "write_timeout", "write_timeout must be positive")
	}
	if c.Kind == CarrierTCP || c.Kind == CarrierTLS || c.Kind == CarrierWebSocket {
		if c.Reconnect.InitialDelay <= 0 {
			return errs.Field(errs.KindInvalidValue, "reconnect.initial_delay", "must be positive")
		}
		if c.Reconnect.MaxDelay < c.Reconnect.InitialDelay {
			return errs.Field(errs.KindInvalidValue, "reconnect.max_delay", "must be >= initial_delay")
		}
		if c.Reconnect.BackoffFactor <= 1 {
			return errs.Field(errs.KindInvalidValue, "reconnect.backoff_factor", "must be > 1")
		}
		if c.Reconnect.Jitter < 0 || c.Reconnect.Jitter > 1 {
			return errs.Field(errs.KindOutOfRange, "reconnect.jitter", "must be in [0,1]")
		}
	}
	if c.KeepaliveInterval > 0 && c.KeepaliveTimeout <= c.KeepaliveInterval {
		return errs.Field(errs.KindInvalidValue, "keepalive.timeout", "must exceed keepalive.interval")
	}
	if c.Kind == CarrierUDP && c.UDP.MaxPayloadBytes < 0 {
		return errs.Field(errs.KindInvalidValue, "udp.max_payload_bytes", "must be non-negative")
	}
	return nil
}
