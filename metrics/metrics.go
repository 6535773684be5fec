// Package metrics provides the bridge's prometheus.Counter/Gauge
// surface: thin wrappers registered on an injectable
// *prometheus.Registry (never the global default registry), so
// transport, bridge, and record subsystems can be instantiated
// multiple times in the same process (e.g. in tests) without
// colliding on metric names.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Set is the full collection of counters/gauges the bridge exposes.
// Construct one per process (or per isolated test) with NewSet.
type Set struct {
	// TransportDropped counts dropped outbound messages by carrier,
	// direction, and overload policy reason (DropOldest, DropNewest,
	// ShedByType).
	TransportDropped *prometheus.CounterVec
	// TransportQueueDepth reports the current depth of each carrier's
	// bounded send queue.
	TransportQueueDepth *prometheus.GaugeVec
	// TransportReconnects counts reconnect attempts per carrier.
	TransportReconnects *prometheus.CounterVec

	// BridgeDeduped counts messages discarded by the Deduplicator.
	BridgeDeduped prometheus.Counter
	// BridgeEmitted counts CoT events the Emitter successfully sent
	// downstream.
	BridgeEmitted prometheus.Counter
	// BridgeEmitterDropped counts Emitter drops due to the per-UID
	// minimum separation gap, rate-limit, or queue backpressure.
	BridgeEmitterDropped *prometheus.CounterVec
	// BridgeCorrelatorEvictions counts LRU evictions from the
	// Correlator's UID cache.
	BridgeCorrelatorEvictions prometheus.Counter

	// NegotiatorTransitions counts negotiator state transitions by
	// (from, to, reason).
	NegotiatorTransitions *prometheus.CounterVec

	// RecordChunksWritten counts .takrec chunks successfully flushed.
	RecordChunksWritten prometheus.Counter
	// RecordIntegrityBroken counts CRC/integrity-chain failures
	// encountered during replay or recovery.
	RecordIntegrityBroken prometheus.Counter
}

// NewSet builds and registers a Set on reg. reg must not be nil; pass
// prometheus.NewRegistry() for an isolated instance (tests, multiple
// bridge instances in one process) rather than the global default.
func NewSet(reg *prometheus.Registry) *Set {
	s := &Set{
		TransportDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "takbridge",
			Subsystem: "transport",
			Name:      "dropped_total",
			Help:      "Outbound messages dropped by carrier, direction, and overload policy reason.",
		}, []string{"carrier", "direction", "reason"}),
		TransportQueueDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "takbridge",
			Subsystem: "transport",
			Name:      "queue_depth",
			Help:      "Current depth of a carrier's bounded send queue.",
		}, []string{"carrier"}),
		TransportReconnects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "takbridge",
			Subsystem: "transport",
			Name:      "reconnects_total",
			Help:      "Reconnect attempts per carrier.",
		}, []string{"carrier"}),
		BridgeDeduped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "takbridge",
			Subsystem: "bridge",
			Name:      "deduped_total",
			Help:      "Messages discarded by the deduplicator's sliding window.",
		}),
		BridgeEmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "takbridge",
			Subsystem: "bridge",
			Name:      "emitted_total",
			Help:      "CoT events successfully handed to the emitter's sink.",
		}),
		BridgeEmitterDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "takbridge",
			Subsystem: "bridge",
			Name:      "emitter_dropped_total",
			Help:      "Emitter drops by reason (min_separation, rate_limited, queue_full).",
		}, []string{"reason"}),
		BridgeCorrelatorEvictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "takbridge",
			Subsystem: "bridge",
			Name:      "correlator_evictions_total",
			Help:      "LRU evictions from the correlator's UID cache.",
		}),
		NegotiatorTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "takbridge",
			Subsystem: "wire",
			Name:      "negotiator_transitions_total",
			Help:      "Negotiator state transitions by (from, to, reason).",
		}, []string{"from", "to", "reason"}),
		RecordChunksWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "takbridge",
			Subsystem: "record",
			Name:      "chunks_written_total",
			Help:      "takrec chunks successfully flushed.",
		}),
		RecordIntegrityBroken: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "takbridge",
			Subsystem: "record",
			Name:      "integrity_broken_total",
			Help:      "CRC or integrity-chain failures encountered during replay or recovery.",
		}),
	}
	reg.MustRegister(
		s.TransportDropped, s.TransportQueueDepth, s.TransportReconnects,
		s.BridgeDeduped, s.BridgeEmitted, s.BridgeEmitterDropped, s.BridgeCorrelatorEvictions,
		s.NegotiatorTransitions,
		s.RecordChunksWritten, s.RecordIntegrityBroken,
	)
	return s
}
