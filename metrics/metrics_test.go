package metrics_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/NERVsystems/takbridge/metrics"
)

func TestNewSetRegistersWithoutPanic(t *testing.T) {
	reg := prometheus.NewRegistry()
	s := metrics.NewSet(reg)

	s.TransportDropped.WithLabelValues("udp", "outbound", "DropOldest").Inc()
	s.BridgeDeduped.Inc()
	s.NegotiatorTransitions.WithLabelValues("legacy_xml", "awaiting_upgrade_response", "offer_sent").Inc()

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatal(err)
	}
	if len(mfs) == 0 {
		t.Fatal("expected at least one registered metric family")
	}
}

func TestNewSetTwiceOnDistinctRegistriesDoesNotPanic(t *testing.T) {
	metrics.NewSet(prometheus.NewRegistry())
	metrics.NewSet(prometheus.NewRegistry())
}
