package transport_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NERVsystems/takbridge/transport"
)

func validTCPConfig() transport.Config {
	return transport.Config{
		Kind:         transport.CarrierTCP,
		Addr:         "127.0.0.1:9000",
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
		Reconnect: transport.ReconnectPolicy{
			InitialDelay:  time.Second,
			MaxDelay:      10 * time.Second,
			BackoffFactor: 2,
			Jitter:        0.2,
		},
	}
}

func TestConfigValidateAcceptsWellFormedTCP(t *testing.T) {
	require.NoError(t, validTCPConfig().Validate())
}

func TestConfigValidateRejectsUnknownKind(t *testing.T) {
	cfg := validTCPConfig()
	cfg.Kind = transport.CarrierKind("bogus")
	assert.Error(t, cfg.Validate())
}

func TestConfigValidateRejectsEmptyAddr(t *testing.T) {
	cfg := validTCPConfig()
	cfg.Addr = ""
	assert.Error(t, cfg.Validate())
}

func TestConfigValidateRejectsNonPositiveTimeouts(t *testing.T) {
	cfg := validTCPConfig()
	cfg.ReadTimeout = 0
	assert.Error(t, cfg.Validate())

	cfg = validTCPConfig()
	cfg.WriteTimeout = 0
	assert.Error(t, cfg.Validate())
}

func TestConfigValidateRejectsBadReconnectPolicy(t *testing.T) {
	cfg := validTCPConfig()
	cfg.Reconnect.MaxDelay = cfg.Reconnect.InitialDelay - time.Millisecond
	assert.Error(t, cfg.Validate())

	cfg = validTCPConfig()
	cfg.Reconnect.BackoffFactor = 1
	assert.Error(t, cfg.Validate())

	cfg = validTCPConfig()
	cfg.Reconnect.Jitter = 1.5
	assert.Error(t, cfg.Validate())
}

func TestConfigValidateUDPSkipsReconnectChecks(t *testing.T) {
	cfg := transport.Config{
		Kind:         transport.CarrierUDP,
		Addr:         "127.0.0.1:9000",
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	}
	assert.NoError(t, cfg.Validate())
}

func TestConfigValidateRejectsNegativeUDPMaxPayload(t *testing.T) {
	cfg := transport.Config{
		Kind:         transport.CarrierUDP,
		Addr:         "127.0.0.1:9000",
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
		UDP:          transport.UDPConfig{MaxPayloadBytes: -1},
	}
	assert.Error(t, cfg.Validate())
}

func TestConfigValidateRejectsKeepaliveTimeoutNotExceedingInterval(t *testing.T) {
	cfg := validTCPConfig()
	cfg.KeepaliveInterval = time.Second
	cfg.KeepaliveTimeout = time.Second
	assert.Error(t, cfg.Validate())

	cfg.KeepaliveTimeout = 2 * time.Second
	assert.NoError(t, cfg.Validate())
}
