package bridge_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NERVsystems/takbridge/bridge"
)

func validConfig() bridge.Config {
	return bridge.Config{
		CotStale:             30 * time.Second,
		TimePolicy:           bridge.TimePolicyMessageTime,
		DedupWindow:          5 * time.Second,
		CorrelatorTTL:        time.Minute,
		UnknownClassFallback: "a-u-G",
		Classification:       []bridge.ClassificationEntry{{Label: "person", CotType: "a-f-G-U-C"}},
		MaxUpdatesPerSecond:  10,
	}
}

func TestConfigValidateAccepts(t *testing.T) {
	require.NoError(t, validConfig().Validate())
}

func TestConfigValidateRejectsZeroStale(t *testing.T) {
	cfg := validConfig()
	cfg.CotStale = 0
	assert.Error(t, cfg.Validate())
}

func TestConfigValidateRequiresMaxSkewForClampPolicy(t *testing.T) {
	cfg := validConfig()
	cfg.TimePolicy = bridge.TimePolicyObservedWithSkewClamp
	cfg.MaxSkew = 0
	assert.Error(t, cfg.Validate())

	cfg.MaxSkew = time.Second
	assert.NoError(t, cfg.Validate())
}

func TestConfigValidateRequiresCustomUidFunc(t *testing.T) {
	cfg := validConfig()
	cfg.UidPolicy = bridge.UidCustom
	assert.Error(t, cfg.Validate())

	cfg.CustomUid = func(nodeID, objectID, detectionID string) string { return nodeID }
	assert.NoError(t, cfg.Validate())
}

func TestConfigValidateRequiresAlphaBetaPositive(t *testing.T) {
	cfg := validConfig()
	cfg.Smoothing = bridge.SmoothingAlphaBeta
	assert.Error(t, cfg.Validate())

	cfg.Alpha, cfg.Beta = 0.5, 0.1
	assert.NoError(t, cfg.Validate())
}

func TestConfigValidateRequiresFallback(t *testing.T) {
	cfg := validConfig()
	cfg.UnknownClassFallback = ""
	assert.Error(t, cfg.Validate())

	cfg.StrictMode = true
	assert.Error(t, cfg.Validate())
}

func TestConfigValidateRejectsMalformedClassificationCotType(t *testing.T) {
	cfg := validConfig()
	cfg.Classification = append(cfg.Classification, bridge.ClassificationEntry{Label: "drone", CotType: "a-z-G"})
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "drone")
}

func TestConfigValidateRejectsMalformedFallback(t *testing.T) {
	cfg := validConfig()
	cfg.UnknownClassFallback = "a-z-G"
	assert.Error(t, cfg.Validate())
}

func TestConfigValidateStrictModeRequiredLabels(t *testing.T) {
	cfg := validConfig()
	cfg.StrictMode = true
	cfg.RequiredLabels = []string{"person", "vehicle"}
	assert.Error(t, cfg.Validate(), "vehicle is not in the classification table")

	cfg.Classification = append(cfg.Classification, bridge.ClassificationEntry{Label: "vehicle", CotType: "a-f-G-E-V-C"})
	assert.NoError(t, cfg.Validate())
}
