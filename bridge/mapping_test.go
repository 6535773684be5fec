package bridge_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NERVsystems/takbridge/bridge"
	"github.com/NERVsystems/takbridge/sapient"
)

func TestMapperKnownLabel(t *testing.T) {
	cfg := bridge.Config{
		Classification:       []bridge.ClassificationEntry{{Label: "person", CotType: "a-f-G-U-C"}},
		UnknownClassFallback: "a-u-G",
	}
	m := bridge.NewMapper(cfg)

	ct, err := m.MapType("person")
	require.NoError(t, err)
	assert.Equal(t, "a-f-G-U-C", ct.String())
}

func TestMapperUnknownLabelFallsBackNonStrict(t *testing.T) {
	cfg := bridge.Config{
		Classification:       []bridge.ClassificationEntry{{Label: "person", CotType: "a-f-G-U-C"}},
		UnknownClassFallback: "a-u-G",
	}
	m := bridge.NewMapper(cfg)

	ct, err := m.MapType("drone")
	require.NoError(t, err)
	assert.Equal(t, "a-u-G", ct.String())
}

func TestMapperUnknownLabelRejectedStrict(t *testing.T) {
	cfg := bridge.Config{
		Classification:       []bridge.ClassificationEntry{{Label: "person", CotType: "a-f-G-U-C"}},
		UnknownClassFallback: "a-u-G",
		StrictMode:           true,
	}
	m := bridge.NewMapper(cfg)

	_, err := m.MapType("drone")
	assert.Error(t, err)
}

func TestBehaviourDetailEmpty(t *testing.T) {
	_, ok := bridge.BehaviourDetail(nil)
	assert.False(t, ok)
}

func TestBehaviourDetailNonEmpty(t *testing.T) {
	ext, ok := bridge.BehaviourDetail([]sapient.BehaviourLabel{{Key: "loitering", Severity: 3}})
	require.True(t, ok)
	assert.Equal(t, "behaviourLabels", ext.Key)
}

func TestProvenanceDetail(t *testing.T) {
	p := bridge.ProvenanceDetail("person", 0.92)
	require.Len(t, p.Classifications, 1)
	assert.Equal(t, "person", p.Classifications[0].Label)
	assert.InDelta(t, 0.92, p.Classifications[0].Probability, 1e-9)
}
