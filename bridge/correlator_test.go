package bridge_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/NERVsystems/takbridge/bridge"
)

func TestCorrelatorStablePerObject(t *testing.T) {
	c, err := bridge.NewCorrelator(bridge.UidStablePerObject, nil, time.Minute, "", nil, nil)
	require.NoError(t, err)
	defer c.Close()

	u1, err := c.Resolve("node-1", "obj-1", "det-1")
	require.NoError(t, err)
	u2, err := c.Resolve("node-1", "obj-1", "det-2")
	require.NoError(t, err)

	require.Equal(t, u1, u2, "same object should resolve to the same uid regardless of detection id")
}

func TestCorrelatorStablePerDetection(t *testing.T) {
	c, err := bridge.NewCorrelator(bridge.UidStablePerDetection, nil, time.Minute, "", nil, nil)
	require.NoError(t, err)
	defer c.Close()

	u1, err := c.Resolve("node-1", "obj-1", "det-1")
	require.NoError(t, err)
	u2, err := c.Resolve("node-1", "obj-1", "det-2")
	require.NoError(t, err)

	require.NotEqual(t, u1, u2)
}

func TestCorrelatorCustomPolicy(t *testing.T) {
	custom := func(nodeID, objectID, detectionID string) string { return "custom-" + objectID }
	c, err := bridge.NewCorrelator(bridge.UidCustom, custom, time.Minute, "", nil, nil)
	require.NoError(t, err)
	defer c.Close()

	u, err := c.Resolve("node-1", "obj-1", "det-1")
	require.NoError(t, err)
	require.Equal(t, "custom-obj-1", u.String())
}

func TestCorrelatorDeterministicAcrossInstances(t *testing.T) {
	c1, err := bridge.NewCorrelator(bridge.UidStablePerObject, nil, time.Minute, "", nil, nil)
	require.NoError(t, err)
	defer c1.Close()
	c2, err := bridge.NewCorrelator(bridge.UidStablePerObject, nil, time.Minute, "", nil, nil)
	require.NoError(t, err)
	defer c2.Close()

	u1, err := c1.Resolve("node-1", "obj-1", "")
	require.NoError(t, err)
	u2, err := c2.Resolve("node-1", "obj-1", "")
	require.NoError(t, err)

	require.Equal(t, u1, u2, "identical input sequences must allocate identical uids")
}

func TestCorrelatorPersistsAcrossRestart(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "correlator.db")

	c1, err := bridge.NewCorrelator(bridge.UidStablePerObject, nil, time.Minute, dbPath, nil, nil)
	require.NoError(t, err)
	u1, err := c1.Resolve("node-1", "obj-1", "")
	require.NoError(t, err)
	require.NoError(t, c1.Close())

	c2, err := bridge.NewCorrelator(bridge.UidStablePerObject, nil, time.Minute, dbPath, nil, nil)
	require.NoError(t, err)
	defer c2.Close()
	u2, err := c2.Resolve("node-1", "obj-1", "")
	require.NoError(t, err)

	require.Equal(t, u1, u2, "uid must survive a persisted-correlator restart")
}
