package bridge_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NERVsystems/takbridge/bridge"
	"github.com/NERVsystems/takbridge/cot"
	"github.com/NERVsystems/takbridge/envelope"
	"github.com/NERVsystems/takbridge/limits"
	"github.com/NERVsystems/takbridge/sapient"
)

func testDetection(nodeID, objectID, detectionID, label string) sapient.Detection {
	return sapient.Detection{
		NodeID:                    nodeID,
		ObjectID:                  objectID,
		DetectionID:               detectionID,
		ClassificationLabel:       label,
		ClassificationProbability: 0.8,
		Lat:                       10,
		Lon:                       20,
		Timestamp:                 time.Now(),
	}
}

func newTestPipeline(t *testing.T) (*bridge.Pipeline, func() []cot.CotEvent) {
	t.Helper()
	var emitted []cot.CotEvent
	sink := envelope.SinkFunc[cot.CotEvent]{
		SendFn: func(ctx context.Context, env envelope.Envelope[cot.CotEvent]) error {
			emitted = append(emitted, env.Message)
			return nil
		},
	}

	cfg := bridge.Config{
		CotStale:             time.Minute,
		TimePolicy:           bridge.TimePolicyMessageTime,
		DedupWindow:          time.Minute,
		CorrelatorTTL:        time.Minute,
		UnknownClassFallback: "a-u-G",
		Classification:       []bridge.ClassificationEntry{{Label: "person", CotType: "a-f-G-U-C"}},
		MaxUpdatesPerSecond:  1000,
	}

	p, err := bridge.NewPipeline(cfg, sink, nil, nil, time.Now())
	require.NoError(t, err)
	return p, func() []cot.CotEvent { return emitted }
}

func TestPipelineProcessEmitsMappedEvent(t *testing.T) {
	p, emitted := newTestPipeline(t)
	defer p.Close()

	det := testDetection("node-1", "obj-1", "det-1", "person")
	ok, err := p.Process(context.Background(), det, time.Now(), []byte("frame-1"))
	require.NoError(t, err)
	require.True(t, ok)

	events := emitted()
	require.Len(t, events, 1)
	assert.Equal(t, "a-f-G-U-C", events[0].Type().String())
}

func TestPipelineProcessDropsDuplicate(t *testing.T) {
	p, emitted := newTestPipeline(t)
	defer p.Close()

	det := testDetection("node-1", "obj-1", "det-1", "person")
	now := time.Now()

	ok1, err := p.Process(context.Background(), det, now, []byte("frame-1"))
	require.NoError(t, err)
	require.True(t, ok1)

	ok2, err := p.Process(context.Background(), det, now.Add(time.Millisecond), []byte("frame-1"))
	require.NoError(t, err)
	assert.False(t, ok2)
	assert.Len(t, emitted(), 1)
}

func TestPipelineProcessStableUidAcrossDetections(t *testing.T) {
	p, emitted := newTestPipeline(t)
	defer p.Close()

	now := time.Now()
	_, err := p.Process(context.Background(), testDetection("node-1", "obj-1", "det-1", "person"), now, []byte("f1"))
	require.NoError(t, err)
	_, err = p.Process(context.Background(), testDetection("node-1", "obj-1", "det-2", "person"), now.Add(time.Second), []byte("f2"))
	require.NoError(t, err)

	events := emitted()
	require.Len(t, events, 2)
	assert.Equal(t, events[0].Uid(), events[1].Uid())
}

func TestValidateAgainstTransportRejectsInsufficientDetailBudget(t *testing.T) {
	cfg := bridge.Config{CotStale: time.Minute}
	lims := limits.Limits{MaxDetailElements: 1}
	assert.Error(t, bridge.ValidateAgainstTransport(cfg, lims))
}

func TestValidateAgainstTransportAcceptsSufficientDetailBudget(t *testing.T) {
	cfg := bridge.Config{CotStale: time.Minute}
	lims := limits.Limits{MaxDetailElements: 10}
	assert.NoError(t, bridge.ValidateAgainstTransport(cfg, lims))
}
