package bridge_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NERVsystems/takbridge/bridge"
	"github.com/NERVsystems/takbridge/cot"
	"github.com/NERVsystems/takbridge/envelope"
)

func countingSink() (envelope.Sink[cot.CotEvent], func() int) {
	var mu sync.Mutex
	n := 0
	sink := envelope.SinkFunc[cot.CotEvent]{
		SendFn: func(ctx context.Context, env envelope.Envelope[cot.CotEvent]) error {
			mu.Lock()
			n++
			mu.Unlock()
			return nil
		},
	}
	return sink, func() int { mu.Lock(); defer mu.Unlock(); return n }
}

func testEvent(t *testing.T, uid string) cot.CotEvent {
	t.Helper()
	pos, err := cot.NewPosition(1, 2)
	require.NoError(t, err)
	now := cot.Now()
	ev, err := cot.NewEvent(cot.EventParams{
		Uid:   cot.Uid(uid),
		Type:  cot.MustParseCotType("a-f-G-U-C"),
		Time:  now,
		Start: now,
		Stale: now.Add(time.Minute),
		Point: pos,
	})
	require.NoError(t, err)
	return ev
}

func TestEmitterAllowsWithinRate(t *testing.T) {
	sink, count := countingSink()
	e := bridge.NewEmitter(sink, 100, 0, nil, nil, time.Now())

	ok, err := e.Emit(context.Background(), testEvent(t, "u1"), time.Now())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, count())
}

func TestEmitterDropsOnMinSeparation(t *testing.T) {
	sink, count := countingSink()
	e := bridge.NewEmitter(sink, 1000, time.Second, nil, nil, time.Now())

	now := time.Now()
	ok, err := e.Emit(context.Background(), testEvent(t, "u1"), now)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = e.Emit(context.Background(), testEvent(t, "u1"), now.Add(10*time.Millisecond))
	require.NoError(t, err)
	assert.False(t, ok, "second emission within min_separation should be dropped")
	assert.Equal(t, 1, count())
}

func TestEmitterDropsWhenRateExceeded(t *testing.T) {
	sink, count := countingSink()
	e := bridge.NewEmitter(sink, 1, 0, nil, nil, time.Now())

	now := time.Now()
	for i := 0; i < 5; i++ {
		_, _ = e.Emit(context.Background(), testEvent(t, "u1"), now)
	}
	assert.LessOrEqual(t, count(), 1, "a burst against a 1/s bucket should admit at most the initial token")
}

func TestEmitterDifferentUidsIndependentOfMinSeparation(t *testing.T) {
	sink, count := countingSink()
	e := bridge.NewEmitter(sink, 1000, time.Second, nil, nil, time.Now())

	now := time.Now()
	ok1, err := e.Emit(context.Background(), testEvent(t, "u1"), now)
	require.NoError(t, err)
	ok2, err := e.Emit(context.Background(), testEvent(t, "u2"), now)
	require.NoError(t, err)

	assert.True(t, ok1)
	assert.True(t, ok2)
	assert.Equal(t, 2, count())
}
