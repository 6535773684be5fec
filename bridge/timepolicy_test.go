package bridge_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/NERVsystems/takbridge/bridge"
	"github.com/NERVsystems/takbridge/cot"
)

func TestResolveTimeMessageTime(t *testing.T) {
	msg := cot.NewTimestamp(time.Unix(100, 0))
	obs := cot.NewTimestamp(time.Unix(200, 0))

	got := bridge.ResolveTime(bridge.TimePolicyMessageTime, time.Second, msg, obs)
	assert.True(t, got.Equal(msg))
}

func TestResolveTimeObservedTime(t *testing.T) {
	msg := cot.NewTimestamp(time.Unix(100, 0))
	obs := cot.NewTimestamp(time.Unix(200, 0))

	got := bridge.ResolveTime(bridge.TimePolicyObservedTime, time.Second, msg, obs)
	assert.True(t, got.Equal(obs))
}

func TestResolveTimeSkewClampWithinBounds(t *testing.T) {
	obs := cot.NewTimestamp(time.Unix(200, 0))
	msg := cot.NewTimestamp(time.Unix(200, 0).Add(500 * time.Millisecond))

	got := bridge.ResolveTime(bridge.TimePolicyObservedWithSkewClamp, time.Second, msg, obs)
	assert.True(t, got.Equal(msg), "skew within max_skew should pass message time through unchanged")
}

func TestResolveTimeSkewClampExceeded(t *testing.T) {
	obs := cot.NewTimestamp(time.Unix(200, 0))
	msg := cot.NewTimestamp(time.Unix(200, 0).Add(10 * time.Second))

	got := bridge.ResolveTime(bridge.TimePolicyObservedWithSkewClamp, time.Second, msg, obs)
	want := obs.Add(time.Second)
	assert.True(t, got.Equal(want), "excess skew should clamp to observed+maxSkew in the direction of message time")
}

func TestResolveTimeSkewClampExceededNegativeDirection(t *testing.T) {
	obs := cot.NewTimestamp(time.Unix(200, 0))
	msg := cot.NewTimestamp(time.Unix(200, 0).Add(-10 * time.Second))

	got := bridge.ResolveTime(bridge.TimePolicyObservedWithSkewClamp, time.Second, msg, obs)
	want := obs.Add(-time.Second)
	assert.True(t, got.Equal(want))
}
