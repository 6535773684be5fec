package record

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NERVsystems/takbridge/transport"
)

func testEntries(offsets ...time.Duration) []Entry {
	entries := make([]Entry, len(offsets))
	for i, off := range offsets {
		entries[i] = NewEntry(transport.DirectionInbound, time.Now(), off, ProtocolTakXml)
	}
	return entries
}

func TestReplayerDeliversAllEntriesInOrder(t *testing.T) {
	entries := testEntries(0, 10*time.Millisecond, 20*time.Millisecond)
	r := NewReplayer(entries, 0) // scale <= 0: no pacing delay

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		e, ok, err := r.Next(ctx)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, entries[i].MonotonicOffset, e.MonotonicOffset)
	}

	_, ok, err := r.Next(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestReplayerPacesByMonotonicOffsetNotWallClock(t *testing.T) {
	entries := testEntries(0, 20*time.Millisecond)
	r := NewReplayer(entries, 1.0)

	ctx := context.Background()
	_, _, err := r.Next(ctx) // first entry: no prior offset, no delay
	require.NoError(t, err)

	start := time.Now()
	_, ok, err := r.Next(ctx)
	elapsed := time.Since(start)
	require.NoError(t, err)
	require.True(t, ok)
	assert.GreaterOrEqual(t, elapsed, 15*time.Millisecond, "second entry should be paced by its 20ms gap")
}

func TestReplayerScaleSpeedsUpPlayback(t *testing.T) {
	entries := testEntries(0, 40*time.Millisecond)
	r := NewReplayer(entries, 4.0) // 4x speed: 40ms gap becomes ~10ms

	ctx := context.Background()
	_, _, _ = r.Next(ctx)
	start := time.Now()
	_, _, _ = r.Next(ctx)
	elapsed := time.Since(start)
	assert.Less(t, elapsed, 30*time.Millisecond)
}

func TestReplayerSeekFindsFirstEntryAtOrAfterTarget(t *testing.T) {
	entries := testEntries(0, 10*time.Millisecond, 20*time.Millisecond, 30*time.Millisecond)
	r := NewReplayer(entries, 0)

	require.NoError(t, r.Seek(15*time.Millisecond))
	assert.Equal(t, 2, r.Remaining(), "seek should land just before the 20ms entry")

	e, ok, err := r.Next(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 20*time.Millisecond, e.MonotonicOffset)

	_, ok, err = r.Next(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	_, ok, _ = r.Next(context.Background())
	assert.False(t, ok)
}

func TestReplayerNextRespectsContextCancellation(t *testing.T) {
	entries := testEntries(0, time.Hour)
	r := NewReplayer(entries, 1.0)

	ctx, cancel := context.WithCancel(context.Background())
	_, _, _ = r.Next(ctx) // first entry, immediate

	go func() {
		time.Sleep(5 * time.Millisecond)
		cancel()
	}()
	_, ok, err := r.Next(ctx)
	assert.False(t, ok)
	assert.Error(t, err)
}
