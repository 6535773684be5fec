package record

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NERVsystems/takbridge/transport"
)

func TestWriteReadReplayRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roundtrip.takrec")
	opts := testWriterOptions()
	opts.WithIntegrity = true
	w, err := Create(path, opts)
	require.NoError(t, err)

	offsets := []time.Duration{0, 5 * time.Millisecond, 10 * time.Millisecond}
	for i, off := range offsets {
		e := NewEntry(transport.DirectionInbound, time.Now().UTC(), off, ProtocolSapientV2)
		e.Metadata = map[string]string{"seq": string(rune('a' + i))}
		require.NoError(t, w.Append(e))
	}
	require.NoError(t, w.Close())

	r, err := Open(path)
	require.NoError(t, err)
	assert.True(t, r.IntegrityVerified)
	require.Len(t, r.Entries(), 3)

	replayer := NewReplayerFromReader(r, 0)
	ctx := context.Background()
	for i := range offsets {
		e, ok, err := replayer.Next(ctx)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, offsets[i], e.MonotonicOffset)
	}
	_, ok, _ := replayer.Next(ctx)
	assert.False(t, ok)
}
