package record

import (
	"context"
	"sort"
	"time"

	"github.com/NERVsystems/takbridge/errs"
)

// Replayer paces a recorded session's entries by their monotonic
// offsets, never by wall time, so a replay reproduces the original
// message cadence regardless of how long replay itself takes
// (spec.md §4.8, §8 testable property 7).
type Replayer struct {
	entries []Entry
	scale   float64
	pos     int

	havePrev   bool
	prevOffset time.Duration
}

// NewReplayer builds a Replayer over entries, which must already be in
// non-decreasing MonotonicOffset order (the order Reader.Entries
// returns them in). timeScale multiplies the pacing delay: 1.0 plays
// back at the recorded rate, 2.0 at double speed, 0 or negative means
// replay as fast as possible with no pacing delay.
func NewReplayer(entries []Entry, timeScale float64) *Replayer {
	return &Replayer{entries: entries, scale: timeScale}
}

// NewReplayerFromReader builds a Replayer over every entry a Reader
// recovered, whether via its trailing index or a crash-recovery scan.
func NewReplayerFromReader(r *Reader, timeScale float64) *Replayer {
	return NewReplayer(r.Entries(), timeScale)
}

// Next blocks until the next entry's paced delay has elapsed (scaled
// from the gap between it and the previously returned entry), then
// returns it. Returns (Entry{}, false, nil) once every entry has been
// delivered, or ctx.Err() if ctx is cancelled while waiting.
func (r *Replayer) Next(ctx context.Context) (Entry, bool, error) {
	if r.pos >= len(r.entries) {
		return Entry{}, false, nil
	}
	e := r.entries[r.pos]

	if r.scale > 0 && r.havePrev {
		gap := e.MonotonicOffset - r.prevOffset
		delay := time.Duration(float64(gap) / r.scale)
		if delay > 0 {
			timer := time.NewTimer(delay)
			defer timer.Stop()
			select {
			case <-ctx.Done():
				return Entry{}, false, ctx.Err()
			case <-timer.C:
			}
		}
	}

	r.pos++
	r.prevOffset = e.MonotonicOffset
	r.havePrev = true
	return e, true, nil
}

// Seek repositions the replayer so the next call to Next returns the
// first entry with MonotonicOffset >= target, using a binary search
// since entries are ordered by monotonic offset.
func (r *Replayer) Seek(target time.Duration) error {
	if !sort.SliceIsSorted(r.entries, func(i, j int) bool {
		return r.entries[i].MonotonicOffset < r.entries[j].MonotonicOffset
	}) {
		return errs.New(errs.KindIndexCorrupt, "replay entries are not monotonic-offset ordered")
	}
	idx := sort.Search(len(r.entries), func(i int) bool {
		return r.entries[i].MonotonicOffset >= target
	})
	r.pos = idx
	r.havePrev = false
	return nil
}

// Remaining reports how many entries have not yet been returned.
func (r *Replayer) Remaining() int {
	return len(r.entries) - r.pos
}
