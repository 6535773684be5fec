package transport

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/NERVsystems/takbridge/envelope"
	"github.com/NERVsystems/takbridge/errs"
	"github.com/NERVsystems/takbridge/metrics"
)

// Mode selects how SendQueue orders pending messages for drain.
type Mode int

const (
	// Fifo drains strictly in arrival order.
	Fifo Mode = iota
	// Priority drains higher-priority messages first, FIFO within a
	// priority tier.
	Priority
	// CoalesceLatestByUid keeps at most one pending message per UID;
	// a new message for the same UID replaces the previous one,
	// keeping the *latest* message's priority (our resolution of the
	// otherwise-unspecified choice between latest and first-queued).
	// The classifier still orders drains: coalesced entries are kept in
	// priority order (FIFO within a tier), exactly as in Priority mode.
	CoalesceLatestByUid
)

// OverloadPolicy selects what SendQueue does when a new message arrives
// and either bound (max messages, max bytes) would be exceeded.
type OverloadPolicy int

const (
	// DropOldest evicts the head of the queue to make room.
	DropOldest OverloadPolicy = iota
	// DropNewest discards the incoming message instead.
	DropNewest
	// ShedByType evicts the lowest-priority queued message first.
	ShedByType
	// CoalesceLatestByUidOverload switches the queue into coalescing
	// behavior for the incoming message, transparently deduplicating
	// by UID even if Mode is not already CoalesceLatestByUid.
	CoalesceLatestByUidOverload
)

// Classifier assigns a 0..255 priority to a queued payload (higher
// drains first). The zero Classifier gives every message priority 0,
// degrading Priority mode to Fifo.
type Classifier func(uid string, payload []byte) uint8

type queueItem struct {
	uid      string
	payload  []byte
	priority uint8
	seq      uint64
}

// SendQueue is a bounded, optionally-prioritized, optionally-coalescing
// outbound message queue sitting in front of a Carrier. It never drops
// silently: every drop increments metrics.Set.TransportDropped and is
// logged at most once per logWindow.
type SendQueue struct {
	mu   sync.Mutex
	cond *sync.Cond

	mode       Mode
	overload   OverloadPolicy
	classifier Classifier

	maxMessages int
	maxBytes    int

	items   []queueItem
	byUID   map[string]int // uid -> index into items, CoalesceLatestByUid only
	bytes   int
	nextSeq uint64
	closed  bool

	carrierName string
	metrics     *metrics.Set
	logger      *slog.Logger

	lastDropLog     time.Time
	droppedInWindow int
	logWindow       time.Duration
}

// NewSendQueue constructs a queue bounded by maxMessages and maxBytes
// (both must be > 0; callers typically derive these from
// limits.Limits). classifier may be nil.
func NewSendQueue(carrierName string, mode Mode, overload OverloadPolicy, maxMessages, maxBytes int, classifier Classifier, m *metrics.Set, logger *slog.Logger) *SendQueue {
	if classifier == nil {
		classifier = func(string, []byte) uint8 { return 0 }
	}
	if logger == nil {
		logger = slog.Default()
	}
	q := &SendQueue{
		mode:        mode,
		overload:    overload,
		classifier:  classifier,
		maxMessages: maxMessages,
		maxBytes:    maxBytes,
		byUID:       make(map[string]int),
		carrierName: carrierName,
		metrics:     m,
		logger:      logger,
		logWindow:   time.Second,
	}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Enqueue adds a message for uid, applying the configured overload
// policy if the queue is already at (or would exceed) its bounds.
func (q *SendQueue) Enqueue(uid string, payload []byte) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}

	prio := q.classifier(uid, payload)

	if q.mode == CoalesceLatestByUid || q.overload == CoalesceLatestByUidOverload {
		if idx, ok := q.byUID[uid]; ok {
			q.bytes -= len(q.items[idx].payload)
			replacement := queueItem{uid: uid, payload: payload, priority: prio, seq: q.nextSeq}
			q.nextSeq++
			if q.mode == CoalesceLatestByUid {
				// The new message's priority may differ from the entry
				// being replaced; remove and re-insert so the queue
				// stays ordered by priority rather than keeping the
				// coalesced entry pinned at its old slot.
				q.items = append(q.items[:idx], q.items[idx+1:]...)
				q.insertLocked(replacement)
				q.rebuildByUIDLocked()
			} else {
				q.items[idx] = replacement
			}
			q.bytes += len(payload)
			q.cond.Signal()
			return
		}
	}

	for q.overflowsLocked(len(payload)) {
		if !q.evictOneLocked() {
			q.recordDropLocked()
			return
		}
	}

	item := queueItem{uid: uid, payload: payload, priority: prio, seq: q.nextSeq}
	q.nextSeq++
	idx := q.insertLocked(item)
	q.bytes += len(payload)
	if q.mode == CoalesceLatestByUid || q.overload == CoalesceLatestByUidOverload {
		q.byUID[uid] = idx
		if idx != len(q.items)-1 {
			// A priority-sorted insert at idx shifted every later
			// entry's index; a plain assignment here would leave them
			// stale, so rebuild the whole map.
			q.rebuildByUIDLocked()
		}
	}
	if q.metrics != nil {
		q.metrics.TransportQueueDepth.WithLabelValues(q.carrierName).Set(float64(len(q.items)))
	}
	q.cond.Signal()
}

func (q *SendQueue) overflowsLocked(incoming int) bool {
	return len(q.items) >= q.maxMessages || q.bytes+incoming > q.maxBytes
}

// evictOneLocked drops one queued message per the overload policy,
// reporting whether an item was available to evict.
func (q *SendQueue) evictOneLocked() bool {
	if len(q.items) == 0 {
		return false
	}
	var idx int
	switch q.overload {
	case DropNewest:
		return false // caller's recordDropLocked handles discarding the incoming message
	case ShedByType:
		idx = 0
		for i, it := range q.items {
			if it.priority < q.items[idx].priority {
				idx = i
			}
		}
	default: // DropOldest, CoalesceLatestByUidOverload
		idx = 0
	}
	victim := q.items[idx]
	q.items = append(q.items[:idx], q.items[idx+1:]...)
	q.bytes -= len(victim.payload)
	q.rebuildByUIDLocked()
	q.recordDropLocked()
	return true
}

func (q *SendQueue) rebuildByUIDLocked() {
	if len(q.byUID) == 0 {
		return
	}
	q.byUID = make(map[string]int, len(q.items))
	for i, it := range q.items {
		q.byUID[it.uid] = i
	}
}

// insertLocked inserts item into q.items, returning the index it landed
// at. In Fifo mode (and plain CoalesceLatestByUidOverload with Mode
// Fifo) it appends to the tail; in Priority mode, and in
// CoalesceLatestByUid mode (whose classifier still orders drains per
// spec.md §4.5), it inserts in descending-priority order, stable FIFO
// within a priority tier.
func (q *SendQueue) insertLocked(item queueItem) int {
	if q.mode != Priority && q.mode != CoalesceLatestByUid {
		q.items = append(q.items, item)
		return len(q.items) - 1
	}
	i := sort.Search(len(q.items), func(i int) bool {
		if q.items[i].priority != item.priority {
			return q.items[i].priority < item.priority
		}
		return false // stable FIFO within a priority tier: never sort past equal-priority items
	})
	q.items = append(q.items, queueItem{})
	copy(q.items[i+1:], q.items[i:])
	q.items[i] = item
	return i
}

func (q *SendQueue) recordDropLocked() {
	q.droppedInWindow++
	if q.metrics != nil {
		q.metrics.TransportDropped.WithLabelValues(q.carrierName, string(DirectionOutbound), q.overloadReason()).Inc()
	}
	if time.Since(q.lastDropLog) >= q.logWindow {
		q.logger.Warn("send queue dropping messages",
			"carrier", q.carrierName, "reason", q.overloadReason(), "count", q.droppedInWindow)
		q.droppedInWindow = 0
		q.lastDropLog = time.Now()
	}
}

func (q *SendQueue) overloadReason() string {
	switch q.overload {
	case DropOldest:
		return "DropOldest"
	case DropNewest:
		return "DropNewest"
	case ShedByType:
		return "ShedByType"
	default:
		return "CoalesceLatestByUid"
	}
}

// Dequeue blocks until a message is available or ctx is done.
func (q *SendQueue) Dequeue(ctx context.Context) (string, []byte, error) {
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			q.mu.Lock()
			q.cond.Broadcast()
			q.mu.Unlock()
		case <-done:
		}
	}()
	defer close(done)

	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) == 0 && !q.closed {
		if ctx.Err() != nil {
			return "", nil, ctx.Err()
		}
		q.cond.Wait()
	}
	if len(q.items) == 0 {
		if q.closed {
			return "", nil, errs.New(errs.KindClosed, "send queue closed")
		}
		return "", nil, ctx.Err()
	}
	item := q.items[0]
	q.items = q.items[1:]
	q.bytes -= len(item.payload)
	q.rebuildByUIDLocked()
	if q.metrics != nil {
		q.metrics.TransportQueueDepth.WithLabelValues(q.carrierName).Set(float64(len(q.items)))
	}
	return item.uid, item.payload, nil
}

// Close wakes any blocked Dequeue callers and prevents further enqueues.
func (q *SendQueue) Close() {
	q.mu.Lock()
	q.closed = true
	q.cond.Broadcast()
	q.mu.Unlock()
}

// Len reports the current queued message count.
func (q *SendQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Drain drives messages out of the queue into sink until ctx is done.
// Once ctx is cancelled, it switches to a bounded shutdownTimeout
// window so already-queued messages still get a chance to flush
// before the caller gives up.
func (q *SendQueue) Drain(ctx context.Context, sink envelope.Sink[[]byte], epoch time.Time, shutdownTimeout time.Duration) error {
	for {
		uid, payload, err := q.Dequeue(ctx)
		if err != nil {
			if shutdownTimeout <= 0 {
				return err
			}
			drainCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return q.drainRemaining(drainCtx, sink, epoch)
		}
		if serr := sink.Send(ctx, envelope.New(epoch, nil, payload, payload)); serr != nil {
			q.logger.Error("send queue delivery failed", "uid", uid, "error", serr)
		}
	}
}

func (q *SendQueue) drainRemaining(deadline context.Context, sink envelope.Sink[[]byte], epoch time.Time) error {
	for {
		uid, payload, err := q.Dequeue(deadline)
		if err != nil {
			return err
		}
		if serr := sink.Send(deadline, envelope.New(epoch, nil, payload, payload)); serr != nil {
			q.logger.Error("send queue drain failed", "uid", uid, "error", serr)
		}
	}
}
