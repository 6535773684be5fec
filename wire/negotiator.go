package wire

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/NERVsystems/takbridge/cot"
	"github.com/NERVsystems/takbridge/envelope"
)

// State is a streaming-path negotiator state.
type State string

const (
	StateLegacyXml               State = "legacy_xml"
	StateAwaitingUpgradeResponse State = "awaiting_upgrade_response"
	StateTakProtocolV1           State = "tak_protocol_v1"
	StateTerminated              State = "terminated"
)

// Reason annotates why a transition happened.
type Reason string

const (
	ReasonOfferSent        Reason = "offer_sent"
	ReasonAccepted         Reason = "accepted"
	ReasonTimeout          Reason = "timeout"
	ReasonUnsupportedVer   Reason = "unsupported_version"
	ReasonMalformedControl Reason = "malformed_control"
	ReasonPolicyDenied     Reason = "policy_denied"
)

// DowngradePolicy governs what happens when the peer rejects, offers
// an unsupported version, sends a malformed control event, or never
// responds before streaming_timeout.
type DowngradePolicy int

const (
	FailOpen DowngradePolicy = iota
	FailClosed
)

// Transition is one (state, trigger, reason) telemetry record, emitted
// into the envelope stream for audit.
type Transition struct {
	From   State
	To     State
	Reason Reason
}

// SupportedVersion is the single TAK Protocol version this bridge
// offers and accepts, advertised in every TakProtocolSupport offer.
const SupportedVersion uint32 = 1

// Negotiator drives the streaming-path upgrade handshake for one
// connection. Its methods and the streaming_timeout callback all run
// under an internal mutex, so it may be called from several goroutines.
type Negotiator struct {
	mu       sync.Mutex
	state    State
	policy   DowngradePolicy
	selfUid  cot.Uid
	protoUid string
	timeout  time.Duration
	timer    *time.Timer
	offered  bool
	epoch    time.Time
	sink     envelope.Sink[Transition]
	logger   *slog.Logger
}

// NewNegotiator constructs a Negotiator in its initial LegacyXml state.
// sink receives every (state, trigger, reason) transition for audit,
// timestamped against epoch (the session's monotonic-pacing origin);
// pass a no-op SinkFunc if no audit trail is needed.
func NewNegotiator(selfUid cot.Uid, protoUid string, policy DowngradePolicy, timeout time.Duration, epoch time.Time, sink envelope.Sink[Transition], logger *slog.Logger) *Negotiator {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Negotiator{
		state:    StateLegacyXml,
		policy:   policy,
		selfUid:  selfUid,
		protoUid: protoUid,
		timeout:  timeout,
		epoch:    epoch,
		sink:     sink,
		logger:   logger,
	}
}

// State reports the negotiator's current state.
func (n *Negotiator) State() State {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state
}

// Offer emits the local TakProtocolSupport offer, arms
// streaming_timeout, and transitions LegacyXml -> AwaitingUpgradeResponse.
// It is a no-op if already offered or no longer in LegacyXml, since the
// offer is sent at most once per connection.
func (n *Negotiator) Offer(onTimeout func()) (cot.CotEvent, bool, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.offered || n.state != StateLegacyXml {
		return cot.CotEvent{}, false, nil
	}
	ev, err := NewSupportOfferEvent(n.selfUid, n.protoUid, SupportedVersion, SupportedVersion, cot.Now())
	if err != nil {
		return cot.CotEvent{}, false, err
	}
	n.offered = true
	n.timer = time.AfterFunc(n.timeout, func() {
		n.handleTimeout(onTimeout)
	})
	n.transitionLocked(StateAwaitingUpgradeResponse, ReasonOfferSent)
	return ev, true, nil
}

// HandleResponse processes an observed TakResponse control event
// correlated by protouid. It is the caller's responsibility to route
// only events matching this connection's protoUid here; a mismatched
// or malformed correlation is treated as MalformedControl.
func (n *Negotiator) HandleResponse(ev cot.CotEvent) {
	resp, ok := ResponseFrom(ev)
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.state != StateAwaitingUpgradeResponse {
		return
	}
	n.stopTimerLocked()
	if !ok || resp.ProtoUid != n.protoUid {
		n.applyDowngradeLocked(ReasonMalformedControl)
		return
	}
	if resp.Accept && resp.Version == SupportedVersion {
		n.transitionLocked(StateTakProtocolV1, ReasonAccepted)
		return
	}
	n.applyDowngradeLocked(ReasonUnsupportedVer)
}

// Deny forces a Terminated transition for an explicit operator policy
// deny, regardless of current state (short of Terminated already).
func (n *Negotiator) Deny() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.state == StateTerminated {
		return
	}
	n.stopTimerLocked()
	n.transitionLocked(StateTerminated, ReasonPolicyDenied)
}

func (n *Negotiator) handleTimeout(onTimeout func()) {
	n.mu.Lock()
	if n.state != StateAwaitingUpgradeResponse {
		n.mu.Unlock()
		return
	}
	n.applyDowngradeLocked(ReasonTimeout)
	n.mu.Unlock()
	if onTimeout != nil {
		onTimeout()
	}
}

// applyDowngradeLocked dispatches a reject/timeout/malformed-control
// trigger per the configured DowngradePolicy. Must be called with mu held.
func (n *Negotiator) applyDowngradeLocked(reason Reason) {
	switch n.policy {
	case FailClosed:
		n.transitionLocked(StateTerminated, reason)
	default:
		n.transitionLocked(StateLegacyXml, reason)
	}
}

func (n *Negotiator) stopTimerLocked() {
	if n.timer != nil {
		n.timer.Stop()
	}
}

func (n *Negotiator) transitionLocked(to State, reason Reason) {
	from := n.state
	n.state = to
	n.logger.Debug("negotiator transition", "from", from, "to", to, "reason", reason)
	if n.sink == nil {
		return
	}
	env := envelope.New(n.epoch, nil, nil, Transition{From: from, To: to, Reason: reason})
	if err := n.sink.Send(context.Background(), env); err != nil {
		n.logger.Warn("negotiator telemetry send failed", "err", err)
	}
}

// MeshContact records one peer's last-seen TakControl advertisement
// for the mesh per-peer contact table.
type MeshContact struct {
	MinVersion uint32
	MaxVersion uint32
	LastSeen   time.Time
}

func (c MeshContact) stale(now time.Time, staleAfter time.Duration) bool {
	return now.Sub(c.LastSeen) > staleAfter
}

// MeshTable tracks per-peer supported version windows for mesh
// negotiation and derives the outgoing version to advertise/use.
type MeshTable struct {
	mu         sync.Mutex
	contacts   map[cot.Uid]MeshContact
	staleAfter time.Duration
}

// NewMeshTable constructs an empty mesh contact table, marking
// contacts stale after staleAfter without a refreshed advertisement.
func NewMeshTable(staleAfter time.Duration) *MeshTable {
	return &MeshTable{contacts: make(map[cot.Uid]MeshContact), staleAfter: staleAfter}
}

// Observe records peer's advertised version window at now.
func (t *MeshTable) Observe(peer cot.Uid, minVer, maxVer uint32, now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.contacts[peer] = MeshContact{MinVersion: minVer, MaxVersion: maxVer, LastSeen: now}
}

// OutgoingVersion returns the highest version supported by every
// non-stale contact (the intersection window's upper bound). If the
// intersection is empty, it falls back to the lowest MinVersion seen
// among non-stale contacts; with no non-stale contacts at all it
// returns (0, false), signaling the caller to fall back to legacy XML
// mesh framing if policy allows.
func (t *MeshTable) OutgoingVersion(now time.Time) (uint32, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var lo uint32
	var hi uint32 = ^uint32(0)
	haveAny := false
	minFloor := ^uint32(0)

	for _, c := range t.contacts {
		if c.stale(now, t.staleAfter) {
			continue
		}
		haveAny = true
		if c.MinVersion > lo {
			lo = c.MinVersion
		}
		if c.MaxVersion < hi {
			hi = c.MaxVersion
		}
		if c.MinVersion < minFloor {
			minFloor = c.MinVersion
		}
	}
	if !haveAny {
		return 0, false
	}
	if lo <= hi {
		return hi, true
	}
	return minFloor, true
}

// Prune removes contacts stale as of now.
func (t *MeshTable) Prune(now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for peer, c := range t.contacts {
		if c.stale(now, t.staleAfter) {
			delete(t.contacts, peer)
		}
	}
}
