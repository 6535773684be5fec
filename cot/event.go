package cot

import "github.com/NERVsystems/takbridge/errs"

// DefaultVersion is the CoT event schema version emitted by this bridge.
const DefaultVersion = "2.0"

// CotEvent is the immutable tuple (version, uid, cot_type, how, time,
// start, stale, point, detail). It is built only through NewEvent, which
// enforces start <= stale; time is producer-assigned and is not
// otherwise constrained relative to start/stale by this package (the
// bridge's time policy, §4.7.3, is responsible for producing a sane
// time).
type CotEvent struct {
	version string
	uid     Uid
	cotType CotType
	how     string
	time    Timestamp
	start   Timestamp
	stale   Timestamp
	point   Position
	detail  CotDetail
}

// EventParams groups the fields needed to construct a CotEvent.
type EventParams struct {
	Version string // empty defaults to DefaultVersion
	Uid     Uid
	Type    CotType
	How     string
	Time    Timestamp
	Start   Timestamp
	Stale   Timestamp
	Point   Position
	Detail  CotDetail
}

// NewEvent validates and constructs a CotEvent.
func NewEvent(p EventParams) (CotEvent, error) {
	if p.Uid == "" {
		return CotEvent{}, errs.Field(errs.KindInvalidUid, "uid", "uid must not be empty")
	}
	if p.Type.raw == "" {
		return CotEvent{}, errs.Field(errs.KindInvalidCotType, "type", "type must not be empty")
	}
	if p.Start.After(p.Stale) {
		return CotEvent{}, errs.Field(errs.KindInvalidValue, "start", "start must be <= stale")
	}
	version := p.Version
	if version == "" {
		version = DefaultVersion
	}
	return CotEvent{
		version: version,
		uid:     p.Uid,
		cotType: p.Type,
		how:     p.How,
		time:    p.Time,
		start:   p.Start,
		stale:   p.Stale,
		point:   p.Point,
		detail:  p.Detail,
	}, nil
}

func (e CotEvent) Version() string     { return e.version }
func (e CotEvent) Uid() Uid            { return e.uid }
func (e CotEvent) Type() CotType       { return e.cotType }
func (e CotEvent) How() string         { return e.how }
func (e CotEvent) Time() Timestamp     { return e.time }
func (e CotEvent) Start() Timestamp    { return e.start }
func (e CotEvent) Stale() Timestamp    { return e.stale }
func (e CotEvent) Point() Position     { return e.point }
func (e CotEvent) Detail() CotDetail   { return e.detail }

// WithDetail returns a copy of e with its detail block replaced.
func (e CotEvent) WithDetail(d CotDetail) CotEvent {
	e.detail = d
	return e
}

// WithPoint returns a copy of e with its point replaced.
func (e CotEvent) WithPoint(p Position) CotEvent {
	e.point = p
	return e
}

// IsStaleAt reports whether the event is stale as of instant now.
func (e CotEvent) IsStaleAt(now Timestamp) bool {
	return now.After(e.stale)
}

// SemanticEqual reports whether e and o carry the same field values and
// the same ordered sequence of detail element kinds, per the XML
// round-trip law in spec.md §8 invariant 2 (semantic, not necessarily
// byte-identical). The contents of detail elements are not compared.
func (e CotEvent) SemanticEqual(o CotEvent) bool {
	if e.version != o.version || e.uid != o.uid || e.cotType.raw != o.cotType.raw ||
		e.how != o.how {
		return false
	}
	if !e.time.Equal(o.time) || !e.start.Equal(o.start) || !e.stale.Equal(o.stale) {
		return false
	}
	if !e.point.Equal(o.point) {
		return false
	}
	if e.detail.Len() != o.detail.Len() {
		return false
	}
	ea, oa := e.detail.Elements(), o.detail.Elements()
	for i := range ea {
		if ea[i].Kind() != oa[i].Kind() {
			return false
		}
	}
	return true
}
