package wire

import (
	"github.com/NERVsystems/takbridge/cot"
	"github.com/NERVsystems/takbridge/xmlcodec"
)

// Control CoT event types. These are non-atom ("tasking"/"reply"
// predicate) types, always exchanged as legacy CoT XML regardless of
// which framing governs the data plane, since the negotiation itself
// decides what the data plane framing will be.
const (
	TypeProtocolSupport  = "t-x-takp-v"
	TypeProtocolRequest  = "t-x-takp-q"
	TypeProtocolResponse = "t-x-takp-r"
	TypeMeshControl      = "t-x-takp-c"
)

const controlStaleOffsetNanos = 30_000_000_000 // 30s

// NewSupportOfferEvent builds the TakProtocolSupport control event a
// node emits once per connection to offer an upgrade.
func NewSupportOfferEvent(selfUid cot.Uid, protoUid string, minVer, maxVer uint32, now cot.Timestamp) (cot.CotEvent, error) {
	ct, err := cot.ParseCotType(TypeProtocolSupport)
	if err != nil {
		return cot.CotEvent{}, err
	}
	detail := cot.NewCotDetail(cot.Extension{
		Key:   "takpSupportOffer",
		Value: xmlcodec.SupportOffer{ProtoUid: protoUid, MinVersion: minVer, MaxVersion: maxVer},
	})
	return cot.NewEvent(cot.EventParams{
		Uid: selfUid, Type: ct, How: "m-g",
		Time: now, Start: now, Stale: now.Add(controlStaleOffsetNanos),
		Detail: detail,
	})
}

// NewResponseEvent builds the TakResponse control event a peer sends
// back accepting or rejecting an upgrade offer.
func NewResponseEvent(selfUid cot.Uid, protoUid string, accept bool, version uint32, now cot.Timestamp) (cot.CotEvent, error) {
	ct, err := cot.ParseCotType(TypeProtocolResponse)
	if err != nil {
		return cot.CotEvent{}, err
	}
	detail := cot.NewCotDetail(cot.Extension{
		Key:   "takpResponse",
		Value: xmlcodec.ProtocolResponse{ProtoUid: protoUid, Accept: accept, Version: version},
	})
	return cot.NewEvent(cot.EventParams{
		Uid: selfUid, Type: ct, How: "m-g",
		Time: now, Start: now, Stale: now.Add(controlStaleOffsetNanos),
		Detail: detail,
	})
}

// NewMeshControlEvent builds the TakControl mesh advertisement a node
// emits periodically, carrying its supported version range.
func NewMeshControlEvent(selfUid cot.Uid, minVer, maxVer uint32, now cot.Timestamp) (cot.CotEvent, error) {
	ct, err := cot.ParseCotType(TypeMeshControl)
	if err != nil {
		return cot.CotEvent{}, err
	}
	detail := cot.NewCotDetail(cot.Extension{
		Key:   "takpMeshAdvert",
		Value: xmlcodec.MeshAdvert{MinVersion: minVer, MaxVersion: maxVer},
	})
	return cot.NewEvent(cot.EventParams{
		Uid: selfUid, Type: ct, How: "m-g",
		Time: now, Start: now, Stale: now.Add(controlStaleOffsetNanos),
		Detail: detail,
	})
}

// SupportOfferFrom extracts the SupportOffer carried by ev, if ev is a
// TakProtocolSupport control event.
func SupportOfferFrom(ev cot.CotEvent) (xmlcodec.SupportOffer, bool) {
	o, ok := extensionValue(ev, "takpSupportOffer")
	if !ok {
		return xmlcodec.SupportOffer{}, false
	}
	v, ok := o.(xmlcodec.SupportOffer)
	return v, ok
}

// ResponseFrom extracts the ProtocolResponse carried by ev, if ev is a
// TakResponse control event. A missing protouid (unparseable or
// structurally incomplete) reports ok=false so the caller can treat it
// as a malformed control per the negotiator's MalformedControl path.
func ResponseFrom(ev cot.CotEvent) (xmlcodec.ProtocolResponse, bool) {
	o, ok := extensionValue(ev, "takpResponse")
	if !ok {
		return xmlcodec.ProtocolResponse{}, false
	}
	v, ok := o.(xmlcodec.ProtocolResponse)
	if !ok || v.ProtoUid == "" {
		return xmlcodec.ProtocolResponse{}, false
	}
	return v, true
}

// MeshAdvertFrom extracts the MeshAdvert carried by ev, if ev is a
// TakControl mesh advertisement.
func MeshAdvertFrom(ev cot.CotEvent) (xmlcodec.MeshAdvert, bool) {
	o, ok := extensionValue(ev, "takpMeshAdvert")
	if !ok {
		return xmlcodec.MeshAdvert{}, false
	}
	v, ok := o.(xmlcodec.MeshAdvert)
	return v, ok
}

func extensionValue(ev cot.CotEvent, key string) (any, bool) {
	for _, el := range ev.Detail().Elements() {
		if ext, ok := el.(cot.Extension); ok && ext.Key == key {
			return ext.Value, ext.Value != nil
		}
	}
	return nil, false
}
