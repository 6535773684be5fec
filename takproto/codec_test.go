package takproto_test

import (
	"testing"

	"github.com/NERVsystems/takbridge/cot"
	"github.com/NERVsystems/takbridge/errs"
	"github.com/NERVsystems/takbridge/limits"
	"github.com/NERVsystems/takbridge/takproto"
)

func sampleEvent(t *testing.T) cot.CotEvent {
	t.Helper()
	uid, err := cot.NewUid("DRONE-1")
	if err != nil {
		t.Fatal(err)
	}
	ct, err := cot.ParseCotType("a-h-A-M-F-Q")
	if err != nil {
		t.Fatal(err)
	}
	now := cot.Now()
	pos, err := cot.NewPositionFull(30.5, -85.9, 120.5, true, 5, true, 10, true)
	if err != nil {
		t.Fatal(err)
	}
	detail := cot.NewCotDetail(
		cot.Contact{Callsign: "HAWK01"},
		cot.Drone{Category: "multirotor", Registration: "N12345"},
		cot.Provenance{Classifications: []cot.ClassProbability{{Label: "quadcopter", Probability: 0.92}}},
		cot.Shape{Type: "circle", RadiusM: 50, Points: []cot.Position{mustPos(t, 1, 2), mustPos(t, 3, 4)}},
		cot.Unknown{XMLName: "vendor:blob", RawXML: []byte("<vendor:blob/>")},
	)
	ev, err := cot.NewEvent(cot.EventParams{
		Uid: uid, Type: ct, How: "m-g", Time: now, Start: now, Stale: now.Add(120_000_000_000),
		Point: pos, Detail: detail,
	})
	if err != nil {
		t.Fatal(err)
	}
	return ev
}

func mustPos(t *testing.T, lat, lon float64) cot.Position {
	t.Helper()
	p, err := cot.NewPosition(lat, lon)
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	ev := sampleEvent(t)
	payload, err := takproto.Encode(ev)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	got, err := takproto.Decode(payload, limits.ConservativeDefaults())
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if !ev.SemanticEqual(got) {
		t.Errorf("round trip mismatch:\nwant %+v\ngot  %+v", ev, got)
	}
}

func TestEncodeCanonicalDeterministic(t *testing.T) {
	ev := sampleEvent(t)
	a, err := takproto.Encode(ev)
	if err != nil {
		t.Fatal(err)
	}
	b, err := takproto.Encode(ev)
	if err != nil {
		t.Fatal(err)
	}
	if string(a) != string(b) {
		t.Error("Encode() not deterministic across repeated calls")
	}
}

func TestDecodeProtoBudgetExceeded(t *testing.T) {
	ev := sampleEvent(t)
	payload, err := takproto.Encode(ev)
	if err != nil {
		t.Fatal(err)
	}
	lims := limits.ConservativeDefaults()
	lims.MaxProtobufBytes = uint64(len(payload) - 1)
	_, err = takproto.Decode(payload, lims)
	if err == nil {
		t.Fatal("expected error for exceeded protobuf budget")
	}
	xe, ok := err.(*errs.Error)
	if !ok || xe.Kind != errs.KindProtoBudget {
		t.Errorf("error = %v, want KindProtoBudget", err)
	}
}

func TestDecodeMissingRequiredField(t *testing.T) {
	_, err := takproto.Decode(nil, limits.ConservativeDefaults())
	if err == nil {
		t.Fatal("expected error for missing required fields on empty payload")
	}
}
