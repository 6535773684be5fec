package xmlcodec_test

import (
	"strings"
	"testing"

	"github.com/NERVsystems/takbridge/cot"
	"github.com/NERVsystems/takbridge/errs"
	"github.com/NERVsystems/takbridge/limits"
	"github.com/NERVsystems/takbridge/xmlcodec"
)

const sampleXML = `<event version="2.0" uid="DRONE-1" type="a-f-A" how="m-g" time="2026-07-31T10:00:00Z" start="2026-07-31T10:00:00Z" stale="2026-07-31T10:02:00Z">
  <point lat="30.5" lon="-85.9" hae="120.5" ce="5" le="10"/>
  <detail>
    <contact callsign="HAWK01" endpoint="10.1.1.1:4242"/>
    <precisionlocation geopointsrc="GPS" altsrc="GPS"/>
    <customthing foo="bar"/>
    <remarks source="operator">all quiet</remarks>
  </detail>
</event>`

func TestDecodeRoundTrip(t *testing.T) {
	lims := limits.ConservativeDefaults()
	ev, err := xmlcodec.Decode([]byte(sampleXML), lims)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if ev.Uid().String() != "DRONE-1" {
		t.Errorf("Uid = %q", ev.Uid())
	}
	if ev.Type().String() != "a-f-A" {
		t.Errorf("Type = %q", ev.Type())
	}
	if ev.Detail().Len() != 4 {
		t.Fatalf("detail len = %d, want 4", ev.Detail().Len())
	}

	els := ev.Detail().Elements()
	contact, ok := els[0].(cot.Contact)
	if !ok || contact.Callsign != "HAWK01" {
		t.Errorf("els[0] = %+v", els[0])
	}
	ext, ok := els[1].(cot.Extension)
	if !ok || ext.Key != "precisionlocation" {
		t.Errorf("els[1] = %+v", els[1])
	}
	if pl, ok := ext.Value.(xmlcodec.PrecisionLocation); !ok || pl.GeoPointSrc != "GPS" {
		t.Errorf("precisionlocation value = %+v", ext.Value)
	}
	unregistered, ok := els[2].(cot.Extension)
	if !ok || unregistered.Key != "customthing" || unregistered.Value != nil {
		t.Errorf("els[2] = %+v", els[2])
	}
	remarks, ok := els[3].(cot.Remarks)
	if !ok || remarks.Text != "all quiet" || remarks.Source != "operator" {
		t.Errorf("els[3] = %+v", els[3])
	}

	out, err := xmlcodec.Encode(ev)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	ev2, err := xmlcodec.Decode(out, lims)
	if err != nil {
		t.Fatalf("re-decode error = %v: %s", err, out)
	}
	if !ev.SemanticEqual(ev2) {
		t.Errorf("round trip not semantically equal:\n%s\nvs\n%s", sampleXML, out)
	}
}

func TestDecodeXMLScanBudgetExceeded(t *testing.T) {
	lims := limits.ConservativeDefaults()
	lims.MaxXMLScanBytes = 10
	_, err := xmlcodec.Decode([]byte(sampleXML), lims)
	if err == nil {
		t.Fatal("expected error for exceeded scan budget")
	}
	var xe *errs.Error
	if !errorsAs(err, &xe) || xe.Kind != errs.KindXMLScanBudget {
		t.Errorf("error = %v, want KindXMLScanBudget", err)
	}
}

func TestDecodeDetailBudgetExceeded(t *testing.T) {
	lims := limits.ConservativeDefaults()
	lims.MaxDetailElements = 1
	_, err := xmlcodec.Decode([]byte(sampleXML), lims)
	if err == nil {
		t.Fatal("expected error for exceeded detail budget")
	}
	var xe *errs.Error
	if !errorsAs(err, &xe) || xe.Kind != errs.KindDetailBudget {
		t.Errorf("error = %v, want KindDetailBudget", err)
	}
}

func TestDecodeMissingPoint(t *testing.T) {
	const noPoint = `<event version="2.0" uid="X" type="a-f-G" time="2026-07-31T10:00:00Z" start="2026-07-31T10:00:00Z" stale="2026-07-31T10:02:00Z"><detail/></event>`
	_, err := xmlcodec.Decode([]byte(noPoint), limits.ConservativeDefaults())
	if err == nil {
		t.Fatal("expected error for missing point")
	}
}

func TestEncodeDeterministicAttrOrder(t *testing.T) {
	uid, _ := cot.NewUid("X1")
	ct, _ := cot.ParseCotType("a-f-G")
	ts := cot.Now()
	pos, _ := cot.NewPosition(1, 2)
	ev, err := cot.NewEvent(cot.EventParams{
		Uid: uid, Type: ct, Time: ts, Start: ts, Stale: ts.Add(60_000_000_000), Point: pos,
	})
	if err != nil {
		t.Fatalf("NewEvent() error = %v", err)
	}
	out, err := xmlcodec.Encode(ev)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	s := string(out)
	ta, tb := strings.Index(s, "type="), strings.Index(s, "uid=")
	if ta == -1 || tb == -1 || ta > tb {
		t.Errorf("expected lexicographic attribute order (type before uid), got: %s", s)
	}
}

func errorsAs(err error, target **errs.Error) bool {
	if e, ok := err.(*errs.Error); ok {
		*target = e
		return true
	}
	return false
}

// TestEncodeResultSurvivesPoolReuse guards against the pooled scratch
// buffer being handed back out from under a caller still holding the
// previous Encode result.
func TestEncodeResultSurvivesPoolReuse(t *testing.T) {
	uid1, _ := cot.NewUid("FIRST")
	uid2, _ := cot.NewUid("SECOND")
	ct, _ := cot.ParseCotType("a-f-G")
	ts := cot.Now()
	pos, _ := cot.NewPosition(1, 2)

	ev1, err := cot.NewEvent(cot.EventParams{Uid: uid1, Type: ct, Time: ts, Start: ts, Stale: ts.Add(60_000_000_000), Point: pos})
	if err != nil {
		t.Fatalf("NewEvent() error = %v", err)
	}
	ev2, err := cot.NewEvent(cot.EventParams{Uid: uid2, Type: ct, Time: ts, Start: ts, Stale: ts.Add(60_000_000_000), Point: pos})
	if err != nil {
		t.Fatalf("NewEvent() error = %v", err)
	}

	out1, err := xmlcodec.Encode(ev1)
	if err != nil {
		t.Fatalf("Encode(ev1) error = %v", err)
	}
	snapshot := string(out1)

	// A second Encode call may reuse the same pooled buffer; out1 must
	// remain unchanged regardless.
	if _, err := xmlcodec.Encode(ev2); err != nil {
		t.Fatalf("Encode(ev2) error = %v", err)
	}
	if string(out1) != snapshot {
		t.Fatalf("first Encode result mutated by second call: got %q, want %q", out1, snapshot)
	}
	if !strings.Contains(snapshot, "FIRST") {
		t.Fatalf("expected first result to contain FIRST, got: %s", snapshot)
	}
}

// TestDecodeConcurrentReuse exercises the pooled decoder under
// concurrent Decode calls with distinct payloads.
func TestDecodeConcurrentReuse(t *testing.T) {
	lims := limits.ConservativeDefaults()
	done := make(chan error, 8)
	for i := 0; i < 8; i++ {
		go func() {
			ev, err := xmlcodec.Decode([]byte(sampleXML), lims)
			if err != nil {
				done <- err
				return
			}
			if ev.Uid().String() != "DRONE-1" {
				done <- errs.New(errs.KindInvalidField, "unexpected uid from concurrent decode")
				return
			}
			done <- nil
		}()
	}
	for i := 0; i < 8; i++ {
		if err := <-done; err != nil {
			t.Fatalf("concurrent Decode failed: %v", err)
		}
	}
}
