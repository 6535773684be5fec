package cot

import (
	"errors"
	"testing"
	"time"

	"github.com/NERVsystems/takbridge/errs"
)

func TestNewPosition(t *testing.T) {
	tests := []struct {
		name    string
		lat     float64
		lon     float64
		wantErr bool
	}{
		{name: "valid", lat: 45.0, lon: -120.0, wantErr: false},
		{name: "lat too high", lat: 91, lon: 0, wantErr: true},
		{name: "lat too low", lat: -91, lon: 0, wantErr: true},
		{name: "lon too high", lat: 0, lon: 181, wantErr: true},
		{name: "lon too low", lat: 0, lon: -181, wantErr: true},
		{name: "boundary lat 90", lat: 90, lon: 180, wantErr: false},
		{name: "boundary lat -90", lat: -90, lon: -180, wantErr: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPosition(tt.lat, tt.lon)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewPosition(%f,%f) error = %v, wantErr %v", tt.lat, tt.lon, err, tt.wantErr)
			}
		})
	}
}

func TestParseCotType(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		wantErr bool
	}{
		{name: "friendly ground", in: "a-f-G", wantErr: false},
		{name: "hostile air with function", in: "a-h-A-C-F", wantErr: false},
		{name: "bits predicate", in: "b-m-p-s-p-i", wantErr: false},
		{name: "empty", in: "", wantErr: true},
		{name: "atom missing dimension", in: "a-f", wantErr: true},
		{name: "unknown affiliation", in: "a-z-G", wantErr: true},
		{name: "unknown dimension", in: "a-f-Z", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ct, err := ParseCotType(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseCotType(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if err == nil && ct.String() != tt.in {
				t.Fatalf("String() = %q, want %q", ct.String(), tt.in)
			}
		})
	}
}

func TestNewEventStartBeforeStale(t *testing.T) {
	now := Now()
	uid, _ := NewUid("UNIT-1")
	typ, _ := ParseCotType("a-f-G")
	pos, _ := NewPosition(1, 2)

	_, err := NewEvent(EventParams{
		Uid:   uid,
		Type:  typ,
		Time:  now,
		Start: now.Add(10 * time.Second),
		Stale: now,
		Point: pos,
	})
	var e *errs.Error
	if !errors.As(err, &e) || e.Kind != errs.KindInvalidValue {
		t.Fatalf("expected KindInvalidValue, got %v", err)
	}
}

func TestNewEventValid(t *testing.T) {
	now := Now()
	uid, _ := NewUid("UNIT-1")
	typ, _ := ParseCotType("a-f-G")
	pos, _ := NewPosition(1, 2)
	detail := NewCotDetail(Contact{Callsign: "ALPHA"}, Remarks{Text: "hello"})

	evt, err := NewEvent(EventParams{
		Uid:    uid,
		Type:   typ,
		Time:   now,
		Start:  now,
		Stale:  now.Add(time.Minute),
		Point:  pos,
		Detail: detail,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if evt.Version() != DefaultVersion {
		t.Fatalf("expected default version, got %q", evt.Version())
	}
	if evt.Detail().Len() != 2 {
		t.Fatalf("expected 2 detail elements, got %d", evt.Detail().Len())
	}
}

func TestSemanticEqualDetailOrderMatters(t *testing.T) {
	now := Now()
	uid, _ := NewUid("UNIT-1")
	typ, _ := ParseCotType("a-f-G")
	pos, _ := NewPosition(1, 2)

	a, _ := NewEvent(EventParams{Uid: uid, Type: typ, Time: now, Start: now, Stale: now.Add(time.Minute), Point: pos,
		Detail: NewCotDetail(Contact{}, Remarks{})})
	b, _ := NewEvent(EventParams{Uid: uid, Type: typ, Time: now, Start: now, Stale: now.Add(time.Minute), Point: pos,
		Detail: NewCotDetail(Remarks{}, Contact{})})

	if a.SemanticEqual(b) {
		t.Fatalf("expected differing detail order to be semantically unequal")
	}
}
