package cot

import (
	"time"

	"github.com/NERVsystems/takbridge/errs"
)

// Timestamp is a UTC instant with nanosecond precision. No leap-second
// adjustment is performed (Go's time package has none to begin with).
type Timestamp struct {
	t time.Time
}

// NewTimestamp constructs a Timestamp from any time.Time, normalizing it
// to UTC.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{t: t.UTC()}
}

// Now returns the current Timestamp.
func Now() Timestamp { return NewTimestamp(time.Now()) }

// ParseRFC3339 parses an RFC3339 (CoT wire format) timestamp string.
func ParseRFC3339(s string) (Timestamp, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return Timestamp{}, errs.Wrap(errs.KindInvalidValue, "invalid RFC3339 timestamp", err)
	}
	return NewTimestamp(t), nil
}

// Time returns the underlying time.Time, always in UTC.
func (ts Timestamp) Time() time.Time { return ts.t }

// RFC3339 formats the Timestamp using a fixed, locale-independent
// RFC3339 representation with nanosecond precision.
func (ts Timestamp) RFC3339() string { return ts.t.Format(time.RFC3339Nano) }

// Before reports whether ts is strictly before o.
func (ts Timestamp) Before(o Timestamp) bool { return ts.t.Before(o.t) }

// After reports whether ts is strictly after o.
func (ts Timestamp) After(o Timestamp) bool { return ts.t.After(o.t) }

// Add returns ts shifted by d.
func (ts Timestamp) Add(d time.Duration) Timestamp { return NewTimestamp(ts.t.Add(d)) }

// Sub returns the signed duration ts - o.
func (ts Timestamp) Sub(o Timestamp) time.Duration { return ts.t.Sub(o.t) }

// Equal reports whether ts and o denote the same instant.
func (ts Timestamp) Equal(o Timestamp) bool { return ts.t.Equal(o.t) }

// IsZero reports whether ts is the zero Timestamp.
func (ts Timestamp) IsZero() bool { return ts.t.IsZero() }
