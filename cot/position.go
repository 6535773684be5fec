// Package cot holds the CoT (Cursor on Target) core data model: the
// validated value types (Position, Kinematics, CotType, Uid, Timestamp)
// and the CotEvent/CotDetail structures built from them. Nothing in this
// package knows about XML, protobuf, or any transport; those concerns
// live in the xmlcodec, takproto, wire, and transport packages and
// translate to/from this model at their boundary, mirroring the
// teacher's "low coupling, composition over inheritance" goals.
package cot

import (
	"fmt"
	"math"

	"github.com/NERVsystems/takbridge/errs"
)

// Position is a validated WGS84 point: latitude in [-90, 90], longitude
// in [-180, 180], an optional height above the ellipsoid, and optional
// circular/linear error estimates. Position is constructed only through
// NewPosition and is immutable afterwards; callers build a new Position
// rather than mutating one in place.
type Position struct {
	lat, lon       float64
	hae            float64
	haeSet         bool
	ce, le         float64
	ceSet, leSet   bool
}

// NewPosition validates and constructs a Position with no hae, ce, or
// le set; use NewPositionFull to set any of those optional fields.
func NewPosition(lat, lon float64) (Position, error) {
	if err := validateFinite("lat", lat); err != nil {
		return Position{}, err
	}
	if err := validateFinite("lon", lon); err != nil {
		return Position{}, err
	}
	if lat < -90 || lat > 90 {
		return Position{}, errs.Field(errs.KindOutOfRange, "lat", fmt.Sprintf("latitude %f out of [-90,90]", lat))
	}
	if lon < -180 || lon > 180 {
		return Position{}, errs.Field(errs.KindOutOfRange, "lon", fmt.Sprintf("longitude %f out of [-180,180]", lon))
	}
	return Position{lat: lat, lon: lon}, nil
}

// NewPositionFull validates and constructs a Position with all optional
// fields populated.
func NewPositionFull(lat, lon float64, hae float64, haeSet bool, ce float64, ceSet bool, le float64, leSet bool) (Position, error) {
	p, err := NewPosition(lat, lon)
	if err != nil {
		return Position{}, err
	}
	if haeSet {
		if err := validateFinite("hae", hae); err != nil {
			return Position{}, err
		}
		p.hae, p.haeSet = hae, true
	}
	if ceSet {
		if err := validateFinite("ce", ce); err != nil {
			return Position{}, err
		}
		if ce < 0 {
			return Position{}, errs.Field(errs.KindOutOfRange, "ce", "circular error must be >= 0")
		}
		p.ce, p.ceSet = ce, true
	}
	if leSet {
		if err := validateFinite("le", le); err != nil {
			return Position{}, err
		}
		if le < 0 {
			return Position{}, errs.Field(errs.KindOutOfRange, "le", "linear error must be >= 0")
		}
		p.le, p.leSet = le, true
	}
	return p, nil
}

func validateFinite(field string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return errs.Field(errs.KindInvalidValue, field, "must be finite")
	}
	return nil
}

// Lat returns the latitude in decimal degrees.
func (p Position) Lat() float64 { return p.lat }

// Lon returns the longitude in decimal degrees.
func (p Position) Lon() float64 { return p.lon }

// HAE returns the height above the ellipsoid in meters and whether it was set.
func (p Position) HAE() (float64, bool) { return p.hae, p.haeSet }

// CE returns the circular error in meters and whether it was set.
func (p Position) CE() (float64, bool) { return p.ce, p.ceSet }

// LE returns the linear error in meters and whether it was set.
func (p Position) LE() (float64, bool) { return p.le, p.leSet }

// Equal reports whether two Positions carry identical values, including
// which optional fields are set.
func (p Position) Equal(o Position) bool {
	return p.lat == o.lat && p.lon == o.lon &&
		p.hae == o.hae && p.haeSet == o.haeSet &&
		p.ce == o.ce && p.ceSet == o.ceSet &&
		p.le == o.le && p.leSet == o.leSet
}
