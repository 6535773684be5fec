package cot

import (
	"strings"

	"github.com/NERVsystems/takbridge/errs"
)

// Affiliation is the second hyphen-delimited segment of an atom
// (predicate "a") CotType.
type Affiliation string

const (
	AffiliationPending        Affiliation = "pending"
	AffiliationUnknown        Affiliation = "unknown"
	AffiliationFriend         Affiliation = "friend"
	AffiliationNeutral        Affiliation = "neutral"
	AffiliationHostile        Affiliation = "hostile"
	AffiliationAssumedFriend  Affiliation = "assumed-friend"
	AffiliationSuspect        Affiliation = "suspect"
	AffiliationJoker          Affiliation = "joker"
	AffiliationFaker          Affiliation = "faker"
)

// affiliationCodes maps the single-letter/short CoT wire code (as it
// appears in the hyphenated type string) to the Affiliation it denotes.
var affiliationCodes = map[string]Affiliation{
	"p": AffiliationPending,
	"u": AffiliationUnknown,
	"f": AffiliationFriend,
	"n": AffiliationNeutral,
	"h": AffiliationHostile,
	"a": AffiliationAssumedFriend,
	"s": AffiliationSuspect,
	"j": AffiliationJoker,
	"k": AffiliationFaker,
}

// BattleDimension is the third hyphen-delimited segment of an atom
// CotType.
type BattleDimension string

const (
	BattleDimensionSpace      BattleDimension = "space"
	BattleDimensionAir        BattleDimension = "air"
	BattleDimensionGround     BattleDimension = "ground"
	BattleDimensionSurface    BattleDimension = "surface"
	BattleDimensionSubsurface BattleDimension = "subsurface"
	BattleDimensionOther      BattleDimension = "other"
)

var battleDimensionCodes = map[string]BattleDimension{
	"P": BattleDimensionSpace,
	"A": BattleDimensionAir,
	"G": BattleDimensionGround,
	"S": BattleDimensionSurface,
	"U": BattleDimensionSubsurface,
	"X": BattleDimensionOther,
}

// Predicate is the first hyphen-delimited segment of a CotType.
type Predicate string

const (
	PredicateAtom Predicate = "a"
	PredicateBits Predicate = "b"
)

// CotType is the validated hyphen-delimited CoT type taxonomy string
// (e.g. "a-f-G-E-X-N"). It is constructed only through ParseCotType and
// is immutable afterwards.
type CotType struct {
	raw             string
	predicate       Predicate
	affiliation     Affiliation // only meaningful when predicate == PredicateAtom
	battleDimension BattleDimension
	function        []string // remaining function-detail segments
}

// ParseCotType validates and parses a hyphen-delimited CoT type string.
// For atoms (predicate "a") the second segment must be a known
// Affiliation code and the third a known BattleDimension code; any
// further segments are taken as opaque function detail. Non-atom
// predicates (e.g. "b" for bits) are accepted with their remaining
// segments preserved verbatim, since the spec only constrains atom
// structure.
func ParseCotType(s string) (CotType, error) {
	if s == "" {
		return CotType{}, errs.Field(errs.KindInvalidCotType, "type", "empty CoT type")
	}
	parts := strings.Split(s, "-")
	if parts[0] == "" {
		return CotType{}, errs.Field(errs.KindInvalidCotType, "type", "empty predicate segment")
	}
	ct := CotType{raw: s, predicate: Predicate(parts[0])}

	if ct.predicate != PredicateAtom {
		ct.function = parts[1:]
		return ct, nil
	}

	if len(parts) < 3 {
		return CotType{}, errs.Field(errs.KindInvalidCotType, "type", "atom type requires affiliation and battle dimension segments")
	}
	aff, ok := affiliationCodes[parts[1]]
	if !ok {
		return CotType{}, errs.Field(errs.KindInvalidCotType, "type", "unknown affiliation code: "+parts[1])
	}
	dim, ok := battleDimensionCodes[parts[2]]
	if !ok {
		return CotType{}, errs.Field(errs.KindInvalidCotType, "type", "unknown battle dimension code: "+parts[2])
	}
	ct.affiliation = aff
	ct.battleDimension = dim
	ct.function = parts[3:]
	return ct, nil
}

// MustParseCotType is ParseCotType but panics on error; intended for
// package-level constants and tests with literal, known-valid types.
func MustParseCotType(s string) CotType {
	ct, err := ParseCotType(s)
	if err != nil {
		panic(err)
	}
	return ct
}

// String returns the original hyphen-delimited type string.
func (t CotType) String() string { return t.raw }

// Predicate returns the first segment.
func (t CotType) Predicate() Predicate { return t.predicate }

// Affiliation returns the second segment's meaning for atom types; the
// zero value otherwise.
func (t CotType) Affiliation() Affiliation { return t.affiliation }

// BattleDimension returns the third segment's meaning for atom types;
// the zero value otherwise.
func (t CotType) BattleDimension() BattleDimension { return t.battleDimension }

// FunctionDetail returns the segments following predicate/affiliation/
// battle-dimension (for atoms) or following the predicate (otherwise).
func (t CotType) FunctionDetail() []string {
	out := make([]string, len(t.function))
	copy(out, t.function)
	return out
}

// IsAtom reports whether this is an atom ("a") type.
func (t CotType) IsAtom() bool { return t.predicate == PredicateAtom }
