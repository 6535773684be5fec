package cot

import "github.com/NERVsystems/takbridge/errs"

// MaxUidLen is the maximum permitted byte length of a Uid.
const MaxUidLen = 128

// Uid is a non-empty, length-bounded, case-sensitive entity identifier.
// Equality is by value.
type Uid string

// NewUid validates and constructs a Uid.
func NewUid(s string) (Uid, error) {
	if s == "" {
		return "", errs.Field(errs.KindInvalidUid, "uid", "uid must not be empty")
	}
	if len(s) > MaxUidLen {
		return "", errs.Field(errs.KindInvalidUid, "uid", "uid exceeds max length")
	}
	return Uid(s), nil
}

// String returns the Uid's string value.
func (u Uid) String() string { return string(u) }
