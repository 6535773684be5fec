// Package bridge implements the deterministic SAPIENT-to-CoT pipeline:
// correlate, dedup, apply time policy, map to a CoT type, optionally
// smooth kinematics, and rate-limit emission. Stages run in this fixed
// order inside a single per-session pipeline task, so a given input
// stream and config always produce the same emitted CoT sequence.
package bridge

import (
	"time"

	"github.com/NERVsystems/takbridge/cot"
	"github.com/NERVsystems/takbridge/errs"
)

// UidPolicy selects how the Correlator derives a stable CoT Uid from a
// SAPIENT detection's (node_id, object_id, detection_id) triple.
type UidPolicy int

const (
	// UidStablePerObject keys on (node_id, object_id): every detection
	// of the same object shares one Uid across its lifetime.
	UidStablePerObject UidPolicy = iota
	// UidStablePerDetection additionally includes detection_id.
	UidStablePerDetection
	// UidCustom delegates to a user-supplied pure function.
	UidCustom
)

// TimePolicyKind selects how the bridge derives a CoT event's time
// field from a message's producer timestamp and its locally observed
// time.
type TimePolicyKind int

const (
	// TimePolicyMessageTime uses the producer-assigned timestamp as-is.
	TimePolicyMessageTime TimePolicyKind = iota
	// TimePolicyObservedTime uses locally observed wall time.
	TimePolicyObservedTime
	// TimePolicyObservedWithSkewClamp uses message time if it is within
	// MaxSkew of observed time, else clamps to observed time +/- MaxSkew
	// in the direction of the message time.
	TimePolicyObservedWithSkewClamp
)

// SmoothingMode selects whether and how the Smoother stage runs.
type SmoothingMode int

const (
	SmoothingNone SmoothingMode = iota
	SmoothingAlphaBeta
)

// CustomUidFunc derives a Uid from a detection's correlation fields. It
// must be pure (same inputs always produce the same Uid) to preserve
// the pipeline's determinism guarantee.
type CustomUidFunc func(nodeID, objectID, detectionID string) string

// ClassificationEntry maps one classifier label to a CoT type string.
type ClassificationEntry struct {
	Label   string
	CotType string
}

// Config is the validated configuration for one bridge pipeline
// instance. Construct via a literal and call Validate before Run.
type Config struct {
	UidPolicy    UidPolicy
	CustomUid    CustomUidFunc
	CotStale     time.Duration
	TimePolicy   TimePolicyKind
	MaxSkew      time.Duration
	DedupWindow  time.Duration
	CorrelatorTTL time.Duration
	// PersistencePath, if non-empty, durably persists the Correlator's
	// UID map (via bbolt) so UIDs survive a process restart.
	PersistencePath string

	Smoothing SmoothingMode
	Alpha     float64
	Beta      float64

	MaxUpdatesPerSecond float64
	MinSeparation       time.Duration
	// Priority maps a mapped CoT type to a 0..255 emission priority
	// class; types absent from the map get priority 0.
	Priority map[string]uint8

	Classification       []ClassificationEntry
	UnknownClassFallback string
	StrictMode            bool
	// RequiredLabels, when non-empty, is the label set a strict startup
	// check requires Classification to cover completely.
	RequiredLabels []string
}

// Validate checks Config for internal consistency, returning an error
// naming the first violation found: KindInvalidValue for a missing or
// out-of-range field, KindStrictStartupFailed for an empty fallback
// under strict mode, a malformed CoT type, or a required label missing
// from Classification.
func (c Config) Validate() error {
	if c.CotStale < time.Second {
		return errs.Field(errs.KindInvalidValue, "cot_stale_seconds", "must be >= 1 second")
	}
	if c.TimePolicy == TimePolicyObservedWithSkewClamp && c.MaxSkew <= 0 {
		return errs.Field(errs.KindInvalidValue, "max_skew", "must be positive when time policy is observed_with_skew_clamp")
	}
	if c.UidPolicy == UidCustom && c.CustomUid == nil {
		return errs.Field(errs.KindInvalidValue, "custom_uid", "required when uid_policy is custom")
	}
	if c.Smoothing == SmoothingAlphaBeta && (c.Alpha <= 0 || c.Beta <= 0) {
		return errs.Field(errs.KindInvalidValue, "alpha_beta", "alpha and beta must be positive")
	}
	if c.StrictMode && c.UnknownClassFallback == "" {
		return errs.New(errs.KindStrictStartupFailed, "unknown_class_fallback must be non-empty under strict mode")
	}
	if !c.StrictMode && c.UnknownClassFallback == "" {
		return errs.Field(errs.KindInvalidValue, "unknown_class_fallback", "must be non-empty")
	}
	for _, e := range c.Classification {
		if _, err := cot.ParseCotType(e.CotType); err != nil {
			return errs.Field(errs.KindStrictStartupFailed, "classification.cot_type",
				"label "+e.Label+" maps to malformed CoT type "+e.CotType+" ("+explainCotType(e.CotType)+")")
		}
	}
	if _, err := cot.ParseCotType(c.UnknownClassFallback); err != nil {
		return errs.Field(errs.KindStrictStartupFailed, "unknown_class_fallback",
			"malformed CoT type "+c.UnknownClassFallback+" ("+explainCotType(c.UnknownClassFallback)+")")
	}
	if c.StrictMode && len(c.RequiredLabels) > 0 {
		covered := make(map[string]bool, len(c.Classification))
		for _, e := range c.Classification {
			covered[e.Label] = true
		}
		for _, label := range c.RequiredLabels {
			if !covered[label] {
				return errs.Field(errs.KindStrictStartupFailed, "required_labels",
					"mapping_incomplete: classification table missing required label: "+label)
			}
		}
	}
	return nil
}
