package bridge

import (
	"github.com/NERVsystems/takbridge/cot"
	"github.com/NERVsystems/takbridge/errs"
	"github.com/NERVsystems/takbridge/sapient"
)

// Mapper translates a classification label into a validated cot.CotType
// via Config.Classification, falling back to UnknownClassFallback under
// non-strict mode. A missing mapping under strict mode is a fatal
// MappingIncomplete error (strict startup is expected to have already
// caught this for any label seen in the conformance fixture; a label
// never seen before at startup still fails the same way at runtime).
type Mapper struct {
	table    map[string]string
	fallback string
	strict   bool
}

// NewMapper builds a Mapper from Config's classification table.
func NewMapper(cfg Config) *Mapper {
	table := make(map[string]string, len(cfg.Classification))
	for _, e := range cfg.Classification {
		table[e.Label] = e.CotType
	}
	return &Mapper{table: table, fallback: cfg.UnknownClassFallback, strict: cfg.StrictMode}
}

// MapType resolves label to a validated CoT type string.
func (m *Mapper) MapType(label string) (cot.CotType, error) {
	raw, ok := m.table[label]
	if !ok {
		if m.strict {
			return cot.CotType{}, errs.New(errs.KindMappingIncomplete, "no classification mapping for label: "+label)
		}
		raw = m.fallback
	}
	return cot.ParseCotType(raw)
}

// BehaviourDetail converts a detection's behaviour labels into a single
// Extension detail element per spec.md §4.7.4 ("behaviour labels become
// detail extensions carrying (key, severity)").
func BehaviourDetail(behaviours []sapient.BehaviourLabel) (cot.Extension, bool) {
	if len(behaviours) == 0 {
		return cot.Extension{}, false
	}
	pairs := make([]behaviourPair, len(behaviours))
	for i, b := range behaviours {
		pairs[i] = behaviourPair{Key: b.Key, Severity: b.Severity}
	}
	return cot.Extension{Key: "behaviourLabels", Value: pairs}, true
}

type behaviourPair struct {
	Key      string
	Severity uint32
}

// ProvenanceDetail converts a detection's single classification
// probability into a Provenance detail element carrying the per-class
// probability distribution. SAPIENT's Detection message carries one
// (label, probability) pair; a richer upstream source with a full
// distribution would populate Classifications with more entries.
func ProvenanceDetail(label string, probability float64) cot.Provenance {
	return cot.Provenance{
		Classifications: []cot.ClassProbability{
			{Label: label, Probability: probability},
		},
	}
}
