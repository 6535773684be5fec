// Package cotexplainer resolves a CoT type code into a human-readable
// explanation, used in the reason of the StrictStartupFailed error that
// bridge config validation returns for a malformed CoT type.
package cotexplainer

import (
	"context"
	"fmt"
	"strings"

	"github.com/NERVsystems/takbridge/cot/cottypes"
)

var predicateMap = map[string]string{
	"a": "Atom",
	"b": "Bits",
	"c": "Capability",
	"t": "Tasking",
	"y": "Reply",
}

var affiliationMap = map[string]string{
	"p": "Pending",
	"u": "Unknown",
	"f": "Friendly",
	"n": "Neutral",
	"h": "Hostile",
	"a": "Assumed Friend",
	"s": "Suspect",
	"j": "Joker",
	"k": "Faker",
}

var battleDimensionMap = map[string]string{
	"P": "Space",
	"A": "Air",
	"G": "Ground",
	"S": "Surface",
	"U": "Subsurface",
	"X": "Other",
}

// Explain resolves a CoT type code into a slice of plain-English
// descriptions: predicate, affiliation, battle dimension, then, for the
// function-detail segments, the catalog description of the full code
// when it is registered, or else the raw segments themselves. For a
// non-atom predicate the remaining segments follow it verbatim.
func Explain(ctx context.Context, catalog *cottypes.Catalog, code string) ([]string, error) {
	if code == "" {
		return nil, fmt.Errorf("empty type")
	}
	parts := strings.Split(code, "-")

	pred, ok := predicateMap[parts[0]]
	if !ok {
		return nil, fmt.Errorf("unknown predicate: %s", parts[0])
	}
	res := []string{pred}

	if parts[0] != "a" {
		res = append(res, parts[1:]...)
		return res, nil
	}

	if len(parts) < 3 {
		return nil, fmt.Errorf("invalid atom type format")
	}
	aff, ok := affiliationMap[parts[1]]
	if !ok {
		return nil, fmt.Errorf("unknown affiliation: %s", parts[1])
	}
	dim, ok := battleDimensionMap[parts[2]]
	if !ok {
		return nil, fmt.Errorf("unknown battle dimension: %s", parts[2])
	}
	res = append(res, aff, dim)

	if len(parts) > 3 && catalog != nil {
		if t, err := catalog.GetType(ctx, code); err == nil {
			return append(res, t.Description), nil
		}
	}
	return append(res, parts[3:]...), nil
}
