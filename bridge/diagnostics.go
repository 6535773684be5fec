package bridge

import (
	"context"
	"strings"

	"github.com/NERVsystems/takbridge/cot/cotexplainer"
	"github.com/NERVsystems/takbridge/cot/cottypes"
)

// explainCotType renders a plain-English breakdown of a CoT type code
// for operator-facing diagnostics, used when strict startup rejects a
// classification table entry whose CotType is malformed. Falls back to
// the raw code if it cannot be explained (an empty code, or an unknown
// predicate, affiliation or battle-dimension code).
func explainCotType(code string) string {
	parts, err := cotexplainer.Explain(context.Background(), cottypes.Default(), code)
	if err != nil {
		return code
	}
	return strings.Join(parts, " / ")
}
