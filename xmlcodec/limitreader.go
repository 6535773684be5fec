package xmlcodec

import (
	"encoding/xml"

	"github.com/NERVsystems/takbridge/errs"
)

// boundedTokenReader wraps the raw decoder's token stream and rejects
// the decode once cumulative input consumed exceeds maxScanBytes. This
// mirrors the teacher library's limitTokenReader, generalized to a
// single whole-payload budget rather than per-token/per-depth checks,
// since xmlcodec's decode path already tracks detail element count and
// structure explicitly at the call site.
type boundedTokenReader struct {
	dec          *xml.Decoder
	maxScanBytes int64
}

func (b *boundedTokenReader) Token() (xml.Token, error) {
	tok, err := b.dec.RawToken()
	if err != nil {
		return tok, err
	}
	if b.dec.InputOffset() > b.maxScanBytes {
		return nil, errs.AtOffset(errs.KindXMLScanBudget, b.dec.InputOffset(), "xml scan budget exceeded")
	}
	return tok, nil
}
