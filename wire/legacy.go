package wire

import (
	"bufio"
	"bytes"
	"io"

	"github.com/NERVsystems/takbridge/errs"
	"github.com/NERVsystems/takbridge/limits"
)

const (
	eventOpenMarker  = "<event"
	eventCloseMarker = "</event>"
)

// LegacyReader scans a byte stream for delimiter-framed CoT XML
// events: each frame is a well-formed <event ...>...</event> element,
// with inter-event whitespace tolerated. It never buffers more than
// lims.MaxXMLScanBytes looking for one frame's closing delimiter.
type LegacyReader struct {
	r *bufio.Reader
}

// NewLegacyReader wraps r for delimiter-framed reads.
func NewLegacyReader(r io.Reader) *LegacyReader {
	return &LegacyReader{r: bufio.NewReaderSize(r, 4096)}
}

// NewLegacyReaderBuffered builds a LegacyReader directly over an
// existing *bufio.Reader instead of wrapping a fresh one. Used where a
// connection's framing can switch mid-stream (the wire negotiator's
// streaming-path upgrade): the same buffered reader is then handed to
// NewStreamingReaderBuffered on upgrade, so bytes already read ahead
// into the buffer are never lost.
func NewLegacyReaderBuffered(r *bufio.Reader) *LegacyReader {
	return &LegacyReader{r: r}
}

// ReadFrame returns the next complete <event>...</event> frame's raw
// bytes, or a KindFrameTooLarge error if the scan exceeds
// lims.MaxXMLScanBytes before a closing delimiter is found.
func (lr *LegacyReader) ReadFrame(lims limits.Limits) ([]byte, error) {
	if err := lr.skipWhitespace(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := lr.consumeThrough(&buf, eventOpenMarker, lims.MaxXMLScanBytes); err != nil {
		return nil, err
	}
	if err := lr.consumeThrough(&buf, eventCloseMarker, lims.MaxXMLScanBytes); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// skipWhitespace consumes leading whitespace between frames without
// counting it against any frame's scan budget.
func (lr *LegacyReader) skipWhitespace() error {
	for {
		b, err := lr.r.ReadByte()
		if err != nil {
			return err
		}
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		default:
			return lr.r.UnreadByte()
		}
	}
}

// consumeThrough reads bytes into buf until the buffer's tail matches
// marker, failing with KindFrameTooLarge if buf would have to grow past
// maxBytes first.
func (lr *LegacyReader) consumeThrough(buf *bytes.Buffer, marker string, maxBytes uint64) error {
	for {
		if uint64(buf.Len()) >= maxBytes {
			return errs.New(errs.KindFrameTooLarge, "xml scan budget exceeded before frame delimiter")
		}
		b, err := lr.r.ReadByte()
		if err != nil {
			return errs.Wrap(errs.KindMalformedHeader, "stream ended mid-frame", err)
		}
		buf.WriteByte(b)
		if buf.Len() >= len(marker) && bytes.HasSuffix(buf.Bytes(), []byte(marker)) {
			return nil
		}
	}
}
