package wire

import (
	"bufio"
	"io"

	"github.com/NERVsystems/takbridge/errs"
	"github.com/NERVsystems/takbridge/limits"
)

// TakHeaderByte identifies a TAK Protocol v1 frame (streaming or mesh)
// at the start of a byte sequence, distinguishing it from a legacy XML
// frame (which always starts with '<').
const TakHeaderByte = 0xBF

// StreamingReader reads TAK Protocol v1 streaming frames:
// 0xBF || varint(payload_length) || payload.
type StreamingReader struct {
	r *bufio.Reader
}

// NewStreamingReader wraps r for TAK Protocol v1 streaming frame reads.
func NewStreamingReader(r io.Reader) *StreamingReader {
	return &StreamingReader{r: bufio.NewReaderSize(r, 4096)}
}

// NewStreamingReaderBuffered builds a StreamingReader directly over an
// existing *bufio.Reader instead of wrapping a fresh one. See
// NewLegacyReaderBuffered for why this matters across a framing
// upgrade on the same connection.
func NewStreamingReaderBuffered(r *bufio.Reader) *StreamingReader {
	return &StreamingReader{r: r}
}

// ReadFrame reads one streaming frame's payload, failing with
// KindMalformedHeader if the header byte is wrong, KindVarintOverflow
// if the length varint is malformed, or KindFrameTooLarge if the
// declared length exceeds lims.MaxFrameBytes.
func (sr *StreamingReader) ReadFrame(lims limits.Limits) ([]byte, error) {
	hdr, err := sr.r.ReadByte()
	if err != nil {
		return nil, err
	}
	if hdr != TakHeaderByte {
		return nil, errs.New(errs.KindMalformedHeader, "expected TAK Protocol v1 header byte 0xBF")
	}
	n, err := ReadVarint(sr.r)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, errs.New(errs.KindMalformedHeader, "empty frame rejected")
	}
	if n > lims.MaxFrameBytes {
		return nil, errs.New(errs.KindFrameTooLarge, "payload_length exceeds max_frame_bytes")
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(sr.r, payload); err != nil {
		return nil, errs.Wrap(errs.KindMalformedHeader, "stream ended mid-frame", err)
	}
	return payload, nil
}

// WriteStreamingFrame renders payload as a TAK Protocol v1 streaming
// frame.
func WriteStreamingFrame(payload []byte) []byte {
	b := make([]byte, 0, len(payload)+11)
	b = append(b, TakHeaderByte)
	b = AppendVarint(b, uint64(len(payload)))
	return append(b, payload...)
}
