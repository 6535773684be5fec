package xmlcodec

import (
	"bytes"
	"encoding/xml"
	"sync"
)

// pooledDecoder pairs an xml.Decoder with a reusable bytes.Reader. The
// bytes.Reader is reused across calls; getDecoder builds a fresh
// xml.Decoder over it for every message, since an xml.Decoder cannot be
// reset onto new input. Generalized
// from the teacher's decoderPool (decoder_pool.go), which pooled the
// same pair for the same reason.
type pooledDecoder struct {
	dec *xml.Decoder
	br  *bytes.Reader
}

var decoderPool = sync.Pool{
	New: func() any {
		br := bytes.NewReader(nil)
		return &pooledDecoder{dec: xml.NewDecoder(br), br: br}
	},
}

// getDecoder borrows a pooledDecoder reset over data. The returned
// decoder must be returned via putDecoder once decoding completes.
func getDecoder(data []byte) *pooledDecoder {
	pd := decoderPool.Get().(*pooledDecoder)
	pd.br.Reset(data)
	pd.dec = xml.NewDecoder(pd.br)
	pd.dec.Entity = nil
	return pd
}

func putDecoder(pd *pooledDecoder) {
	pd.br.Reset(nil)
	decoderPool.Put(pd)
}

// bufPool pools the scratch bytes.Buffer Encode builds output into,
// generalized from the teacher's own bufPool (event_pool.go). The
// buffer's contents are copied out before it is returned to the pool,
// since Encode's caller keeps the returned slice past the call.
var bufPool = sync.Pool{
	New: func() any { return new(bytes.Buffer) },
}

func getBuffer() *bytes.Buffer {
	b := bufPool.Get().(*bytes.Buffer)
	b.Reset()
	return b
}

func putBuffer(b *bytes.Buffer) {
	b.Reset()
	bufPool.Put(b)
}
