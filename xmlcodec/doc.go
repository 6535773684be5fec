// Package xmlcodec translates between the legacy CoT XML wire payload
// and the cot.CotEvent model.
//
// Decoding walks the token stream directly instead of relying on
// encoding/xml struct-tag unmarshaling, so that the original order of
// <detail> children — including elements this package does not assign
// any meaning to — survives a decode/encode round trip. A bounded token
// reader enforces limits.Limits.MaxXMLScanBytes across the whole
// payload, and the detail walker separately enforces
// MaxDetailElements. Unknown and unregistered elements are preserved as
// opaque byte blobs rather than dropped.
package xmlcodec
