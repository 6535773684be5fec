package wire

import "github.com/NERVsystems/takbridge/errs"

// ReadMeshDatagram parses a single TAK Protocol v1 mesh UDP datagram:
// 0xBF || varint(protocol_version) || payload. A datagram is exactly
// one frame, so no length prefix governs the payload — whatever
// remains after the version varint is the payload.
func ReadMeshDatagram(datagram []byte) (version uint64, payload []byte, err error) {
	if len(datagram) == 0 {
		return 0, nil, errs.New(errs.KindMalformedHeader, "empty mesh datagram")
	}
	if datagram[0] != TakHeaderByte {
		return 0, nil, errs.New(errs.KindMalformedHeader, "expected TAK Protocol v1 header byte 0xBF")
	}
	version, n, err := DecodeVarintBytes(datagram[1:])
	if err != nil {
		return 0, nil, err
	}
	return version, datagram[1+n:], nil
}

// WriteMeshDatagram renders payload as a TAK Protocol v1 mesh UDP
// datagram advertising protocolVersion.
func WriteMeshDatagram(protocolVersion uint64, payload []byte) []byte {
	b := make([]byte, 0, len(payload)+11)
	b = append(b, TakHeaderByte)
	b = AppendVarint(b, protocolVersion)
	return append(b, payload...)
}
