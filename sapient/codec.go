package sapient

import (
	"time"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/NERVsystems/takbridge/errs"
	"github.com/NERVsystems/takbridge/limits"
)

// SapientMessage wrapper field numbers (the hand-rolled oneof).
const (
	fMsgRegistration protowire.Number = 1
	fMsgStatus       protowire.Number = 2
	fMsgDetection    protowire.Number = 3
	fMsgAlert        protowire.Number = 4
	fMsgTask         protowire.Number = 5
	fMsgAck          protowire.Number = 6
)

// Registration field numbers.
const (
	fRegNodeID      protowire.Number = 1
	fRegNodeType    protowire.Number = 2
	fRegCapability  protowire.Number = 3
	fRegTimestampNs protowire.Number = 4
)

// Status field numbers.
const (
	fStatusNodeID      protowire.Number = 1
	fStatusState       protowire.Number = 2
	fStatusTimestampNs protowire.Number = 3
)

// Detection field numbers.
const (
	fDetNodeID         protowire.Number = 1
	fDetObjectID       protowire.Number = 2
	fDetDetectionID    protowire.Number = 3
	fDetClassLabel     protowire.Number = 4
	fDetClassProb      protowire.Number = 5
	fDetLat            protowire.Number = 6
	fDetLon            protowire.Number = 7
	fDetAlt            protowire.Number = 8
	fDetAltSet         protowire.Number = 9
	fDetTimestampNs    protowire.Number = 10
	fDetBehaviour      protowire.Number = 11
	fBehaviourKey      protowire.Number = 1
	fBehaviourSeverity protowire.Number = 2
)

// Alert field numbers.
const (
	fAlertNodeID      protowire.Number = 1
	fAlertObjectID    protowire.Number = 2
	fAlertType        protowire.Number = 3
	fAlertTimestampNs protowire.Number = 4
)

// Task field numbers.
const (
	fTaskNodeID      protowire.Number = 1
	fTaskTaskID      protowire.Number = 2
	fTaskCommand     protowire.Number = 3
	fTaskTimestampNs protowire.Number = 4
)

// Ack field numbers.
const (
	fAckOK     protowire.Number = 1
	fAckReason protowire.Number = 2
)

// Encode renders msg as a canonical SAPIENT protobuf payload: ascending
// field-number order, zero-value fields omitted.
func Encode(msg Message) ([]byte, error) {
	var inner []byte
	var num protowire.Number
	switch msg.Kind {
	case KindRegistration:
		inner, num = encodeRegistration(msg.Registration), fMsgRegistration
	case KindStatus:
		inner, num = encodeStatus(msg.Status), fMsgStatus
	case KindDetection:
		inner, num = encodeDetection(msg.Detection), fMsgDetection
	case KindAlert:
		inner, num = encodeAlert(msg.Alert), fMsgAlert
	case KindTask:
		inner, num = encodeTask(msg.Task), fMsgTask
	case KindAck:
		inner, num = encodeAck(msg.Ack), fMsgAck
	default:
		return nil, errs.New(errs.KindInvalidField, "unknown sapient message kind")
	}
	return appendMessage(nil, num, inner), nil
}

// Decode parses a single SAPIENT protobuf payload, rejecting payloads
// larger than lims.MaxProtobufBytes before touching the contents.
func Decode(data []byte, lims limits.Limits) (Message, error) {
	if uint64(len(data)) > lims.MaxProtobufBytes {
		return Message{}, errs.New(errs.KindProtoBudget, "sapient payload exceeds max_protobuf_bytes")
	}
	r := newFieldReader(data)
	for !r.done() {
		num, _, val, _, err := r.next()
		if err != nil {
			return Message{}, err
		}
		switch num {
		case fMsgRegistration:
			reg, err := decodeRegistration(val)
			if err != nil {
				return Message{}, err
			}
			return Message{Kind: KindRegistration, Registration: reg}, nil
		case fMsgStatus:
			st, err := decodeStatus(val)
			if err != nil {
				return Message{}, err
			}
			return Message{Kind: KindStatus, Status: st}, nil
		case fMsgDetection:
			d, err := decodeDetection(val)
			if err != nil {
				return Message{}, err
			}
			return Message{Kind: KindDetection, Detection: d}, nil
		case fMsgAlert:
			a, err := decodeAlert(val)
			if err != nil {
				return Message{}, err
			}
			return Message{Kind: KindAlert, Alert: a}, nil
		case fMsgTask:
			tk, err := decodeTask(val)
			if err != nil {
				return Message{}, err
			}
			return Message{Kind: KindTask, Task: tk}, nil
		case fMsgAck:
			ack, err := decodeAck(val)
			if err != nil {
				return Message{}, err
			}
			return Message{Kind: KindAck, Ack: ack}, nil
		}
	}
	return Message{}, errs.New(errs.KindSchemaMismatch, "sapient message carried no recognized variant")
}

func encodeRegistration(r Registration) []byte {
	var b []byte
	b = appendString(b, fRegNodeID, r.NodeID)
	b = appendString(b, fRegNodeType, r.NodeType)
	for _, c := range r.Capabilities {
		b = appendString(b, fRegCapability, c)
	}
	b = appendVarint(b, fRegTimestampNs, uint64(r.Timestamp.UnixNano()))
	return b
}

func decodeRegistration(data []byte) (Registration, error) {
	var r Registration
	reader := newFieldReader(data)
	for !reader.done() {
		num, _, val, n, err := reader.next()
		if err != nil {
			return Registration{}, err
		}
		switch num {
		case fRegNodeID:
			r.NodeID = string(val)
		case fRegNodeType:
			r.NodeType = string(val)
		case fRegCapability:
			r.Capabilities = append(r.Capabilities, string(val))
		case fRegTimestampNs:
			r.Timestamp = time.Unix(0, n).UTC()
		}
	}
	return r, nil
}

func encodeStatus(s Status) []byte {
	var b []byte
	b = appendString(b, fStatusNodeID, s.NodeID)
	b = appendString(b, fStatusState, s.State)
	b = appendVarint(b, fStatusTimestampNs, uint64(s.Timestamp.UnixNano()))
	return b
}

func decodeStatus(data []byte) (Status, error) {
	var s Status
	reader := newFieldReader(data)
	for !reader.done() {
		num, _, val, n, err := reader.next()
		if err != nil {
			return Status{}, err
		}
		switch num {
		case fStatusNodeID:
			s.NodeID = string(val)
		case fStatusState:
			s.State = string(val)
		case fStatusTimestampNs:
			s.Timestamp = time.Unix(0, n).UTC()
		}
	}
	return s, nil
}

func encodeDetection(d Detection) []byte {
	var b []byte
	b = appendString(b, fDetNodeID, d.NodeID)
	b = appendString(b, fDetObjectID, d.ObjectID)
	b = appendString(b, fDetDetectionID, d.DetectionID)
	b = appendString(b, fDetClassLabel, d.ClassificationLabel)
	b = appendDouble(b, fDetClassProb, d.ClassificationProbability)
	b = appendDouble(b, fDetLat, d.Lat)
	b = appendDouble(b, fDetLon, d.Lon)
	if d.AltSet {
		b = appendDouble(b, fDetAlt, d.Alt)
		b = appendBool(b, fDetAltSet, true)
	}
	b = appendVarint(b, fDetTimestampNs, uint64(d.Timestamp.UnixNano()))
	for _, bh := range d.Behaviours {
		var inner []byte
		inner = appendString(inner, fBehaviourKey, bh.Key)
		inner = appendVarint(inner, fBehaviourSeverity, uint64(bh.Severity))
		b = appendMessage(b, fDetBehaviour, inner)
	}
	return b
}

func decodeDetection(data []byte) (Detection, error) {
	var d Detection
	reader := newFieldReader(data)
	for !reader.done() {
		num, _, val, n, err := reader.next()
		if err != nil {
			return Detection{}, err
		}
		switch num {
		case fDetNodeID:
			d.NodeID = string(val)
		case fDetObjectID:
			d.ObjectID = string(val)
		case fDetDetectionID:
			d.DetectionID = string(val)
		case fDetClassLabel:
			d.ClassificationLabel = string(val)
		case fDetClassProb:
			d.ClassificationProbability = bitsToFloat(n)
		case fDetLat:
			d.Lat = bitsToFloat(n)
		case fDetLon:
			d.Lon = bitsToFloat(n)
		case fDetAlt:
			d.Alt = bitsToFloat(n)
		case fDetAltSet:
			d.AltSet = n != 0
		case fDetTimestampNs:
			d.Timestamp = time.Unix(0, n).UTC()
		case fDetBehaviour:
			bh, err := decodeBehaviour(val)
			if err != nil {
				return Detection{}, err
			}
			d.Behaviours = append(d.Behaviours, bh)
		}
	}
	return d, nil
}

func decodeBehaviour(data []byte) (BehaviourLabel, error) {
	var bh BehaviourLabel
	reader := newFieldReader(data)
	for !reader.done() {
		num, _, val, n, err := reader.next()
		if err != nil {
			return BehaviourLabel{}, err
		}
		switch num {
		case fBehaviourKey:
			bh.Key = string(val)
		case fBehaviourSeverity:
			bh.Severity = uint32(n)
		}
	}
	return bh, nil
}

func encodeAlert(a Alert) []byte {
	var b []byte
	b = appendString(b, fAlertNodeID, a.NodeID)
	b = appendString(b, fAlertObjectID, a.ObjectID)
	b = appendString(b, fAlertType, a.AlertType)
	b = appendVarint(b, fAlertTimestampNs, uint64(a.Timestamp.UnixNano()))
	return b
}

func decodeAlert(data []byte) (Alert, error) {
	var a Alert
	reader := newFieldReader(data)
	for !reader.done() {
		num, _, val, n, err := reader.next()
		if err != nil {
			return Alert{}, err
		}
		switch num {
		case fAlertNodeID:
			a.NodeID = string(val)
		case fAlertObjectID:
			a.ObjectID = string(val)
		case fAlertType:
			a.AlertType = string(val)
		case fAlertTimestampNs:
			a.Timestamp = time.Unix(0, n).UTC()
		}
	}
	return a, nil
}

func encodeTask(tk Task) []byte {
	var b []byte
	b = appendString(b, fTaskNodeID, tk.NodeID)
	b = appendString(b, fTaskTaskID, tk.TaskID)
	b = appendString(b, fTaskCommand, tk.Command)
	b = appendVarint(b, fTaskTimestampNs, uint64(tk.Timestamp.UnixNano()))
	return b
}

func decodeTask(data []byte) (Task, error) {
	var tk Task
	reader := newFieldReader(data)
	for !reader.done() {
		num, _, val, n, err := reader.next()
		if err != nil {
			return Task{}, err
		}
		switch num {
		case fTaskNodeID:
			tk.NodeID = string(val)
		case fTaskTaskID:
			tk.TaskID = string(val)
		case fTaskCommand:
			tk.Command = string(val)
		case fTaskTimestampNs:
			tk.Timestamp = time.Unix(0, n).UTC()
		}
	}
	return tk, nil
}

func encodeAck(a Ack) []byte {
	var b []byte
	b = appendBool(b, fAckOK, a.OK)
	b = appendString(b, fAckReason, a.Reason)
	return b
}

func decodeAck(data []byte) (Ack, error) {
	var a Ack
	reader := newFieldReader(data)
	for !reader.done() {
		num, _, val, n, err := reader.next()
		if err != nil {
			return Ack{}, err
		}
		switch num {
		case fAckOK:
			a.OK = n != 0
		case fAckReason:
			a.Reason = string(val)
		}
	}
	return a, nil
}
