package takproto

import (
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/NERVsystems/takbridge/cot"
	"github.com/NERVsystems/takbridge/errs"
)

// Each DetailElement variant owns one field number within the wrapper
// message appended once per repeated "detail" field on Event. Exactly
// one of these is ever present, modeling a oneof by convention since
// protowire has no native oneof support.
const (
	detContact    protowire.Number = 1
	detGroup      protowire.Number = 2
	detTrack      protowire.Number = 3
	detStatus     protowire.Number = 4
	detTakv       protowire.Number = 5
	detSensor     protowire.Number = 6
	detLink       protowire.Number = 7
	detRemarks    protowire.Number = 8
	detShape      protowire.Number = 9
	detGeofence   protowire.Number = 10
	detDrone      protowire.Number = 11
	detProvenance protowire.Number = 12
	detUnknown    protowire.Number = 13
	detExtension  protowire.Number = 14
)

const (
	fContactCallsign protowire.Number = 1
	fContactEndpoint protowire.Number = 2

	fGroupName protowire.Number = 1
	fGroupRole protowire.Number = 2

	fTrackCourse protowire.Number = 1
	fTrackSpeed  protowire.Number = 2

	fStatusBattery protowire.Number = 1

	fTakvDevice   protowire.Number = 1
	fTakvPlatform protowire.Number = 2
	fTakvOS       protowire.Number = 3
	fTakvVersion  protowire.Number = 4

	fSensorFOV     protowire.Number = 1
	fSensorVFOV    protowire.Number = 2
	fSensorNorth   protowire.Number = 3
	fSensorRange   protowire.Number = 4
	fSensorAzimuth protowire.Number = 5

	fLinkUid      protowire.Number = 1
	fLinkType     protowire.Number = 2
	fLinkRelation protowire.Number = 3

	fRemarksText   protowire.Number = 1
	fRemarksSource protowire.Number = 2

	fShapeType   protowire.Number = 1
	fShapeRadius protowire.Number = 2
	fShapePoint  protowire.Number = 3 // repeated, each {1: lat, 2: lon}

	fGeofenceTrigger protowire.Number = 1
	fGeofenceMonitor protowire.Number = 2

	fDroneCategory     protowire.Number = 1
	fDroneRegistration protowire.Number = 2

	fProvenanceClass protowire.Number = 1 // repeated, each {1: label, 2: probability}

	fUnknownXMLName protowire.Number = 1
	fUnknownRawXML  protowire.Number = 2

	fExtensionKey protowire.Number = 1
	fExtensionRaw protowire.Number = 2
)

func encodeDetailElement(el cot.DetailElement) ([]byte, error) {
	var b []byte
	switch v := el.(type) {
	case cot.Contact:
		var inner []byte
		inner = appendString(inner, fContactCallsign, v.Callsign)
		inner = appendString(inner, fContactEndpoint, v.Endpoint)
		b = appendMessage(b, detContact, inner)
	case cot.Group:
		var inner []byte
		inner = appendString(inner, fGroupName, v.Name)
		inner = appendString(inner, fGroupRole, v.Role)
		b = appendMessage(b, detGroup, inner)
	case cot.Track:
		var inner []byte
		inner = appendDouble(inner, fTrackCourse, v.CourseDeg)
		inner = appendDouble(inner, fTrackSpeed, v.SpeedMps)
		b = appendMessage(b, detTrack, inner)
	case cot.Status:
		var inner []byte
		inner = appendVarint(inner, fStatusBattery, uint64(v.BatteryPercent))
		b = appendMessage(b, detStatus, inner)
	case cot.TakVersion:
		var inner []byte
		inner = appendString(inner, fTakvDevice, v.Device)
		inner = appendString(inner, fTakvPlatform, v.Platform)
		inner = appendString(inner, fTakvOS, v.OS)
		inner = appendString(inner, fTakvVersion, v.Version)
		b = appendMessage(b, detTakv, inner)
	case cot.Sensor:
		var inner []byte
		inner = appendDouble(inner, fSensorFOV, v.FOVDeg)
		inner = appendDouble(inner, fSensorVFOV, v.VFOVDeg)
		inner = appendDouble(inner, fSensorNorth, v.NorthDeg)
		inner = appendDouble(inner, fSensorRange, v.RangeM)
		inner = appendDouble(inner, fSensorAzimuth, v.AzimuthDeg)
		b = appendMessage(b, detSensor, inner)
	case cot.Link:
		var inner []byte
		inner = appendString(inner, fLinkUid, v.Uid)
		inner = appendString(inner, fLinkType, v.Type)
		inner = appendString(inner, fLinkRelation, v.Relation)
		b = appendMessage(b, detLink, inner)
	case cot.Remarks:
		var inner []byte
		inner = appendString(inner, fRemarksText, v.Text)
		inner = appendString(inner, fRemarksSource, v.Source)
		b = appendMessage(b, detRemarks, inner)
	case cot.Shape:
		var inner []byte
		inner = appendString(inner, fShapeType, v.Type)
		inner = appendDouble(inner, fShapeRadius, v.RadiusM)
		for _, p := range v.Points {
			var pt []byte
			pt = appendDouble(pt, 1, p.Lat())
			pt = appendDouble(pt, 2, p.Lon())
			inner = appendMessage(inner, fShapePoint, pt)
		}
		b = appendMessage(b, detShape, inner)
	case cot.Geofence:
		var inner []byte
		inner = appendString(inner, fGeofenceTrigger, v.Trigger)
		inner = appendString(inner, fGeofenceMonitor, v.Monitor)
		b = appendMessage(b, detGeofence, inner)
	case cot.Drone:
		var inner []byte
		inner = appendString(inner, fDroneCategory, v.Category)
		inner = appendString(inner, fDroneRegistration, v.Registration)
		b = appendMessage(b, detDrone, inner)
	case cot.Provenance:
		var inner []byte
		for _, c := range v.Classifications {
			var cb []byte
			cb = appendString(cb, 1, c.Label)
			cb = appendDouble(cb, 2, c.Probability)
			inner = appendMessage(inner, fProvenanceClass, cb)
		}
		b = appendMessage(b, detProvenance, inner)
	case cot.Unknown:
		var inner []byte
		inner = appendString(inner, fUnknownXMLName, v.XMLName)
		inner = appendBytes(inner, fUnknownRawXML, v.RawXML)
		b = appendMessage(b, detUnknown, inner)
	case cot.Extension:
		var inner []byte
		inner = appendString(inner, fExtensionKey, v.Key)
		inner = appendBytes(inner, fExtensionRaw, v.Raw)
		b = appendMessage(b, detExtension, inner)
	default:
		return nil, errs.New(errs.KindInvalidField, "unknown detail element implementation")
	}
	return b, nil
}

func decodeDetailElement(data []byte) (cot.DetailElement, error) {
	r := newFieldReader(data)
	for !r.done() {
		num, _, val, _, err := r.next()
		if err != nil {
			return nil, err
		}
		switch num {
		case detContact:
			return decodeContact(val)
		case detGroup:
			return decodeGroup(val)
		case detTrack:
			return decodeTrack(val)
		case detStatus:
			return decodeStatus(val)
		case detTakv:
			return decodeTakv(val)
		case detSensor:
			return decodeSensor(val)
		case detLink:
			return decodeLink(val)
		case detRemarks:
			return decodeRemarks(val)
		case detShape:
			return decodeShape(val)
		case detGeofence:
			return decodeGeofence(val)
		case detDrone:
			return decodeDrone(val)
		case detProvenance:
			return decodeProvenance(val)
		case detUnknown:
			return decodeUnknown(val)
		case detExtension:
			return decodeExtension(val)
		}
	}
	return nil, errs.New(errs.KindSchemaMismatch, "detail element message carried no recognized variant")
}

func decodeContact(data []byte) (cot.DetailElement, error) {
	var v cot.Contact
	r := newFieldReader(data)
	for !r.done() {
		num, _, val, _, err := r.next()
		if err != nil {
			return nil, err
		}
		switch num {
		case fContactCallsign:
			v.Callsign = string(val)
		case fContactEndpoint:
			v.Endpoint = string(val)
		}
	}
	return v, nil
}

func decodeGroup(data []byte) (cot.DetailElement, error) {
	var v cot.Group
	r := newFieldReader(data)
	for !r.done() {
		num, _, val, _, err := r.next()
		if err != nil {
			return nil, err
		}
		switch num {
		case fGroupName:
			v.Name = string(val)
		case fGroupRole:
			v.Role = string(val)
		}
	}
	return v, nil
}

func decodeTrack(data []byte) (cot.DetailElement, error) {
	var v cot.Track
	r := newFieldReader(data)
	for !r.done() {
		num, _, _, n, err := r.next()
		if err != nil {
			return nil, err
		}
		switch num {
		case fTrackCourse:
			v.CourseDeg = bitsToFloat(n)
		case fTrackSpeed:
			v.SpeedMps = bitsToFloat(n)
		}
	}
	return v, nil
}

func decodeStatus(data []byte) (cot.DetailElement, error) {
	var v cot.Status
	r := newFieldReader(data)
	for !r.done() {
		num, _, _, n, err := r.next()
		if err != nil {
			return nil, err
		}
		if num == fStatusBattery {
			v.BatteryPercent = int(n)
		}
	}
	return v, nil
}

func decodeTakv(data []byte) (cot.DetailElement, error) {
	var v cot.TakVersion
	r := newFieldReader(data)
	for !r.done() {
		num, _, val, _, err := r.next()
		if err != nil {
			return nil, err
		}
		switch num {
		case fTakvDevice:
			v.Device = string(val)
		case fTakvPlatform:
			v.Platform = string(val)
		case fTakvOS:
			v.OS = string(val)
		case fTakvVersion:
			v.Version = string(val)
		}
	}
	return v, nil
}

func decodeSensor(data []byte) (cot.DetailElement, error) {
	var v cot.Sensor
	r := newFieldReader(data)
	for !r.done() {
		num, _, _, n, err := r.next()
		if err != nil {
			return nil, err
		}
		switch num {
		case fSensorFOV:
			v.FOVDeg = bitsToFloat(n)
		case fSensorVFOV:
			v.VFOVDeg = bitsToFloat(n)
		case fSensorNorth:
			v.NorthDeg = bitsToFloat(n)
		case fSensorRange:
			v.RangeM = bitsToFloat(n)
		case fSensorAzimuth:
			v.AzimuthDeg = bitsToFloat(n)
		}
	}
	return v, nil
}

func decodeLink(data []byte) (cot.DetailElement, error) {
	var v cot.Link
	r := newFieldReader(data)
	for !r.done() {
		num, _, val, _, err := r.next()
		if err != nil {
			return nil, err
		}
		switch num {
		case fLinkUid:
			v.Uid = string(val)
		case fLinkType:
			v.Type = string(val)
		case fLinkRelation:
			v.Relation = string(val)
		}
	}
	return v, nil
}

func decodeRemarks(data []byte) (cot.DetailElement, error) {
	var v cot.Remarks
	r := newFieldReader(data)
	for !r.done() {
		num, _, val, _, err := r.next()
		if err != nil {
			return nil, err
		}
		switch num {
		case fRemarksText:
			v.Text = string(val)
		case fRemarksSource:
			v.Source = string(val)
		}
	}
	return v, nil
}

func decodeShape(data []byte) (cot.DetailElement, error) {
	var v cot.Shape
	r := newFieldReader(data)
	for !r.done() {
		num, _, val, n, err := r.next()
		if err != nil {
			return nil, err
		}
		switch num {
		case fShapeType:
			v.Type = string(val)
		case fShapeRadius:
			v.RadiusM = bitsToFloat(n)
		case fShapePoint:
			pr := newFieldReader(val)
			var lat, lon float64
			for !pr.done() {
				pn, _, _, pv, err := pr.next()
				if err != nil {
					return nil, err
				}
				switch pn {
				case 1:
					lat = bitsToFloat(pv)
				case 2:
					lon = bitsToFloat(pv)
				}
			}
			pos, err := cot.NewPosition(lat, lon)
			if err != nil {
				return nil, err
			}
			v.Points = append(v.Points, pos)
		}
	}
	return v, nil
}

func decodeGeofence(data []byte) (cot.DetailElement, error) {
	var v cot.Geofence
	r := newFieldReader(data)
	for !r.done() {
		num, _, val, _, err := r.next()
		if err != nil {
			return nil, err
		}
		switch num {
		case fGeofenceTrigger:
			v.Trigger = string(val)
		case fGeofenceMonitor:
			v.Monitor = string(val)
		}
	}
	return v, nil
}

func decodeDrone(data []byte) (cot.DetailElement, error) {
	var v cot.Drone
	r := newFieldReader(data)
	for !r.done() {
		num, _, val, _, err := r.next()
		if err != nil {
			return nil, err
		}
		switch num {
		case fDroneCategory:
			v.Category = string(val)
		case fDroneRegistration:
			v.Registration = string(val)
		}
	}
	return v, nil
}

func decodeProvenance(data []byte) (cot.DetailElement, error) {
	var v cot.Provenance
	r := newFieldReader(data)
	for !r.done() {
		num, _, val, _, err := r.next()
		if err != nil {
			return nil, err
		}
		if num == fProvenanceClass {
			cr := newFieldReader(val)
			var c cot.ClassProbability
			for !cr.done() {
				cn, _, cval, cn2, err := cr.next()
				if err != nil {
					return nil, err
				}
				switch cn {
				case 1:
					c.Label = string(cval)
				case 2:
					c.Probability = bitsToFloat(cn2)
				}
			}
			v.Classifications = append(v.Classifications, c)
		}
	}
	return v, nil
}

func decodeUnknown(data []byte) (cot.DetailElement, error) {
	var v cot.Unknown
	r := newFieldReader(data)
	for !r.done() {
		num, _, val, _, err := r.next()
		if err != nil {
			return nil, err
		}
		switch num {
		case fUnknownXMLName:
			v.XMLName = string(val)
		case fUnknownRawXML:
			v.RawXML = append([]byte(nil), val...)
		}
	}
	return v, nil
}

func decodeExtension(data []byte) (cot.DetailElement, error) {
	var v cot.Extension
	r := newFieldReader(data)
	for !r.done() {
		num, _, val, _, err := r.next()
		if err != nil {
			return nil, err
		}
		switch num {
		case fExtensionKey:
			v.Key = string(val)
		case fExtensionRaw:
			v.Raw = append([]byte(nil), val...)
		}
	}
	return v, nil
}
