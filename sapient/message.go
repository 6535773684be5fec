package sapient

import "time"

// Registration announces a sensor node joining the session.
type Registration struct {
	NodeID       string
	NodeType     string
	Capabilities []string
	Timestamp    time.Time
}

// Status reports a node's current operating state.
type Status struct {
	NodeID    string
	State     string // e.g. "ok", "degraded", "offline"
	Timestamp time.Time
}

// BehaviourLabel carries a single behaviour classification and its
// severity, becoming a CoT detail extension in the bridge's mapping
// stage.
type BehaviourLabel struct {
	Key      string
	Severity uint32
}

// Detection is a single sensor observation of a tracked object.
type Detection struct {
	NodeID                    string
	ObjectID                  string
	DetectionID               string
	ClassificationLabel       string
	ClassificationProbability float64
	Lat                       float64
	Lon                       float64
	Alt                       float64
	AltSet                    bool
	Timestamp                 time.Time
	Behaviours                []BehaviourLabel
}

// Alert signals an operator-facing event tied to an object.
type Alert struct {
	NodeID    string
	ObjectID  string
	AlertType string
	Timestamp time.Time
}

// Task is a tasking command directed at a node.
type Task struct {
	NodeID    string
	TaskID    string
	Command   string
	Timestamp time.Time
}

// Ack acknowledges a Registration, completing the handshake.
type Ack struct {
	OK     bool
	Reason string
}

// Kind identifies which variant a Message carries.
type Kind int

const (
	KindRegistration Kind = iota
	KindStatus
	KindDetection
	KindAlert
	KindTask
	KindAck
)

// Message is the decoded SAPIENT frame: exactly one of the typed
// fields is populated, selected by Kind.
type Message struct {
	Kind         Kind
	Registration Registration
	Status       Status
	Detection    Detection
	Alert        Alert
	Task         Task
	Ack          Ack
}
