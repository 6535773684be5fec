package bridge

import (
	"time"

	"github.com/NERVsystems/takbridge/cot"
)

// ResolveTime derives a CotEvent's time field per Config.TimePolicy,
// given the SAPIENT message's producer timestamp and this bridge
// instance's locally observed time for the same message.
func ResolveTime(policy TimePolicyKind, maxSkew time.Duration, messageTime, observedTime cot.Timestamp) cot.Timestamp {
	switch policy {
	case TimePolicyObservedTime:
		return observedTime
	case TimePolicyObservedWithSkewClamp:
		skew := messageTime.Sub(observedTime)
		if skew < 0 {
			skew = -skew
		}
		if skew <= maxSkew {
			return messageTime
		}
		if messageTime.After(observedTime) {
			return observedTime.Add(maxSkew)
		}
		return observedTime.Add(-maxSkew)
	default: // TimePolicyMessageTime
		return messageTime
	}
}
