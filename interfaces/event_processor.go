package interfaces

import "github.com/flagkit/flagkit-go/lduser"

// EventInputKind discriminates the analytics records the client facade submits to the Event
// Processor inbox (spec.md 4.5).
type EventInputKind string

// EventInputKind values.
const (
	EventInputFeatureRequest EventInputKind = "feature"
	EventInputIdentify       EventInputKind = "identify"
	EventInputCustom         EventInputKind = "custom"
)

// FeatureRequestEvent is recorded for every flag evaluation, including prerequisite evaluations
// and error paths.
type FeatureRequestEvent struct {
	CreationDate         int64
	FlagKey              string
	FlagVersion          int
	HasVariation         bool
	Variation            int
	Value                interface{}
	Default              interface{}
	User                 lduser.User
	TrackEvents          bool
	DebugEventsUntilDate int64
	Reason               interface{} // ldreason.Reason; kept as interface{} to avoid an import cycle
	PrereqOf             string      // non-empty if this evaluation was of a prerequisite
}

// IdentifyEvent records that a user was seen.
type IdentifyEvent struct {
	CreationDate int64
	User         lduser.User
}

// CustomEvent records an application-defined event, optionally with a numeric metric value.
type CustomEvent struct {
	CreationDate int64
	Key          string
	User         lduser.User
	Data         interface{}
	HasMetric    bool
	MetricValue  float64
}

// EventProcessor is the contract the Event Processor satisfies (spec.md 4.5). Implementations
// must never block the calling evaluation path.
type EventProcessor interface {
	RecordFeatureRequestEvent(e FeatureRequestEvent)
	RecordIdentifyEvent(e IdentifyEvent)
	RecordCustomEvent(e CustomEvent)
	Flush()
	Close() error
}
