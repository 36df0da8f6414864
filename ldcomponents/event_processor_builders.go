package ldcomponents

import (
	"time"

	"github.com/flagkit/flagkit-go/internal/ldevents"
	"github.com/flagkit/flagkit-go/interfaces"
	"github.com/flagkit/flagkit-go/subsystems"
)

// DefaultEventsBaseURI is the default analytics events endpoint.
const DefaultEventsBaseURI = "https://events.launchdarkly.com"

// EventProcessorBuilder configures analytics event delivery (spec.md 4.5). Grounded on
// ldcomponents/send_events.go, trimmed to the fields internal/ldevents.Config actually reads.
type EventProcessorBuilder struct {
	allAttributesPrivate  bool
	capacity              int
	diagnosticInterval    time.Duration
	flushInterval         time.Duration
	privateAttributeNames []string
	userKeysCapacity      int
	userKeysFlushInterval time.Duration
	inlineUsersInEvents   bool
}

// SendEvents returns a configuration builder for analytics event delivery, with events enabled
// using the default tuning. To disable events entirely, use NoEvents instead.
func SendEvents() *EventProcessorBuilder {
	return &EventProcessorBuilder{
		capacity:              ldevents.DefaultCapacity,
		diagnosticInterval:    ldevents.DefaultDiagnosticInterval,
		flushInterval:         ldevents.DefaultFlushInterval,
		userKeysCapacity:      ldevents.DefaultUserKeysCapacity,
		userKeysFlushInterval: ldevents.DefaultUserKeysFlushInterval,
	}
}

// AllAttributesPrivate hides every user attribute except key from analytics events.
func (b *EventProcessorBuilder) AllAttributesPrivate(value bool) *EventProcessorBuilder {
	b.allAttributesPrivate = value
	return b
}

// Capacity sets the event buffer's capacity; events are dropped once it's exceeded between
// flushes.
func (b *EventProcessorBuilder) Capacity(capacity int) *EventProcessorBuilder {
	b.capacity = capacity
	return b
}

// FlushInterval sets how often the buffer is automatically flushed.
func (b *EventProcessorBuilder) FlushInterval(interval time.Duration) *EventProcessorBuilder {
	b.flushInterval = interval
	return b
}

// DiagnosticRecordingInterval sets the interval for periodic diagnostic stats events, clamped to
// MinimumDiagnosticInterval.
func (b *EventProcessorBuilder) DiagnosticRecordingInterval(interval time.Duration) *EventProcessorBuilder {
	if interval < ldevents.MinimumDiagnosticInterval {
		interval = ldevents.MinimumDiagnosticInterval
	}
	b.diagnosticInterval = interval
	return b
}

// PrivateAttributeNames marks these attribute names private for every user, in addition to any
// per-user PrivateAttributes. Replaces any names set on a previous call.
func (b *EventProcessorBuilder) PrivateAttributeNames(names ...string) *EventProcessorBuilder {
	b.privateAttributeNames = names
	return b
}

// UserKeysCapacity bounds the "seen recently" cache used to dedupe index events.
func (b *EventProcessorBuilder) UserKeysCapacity(capacity int) *EventProcessorBuilder {
	b.userKeysCapacity = capacity
	return b
}

// UserKeysFlushInterval sets how often the "seen recently" cache is reset.
func (b *EventProcessorBuilder) UserKeysFlushInterval(interval time.Duration) *EventProcessorBuilder {
	b.userKeysFlushInterval = interval
	return b
}

// InlineUsersInEvents embeds the full user on every event instead of emitting a separate index
// event the first time a user is seen.
func (b *EventProcessorBuilder) InlineUsersInEvents(value bool) *EventProcessorBuilder {
	b.inlineUsersInEvents = value
	return b
}

// Build constructs the Event Processor. It sets no DiagnosticsManager, so the processor it
// returns sends no diagnostic events.
func (b *EventProcessorBuilder) Build(context subsystems.ClientContext) (interfaces.EventProcessor, error) {
	baseURI := context.ServiceEndpoints.EventsBaseURI
	if baseURI == "" {
		baseURI = DefaultEventsBaseURI
	}
	cfg := ldevents.Config{
		EventsURI:                   baseURI,
		Authorization:               context.SDKKey,
		HTTPClient:                  context.HTTPClient,
		Capacity:                    b.capacity,
		FlushInterval:               b.flushInterval,
		UserKeysCapacity:            b.userKeysCapacity,
		UserKeysFlushInterval:       b.userKeysFlushInterval,
		InlineUsersInEvents:         b.inlineUsersInEvents,
		AllAttributesPrivate:        b.allAttributesPrivate,
		PrivateAttributeNames:       b.privateAttributeNames,
		DiagnosticRecordingInterval: b.diagnosticInterval,
		Loggers:                     context.Loggers,
	}
	return ldevents.NewDefaultEventProcessor(cfg), nil
}

// NoEventsBuilder disables analytics events entirely.
type NoEventsBuilder struct{}

// NoEvents returns a builder that produces a no-op Event Processor.
func NoEvents() *NoEventsBuilder {
	return &NoEventsBuilder{}
}

// Build constructs a no-op Event Processor.
func (b *NoEventsBuilder) Build(context subsystems.ClientContext) (interfaces.EventProcessor, error) {
	return ldevents.NewNullEventProcessor(), nil
}
