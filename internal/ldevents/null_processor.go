package ldevents

import "github.com/flagkit/flagkit-go/interfaces"

// NullEventProcessor is the no-op Event Processor used in offline mode (spec.md 4.4 "Offline...
// event processor is the no-op; no network is touched"). Grounded on
// launchdarkly-go-server-sdk/ldevents's nullEventProcessor.
type NullEventProcessor struct{}

// NewNullEventProcessor constructs a NullEventProcessor.
func NewNullEventProcessor() *NullEventProcessor {
	return &NullEventProcessor{}
}

//nolint:revive // satisfies interfaces.EventProcessor
func (NullEventProcessor) RecordFeatureRequestEvent(interfaces.FeatureRequestEvent) {}

//nolint:revive // satisfies interfaces.EventProcessor
func (NullEventProcessor) RecordIdentifyEvent(interfaces.IdentifyEvent) {}

//nolint:revive // satisfies interfaces.EventProcessor
func (NullEventProcessor) RecordCustomEvent(interfaces.CustomEvent) {}

// Flush is a no-op.
func (NullEventProcessor) Flush() {}

// Close is a no-op.
func (NullEventProcessor) Close() error { return nil }

var (
	_ interfaces.EventProcessor = (*DefaultEventProcessor)(nil)
	_ interfaces.EventProcessor = (*NullEventProcessor)(nil)
)
