package ldevents

import (
	"github.com/flagkit/flagkit-go/interfaces"
	"github.com/flagkit/flagkit-go/ldlog"
	"github.com/flagkit/flagkit-go/lduser"
)

// indexEvent notes that a user was seen for the first time in the current "seen recently" window,
// carried ahead of whatever event referenced that user (spec.md 4.5 step 3).
type indexEvent struct {
	CreationDate int64
	User         lduser.User
}

// debugEvent is a FeatureRequestEvent re-sent with the full user attached even when the matching
// non-debug event would have been summarized instead of sent individually (spec.md 4.5 step 4).
type debugEvent struct {
	interfaces.FeatureRequestEvent
}

// flushPayload is handed from the dispatcher to a single flush worker (spec.md 4.5 "Flush").
type flushPayload struct {
	events     []interface{}
	summary    *eventSummarizer
	diagnostic interface{}
}

// eventsOutbox buffers the events a flush will carry, plus the running summary, plus a count of
// events dropped because the buffer was full. Grounded on
// launchdarkly-go-server-sdk/ldevents's eventsOutbox (events_output.go is absent from the
// retrieval pack; shape is inferred from event_processor.go's usage and events_output_test.go).
type eventsOutbox struct {
	capacity      int
	events        []interface{}
	summarizer    *eventSummarizer
	droppedEvents int
	loggers       ldlog.Loggers
}

func newEventsOutbox(capacity int, loggers ldlog.Loggers) *eventsOutbox {
	return &eventsOutbox{capacity: capacity, summarizer: newEventSummarizer(), loggers: loggers}
}

func (o *eventsOutbox) addEvent(e interface{}) {
	if len(o.events) >= o.capacity {
		o.droppedEvents++
		return
	}
	o.events = append(o.events, e)
}

func (o *eventsOutbox) getPayload() flushPayload {
	return flushPayload{events: o.events, summary: o.summarizer.snapshot()}
}

func (o *eventsOutbox) clear() {
	o.events = nil
	o.summarizer = newEventSummarizer()
}
