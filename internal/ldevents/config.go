// Package ldevents implements the Event Processor described in spec.md 4.5: a bounded inbox, a
// single dispatcher goroutine, a small flush-worker pool, per-user LRU deduplication, evaluation
// summarization, and HTTP delivery with one retry. It is grounded on
// launchdarkly-go-server-sdk/ldevents (event_processor.go, diagnostic_events.go, config.go).
package ldevents

import (
	"net/http"
	"time"

	"github.com/flagkit/flagkit-go/ldlog"
)

// Default tuning values, per spec.md 4.5.
const (
	DefaultCapacity              = 10000
	DefaultFlushInterval         = 5 * time.Second
	DefaultUserKeysCapacity      = 1000
	DefaultUserKeysFlushInterval = 5 * time.Minute
	DefaultDiagnosticInterval    = 15 * time.Minute
	MinimumDiagnosticInterval    = 1 * time.Minute

	maxFlushWorkers = 5
	maxEventsPerBatchFromInbox = 50

	eventSchemaHeader  = "X-LaunchDarkly-Event-Schema"
	payloadIDHeader    = "X-LaunchDarkly-Payload-ID"
	currentEventSchema = "3"
	bulkURIPath        = "/bulk"
	diagnosticURIPath  = "/diagnostic"
)

// Config carries the options that govern DefaultEventProcessor's behavior (spec.md 4.5/4.6).
type Config struct {
	// EventsURI is the base events endpoint; /bulk and /diagnostic are appended to it.
	EventsURI string
	// Authorization is the SDK key sent as the Authorization header on every flush request.
	Authorization string
	// HTTPClient is shared with the rest of the facade for connection reuse (spec.md 5).
	HTTPClient *http.Client
	// Capacity is the inbox's channel capacity (spec.md 4.5).
	Capacity int
	// FlushInterval is how often the dispatcher triggers an automatic flush.
	FlushInterval time.Duration
	// UserKeysCapacity bounds the "seen recently" LRU.
	UserKeysCapacity int
	// UserKeysFlushInterval is how often the "seen recently" LRU is cleared.
	UserKeysFlushInterval time.Duration
	// InlineUsersInEvents, if true, embeds the full user on every event instead of emitting a
	// separate Index event the first time a user is seen.
	InlineUsersInEvents bool
	// AllAttributesPrivate, if true, scrubs every user attribute except key before an event is
	// sent, regardless of per-user PrivateAttributes.
	AllAttributesPrivate bool
	// PrivateAttributeNames additionally marks these attribute names private for every user.
	PrivateAttributeNames []string
	// DiagnosticsManager, if non-nil, enables the periodic diagnostic task (spec.md 4.5).
	DiagnosticsManager *DiagnosticsManager
	// DiagnosticRecordingInterval overrides DefaultDiagnosticInterval; clamped to
	// MinimumDiagnosticInterval.
	DiagnosticRecordingInterval time.Duration
	// Loggers is where warnings and errors are written.
	Loggers ldlog.Loggers
}

func (c Config) withDefaults() Config {
	if c.HTTPClient == nil {
		c.HTTPClient = http.DefaultClient
	}
	if c.Capacity <= 0 {
		c.Capacity = DefaultCapacity
	}
	if c.FlushInterval <= 0 {
		c.FlushInterval = DefaultFlushInterval
	}
	if c.UserKeysCapacity <= 0 {
		c.UserKeysCapacity = DefaultUserKeysCapacity
	}
	if c.UserKeysFlushInterval <= 0 {
		c.UserKeysFlushInterval = DefaultUserKeysFlushInterval
	}
	if c.DiagnosticRecordingInterval <= 0 {
		c.DiagnosticRecordingInterval = DefaultDiagnosticInterval
	} else if c.DiagnosticRecordingInterval < MinimumDiagnosticInterval {
		c.DiagnosticRecordingInterval = MinimumDiagnosticInterval
	}
	return c
}
