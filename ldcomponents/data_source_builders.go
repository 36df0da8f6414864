// Package ldcomponents provides builder functions for the pluggable pieces of Config: which Data
// Source strategy to run, how (or whether) to send analytics events, and how the Data Store is
// backed and cached. Grounded on launchdarkly-go-server-sdk/ldcomponents's builder files, trimmed
// to the options spec.md's components actually read.
package ldcomponents

import (
	"time"

	"github.com/flagkit/flagkit-go/internal/datasource"
	"github.com/flagkit/flagkit-go/interfaces"
	"github.com/flagkit/flagkit-go/subsystems"
)

// DefaultStreamingBaseURI is the default streaming endpoint base URI.
const DefaultStreamingBaseURI = "https://stream.launchdarkly.com"

// DefaultPollingBaseURI is the default polling endpoint base URI.
const DefaultPollingBaseURI = "https://sdk.launchdarkly.com"

// StreamingDataSourceBuilder configures the streaming Data Source strategy (spec.md 4.4).
type StreamingDataSourceBuilder struct {
	initialReconnectDelay time.Duration
}

// DefaultInitialReconnectDelay is the backoff seed used when a caller doesn't override it.
const DefaultInitialReconnectDelay = time.Second

// StreamingDataSource returns a builder for the streaming strategy, the default Data Source.
func StreamingDataSource() *StreamingDataSourceBuilder {
	return &StreamingDataSourceBuilder{initialReconnectDelay: DefaultInitialReconnectDelay}
}

// InitialReconnectDelay sets the backoff seed for stream reconnection (spec.md 6).
func (b *StreamingDataSourceBuilder) InitialReconnectDelay(delay time.Duration) *StreamingDataSourceBuilder {
	if delay > 0 {
		b.initialReconnectDelay = delay
	}
	return b
}

// Build constructs the streaming Data Source, wiring in a Requestor for the indirect/put and
// indirect/patch fetch-then-apply path (spec.md 4.4).
func (b *StreamingDataSourceBuilder) Build(context subsystems.ClientContext) (interfaces.DataSource, error) {
	baseURI := context.ServiceEndpoints.StreamingBaseURI
	if baseURI == "" {
		baseURI = DefaultStreamingBaseURI
	}
	pollBaseURI := context.ServiceEndpoints.PollingBaseURI
	if pollBaseURI == "" {
		pollBaseURI = DefaultPollingBaseURI
	}
	requestor := datasource.NewRequestor(pollBaseURI, context.SDKKey, context.HTTPClient)
	cfg := datasource.StreamConfig{
		URI:                   baseURI,
		InitialReconnectDelay: b.initialReconnectDelay,
		AuthHeader:            context.SDKKey,
		HTTPClient:            context.HTTPClient,
	}
	return datasource.NewStreamingDataSource(cfg, context.DataSourceUpdateSink, requestor, context.Loggers), nil
}

// PollingDataSourceBuilder configures the polling fallback strategy (spec.md 4.4).
type PollingDataSourceBuilder struct {
	pollInterval time.Duration
}

// PollingDataSource returns a builder for the polling strategy.
func PollingDataSource() *PollingDataSourceBuilder {
	return &PollingDataSourceBuilder{pollInterval: datasource.MinPollInterval}
}

// PollInterval sets the polling interval; values below MinPollInterval are clamped up to it
// (spec.md 4.4).
func (b *PollingDataSourceBuilder) PollInterval(interval time.Duration) *PollingDataSourceBuilder {
	b.pollInterval = interval
	return b
}

// Build constructs the polling Data Source.
func (b *PollingDataSourceBuilder) Build(context subsystems.ClientContext) (interfaces.DataSource, error) {
	baseURI := context.ServiceEndpoints.PollingBaseURI
	if baseURI == "" {
		baseURI = DefaultPollingBaseURI
	}
	requestor := datasource.NewRequestor(baseURI, context.SDKKey, context.HTTPClient)
	return datasource.NewPollingDataSource(requestor, context.DataSourceUpdateSink, b.pollInterval, context.Loggers), nil
}

// ExternalUpdatesOnlyBuilder configures the relay sentinel: no I/O, the caller (a relay daemon or
// a test) is expected to populate the store out-of-band (spec.md 4.4).
type ExternalUpdatesOnlyBuilder struct{}

// ExternalUpdatesOnly returns a builder for the relay sentinel Data Source.
func ExternalUpdatesOnly() *ExternalUpdatesOnlyBuilder {
	return &ExternalUpdatesOnlyBuilder{}
}

// Build constructs the sentinel Data Source in relay mode.
func (b *ExternalUpdatesOnlyBuilder) Build(context subsystems.ClientContext) (interfaces.DataSource, error) {
	return datasource.NewSentinelDataSource(datasource.SentinelModeRelay, context.DataSourceUpdateSink), nil
}

// FileDataSourceBuilder configures the local-file development Data Source: a full flag/segment
// snapshot loaded from path and reloaded whenever the file changes on disk.
type FileDataSourceBuilder struct {
	path string
}

// FileDataSource returns a builder for the local-file Data Source, for local development against
// a hand-edited snapshot instead of the real streaming/polling endpoints.
func FileDataSource(path string) *FileDataSourceBuilder {
	return &FileDataSourceBuilder{path: path}
}

// Build constructs the local-file Data Source.
func (b *FileDataSourceBuilder) Build(context subsystems.ClientContext) (interfaces.DataSource, error) {
	return datasource.NewFileDataSource(b.path, context.DataSourceUpdateSink, context.Loggers), nil
}

// OfflineDataSourceBuilder configures the offline sentinel: evaluation only ever sees default
// values (spec.md 4.4 "Offline").
type OfflineDataSourceBuilder struct{}

// NoDataSource returns a builder for the offline sentinel Data Source.
func NoDataSource() *OfflineDataSourceBuilder {
	return &OfflineDataSourceBuilder{}
}

// Build constructs the sentinel Data Source in offline mode.
func (b *OfflineDataSourceBuilder) Build(context subsystems.ClientContext) (interfaces.DataSource, error) {
	return datasource.NewSentinelDataSource(datasource.SentinelModeOffline, context.DataSourceUpdateSink), nil
}
