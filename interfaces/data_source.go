package interfaces

import (
	"time"

	"github.com/flagkit/flagkit-go/ldmodel"
)

// DataSourceState is the readiness/health state a DataSource reports through its status
// broadcaster (spec.md 5: "reports readiness").
type DataSourceState string

// DataSourceState values.
const (
	DataSourceStateInitializing DataSourceState = "INITIALIZING"
	DataSourceStateValid        DataSourceState = "VALID"
	DataSourceStateInterrupted  DataSourceState = "INTERRUPTED"
	DataSourceStateOff          DataSourceState = "OFF"
)

// DataSourceErrorKind classifies why a DataSource transitioned to INTERRUPTED or OFF.
type DataSourceErrorKind string

// DataSourceErrorKind values.
const (
	DataSourceErrorKindNetworkError  DataSourceErrorKind = "NETWORK_ERROR"
	DataSourceErrorKindErrorResponse DataSourceErrorKind = "ERROR_RESPONSE"
	DataSourceErrorKindInvalidData   DataSourceErrorKind = "INVALID_DATA"
	DataSourceErrorKindStoreError    DataSourceErrorKind = "STORE_ERROR"
)

// DataSourceErrorInfo describes the most recent error a DataSource encountered.
type DataSourceErrorInfo struct {
	Kind       DataSourceErrorKind
	StatusCode int
	Message    string
	Time       time.Time
}

// DataSourceStatus is a point-in-time readiness report.
type DataSourceStatus struct {
	State      DataSourceState
	StateSince time.Time
	LastError  DataSourceErrorInfo
}

// DataSourceUpdateSink is how a DataSource applies changes to the underlying DataStore (directly,
// or through the Caching Wrapper) and reports its own status.
type DataSourceUpdateSink interface {
	Init(allData []Collection) error
	Upsert(kind ldmodel.Kind, key string, item ItemDescriptor) (bool, error)
	UpdateStatus(newState DataSourceState, newError DataSourceErrorInfo)
}

// DataSource is the contract both the streaming and polling strategies (and the relay/offline
// sentinels) satisfy (spec.md 4.4).
type DataSource interface {
	// Start begins the strategy's background work and closes closeWhenReady exactly once, either
	// after the first successful init or after a permanent failure.
	Start(closeWhenReady chan<- struct{})
	// IsInitialized reports whether the first successful apply has happened.
	IsInitialized() bool
	// Close is idempotent and non-blocking; it signals background work to stop.
	Close() error
}
