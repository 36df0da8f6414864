// Package ldclient is the thin external facade: typed-variation evaluation, event submission,
// and AllFlagsState, wired on top of eval, internal/ldevents, internal/datastore,
// internal/datasource, and the ldcomponents builders. Grounded on
// launchdarkly-go-server-sdk/ldclient.go and config.go.
package ldclient

import (
	"net/http"
	"time"

	"github.com/flagkit/flagkit-go/ldcomponents"
	"github.com/flagkit/flagkit-go/interfaces"
	"github.com/flagkit/flagkit-go/subsystems"
)

// Config configures a Client. The zero value is a complete, usable configuration: streaming Data
// Source, in-memory Data Store, events enabled, default logging.
type Config struct {
	// DataSource selects the Data Source strategy. Defaults to ldcomponents.StreamingDataSource().
	DataSource subsystems.ComponentConfigurer[interfaces.DataSource]
	// DataStore selects the Data Store backing. Defaults to ldcomponents.InMemoryDataStore().
	DataStore subsystems.ComponentConfigurer[interfaces.DataStore]
	// Events selects the Event Processor. Defaults to ldcomponents.SendEvents().
	Events subsystems.ComponentConfigurer[interfaces.EventProcessor]
	// Logging configures the Loggers attached to every component. Defaults to ldcomponents.Logging().
	Logging *ldcomponents.LoggingConfigurationBuilder
	// ServiceEndpoints overrides the default LaunchDarkly base URIs.
	ServiceEndpoints subsystems.ServiceEndpoints
	// HTTPClient is shared across the Data Source, Event Processor, and Requestor for connection
	// reuse (spec.md 5). Defaults to a client with sane timeouts if nil.
	HTTPClient *http.Client
	// Offline, if true, disables all network activity: the Data Source never starts and events
	// are discarded, and every variation call returns its default value with reason
	// CLIENT_NOT_READY.
	Offline bool
	// LogEvaluationErrors, if true, logs a warning for every evaluation that falls back to a
	// default value due to an error.
	LogEvaluationErrors bool
}

// DefaultHTTPTimeout is applied to Config.HTTPClient when the caller leaves it nil.
const DefaultHTTPTimeout = 10 * time.Second

func (c Config) withDefaults(sdkKey string) (Config, subsystems.ClientContext) {
	if c.DataSource == nil {
		c.DataSource = ldcomponents.StreamingDataSource()
	}
	if c.DataStore == nil {
		c.DataStore = ldcomponents.InMemoryDataStore()
	}
	if c.Events == nil {
		if c.Offline {
			c.Events = ldcomponents.NoEvents()
		} else {
			c.Events = ldcomponents.SendEvents()
		}
	}
	if c.Logging == nil {
		c.Logging = ldcomponents.Logging()
	}
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: DefaultHTTPTimeout}
	}

	loggers := c.Logging.Build()
	context := subsystems.ClientContext{
		SDKKey:           sdkKey,
		HTTPClient:       c.HTTPClient,
		Loggers:          loggers,
		ServiceEndpoints: c.ServiceEndpoints,
	}
	return c, context
}
