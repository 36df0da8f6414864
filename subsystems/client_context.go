// Package subsystems defines the construction-time contracts the configuration builders in
// ldcomponents satisfy, so that Config can assemble the Data Source, Data Store, and Event
// Processor without any of those packages importing ldclient (spec.md 9: "Builders/config...
// no mutable globals"). Grounded on launchdarkly-go-server-sdk/subsystems/client_context.go.
package subsystems

import (
	"net/http"

	"github.com/flagkit/flagkit-go/interfaces"
	"github.com/flagkit/flagkit-go/ldlog"
)

// ServiceEndpoints holds the three base URIs a Data Source/Event Processor talks to. Each is
// independently overridable so a host can point only the streaming endpoint (say) at a relay
// proxy while leaving events going straight to the analytics service.
type ServiceEndpoints struct {
	StreamingBaseURI string
	PollingBaseURI   string
	EventsBaseURI    string
}

// ClientContext is assembled once when a Client is built and passed down to every builder's
// Build method. It is the one piece of shared, already-resolved state a builder may need:
// credentials, the shared HTTP client (spec.md 5: "shared across data source, event processor,
// and requestor for connection reuse"), resolved loggers, and the sink a Data Source writes into.
type ClientContext struct {
	SDKKey               string
	HTTPClient           *http.Client
	Loggers              ldlog.Loggers
	ServiceEndpoints     ServiceEndpoints
	DataSourceUpdateSink interfaces.DataSourceUpdateSink
}

// ComponentConfigurer is the contract every builder in ldcomponents satisfies: given the
// resolved ClientContext, produce the concrete component (or an error). T is the contract type
// from the interfaces package (interfaces.DataSource, interfaces.DataStore,
// interfaces.EventProcessor) that the rest of the core depends on, never the builder itself.
type ComponentConfigurer[T any] interface {
	Build(context ClientContext) (T, error)
}

// ComponentConfigurerFunc adapts a plain function to a ComponentConfigurer, for simple builders
// that need no state of their own. The builders in ldcomponents are all struct types and do not
// use it.
type ComponentConfigurerFunc[T any] func(context ClientContext) (T, error)

// Build invokes the wrapped function.
func (f ComponentConfigurerFunc[T]) Build(context ClientContext) (T, error) {
	return f(context)
}
