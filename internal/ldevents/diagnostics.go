package ldevents

import (
	"runtime"
	"sync"

	"github.com/google/uuid"
)

// DiagnosticsManager computes and formats the SDK-health payloads sent to /diagnostic (spec.md
// 4.5 "Diagnostic channel"). Grounded on launchdarkly-go-server-sdk/ldevents's
// DiagnosticsManager (diagnostic_events.go).
type DiagnosticsManager struct {
	id            diagnosticID
	sdkData       interface{}
	configData    interface{}
	startTime     int64
	dataSinceTime int64
	lock          sync.Mutex
}

type diagnosticID struct {
	DiagnosticID string `json:"diagnosticId"`
	SDKKeySuffix string `json:"sdkKeySuffix,omitempty"`
}

type diagnosticInitEvent struct {
	Kind          string      `json:"kind"`
	ID            diagnosticID `json:"id"`
	CreationDate  int64       `json:"creationDate"`
	SDK           interface{} `json:"sdk"`
	Configuration interface{} `json:"configuration"`
	Platform      diagnosticPlatform `json:"platform"`
}

type diagnosticPlatform struct {
	Name      string `json:"name"`
	GoVersion string `json:"goVersion"`
	OSName    string `json:"osName"`
	OSArch    string `json:"osArch"`
}

type diagnosticStatsEvent struct {
	Kind              string       `json:"kind"`
	ID                diagnosticID `json:"id"`
	CreationDate      int64        `json:"creationDate"`
	DataSinceDate     int64        `json:"dataSinceDate"`
	DroppedEvents     int          `json:"droppedEvents"`
	DeduplicatedUsers int          `json:"deduplicatedUsers"`
	EventsInLastBatch int          `json:"eventsInLastBatch"`
}

// NewDiagnosticsManager constructs a DiagnosticsManager. sdkData and configData are opaque
// values marshaled verbatim into the init event (they describe SDK version and the resolved
// configuration; this package does not interpret them).
func NewDiagnosticsManager(sdkKey string, sdkData, configData interface{}, startTimeMillis int64) *DiagnosticsManager {
	return &DiagnosticsManager{
		id:            newDiagnosticID(sdkKey),
		sdkData:       sdkData,
		configData:    configData,
		startTime:     startTimeMillis,
		dataSinceTime: startTimeMillis,
	}
}

func newDiagnosticID(sdkKey string) diagnosticID {
	id := diagnosticID{}
	if u, err := uuid.NewRandom(); err == nil {
		id.DiagnosticID = u.String()
	}
	if len(sdkKey) > 6 {
		id.SDKKeySuffix = sdkKey[len(sdkKey)-6:]
	} else {
		id.SDKKeySuffix = sdkKey
	}
	return id
}

// CreateInitEvent builds the one-time diagnostic-init event sent when the processor starts.
func (m *DiagnosticsManager) CreateInitEvent() interface{} {
	return diagnosticInitEvent{
		Kind:         "diagnostic-init",
		ID:           m.id,
		CreationDate: m.startTime,
		SDK:          m.sdkData,
		Configuration: m.configData,
		Platform: diagnosticPlatform{
			Name:      "Go",
			GoVersion: runtime.Version(),
			OSName:    normalizeOSName(runtime.GOOS),
			OSArch:    runtime.GOARCH,
		},
	}
}

// CreateStatsEventAndReset builds the periodic diagnostic-stats event and starts a new
// accounting interval. droppedEvents/deduplicatedUsers/eventsInLastBatch are owned by the
// dispatcher, which tracks them without needing to lock this manager on every event.
func (m *DiagnosticsManager) CreateStatsEventAndReset(droppedEvents, deduplicatedUsers, eventsInLastBatch int) interface{} {
	m.lock.Lock()
	defer m.lock.Unlock()
	now := nowMillis()
	event := diagnosticStatsEvent{
		Kind:              "diagnostic",
		ID:                m.id,
		CreationDate:      now,
		DataSinceDate:     m.dataSinceTime,
		DroppedEvents:     droppedEvents,
		DeduplicatedUsers: deduplicatedUsers,
		EventsInLastBatch: eventsInLastBatch,
	}
	m.dataSinceTime = now
	return event
}

func normalizeOSName(name string) string {
	switch name {
	case "darwin":
		return "MacOS"
	case "windows":
		return "Windows"
	case "linux":
		return "Linux"
	default:
		return name
	}
}
