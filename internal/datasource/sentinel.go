package datasource

import (
	"time"

	"github.com/flagkit/flagkit-go/interfaces"
)

// SentinelMode distinguishes the two no-I/O Data Source strategies spec.md 4.4 calls for: Relay
// mode (updates arrive externally, e.g. through a shared persistent store) and Offline mode
// (evaluation only ever sees defaults).
type SentinelMode int

const (
	// SentinelModeRelay reports itself ready immediately and never touches the network; data is
	// expected to already be present in (or to arrive via) the underlying DataStore.
	SentinelModeRelay SentinelMode = iota
	// SentinelModeOffline behaves like SentinelModeRelay but also initializes the DataStore to an
	// empty snapshot, guaranteeing every evaluation falls through to the caller's default value.
	SentinelModeOffline
)

// SentinelDataSource is a Data Source that performs no I/O of its own. It satisfies the DataSource
// contract by reporting ready immediately, grounded on spec.md 4.4's "Relay/external mode" and
// "Offline" subsections.
type SentinelDataSource struct {
	mode    SentinelMode
	updates interfaces.DataSourceUpdateSink
}

// NewSentinelDataSource constructs a no-I/O Data Source in the given mode.
func NewSentinelDataSource(mode SentinelMode, updates interfaces.DataSourceUpdateSink) *SentinelDataSource {
	return &SentinelDataSource{mode: mode, updates: updates}
}

//nolint:revive // no doc comment for standard method
func (s *SentinelDataSource) Start(closeWhenReady chan<- struct{}) {
	if s.mode == SentinelModeOffline {
		_ = s.updates.Init([]interfaces.Collection{})
	}
	s.updates.UpdateStatus(interfaces.DataSourceStateValid, interfaces.DataSourceErrorInfo{Time: time.Now()})
	close(closeWhenReady)
}

//nolint:revive // no doc comment for standard method
func (s *SentinelDataSource) IsInitialized() bool {
	return true
}

//nolint:revive // no doc comment for standard method
func (s *SentinelDataSource) Close() error {
	return nil
}

var _ interfaces.DataSource = (*SentinelDataSource)(nil)
