package datasource

import (
	"sync"

	"github.com/flagkit/flagkit-go/interfaces"
	"github.com/flagkit/flagkit-go/ldmodel"
)

// fakeUpdateSink is a test double recording Init/Upsert/UpdateStatus calls without a real store.
type fakeUpdateSink struct {
	mu            sync.Mutex
	initCalls     [][]interfaces.Collection
	upserts       []fakeUpsert
	statuses      []interfaces.DataSourceStatus
	initErr       error
	lastInitCount int
}

type fakeUpsert struct {
	kind ldmodel.Kind
	key  string
	item interfaces.ItemDescriptor
}

func (f *fakeUpdateSink) Init(allData []interfaces.Collection) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.initCalls = append(f.initCalls, allData)
	f.lastInitCount = len(allData)
	return f.initErr
}

func (f *fakeUpdateSink) Upsert(kind ldmodel.Kind, key string, item interfaces.ItemDescriptor) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserts = append(f.upserts, fakeUpsert{kind: kind, key: key, item: item})
	return true, nil
}

func (f *fakeUpdateSink) UpdateStatus(newState interfaces.DataSourceState, newError interfaces.DataSourceErrorInfo) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses = append(f.statuses, interfaces.DataSourceStatus{State: newState, LastError: newError})
}

func (f *fakeUpdateSink) initCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.initCalls)
}

func (f *fakeUpdateSink) upsertCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.upserts)
}

var _ interfaces.DataSourceUpdateSink = (*fakeUpdateSink)(nil)
