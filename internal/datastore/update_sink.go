package datastore

import (
	"github.com/flagkit/flagkit-go/eval"
	"github.com/flagkit/flagkit-go/interfaces"
	"github.com/flagkit/flagkit-go/ldmodel"
)

// UpdateSink adapts an interfaces.DataStore (typically a CachingWrapper in front of a persistent
// or in-memory backend) to interfaces.DataSourceUpdateSink, and separately broadcasts status
// changes so that subscribers (spec.md 5: "status listeners") are notified without the store
// needing to know about any particular Data Source implementation.
type UpdateSink struct {
	store     interfaces.DataStore
	broadcast func(interfaces.DataSourceStatus)
}

// NewUpdateSink constructs an UpdateSink writing through to store. onStatusChange, if non-nil, is
// invoked on every UpdateStatus call.
func NewUpdateSink(store interfaces.DataStore, onStatusChange func(interfaces.DataSourceStatus)) *UpdateSink {
	return &UpdateSink{store: store, broadcast: onStatusChange}
}

//nolint:revive // no doc comment for standard method, satisfies interfaces.DataSourceUpdateSink
func (s *UpdateSink) Init(allData []interfaces.Collection) error {
	return s.store.Init(allData)
}

//nolint:revive // no doc comment for standard method
func (s *UpdateSink) Upsert(kind ldmodel.Kind, key string, item interfaces.ItemDescriptor) (bool, error) {
	return s.store.Upsert(kind, key, item)
}

//nolint:revive // no doc comment for standard method
func (s *UpdateSink) UpdateStatus(newState interfaces.DataSourceState, newError interfaces.DataSourceErrorInfo) {
	if s.broadcast == nil {
		return
	}
	s.broadcast(interfaces.DataSourceStatus{
		State:      newState,
		StateSince: newError.Time,
		LastError:  newError,
	})
}

// DataProvider adapts an interfaces.DataStore to eval.DataProvider, decoding the ItemDescriptor's
// opaque Item back into the concrete *ldmodel.FeatureFlag/*ldmodel.Segment the Evaluator expects.
// Every Data Source implementation in internal/datasource stores those concrete pointer types directly
// (see requestor.go's toCollections and streaming.go's decodeItem), so this is a plain type
// assertion rather than a JSON decode.
type DataProvider struct {
	store interfaces.DataStore
}

// NewDataProvider constructs a DataProvider over store.
func NewDataProvider(store interfaces.DataStore) *DataProvider {
	return &DataProvider{store: store}
}

//nolint:revive // no doc comment for standard method, satisfies eval.DataProvider
func (p *DataProvider) GetFlag(key string) (*ldmodel.FeatureFlag, bool) {
	desc, found, err := p.store.Get(ldmodel.Features, key)
	if err != nil || !found || desc.Deleted() {
		return nil, false
	}
	flag, ok := desc.Item.(*ldmodel.FeatureFlag)
	if !ok {
		return nil, false
	}
	return flag, true
}

//nolint:revive // no doc comment for standard method
func (p *DataProvider) GetSegment(key string) (*ldmodel.Segment, bool) {
	desc, found, err := p.store.Get(ldmodel.Segments, key)
	if err != nil || !found || desc.Deleted() {
		return nil, false
	}
	segment, ok := desc.Item.(*ldmodel.Segment)
	if !ok {
		return nil, false
	}
	return segment, true
}

var (
	_ interfaces.DataSourceUpdateSink = (*UpdateSink)(nil)
	_ eval.DataProvider               = (*DataProvider)(nil)
)
