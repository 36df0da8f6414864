// Package datastore implements the Data Store contract (spec.md 4.2): an in-memory
// implementation, and a Caching Wrapper (spec.md 4.3) that can sit in front of a persistent
// backend.
package datastore

import (
	"sync"

	"github.com/flagkit/flagkit-go/interfaces"
	"github.com/flagkit/flagkit-go/ldmodel"
)

// memoryStore is the in-memory Data Store implementation: a map of kind -> key -> item guarded
// by a single RWMutex, with no-defer locking on the hot read/write paths.
type memoryStore struct {
	sync.RWMutex
	items       map[string]map[string]interfaces.ItemDescriptor
	initialized bool
}

// NewMemoryStore returns a new, empty in-memory Data Store. In-memory implementations never fail
// (spec.md 4.2's "Failure semantics" note), so every method here always returns a nil error.
func NewMemoryStore() interfaces.DataStore {
	return &memoryStore{items: make(map[string]map[string]interfaces.ItemDescriptor)}
}

func (s *memoryStore) Init(allData []interfaces.Collection) error {
	s.Lock()
	s.items = make(map[string]map[string]interfaces.ItemDescriptor, len(allData))
	for _, coll := range allData {
		byKey := make(map[string]interfaces.ItemDescriptor, len(coll.Items))
		for _, item := range coll.Items {
			byKey[item.Key] = item.Item
		}
		s.items[coll.Kind.Name] = byKey
	}
	s.initialized = true
	s.Unlock()
	return nil
}

func (s *memoryStore) Get(kind ldmodel.Kind, key string) (interfaces.ItemDescriptor, bool, error) {
	s.RLock()
	byKey, ok := s.items[kind.Name]
	if !ok {
		s.RUnlock()
		return interfaces.ItemDescriptor{}, false, nil
	}
	item, ok := byKey[key]
	s.RUnlock()
	if !ok || item.Deleted() {
		return interfaces.ItemDescriptor{}, false, nil
	}
	return item, true, nil
}

func (s *memoryStore) GetAll(kind ldmodel.Kind) ([]interfaces.KeyedItemDescriptor, error) {
	s.RLock()
	byKey := s.items[kind.Name]
	out := make([]interfaces.KeyedItemDescriptor, 0, len(byKey))
	for k, item := range byKey {
		if !item.Deleted() {
			out = append(out, interfaces.KeyedItemDescriptor{Key: k, Item: item})
		}
	}
	s.RUnlock()
	return out, nil
}

func (s *memoryStore) Upsert(kind ldmodel.Kind, key string, item interfaces.ItemDescriptor) (bool, error) {
	s.Lock()
	byKey, ok := s.items[kind.Name]
	if !ok {
		byKey = make(map[string]interfaces.ItemDescriptor)
		s.items[kind.Name] = byKey
	}
	existing, ok := byKey[key]
	shouldUpdate := !ok || existing.Version < item.Version
	if shouldUpdate {
		byKey[key] = item
	}
	s.Unlock()
	return shouldUpdate, nil
}

func (s *memoryStore) IsInitialized() bool {
	s.RLock()
	initialized := s.initialized
	s.RUnlock()
	return initialized
}

func (s *memoryStore) Close() error {
	return nil
}
