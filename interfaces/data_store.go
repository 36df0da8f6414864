// Package interfaces defines the contracts the Data Store, Caching Wrapper, Data Source, and
// Event Processor satisfy, so that each can be built, tested, and swapped independently of the
// client facade.
package interfaces

import "github.com/flagkit/flagkit-go/ldmodel"

// ItemDescriptor is an opaque, versioned store entry. Item is nil for a tombstone; the store
// never inspects it beyond that.
type ItemDescriptor struct {
	Version int
	Item    interface{}
}

// Tombstone returns a deleted marker at the given version.
func Tombstone(version int) ItemDescriptor {
	return ItemDescriptor{Version: version, Item: nil}
}

// Deleted reports whether this descriptor represents a tombstone.
func (d ItemDescriptor) Deleted() bool {
	return d.Item == nil
}

// KeyedItemDescriptor pairs a key with its descriptor, used for init snapshots and bulk reads.
type KeyedItemDescriptor struct {
	Key  string
	Item ItemDescriptor
}

// Collection is one kind's full set of items, used for init() and for full-snapshot fetches.
type Collection struct {
	Kind  ldmodel.Kind
	Items []KeyedItemDescriptor
}

// DataStore is the versioned key/value repository described in spec.md 4.2. Implementations must
// be safe for concurrent use; per-key writes must be linearizable against concurrent Upserts.
type DataStore interface {
	// Init atomically replaces the store's entire contents for every kind present in allData.
	// After a successful Init, IsInitialized returns true for the lifetime of this instance.
	Init(allData []Collection) error

	// Get returns the item for (kind, key) and true, or an empty ItemDescriptor and false if
	// nothing is stored under that key or the stored item is a tombstone.
	Get(kind ldmodel.Kind, key string) (ItemDescriptor, bool, error)

	// GetAll returns every non-tombstone item for a kind.
	GetAll(kind ldmodel.Kind) ([]KeyedItemDescriptor, error)

	// Upsert writes item for (kind, key) only if item.Version is greater than the currently
	// stored version (or nothing is stored yet). Returns whether the write was applied.
	Upsert(kind ldmodel.Kind, key string, item ItemDescriptor) (bool, error)

	// IsInitialized reports whether Init has ever completed successfully for this store.
	IsInitialized() bool

	// Close releases any resources held by the store.
	Close() error
}
