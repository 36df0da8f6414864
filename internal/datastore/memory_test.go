package datastore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flagkit/flagkit-go/interfaces"
	"github.com/flagkit/flagkit-go/ldmodel"
)

func TestMemoryStoreInitAndGet(t *testing.T) {
	store := NewMemoryStore()
	assert.False(t, store.IsInitialized())

	err := store.Init([]interfaces.Collection{
		{
			Kind: ldmodel.Features,
			Items: []interfaces.KeyedItemDescriptor{
				{Key: "flag1", Item: interfaces.ItemDescriptor{Version: 1, Item: "flag-data"}},
			},
		},
	})
	require.NoError(t, err)
	assert.True(t, store.IsInitialized())

	item, ok, err := store.Get(ldmodel.Features, "flag1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "flag-data", item.Item)

	_, ok, err = store.Get(ldmodel.Features, "nope")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStoreUpsertVersionGating(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.Init(nil))

	applied, err := store.Upsert(ldmodel.Features, "f", interfaces.ItemDescriptor{Version: 2, Item: "v2"})
	require.NoError(t, err)
	assert.True(t, applied)

	applied, err = store.Upsert(ldmodel.Features, "f", interfaces.ItemDescriptor{Version: 1, Item: "v1"})
	require.NoError(t, err)
	assert.False(t, applied, "a lower version must not overwrite a higher one")

	item, ok, err := store.Get(ldmodel.Features, "f")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v2", item.Item)
}

func TestMemoryStoreTombstoneHidesItem(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.Init(nil))

	_, err := store.Upsert(ldmodel.Segments, "s", interfaces.ItemDescriptor{Version: 1, Item: "data"})
	require.NoError(t, err)

	applied, err := store.Upsert(ldmodel.Segments, "s", interfaces.Tombstone(2))
	require.NoError(t, err)
	assert.True(t, applied)

	_, ok, err := store.Get(ldmodel.Segments, "s")
	require.NoError(t, err)
	assert.False(t, ok, "a tombstone must read back as absent")

	all, err := store.GetAll(ldmodel.Segments)
	require.NoError(t, err)
	assert.Empty(t, all)
}
