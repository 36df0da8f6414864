package ldcomponents

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flagkit/flagkit-go/internal/ldevents"
	"github.com/flagkit/flagkit-go/ldlog"
	"github.com/flagkit/flagkit-go/ldmodel"
	"github.com/flagkit/flagkit-go/subsystems"
)

func testContext() subsystems.ClientContext {
	return subsystems.ClientContext{
		SDKKey:  "test-sdk-key",
		Loggers: ldlog.NewDisabledLoggers(),
	}
}

func TestStreamingDataSourceBuilderDefaultsAndOverrides(t *testing.T) {
	b := StreamingDataSource()
	assert.Equal(t, DefaultInitialReconnectDelay, b.initialReconnectDelay)

	b.InitialReconnectDelay(5 * time.Second)
	assert.Equal(t, 5*time.Second, b.initialReconnectDelay)

	// Non-positive values are ignored, keeping the last valid setting.
	b.InitialReconnectDelay(0)
	assert.Equal(t, 5*time.Second, b.initialReconnectDelay)

	ds, err := b.Build(testContext())
	require.NoError(t, err)
	assert.NotNil(t, ds)
}

func TestPollingDataSourceBuilderBuild(t *testing.T) {
	b := PollingDataSource()
	ds, err := b.Build(testContext())
	require.NoError(t, err)
	assert.NotNil(t, ds)
}

func TestExternalUpdatesOnlyAndNoDataSourceBuildSentinels(t *testing.T) {
	ctx := testContext()

	relay, err := ExternalUpdatesOnly().Build(ctx)
	require.NoError(t, err)
	assert.True(t, relay.IsInitialized())

	offline, err := NoDataSource().Build(ctx)
	require.NoError(t, err)
	assert.True(t, offline.IsInitialized())
}

func TestFileDataSourceBuilderBuild(t *testing.T) {
	ds, err := FileDataSource("/nonexistent/flags.json").Build(testContext())
	require.NoError(t, err)
	assert.NotNil(t, ds)
	assert.False(t, ds.IsInitialized())
}

func TestInMemoryDataStoreBuilderBuild(t *testing.T) {
	store, err := InMemoryDataStore().Build(testContext())
	require.NoError(t, err)
	require.NotNil(t, store)

	all, err := store.GetAll(ldmodel.Features)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestPersistentDataStoreBuilderDefaultsAndSetters(t *testing.T) {
	backend := InMemoryDataStore()
	b := PersistentDataStore(backend)
	assert.Equal(t, PersistentDataStoreDefaultCacheTime, b.cacheTTL)

	b.CacheSeconds(30)
	assert.Equal(t, 30*time.Second, b.cacheTTL)

	b.NoCaching()
	assert.Equal(t, time.Duration(0), b.cacheTTL)

	b.CacheForever()
	assert.True(t, b.cacheTTL < 0)

	b.CacheEvictOnError()
	store, err := b.Build(testContext())
	require.NoError(t, err)
	assert.NotNil(t, store)
}

func TestSendEventsBuilderDefaultsAndBuild(t *testing.T) {
	b := SendEvents()
	assert.Equal(t, ldevents.DefaultCapacity, b.capacity)

	processor, err := b.Build(testContext())
	require.NoError(t, err)
	require.NotNil(t, processor)
	defer processor.Close()
}

func TestNoEventsBuilderBuildsNullProcessor(t *testing.T) {
	processor, err := NoEvents().Build(testContext())
	require.NoError(t, err)
	require.NotNil(t, processor)
	// NoEvents must never touch the network: Flush/Close are no-ops regardless of state.
	processor.Flush()
	assert.NoError(t, processor.Close())
}

func TestLoggingConfigurationBuilderMinLevelAndOverride(t *testing.T) {
	b := Logging()
	b.MinLevel(ldlog.Warn)
	built := b.Build()
	assert.NotNil(t, built)

	custom := ldlog.NewDisabledLoggers()
	b.Loggers(custom)
	assert.Equal(t, custom, b.Build())
}

func TestNoLoggingReturnsDisabledLoggers(t *testing.T) {
	assert.Equal(t, ldlog.NewDisabledLoggers(), NoLogging())
}
