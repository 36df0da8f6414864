package datasource

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSentinelRelayModeDoesNotTouchStore(t *testing.T) {
	sink := &fakeUpdateSink{}
	src := NewSentinelDataSource(SentinelModeRelay, sink)

	ready := make(chan struct{})
	src.Start(ready)

	<-ready
	assert.True(t, src.IsInitialized())
	assert.Equal(t, 0, sink.initCount())
}

func TestSentinelOfflineModeInitializesEmptySnapshot(t *testing.T) {
	sink := &fakeUpdateSink{}
	src := NewSentinelDataSource(SentinelModeOffline, sink)

	ready := make(chan struct{})
	src.Start(ready)

	<-ready
	assert.True(t, src.IsInitialized())
	assert.Equal(t, 1, sink.initCount())
	assert.Empty(t, sink.initCalls[0])
}
