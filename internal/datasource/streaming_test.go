package datasource

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSSEEvent struct {
	id, event, data string
}

func (e fakeSSEEvent) Id() string    { return e.id }
func (e fakeSSEEvent) Event() string { return e.event }
func (e fakeSSEEvent) Data() string  { return e.data }

func TestHandleEventPutReplacesSnapshot(t *testing.T) {
	sink := &fakeUpdateSink{}
	src := &StreamingDataSource{updates: sink}

	err := src.handleEvent(fakeSSEEvent{event: eventPut, data: `{
		"data": {
			"flags": {"flag1": {"key": "flag1", "version": 1, "on": true}},
			"segments": {}
		}
	}`})
	require.NoError(t, err)
	assert.Equal(t, 1, sink.initCount())
}

func TestHandleEventPatchUpsertsSingleFlag(t *testing.T) {
	sink := &fakeUpdateSink{}
	src := &StreamingDataSource{updates: sink}

	err := src.handleEvent(fakeSSEEvent{
		event: eventPatch,
		data:  `{"path": "/flags/flag1", "data": {"key": "flag1", "version": 4, "on": true}}`,
	})
	require.NoError(t, err)
	require.Equal(t, 1, sink.upsertCount())
	assert.Equal(t, "flag1", sink.upserts[0].key)
	assert.Equal(t, 4, sink.upserts[0].item.Version)
}

func TestHandleEventDeleteTombstonesKey(t *testing.T) {
	sink := &fakeUpdateSink{}
	src := &StreamingDataSource{updates: sink}

	err := src.handleEvent(fakeSSEEvent{
		event: eventDelete,
		data:  `{"path": "/segments/seg1", "version": 9}`,
	})
	require.NoError(t, err)
	require.Equal(t, 1, sink.upsertCount())
	assert.True(t, sink.upserts[0].item.Deleted())
	assert.Equal(t, 9, sink.upserts[0].item.Version)
}

func TestHandleEventIndirectPutFetchesFullSnapshot(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"flags": {"flag1": {"key": "flag1", "version": 1, "on": true}}, "segments": {}}`))
	}))
	defer server.Close()

	sink := &fakeUpdateSink{}
	src := &StreamingDataSource{updates: sink, requestor: NewRequestor(server.URL, "", nil)}

	err := src.handleEvent(fakeSSEEvent{event: eventIndirectPut})
	require.NoError(t, err)
	assert.Equal(t, 1, sink.initCount())
}

func TestHandleEventIndirectPatchFetchesSingleFlag(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, latestFlagsPathPrefix+"flag1", r.URL.Path)
		_, _ = w.Write([]byte(`{"key": "flag1", "version": 7, "on": true}`))
	}))
	defer server.Close()

	sink := &fakeUpdateSink{}
	src := &StreamingDataSource{updates: sink, requestor: NewRequestor(server.URL, "", nil)}

	err := src.handleEvent(fakeSSEEvent{event: eventIndirectPatch, data: "/flags/flag1"})
	require.NoError(t, err)
	require.Equal(t, 1, sink.upsertCount())
	assert.Equal(t, 7, sink.upserts[0].item.Version)
}

func TestHandleEventUnrecognizedEventNameIsIgnored(t *testing.T) {
	sink := &fakeUpdateSink{}
	src := &StreamingDataSource{updates: sink}

	err := src.handleEvent(fakeSSEEvent{event: "heartbeat"})
	require.NoError(t, err)
	assert.Equal(t, 0, sink.initCount())
	assert.Equal(t, 0, sink.upsertCount())
}
