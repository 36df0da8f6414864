package datasource

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPollingDataSourceClampsIntervalToMinimum(t *testing.T) {
	src := NewPollingDataSource(nil, &fakeUpdateSink{}, time.Second, noopLoggers())
	assert.Equal(t, MinPollInterval, src.interval)
}

func TestPollingDataSourceFirstPollAppliesImmediately(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"flags": {"flag1": {"key": "flag1", "version": 1, "on": true}}, "segments": {}}`))
	}))
	defer server.Close()

	sink := &fakeUpdateSink{}
	src := NewPollingDataSource(NewRequestor(server.URL, "", nil), sink, MinPollInterval, noopLoggers())

	ready := make(chan struct{})
	src.Start(ready)
	defer src.Close()

	select {
	case <-ready:
	case <-time.After(2 * time.Second):
		t.Fatal("polling data source never became ready")
	}
	assert.True(t, src.IsInitialized())
	assert.Equal(t, 1, sink.initCount())
}

func TestPollingDataSourceGivesUpOnUnrecoverableStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	sink := &fakeUpdateSink{}
	src := NewPollingDataSource(NewRequestor(server.URL, "", nil), sink, MinPollInterval, noopLoggers())

	ready := make(chan struct{})
	src.Start(ready)

	select {
	case <-ready:
	case <-time.After(2 * time.Second):
		t.Fatal("polling data source never reported ready after unrecoverable error")
	}
	require.NotEmpty(t, sink.statuses)
	assert.Equal(t, "OFF", string(sink.statuses[len(sink.statuses)-1].State))
}
