package datasource

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flagkit/flagkit-go/internal"
)

func TestRequestorRequestAllParsesSnapshot(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, latestAllPath, r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"flags": {"flag1": {"key": "flag1", "version": 3, "on": true}},
			"segments": {"seg1": {"key": "seg1", "version": 1}}
		}`))
	}))
	defer server.Close()

	requestor := NewRequestor(server.URL, "", nil)
	collections, cached, err := requestor.RequestAll()
	require.NoError(t, err)
	assert.False(t, cached)
	require.Len(t, collections, 2)

	var flagItems, segItems int
	for _, c := range collections {
		if c.Kind.Name == "features" {
			flagItems = len(c.Items)
		}
		if c.Kind.Name == "segments" {
			segItems = len(c.Items)
		}
	}
	assert.Equal(t, 1, flagItems)
	assert.Equal(t, 1, segItems)
}

func TestRequestorPropagatesUnrecoverableStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	requestor := NewRequestor(server.URL, "", nil)
	_, _, err := requestor.RequestAll()
	require.Error(t, err)

	statusErr, ok := err.(internal.HTTPStatusError)
	require.True(t, ok)
	assert.Equal(t, http.StatusUnauthorized, statusErr.Code)
}

func TestRequestorRequestFlagAndSegmentByKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case latestFlagsPathPrefix + "flag1":
			_, _ = w.Write([]byte(`{"key": "flag1", "version": 5, "on": true}`))
		case latestSegmentsPathPrefix + "seg1":
			_, _ = w.Write([]byte(`{"key": "seg1", "version": 2}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	requestor := NewRequestor(server.URL, "", nil)

	flag, err := requestor.RequestFlag("flag1")
	require.NoError(t, err)
	assert.Equal(t, 5, flag.Version)

	segment, err := requestor.RequestSegment("seg1")
	require.NoError(t, err)
	assert.Equal(t, 2, segment.Version)
}
