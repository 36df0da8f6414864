package ldevents

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flagkit/flagkit-go/interfaces"
	"github.com/flagkit/flagkit-go/ldlog"
	"github.com/flagkit/flagkit-go/lduser"
)

type capturingServer struct {
	server  *httptest.Server
	mu      sync.Mutex
	bulks   [][]map[string]interface{}
	status  int
}

func newCapturingServer() *capturingServer {
	s := &capturingServer{status: http.StatusOK}
	s.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		if r.URL.Path == "/bulk" {
			var events []map[string]interface{}
			_ = json.NewDecoder(r.Body).Decode(&events)
			s.bulks = append(s.bulks, events)
		}
		w.Header().Set("Date", time.Now().UTC().Format(http.TimeFormat))
		w.WriteHeader(s.status)
	}))
	return s
}

func (s *capturingServer) allBulks() [][]map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]map[string]interface{}, len(s.bulks))
	copy(out, s.bulks)
	return out
}

func noopLoggers() ldlog.Loggers { return ldlog.NewDisabledLoggers() }

func newTestProcessor(eventsURI string) *DefaultEventProcessor {
	return NewDefaultEventProcessor(Config{
		EventsURI:     eventsURI,
		Authorization: "test-key",
		FlushInterval: time.Hour, // only flush when explicitly told to in tests
		Loggers:       noopLoggers(),
	})
}

func TestFeatureRequestWithTrackEventsIsSentIndividually(t *testing.T) {
	server := newCapturingServer()
	defer server.server.Close()

	p := newTestProcessor(server.server.URL)
	defer p.Close()

	p.RecordFeatureRequestEvent(interfaces.FeatureRequestEvent{
		CreationDate: 1000, FlagKey: "flag", FlagVersion: 1, HasVariation: true, Variation: 0,
		Value: "a", Default: "b", User: lduser.NewUser("user1"), TrackEvents: true,
	})
	p.sync()
	p.Flush()
	p.sync()

	bulks := server.allBulks()
	require.Len(t, bulks, 1)
	kinds := eventKinds(bulks[0])
	assert.Contains(t, kinds, "index")
	assert.Contains(t, kinds, "feature")
}

func TestUntrackedEventsAreSummarizedNotSentIndividually(t *testing.T) {
	server := newCapturingServer()
	defer server.server.Close()

	p := newTestProcessor(server.server.URL)
	defer p.Close()

	for i := 0; i < 1000; i++ {
		p.RecordFeatureRequestEvent(interfaces.FeatureRequestEvent{
			CreationDate: 0, FlagKey: "flag", FlagVersion: 1, HasVariation: true, Variation: 0,
			Value: "a", Default: "b", User: lduser.NewUser("user1"), TrackEvents: false,
		})
	}
	p.sync()
	p.Flush()
	p.sync()

	bulks := server.allBulks()
	require.Len(t, bulks, 1)
	kinds := eventKinds(bulks[0])
	assert.NotContains(t, kinds, "feature")
	require.Contains(t, kinds, "summary")

	for _, e := range bulks[0] {
		if e["kind"] != "summary" {
			continue
		}
		features := e["features"].(map[string]interface{})
		flag := features["flag"].(map[string]interface{})
		counters := flag["counters"].([]interface{})
		require.Len(t, counters, 1)
		counter := counters[0].(map[string]interface{})
		assert.EqualValues(t, 1000, counter["count"])
	}
}

func TestIdentifyEventAlwaysFull(t *testing.T) {
	server := newCapturingServer()
	defer server.server.Close()

	p := newTestProcessor(server.server.URL)
	defer p.Close()

	p.RecordIdentifyEvent(interfaces.IdentifyEvent{CreationDate: 1, User: lduser.NewUser("user1")})
	p.sync()
	p.Flush()
	p.sync()

	bulks := server.allBulks()
	require.Len(t, bulks, 1)
	kinds := eventKinds(bulks[0])
	assert.Equal(t, []string{"identify"}, kinds)
}

func TestUnrecoverableStatusDisablesProcessor(t *testing.T) {
	server := newCapturingServer()
	server.status = http.StatusUnauthorized
	defer server.server.Close()

	p := newTestProcessor(server.server.URL)
	defer p.Close()

	p.RecordFeatureRequestEvent(interfaces.FeatureRequestEvent{
		CreationDate: 1, FlagKey: "flag", FlagVersion: 1, HasVariation: true, Variation: 0,
		Value: "a", Default: "b", User: lduser.NewUser("user1"), TrackEvents: true,
	})
	p.sync()
	p.Flush()
	p.sync()
	require.Len(t, server.allBulks(), 1)

	p.RecordFeatureRequestEvent(interfaces.FeatureRequestEvent{
		CreationDate: 2, FlagKey: "flag", FlagVersion: 1, HasVariation: true, Variation: 0,
		Value: "a", Default: "b", User: lduser.NewUser("user2"), TrackEvents: true,
	})
	p.sync()
	p.Flush()
	p.sync()

	// the dispatcher disabled itself after the 401; no second payload was ever posted.
	assert.Len(t, server.allBulks(), 1)
}

func eventKinds(events []map[string]interface{}) []string {
	out := make([]string, 0, len(events))
	for _, e := range events {
		out = append(out, e["kind"].(string))
	}
	return out
}
