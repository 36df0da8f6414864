package ldevents

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/flagkit/flagkit-go/interfaces"
	"github.com/flagkit/flagkit-go/internal"
	"github.com/flagkit/flagkit-go/lduser"
)

func nowMillis() int64 { return time.Now().UnixNano() / int64(time.Millisecond) }

func parseHTTPDate(header string) (int64, error) {
	t, err := http.ParseTime(header)
	if err != nil {
		return 0, err
	}
	return t.UnixNano() / int64(time.Millisecond), nil
}

// deliveryResult is what a flush worker reports back to the dispatcher after a POST attempt.
type deliveryResult struct {
	unrecoverable bool
	serverTime    int64
}

// outputEvent is the wire shape of one element of the /bulk JSON array (spec.md 6: "discriminator
// by kind"). Only the fields relevant to the event's kind are populated; omitempty drops the rest.
type outputEvent struct {
	Kind                 string      `json:"kind"`
	CreationDate         int64       `json:"creationDate"`
	Key                  string      `json:"key,omitempty"`
	UserKey              string      `json:"userKey,omitempty"`
	User                 *outputUser `json:"user,omitempty"`
	Value                interface{} `json:"value,omitempty"`
	Default              interface{} `json:"default,omitempty"`
	Variation            *int        `json:"variation,omitempty"`
	Version              *int        `json:"version,omitempty"`
	PrereqOf             string      `json:"prereqOf,omitempty"`
	TrackEvents          bool        `json:"trackEvents,omitempty"`
	Reason               interface{} `json:"reason,omitempty"`
	Data                 interface{} `json:"data,omitempty"`
	MetricValue          *float64    `json:"metricValue,omitempty"`
	StartDate            int64       `json:"startDate,omitempty"`
	EndDate              int64       `json:"endDate,omitempty"`
	Features             interface{} `json:"features,omitempty"`
}

// outputUser is the user shape sent in Index/Identify/Debug events, with private attributes
// scrubbed per spec.md 6's event-schema contract.
type outputUser struct {
	Key       string                 `json:"key"`
	Secondary string                 `json:"secondary,omitempty"`
	IP        string                 `json:"ip,omitempty"`
	Country   string                 `json:"country,omitempty"`
	Email     string                 `json:"email,omitempty"`
	FirstName string                 `json:"firstName,omitempty"`
	LastName  string                 `json:"lastName,omitempty"`
	Avatar    string                 `json:"avatar,omitempty"`
	Name      string                 `json:"name,omitempty"`
	Anonymous bool                   `json:"anonymous,omitempty"`
	Custom    map[string]interface{} `json:"custom,omitempty"`
	Privatized []string              `json:"privateAttrs,omitempty"`
}

// eventOutputFormatter converts the outbox's buffered events and summary into the /bulk payload,
// scrubbing private user attributes along the way. Grounded on
// launchdarkly-go-server-sdk/ldevents's eventOutputFormatter (events_output.go is absent from the
// retrieval pack; shape inferred from events_output_test.go and user_filter_test.go).
type eventOutputFormatter struct {
	allAttributesPrivate  bool
	globalPrivateAttrs    map[string]bool
}

func newEventOutputFormatter(config Config) eventOutputFormatter {
	names := make(map[string]bool, len(config.PrivateAttributeNames))
	for _, n := range config.PrivateAttributeNames {
		names[n] = true
	}
	return eventOutputFormatter{allAttributesPrivate: config.AllAttributesPrivate, globalPrivateAttrs: names}
}

func (f eventOutputFormatter) makeOutputEvents(events []interface{}, summary *eventSummarizer) []outputEvent {
	out := make([]outputEvent, 0, len(events)+1)
	for _, e := range events {
		if oe, ok := f.makeOutputEvent(e); ok {
			out = append(out, oe)
		}
	}
	if summary != nil {
		out = append(out, f.makeSummaryEvent(summary))
	}
	return out
}

func (f eventOutputFormatter) makeOutputEvent(e interface{}) (outputEvent, bool) {
	switch evt := e.(type) {
	case interfaces.FeatureRequestEvent:
		oe := outputEvent{
			Kind:         "feature",
			CreationDate: evt.CreationDate,
			Key:          evt.FlagKey,
			Value:        evt.Value,
			Default:      evt.Default,
			UserKey:      evt.User.Key,
			TrackEvents:  evt.TrackEvents,
			PrereqOf:     evt.PrereqOf,
			Reason:       evt.Reason,
		}
		if evt.HasVariation {
			v := evt.Variation
			oe.Variation = &v
		}
		if evt.FlagVersion > 0 {
			ver := evt.FlagVersion
			oe.Version = &ver
		}
		return oe, true
	case debugEvent:
		oe, _ := f.makeOutputEvent(evt.FeatureRequestEvent)
		oe.Kind = "debug"
		u := f.scrubUser(evt.User)
		oe.User = &u
		oe.UserKey = ""
		return oe, true
	case interfaces.IdentifyEvent:
		u := f.scrubUser(evt.User)
		return outputEvent{Kind: "identify", CreationDate: evt.CreationDate, Key: evt.User.Key, User: &u}, true
	case interfaces.CustomEvent:
		oe := outputEvent{Kind: "custom", CreationDate: evt.CreationDate, Key: evt.Key, UserKey: evt.User.Key, Data: evt.Data}
		if evt.HasMetric {
			v := evt.MetricValue
			oe.MetricValue = &v
		}
		return oe, true
	case indexEvent:
		u := f.scrubUser(evt.User)
		return outputEvent{Kind: "index", CreationDate: evt.CreationDate, User: &u}, true
	default:
		return outputEvent{}, false
	}
}

func (f eventOutputFormatter) makeSummaryEvent(s *eventSummarizer) outputEvent {
	type counterOut struct {
		Variation *int        `json:"variation,omitempty"`
		Version   *int        `json:"version,omitempty"`
		Value     interface{} `json:"value"`
		Count     int         `json:"count"`
		Unknown   bool        `json:"unknown,omitempty"`
	}
	type featureOut struct {
		Default  interface{}  `json:"default"`
		Counters []counterOut `json:"counters"`
	}
	features := make(map[string]featureOut, len(s.flags))
	for key, fs := range s.flags {
		counters := make([]counterOut, 0, len(fs.counters))
		for ck, cv := range fs.counters {
			c := counterOut{Value: cv.value, Count: cv.count}
			if ck.hasVariation {
				v := ck.variation
				c.Variation = &v
			} else {
				c.Unknown = true
			}
			if ck.version > 0 {
				ver := ck.version
				c.Version = &ver
			}
			counters = append(counters, c)
		}
		features[key] = featureOut{Default: fs.defaultValue, Counters: counters}
	}
	return outputEvent{
		Kind:      "summary",
		StartDate: s.startDate,
		EndDate:   s.endDate,
		Features:  features,
	}
}

// scrubUser drops any attribute named in PrivateAttributeNames, the user's own per-user private
// attribute list, or all of them when AllAttributesPrivate is set, recording which were removed
// (spec.md 6).
func (f eventOutputFormatter) scrubUser(u lduser.User) outputUser {
	out := outputUser{Key: u.Key, Anonymous: u.Anonymous}
	var redacted []string

	keep := func(name string) bool {
		if f.allAttributesPrivate || f.globalPrivateAttrs[name] || u.IsPrivateAttribute(name) {
			redacted = append(redacted, name)
			return false
		}
		return true
	}
	if u.Secondary != "" && keep("secondary") {
		out.Secondary = u.Secondary
	}
	if u.IP != "" && keep("ip") {
		out.IP = u.IP
	}
	if u.Country != "" && keep("country") {
		out.Country = u.Country
	}
	if u.Email != "" && keep("email") {
		out.Email = u.Email
	}
	if u.FirstName != "" && keep("firstName") {
		out.FirstName = u.FirstName
	}
	if u.LastName != "" && keep("lastName") {
		out.LastName = u.LastName
	}
	if u.Avatar != "" && keep("avatar") {
		out.Avatar = u.Avatar
	}
	if u.Name != "" && keep("name") {
		out.Name = u.Name
	}
	for name, value := range u.Custom {
		if !keep(name) {
			continue
		}
		if out.Custom == nil {
			out.Custom = make(map[string]interface{}, len(u.Custom))
		}
		out.Custom[name] = value
	}
	out.Privatized = redacted
	return out
}

// flushWorker POSTs a flush payload's formatted events (or a diagnostic event) to the events
// service and reports the result back to the dispatcher. Grounded on
// launchdarkly-go-server-sdk/ldevents's sendEventsTask.
type flushWorker struct {
	client    *http.Client
	config    Config
	formatter eventOutputFormatter
}

func startFlushWorker(config Config, flushCh <-chan *flushPayload, workers *sync.WaitGroup, onResponse func(deliveryResult)) {
	w := flushWorker{client: config.HTTPClient, config: config, formatter: newEventOutputFormatter(config)}
	go w.run(flushCh, onResponse, workers)
}

func (w flushWorker) run(flushCh <-chan *flushPayload, onResponse func(deliveryResult), workers *sync.WaitGroup) {
	for payload := range flushCh {
		if payload.diagnostic != nil {
			w.post(w.config.EventsURI+diagnosticURIPath, payload.diagnostic, nil)
		} else {
			events := w.formatter.makeOutputEvents(payload.events, payload.summary)
			if len(events) > 0 {
				w.post(w.config.EventsURI+bulkURIPath, events, onResponse)
			}
		}
		workers.Done()
	}
}

func (w flushWorker) post(uri string, body interface{}, onResponse func(deliveryResult)) {
	payload, err := json.Marshal(body)
	if err != nil {
		w.config.Loggers.Errorf("unable to marshal event payload: %s", err)
		return
	}
	payloadID, _ := uuid.NewRandom()

	var resp *http.Response
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			w.config.Loggers.Warn("will retry posting events after 1 second")
			time.Sleep(1 * time.Second)
		}
		req, reqErr := http.NewRequest(http.MethodPost, uri, bytes.NewReader(payload))
		if reqErr != nil {
			w.config.Loggers.Errorf("unable to create event request: %s", reqErr)
			return
		}
		req.Header.Set("Authorization", w.config.Authorization)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set(eventSchemaHeader, currentEventSchema)
		req.Header.Set(payloadIDHeader, payloadID.String())

		var doErr error
		resp, doErr = w.client.Do(req)
		if doErr != nil {
			w.config.Loggers.Warnf("error sending events: %s", doErr)
			continue
		}
		if resp.Body != nil {
			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()
		}
		if resp.StatusCode/100 == 2 {
			break
		}
		if internal.IsHTTPStatusRecoverable(resp.StatusCode) {
			w.config.Loggers.Warnf("received recoverable error status %d from events service", resp.StatusCode)
			continue
		}
		break
	}
	if onResponse == nil || resp == nil {
		return
	}
	result := deliveryResult{unrecoverable: resp.StatusCode/100 != 2 && !internal.IsHTTPStatusRecoverable(resp.StatusCode)}
	if t, err := parseHTTPDate(resp.Header.Get("Date")); err == nil {
		result.serverTime = t
	}
	onResponse(result)
}
