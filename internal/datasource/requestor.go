// Package datasource implements the Data Source subsystem (spec.md 4.4): a streaming SSE
// strategy, a polling fallback, a requestor used by both for full/indirect fetches, and the
// relay/offline sentinel.
package datasource

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/gregjones/httpcache"

	"github.com/flagkit/flagkit-go/interfaces"
	"github.com/flagkit/flagkit-go/internal"
	"github.com/flagkit/flagkit-go/ldmodel"
)

const (
	latestAllPath            = "/sdk/latest-all"
	latestFlagsPathPrefix    = "/sdk/latest-flags/"
	latestSegmentsPathPrefix = "/sdk/latest-segments/"
)

// allDataPayload is the wire shape of a full snapshot: a map per kind from key to raw flag/segment
// JSON. Per spec.md 1, the wire schema beyond what evaluation needs is out of scope, so this is
// intentionally the minimal shape the Evaluator's data actually requires.
type allDataPayload struct {
	Flags    map[string]ldmodel.FeatureFlag `json:"flags"`
	Segments map[string]ldmodel.Segment    `json:"segments"`
}

func (p allDataPayload) toCollections() []interfaces.Collection {
	flagItems := make([]interfaces.KeyedItemDescriptor, 0, len(p.Flags))
	for key, flag := range p.Flags {
		f := flag
		flagItems = append(flagItems, interfaces.KeyedItemDescriptor{
			Key:  key,
			Item: interfaces.ItemDescriptor{Version: flag.Version, Item: &f},
		})
	}
	segItems := make([]interfaces.KeyedItemDescriptor, 0, len(p.Segments))
	for key, seg := range p.Segments {
		s := seg
		segItems = append(segItems, interfaces.KeyedItemDescriptor{
			Key:  key,
			Item: interfaces.ItemDescriptor{Version: seg.Version, Item: &s},
		})
	}
	return []interfaces.Collection{
		{Kind: ldmodel.Features, Items: flagItems},
		{Kind: ldmodel.Segments, Items: segItems},
	}
}

// Requestor fetches flag/segment data over HTTPS GET, using a conditional-GET cache so that
// repeated full-snapshot polls that return 304 are detected and skipped (spec.md 6: "Caller
// respects ETag / Last-Modified for 304 responses, returning the prior snapshot").
type Requestor struct {
	baseURI    string
	authHeader string
	httpClient *http.Client
}

// NewRequestor wraps httpClient's transport with an httpcache layer and returns a Requestor
// pointed at baseURI.
func NewRequestor(baseURI, authHeader string, httpClient *http.Client) *Requestor {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	transport := httpClient.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	cachingTransport := &httpcache.Transport{
		Cache:               httpcache.NewMemoryCache(),
		MarkCachedResponses: true,
		Transport:           transport,
	}
	client := &http.Client{
		Transport: cachingTransport,
		Timeout:   httpClient.Timeout,
	}
	return &Requestor{baseURI: baseURI, authHeader: authHeader, httpClient: client}
}

// RequestAll fetches the full flag/segment snapshot. cached reports whether the response was
// served from the conditional-GET cache (a 304), in which case the caller should not re-apply it.
func (r *Requestor) RequestAll() (allData []interfaces.Collection, cached bool, err error) {
	body, cached, err := r.get(latestAllPath)
	if err != nil {
		return nil, false, err
	}
	if cached {
		return nil, true, nil
	}
	var payload allDataPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, false, fmt.Errorf("malformed snapshot payload: %w", err)
	}
	return payload.toCollections(), false, nil
}

// RequestFlag fetches a single flag by key, for the indirect/patch path.
func (r *Requestor) RequestFlag(key string) (*ldmodel.FeatureFlag, error) {
	body, _, err := r.get(latestFlagsPathPrefix + key)
	if err != nil {
		return nil, err
	}
	var flag ldmodel.FeatureFlag
	if err := json.Unmarshal(body, &flag); err != nil {
		return nil, fmt.Errorf("malformed flag payload: %w", err)
	}
	return &flag, nil
}

// RequestSegment fetches a single segment by key, for the indirect/patch path.
func (r *Requestor) RequestSegment(key string) (*ldmodel.Segment, error) {
	body, _, err := r.get(latestSegmentsPathPrefix + key)
	if err != nil {
		return nil, err
	}
	var segment ldmodel.Segment
	if err := json.Unmarshal(body, &segment); err != nil {
		return nil, fmt.Errorf("malformed segment payload: %w", err)
	}
	return &segment, nil
}

func (r *Requestor) get(path string) (body []byte, cached bool, err error) {
	req, err := http.NewRequest(http.MethodGet, r.baseURI+path, nil)
	if err != nil {
		return nil, false, err
	}
	if r.authHeader != "" {
		req.Header.Set("Authorization", r.authHeader)
	}
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified {
		return nil, true, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, false, internal.HTTPStatusError{Code: resp.StatusCode}
	}

	buf, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, false, err
	}
	cached = resp.Header.Get(httpcache.XFromCache) != ""
	return buf, cached, nil
}
