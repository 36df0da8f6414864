package datasource

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	es "github.com/launchdarkly/eventsource"

	"github.com/flagkit/flagkit-go/interfaces"
	"github.com/flagkit/flagkit-go/internal"
	"github.com/flagkit/flagkit-go/ldlog"
	"github.com/flagkit/flagkit-go/ldmodel"
)

const (
	streamAllPath        = "/all"
	streamReadTimeout    = 5 * time.Minute
	streamMaxRetryDelay  = 30 * time.Second
	streamJitterRatio    = 0.5
	streamRetryResetTime = 60 * time.Second

	eventPut          = "put"
	eventPatch        = "patch"
	eventDelete       = "delete"
	eventIndirectPut  = "indirect/put"
	eventIndirectPatch = "indirect/patch"
)

// StreamConfig configures the streaming strategy.
type StreamConfig struct {
	URI                   string
	FilterKey             string
	InitialReconnectDelay time.Duration
	AuthHeader            string
	HTTPClient            *http.Client
}

type putData struct {
	Data allDataPayload `json:"data"`
}

type patchData struct {
	Path string          `json:"path"`
	Data json.RawMessage `json:"data"`
}

type deleteData struct {
	Path    string `json:"path"`
	Version int    `json:"version"`
}

// StreamingDataSource is the primary Data Source strategy (spec.md 4.4): a long-lived SSE
// connection with put/patch/delete/indirect-put/indirect-patch dispatch, grounded on
// internal/datasource/streaming_data_source.go. indirect/put and indirect/patch are synthesized
// from that file's event-dispatch switch plus the Requestor's fetch-then-apply capability, since
// no single teacher file shows the indirect path end to end.
type StreamingDataSource struct {
	cfg       StreamConfig
	updates   interfaces.DataSourceUpdateSink
	requestor *Requestor
	loggers   ldlog.Loggers

	stream *es.Stream

	initialized bool
	mu          sync.RWMutex

	closeOnce sync.Once
	quit      chan struct{}
}

// NewStreamingDataSource constructs a streaming Data Source. requestor is used for the
// indirect/put and indirect/patch fetch-then-apply path.
func NewStreamingDataSource(
	cfg StreamConfig,
	updates interfaces.DataSourceUpdateSink,
	requestor *Requestor,
	loggers ldlog.Loggers,
) *StreamingDataSource {
	return &StreamingDataSource{
		cfg:       cfg,
		updates:   updates,
		requestor: requestor,
		loggers:   loggers,
		quit:      make(chan struct{}),
	}
}

//nolint:revive // no doc comment for standard method, matches teacher convention
func (s *StreamingDataSource) Start(closeWhenReady chan<- struct{}) {
	var readyOnce sync.Once
	notifyReady := func() {
		readyOnce.Do(func() { close(closeWhenReady) })
	}

	uri := s.cfg.URI + streamAllPath
	if s.cfg.FilterKey != "" {
		uri += "?filter=" + s.cfg.FilterKey
	}
	req, err := http.NewRequest(http.MethodGet, uri, nil)
	if err != nil {
		s.loggers.Errorf("unable to create stream request: %s", err)
		notifyReady()
		return
	}
	req.Header.Set("Accept", "text/event-stream")
	if s.cfg.AuthHeader != "" {
		req.Header.Set("Authorization", s.cfg.AuthHeader)
	}

	initialDelay := s.cfg.InitialReconnectDelay
	if initialDelay <= 0 {
		initialDelay = time.Second
	}

	errorHandler := func(err error) es.StreamErrorHandlerResult {
		if hse, ok := err.(internal.HTTPStatusError); ok {
			recoverable := internal.IsHTTPStatusRecoverable(hse.Code)
			s.updates.UpdateStatus(statusForError(recoverable), interfaces.DataSourceErrorInfo{
				Kind:       interfaces.DataSourceErrorKindErrorResponse,
				StatusCode: hse.Code,
				Time:       time.Now(),
			})
			if !recoverable {
				notifyReady()
				return es.StreamErrorHandlerResult{CloseNow: true}
			}
			return es.StreamErrorHandlerResult{CloseNow: false}
		}
		s.updates.UpdateStatus(interfaces.DataSourceStateInterrupted, interfaces.DataSourceErrorInfo{
			Kind:    interfaces.DataSourceErrorKindNetworkError,
			Message: err.Error(),
			Time:    time.Now(),
		})
		return es.StreamErrorHandlerResult{CloseNow: false}
	}

	stream, err := es.SubscribeWithRequestAndOptions(
		req,
		es.StreamOptionHTTPClient(s.cfg.HTTPClient),
		es.StreamOptionInitialRetry(initialDelay),
		es.StreamOptionUseBackoff(streamMaxRetryDelay),
		es.StreamOptionUseJitter(streamJitterRatio),
		es.StreamOptionRetryResetInterval(streamRetryResetTime),
		es.StreamOptionReadTimeout(streamReadTimeout),
		es.StreamOptionErrorHandler(errorHandler),
	)
	if err != nil {
		s.loggers.Errorf("unable to establish streaming connection: %s", err)
		s.updates.UpdateStatus(interfaces.DataSourceStateInterrupted, interfaces.DataSourceErrorInfo{
			Kind: interfaces.DataSourceErrorKindNetworkError, Message: err.Error(), Time: time.Now(),
		})
		notifyReady()
		return
	}
	s.stream = stream

	go func() {
		defer notifyReady()
		for {
			select {
			case <-s.quit:
				stream.Close()
				return
			case event, ok := <-stream.Events:
				if !ok {
					return
				}
				if err := s.handleEvent(event); err != nil {
					s.loggers.Errorf("error handling %q stream event: %s", event.Event(), err)
					s.updates.UpdateStatus(interfaces.DataSourceStateInterrupted, interfaces.DataSourceErrorInfo{
						Kind: interfaces.DataSourceErrorKindInvalidData, Message: err.Error(), Time: time.Now(),
					})
					continue
				}
				if !s.IsInitialized() {
					s.mu.Lock()
					s.initialized = true
					s.mu.Unlock()
					notifyReady()
				}
				s.updates.UpdateStatus(interfaces.DataSourceStateValid, interfaces.DataSourceErrorInfo{})
			}
		}
	}()
}

func (s *StreamingDataSource) handleEvent(event es.Event) error {
	switch event.Event() {
	case eventPut:
		var put putData
		if err := json.Unmarshal([]byte(event.Data()), &put); err != nil {
			return fmt.Errorf("malformed put event: %w", err)
		}
		return s.updates.Init(put.Data.toCollections())

	case eventPatch:
		var patch patchData
		if err := json.Unmarshal([]byte(event.Data()), &patch); err != nil {
			return fmt.Errorf("malformed patch event: %w", err)
		}
		kind, key, err := parsePath(patch.Path)
		if err != nil {
			return err
		}
		item, version, err := decodeItem(kind, key, patch.Data)
		if err != nil {
			return err
		}
		_, err = s.updates.Upsert(kind, key, interfaces.ItemDescriptor{Version: version, Item: item})
		return err

	case eventDelete:
		var del deleteData
		if err := json.Unmarshal([]byte(event.Data()), &del); err != nil {
			return fmt.Errorf("malformed delete event: %w", err)
		}
		kind, key, err := parsePath(del.Path)
		if err != nil {
			return err
		}
		_, err = s.updates.Upsert(kind, key, interfaces.Tombstone(del.Version))
		return err

	case eventIndirectPut:
		allData, _, err := s.requestor.RequestAll()
		if err != nil {
			return fmt.Errorf("indirect/put fetch failed: %w", err)
		}
		return s.updates.Init(allData)

	case eventIndirectPatch:
		path := strings.TrimSpace(event.Data())
		kind, key, err := parsePath(path)
		if err != nil {
			return err
		}
		switch kind {
		case ldmodel.Features:
			flag, err := s.requestor.RequestFlag(key)
			if err != nil {
				return fmt.Errorf("indirect/patch fetch failed: %w", err)
			}
			_, err = s.updates.Upsert(kind, key, interfaces.ItemDescriptor{Version: flag.Version, Item: flag})
			return err
		case ldmodel.Segments:
			segment, err := s.requestor.RequestSegment(key)
			if err != nil {
				return fmt.Errorf("indirect/patch fetch failed: %w", err)
			}
			_, err = s.updates.Upsert(kind, key, interfaces.ItemDescriptor{Version: segment.Version, Item: segment})
			return err
		default:
			return fmt.Errorf("unrecognized indirect/patch path: %s", path)
		}

	default:
		// Heartbeat comments and unrecognized event names are ignored, per spec.md 4.4.
		return nil
	}
}

func parsePath(path string) (ldmodel.Kind, string, error) {
	switch {
	case strings.HasPrefix(path, "/flags/"):
		return ldmodel.Features, strings.TrimPrefix(path, "/flags/"), nil
	case strings.HasPrefix(path, "/segments/"):
		return ldmodel.Segments, strings.TrimPrefix(path, "/segments/"), nil
	default:
		return ldmodel.Kind{}, "", fmt.Errorf("unrecognized path: %s", path)
	}
}

func decodeItem(kind ldmodel.Kind, key string, raw json.RawMessage) (interface{}, int, error) {
	switch kind {
	case ldmodel.Features:
		var flag ldmodel.FeatureFlag
		if err := json.Unmarshal(raw, &flag); err != nil {
			return nil, 0, err
		}
		return &flag, flag.Version, nil
	case ldmodel.Segments:
		var segment ldmodel.Segment
		if err := json.Unmarshal(raw, &segment); err != nil {
			return nil, 0, err
		}
		return &segment, segment.Version, nil
	default:
		return nil, 0, fmt.Errorf("unrecognized kind for key %s", key)
	}
}

//nolint:revive // no doc comment for standard method
func (s *StreamingDataSource) IsInitialized() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.initialized
}

//nolint:revive // no doc comment for standard method
func (s *StreamingDataSource) Close() error {
	s.closeOnce.Do(func() {
		close(s.quit)
	})
	return nil
}

func statusForError(recoverable bool) interfaces.DataSourceState {
	if recoverable {
		return interfaces.DataSourceStateInterrupted
	}
	return interfaces.DataSourceStateOff
}

var _ interfaces.DataSource = (*StreamingDataSource)(nil)
