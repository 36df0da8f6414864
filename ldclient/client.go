package ldclient

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"time"

	"github.com/flagkit/flagkit-go/eval"
	"github.com/flagkit/flagkit-go/internal"
	"github.com/flagkit/flagkit-go/internal/datasource"
	"github.com/flagkit/flagkit-go/internal/datastore"
	"github.com/flagkit/flagkit-go/internal/ldevents"
	"github.com/flagkit/flagkit-go/interfaces"
	"github.com/flagkit/flagkit-go/ldlog"
	"github.com/flagkit/flagkit-go/ldmodel"
	"github.com/flagkit/flagkit-go/lduser"
)

// Errors returned by NewClient: ErrInitializationTimeout when waitFor elapses before
// initialization completes, ErrInitializationFailed when the Data Source reports it could not
// initialize.
var (
	ErrInitializationTimeout = errors.New("timeout waiting for client initialization")
	ErrInitializationFailed  = errors.New("client initialization failed")
)

// Client is the SDK's external facade (spec.md 2): typed-variation evaluation, analytics event
// submission, and AllFlagsState, routed through the Evaluator, Event Processor, Data Store, and
// Data Source built from Config. Client instances are safe for concurrent use.
type Client struct {
	sdkKey            string
	config            Config
	loggers           ldlog.Loggers
	eventProcessor    interfaces.EventProcessor
	dataSource        interfaces.DataSource
	store             interfaces.DataStore
	evalProvider      eval.DataProvider
	statusBroadcaster *internal.Broadcaster[interfaces.DataSourceStatus]
}

// NewClient constructs a Client and blocks for up to waitFor for the Data Source to report
// ready. A waitFor of zero starts the Data Source in the background and returns immediately.
// When Config.Offline is true, no network connection is attempted and NewClient returns
// immediately with a client that evaluates every flag to its default value.
func NewClient(sdkKey string, config Config, waitFor time.Duration) (*Client, error) {
	config, context := config.withDefaults(sdkKey)

	store, err := config.DataStore.Build(context)
	if err != nil {
		return nil, err
	}

	broadcaster := internal.NewBroadcaster[interfaces.DataSourceStatus]()
	updateSink := datastore.NewUpdateSink(store, broadcaster.Broadcast)
	context.DataSourceUpdateSink = updateSink

	client := &Client{
		sdkKey:            sdkKey,
		config:            config,
		loggers:           context.Loggers,
		store:             store,
		evalProvider:      datastore.NewDataProvider(store),
		statusBroadcaster: broadcaster,
	}

	if config.Offline {
		client.eventProcessor = ldevents.NewNullEventProcessor()
		client.dataSource = datasource.NewSentinelDataSource(datasource.SentinelModeOffline, updateSink)
		client.dataSource.Start(make(chan struct{}))
		return client, nil
	}

	eventProcessor, err := config.Events.Build(context)
	if err != nil {
		return nil, err
	}
	client.eventProcessor = eventProcessor

	dataSource, err := config.DataSource.Build(context)
	if err != nil {
		return nil, err
	}
	client.dataSource = dataSource

	closeWhenReady := make(chan struct{})
	client.dataSource.Start(closeWhenReady)

	if waitFor <= 0 {
		go func() { <-closeWhenReady }()
		return client, nil
	}

	select {
	case <-closeWhenReady:
		if !client.dataSource.IsInitialized() {
			context.Loggers.Warn("client initialization failed")
			return client, ErrInitializationFailed
		}
		context.Loggers.Info("client successfully initialized")
		return client, nil
	case <-time.After(waitFor):
		context.Loggers.Warn("timeout waiting for client initialization")
		return client, ErrInitializationTimeout
	}
}

// IsOffline reports whether the client was configured with Offline: true.
func (c *Client) IsOffline() bool {
	return c.config.Offline
}

// Initialized reports whether the Data Source has completed its first successful sync (or the
// client is offline, which is always considered "ready" since it only ever returns defaults).
func (c *Client) Initialized() bool {
	return c.IsOffline() || c.dataSource.IsInitialized()
}

// SubscribeDataSourceStatus returns a channel that receives every subsequent Data Source status
// change (spec.md 5). Call UnsubscribeDataSourceStatus with the same channel when done.
func (c *Client) SubscribeDataSourceStatus() <-chan interfaces.DataSourceStatus {
	return c.statusBroadcaster.AddListener()
}

// UnsubscribeDataSourceStatus unsubscribes a channel previously returned by
// SubscribeDataSourceStatus.
func (c *Client) UnsubscribeDataSourceStatus(ch <-chan interfaces.DataSourceStatus) {
	c.statusBroadcaster.RemoveListener(ch)
}

// Flush requests that any buffered analytics events be delivered as soon as possible. Flushing is
// asynchronous; call Close to guarantee delivery before shutdown.
func (c *Client) Flush() {
	c.eventProcessor.Flush()
}

// Close shuts down the client: flushes and stops the Event Processor, stops the Data Source, and
// closes the Data Store. After Close returns, the Client must not be used again.
func (c *Client) Close() error {
	_ = c.eventProcessor.Close()
	if c.dataSource != nil {
		_ = c.dataSource.Close()
	}
	c.statusBroadcaster.Close()
	if closer, ok := c.store.(io.Closer); ok {
		_ = closer.Close()
	}
	return nil
}

// SecureModeHash computes the HMAC-SHA256 hex digest of user.Key keyed by the SDK key, for use
// with the client-side SDK's secure mode.
func (c *Client) SecureModeHash(user lduser.User) string {
	h := hmac.New(sha256.New, []byte(c.sdkKey))
	_, _ = h.Write([]byte(user.Key))
	return hex.EncodeToString(h.Sum(nil))
}

func (c *Client) getFlag(key string) (*ldmodel.FeatureFlag, bool, error) {
	desc, found, err := c.store.Get(ldmodel.Features, key)
	if err != nil || !found || desc.Deleted() {
		return nil, false, err
	}
	flag, ok := desc.Item.(*ldmodel.FeatureFlag)
	if !ok {
		return nil, false, nil
	}
	return flag, true, nil
}

func nowMillis() int64 {
	return time.Now().UnixNano() / int64(time.Millisecond)
}
