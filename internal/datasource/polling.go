package datasource

import (
	"sync"
	"time"

	"github.com/flagkit/flagkit-go/interfaces"
	"github.com/flagkit/flagkit-go/internal"
	"github.com/flagkit/flagkit-go/ldlog"
)

// MinPollInterval is the floor spec.md 4.4 places on the polling fallback's interval, regardless
// of what a caller configures.
const MinPollInterval = 30 * time.Second

// PollingDataSource is the fallback Data Source strategy: it fetches the full snapshot on a
// fixed interval via a Requestor instead of holding a streaming connection open.
type PollingDataSource struct {
	requestor *Requestor
	updates   interfaces.DataSourceUpdateSink
	interval  time.Duration
	loggers   ldlog.Loggers

	initialized bool
	mu          sync.RWMutex

	closeOnce sync.Once
	quit      chan struct{}
}

// NewPollingDataSource constructs a polling Data Source. interval is clamped up to MinPollInterval.
func NewPollingDataSource(
	requestor *Requestor,
	updates interfaces.DataSourceUpdateSink,
	interval time.Duration,
	loggers ldlog.Loggers,
) *PollingDataSource {
	if interval < MinPollInterval {
		interval = MinPollInterval
	}
	return &PollingDataSource{
		requestor: requestor,
		updates:   updates,
		interval:  interval,
		loggers:   loggers,
		quit:      make(chan struct{}),
	}
}

//nolint:revive // no doc comment for standard method
func (p *PollingDataSource) Start(closeWhenReady chan<- struct{}) {
	var readyOnce sync.Once
	notifyReady := func() {
		readyOnce.Do(func() { close(closeWhenReady) })
	}

	go func() {
		// The first poll fires immediately rather than waiting a full interval, so startup
		// doesn't stall on the polling fallback's cadence.
		p.poll(notifyReady)

		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()
		for {
			select {
			case <-p.quit:
				return
			case <-ticker.C:
				p.poll(notifyReady)
			}
		}
	}()
}

func (p *PollingDataSource) poll(notifyReady func()) {
	allData, cached, err := p.requestor.RequestAll()
	if err != nil {
		if hse, ok := err.(internal.HTTPStatusError); ok && !internal.IsHTTPStatusRecoverable(hse.Code) {
			p.loggers.Errorf("polling data source received unrecoverable status %d, giving up", hse.Code)
			p.updates.UpdateStatus(interfaces.DataSourceStateOff, interfaces.DataSourceErrorInfo{
				Kind: interfaces.DataSourceErrorKindErrorResponse, StatusCode: hse.Code, Time: time.Now(),
			})
			notifyReady()
			p.Close()
			return
		}
		p.loggers.Warnf("polling request failed, will retry next interval: %s", err)
		p.updates.UpdateStatus(interfaces.DataSourceStateInterrupted, interfaces.DataSourceErrorInfo{
			Kind: interfaces.DataSourceErrorKindNetworkError, Message: err.Error(), Time: time.Now(),
		})
		return
	}
	if cached {
		p.updates.UpdateStatus(interfaces.DataSourceStateValid, interfaces.DataSourceErrorInfo{})
		if !p.IsInitialized() {
			p.setInitialized()
			notifyReady()
		}
		return
	}
	if err := p.updates.Init(allData); err != nil {
		p.loggers.Errorf("failed to apply polled snapshot: %s", err)
		p.updates.UpdateStatus(interfaces.DataSourceStateInterrupted, interfaces.DataSourceErrorInfo{
			Kind: interfaces.DataSourceErrorKindStoreError, Message: err.Error(), Time: time.Now(),
		})
		return
	}
	p.updates.UpdateStatus(interfaces.DataSourceStateValid, interfaces.DataSourceErrorInfo{})
	if !p.IsInitialized() {
		p.setInitialized()
		notifyReady()
	}
}

func (p *PollingDataSource) setInitialized() {
	p.mu.Lock()
	p.initialized = true
	p.mu.Unlock()
}

//nolint:revive // no doc comment for standard method
func (p *PollingDataSource) IsInitialized() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.initialized
}

//nolint:revive // no doc comment for standard method
func (p *PollingDataSource) Close() error {
	p.closeOnce.Do(func() {
		close(p.quit)
	})
	return nil
}

var _ interfaces.DataSource = (*PollingDataSource)(nil)
