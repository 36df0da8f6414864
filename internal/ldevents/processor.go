package ldevents

import (
	"sync"
	"time"

	"github.com/flagkit/flagkit-go/interfaces"
	"github.com/flagkit/flagkit-go/ldlog"
	"github.com/flagkit/flagkit-go/lduser"
)

// dispatcherMessage is the inbox's payload type; the dispatcher's main loop type-switches on it.
// Grounded on launchdarkly-go-server-sdk/ldevents's eventDispatcherMessage family
// (event_processor.go).
type dispatcherMessage interface{}

type featureRequestMessage struct{ event interfaces.FeatureRequestEvent }
type identifyMessage struct{ event interfaces.IdentifyEvent }
type customMessage struct{ event interfaces.CustomEvent }
type flushMessage struct{}
type flushUsersMessage struct{}
type syncMessage struct{ replyCh chan struct{} }
type shutdownMessage struct{ replyCh chan struct{} }

// DefaultEventProcessor is the production implementation of interfaces.EventProcessor (spec.md
// 4.5). It owns the inbox channel and delegates all mutable state to a single dispatcher
// goroutine, so the public methods never block the calling evaluation path beyond a non-blocking
// channel send. Grounded on launchdarkly-go-server-sdk/ldevents's defaultEventProcessor.
type DefaultEventProcessor struct {
	inbox         chan dispatcherMessage
	inboxFullOnce sync.Once
	closeOnce     sync.Once
	loggers       ldlog.Loggers
}

// NewDefaultEventProcessor constructs and starts the dispatcher goroutine and its flush-worker
// pool.
func NewDefaultEventProcessor(config Config) *DefaultEventProcessor {
	config = config.withDefaults()
	inbox := make(chan dispatcherMessage, config.Capacity)
	startDispatcher(config, inbox)
	return &DefaultEventProcessor{inbox: inbox, loggers: config.Loggers}
}

//nolint:revive // satisfies interfaces.EventProcessor
func (p *DefaultEventProcessor) RecordFeatureRequestEvent(e interfaces.FeatureRequestEvent) {
	p.offer(featureRequestMessage{event: e})
}

//nolint:revive // satisfies interfaces.EventProcessor
func (p *DefaultEventProcessor) RecordIdentifyEvent(e interfaces.IdentifyEvent) {
	p.offer(identifyMessage{event: e})
}

//nolint:revive // satisfies interfaces.EventProcessor
func (p *DefaultEventProcessor) RecordCustomEvent(e interfaces.CustomEvent) {
	p.offer(customMessage{event: e})
}

// Flush requests an out-of-cycle flush; it is asynchronous, per spec.md 4.5.
func (p *DefaultEventProcessor) Flush() {
	p.offer(flushMessage{})
}

// flushUsers resets the "seen recently" user LRU out of cycle with its usual timer, without
// forcing a full event flush. Test-only; mirrors the FLUSH_USERS message kind in spec.md 4.5.
func (p *DefaultEventProcessor) flushUsers() {
	p.offer(flushUsersMessage{})
}

// offer is the inbox's non-blocking try-send, per spec.md 5 ("inbox enqueue... never blocks;
// always try-offer"). On overflow the event is dropped; a warning is logged only the first time
// the inbox is found full over the processor's lifetime.
func (p *DefaultEventProcessor) offer(m dispatcherMessage) bool {
	select {
	case p.inbox <- m:
		return true
	default:
	}
	p.inboxFullOnce.Do(func() {
		p.loggers.Warn("event inbox is full, discarding events; consider increasing Capacity")
	})
	return false
}

// Close drains best-effort: it schedules a final flush, waits for it to be accepted by the
// dispatcher, then blocks until the dispatcher confirms shutdown (spec.md 4.5 "Shutdown").
func (p *DefaultEventProcessor) Close() error {
	p.closeOnce.Do(func() {
		p.inbox <- flushMessage{}
		m := shutdownMessage{replyCh: make(chan struct{})}
		p.inbox <- m
		<-m.replyCh
	})
	return nil
}

// sync is test-only instrumentation: it blocks until every in-flight flush has been picked up and
// completed by a worker (spec.md 4.5 "SYNC (test-only barrier)").
func (p *DefaultEventProcessor) sync() {
	m := syncMessage{replyCh: make(chan struct{})}
	p.inbox <- m
	<-m.replyCh
}

type dispatcherState struct {
	config            Config
	lastKnownPastTime int64
	deduplicatedUsers int
	eventsInLastBatch int
	disabled          bool
	lock              sync.Mutex
}

func startDispatcher(config Config, inbox <-chan dispatcherMessage) {
	d := &dispatcherState{config: config}

	flushCh := make(chan *flushPayload, 1)
	var workers sync.WaitGroup
	for i := 0; i < maxFlushWorkers; i++ {
		startFlushWorker(config, flushCh, &workers, d.handleResponse)
	}
	if config.DiagnosticsManager != nil {
		d.sendDiagnostic(config.DiagnosticsManager.CreateInitEvent(), flushCh, &workers)
	}
	go d.runMainLoop(inbox, flushCh, &workers)
}

func (d *dispatcherState) runMainLoop(
	inbox <-chan dispatcherMessage,
	flushCh chan<- *flushPayload,
	workers *sync.WaitGroup,
) {
	outbox := newEventsOutbox(d.config.Capacity, d.config.Loggers)
	userKeys := newUserKeyCache(d.config.UserKeysCapacity)

	flushTicker := time.NewTicker(d.config.FlushInterval)
	defer flushTicker.Stop()
	userKeysTicker := time.NewTicker(d.config.UserKeysFlushInterval)
	defer userKeysTicker.Stop()

	var diagTicker *time.Ticker
	var diagTickerCh <-chan time.Time
	if dm := d.config.DiagnosticsManager; dm != nil {
		diagTicker = time.NewTicker(d.config.DiagnosticRecordingInterval)
		defer diagTicker.Stop()
		diagTickerCh = diagTicker.C
	}

	for {
		select {
		case message := <-inbox:
			switch m := message.(type) {
			case featureRequestMessage:
				d.processFeatureRequest(m.event, outbox, userKeys)
			case identifyMessage:
				d.processIdentify(m.event, outbox, userKeys)
			case customMessage:
				d.processCustom(m.event, outbox, userKeys)
			case flushMessage:
				d.triggerFlush(outbox, flushCh, workers)
			case flushUsersMessage:
				userKeys.clear()
			case syncMessage:
				workers.Wait()
				m.replyCh <- struct{}{}
			case shutdownMessage:
				workers.Wait()
				close(flushCh)
				m.replyCh <- struct{}{}
				return
			}
		case <-flushTicker.C:
			d.triggerFlush(outbox, flushCh, workers)
		case <-userKeysTicker.C:
			userKeys.clear()
		case <-diagTickerCh:
			dm := d.config.DiagnosticsManager
			event := dm.CreateStatsEventAndReset(outbox.droppedEvents, d.deduplicatedUsers, d.eventsInLastBatch)
			outbox.droppedEvents = 0
			d.deduplicatedUsers = 0
			d.eventsInLastBatch = 0
			d.sendDiagnostic(event, flushCh, workers)
		}
	}
}

func (d *dispatcherState) processFeatureRequest(e interfaces.FeatureRequestEvent, outbox *eventsOutbox, userKeys *userKeyCache) {
	outbox.summarizer.summarizeEvent(e)

	willAddFull := e.TrackEvents
	var debug *debugEvent
	if d.shouldDebugEvent(e) {
		debug = &debugEvent{FeatureRequestEvent: e}
	}

	if !(willAddFull && d.config.InlineUsersInEvents) {
		d.noticeUser(e.User, e.CreationDate, outbox, userKeys)
	}
	if willAddFull {
		outbox.addEvent(e)
	}
	if debug != nil {
		outbox.addEvent(*debug)
	}
}

func (d *dispatcherState) processIdentify(e interfaces.IdentifyEvent, outbox *eventsOutbox, userKeys *userKeyCache) {
	userKeys.noticeUser(e.User.Key)
	outbox.addEvent(e)
}

func (d *dispatcherState) processCustom(e interfaces.CustomEvent, outbox *eventsOutbox, userKeys *userKeyCache) {
	if !d.config.InlineUsersInEvents {
		d.noticeUser(e.User, e.CreationDate, outbox, userKeys)
	}
	outbox.addEvent(e)
}

// noticeUser emits an Index event the first time a user is seen within the current "seen
// recently" window (spec.md 4.5 step 3).
func (d *dispatcherState) noticeUser(user lduser.User, creationDate int64, outbox *eventsOutbox, userKeys *userKeyCache) {
	if user.Key == "" {
		return
	}
	if userKeys.noticeUser(user.Key) {
		d.deduplicatedUsers++
		return
	}
	outbox.addEvent(indexEvent{CreationDate: creationDate, User: user})
}

// shouldDebugEvent implements spec.md 4.5 step 4's server-clock-biased debug window check: a
// debug event is emitted only if debugEventsUntilDate is strictly after both the last known
// server time and the local clock.
func (d *dispatcherState) shouldDebugEvent(e interfaces.FeatureRequestEvent) bool {
	if e.DebugEventsUntilDate <= 0 {
		return false
	}
	d.lock.Lock()
	defer d.lock.Unlock()
	return e.DebugEventsUntilDate > d.lastKnownPastTime && e.DebugEventsUntilDate > nowMillis()
}

func (d *dispatcherState) triggerFlush(outbox *eventsOutbox, flushCh chan<- *flushPayload, workers *sync.WaitGroup) {
	if d.isDisabled() {
		outbox.clear()
		return
	}
	payload := outbox.getPayload()
	total := len(payload.events)
	if payload.summary != nil {
		total++
	}
	if total == 0 {
		d.eventsInLastBatch = 0
		return
	}
	workers.Add(1)
	select {
	case flushCh <- &payload:
		d.eventsInLastBatch = total
		outbox.clear()
	default:
		// No worker is free; retain events and summary for the next tick (spec.md 4.5).
		if payload.summary != nil {
			outbox.summarizer = payload.summary
		}
		workers.Done()
	}
}

func (d *dispatcherState) sendDiagnostic(event interface{}, flushCh chan<- *flushPayload, workers *sync.WaitGroup) {
	workers.Add(1)
	select {
	case flushCh <- &flushPayload{diagnostic: event}:
	default:
		workers.Done()
	}
}

func (d *dispatcherState) isDisabled() bool {
	d.lock.Lock()
	defer d.lock.Unlock()
	return d.disabled
}

// handleResponse is the flush worker's callback after every POST: it disables the processor
// permanently on an unrecoverable status (spec.md 6) and otherwise folds the response's Date
// header into the server-clock estimate used by shouldDebugEvent (spec.md 4.5).
func (d *dispatcherState) handleResponse(r deliveryResult) {
	d.lock.Lock()
	defer d.lock.Unlock()
	if r.unrecoverable {
		d.disabled = true
		d.config.Loggers.Error("received unrecoverable error response from events service; disabling further event delivery")
		return
	}
	if r.serverTime > 0 {
		d.lastKnownPastTime = r.serverTime
	}
}
