package ldevents

import (
	"github.com/flagkit/flagkit-go/interfaces"
)

// counterKey groups a summary counter by the exact (variation, flag version) combination that
// produced it, per spec.md 4.5 ("per (flagKey, variation index, flag version)"). An evaluation
// that produced no variation index (an ERROR/MALFORMED_FLAG/FLAG_NOT_FOUND result) still gets its
// own counter, distinct from every numbered variation.
type counterKey struct {
	hasVariation bool
	variation    int
	version      int
}

type counterValue struct {
	count int
	value interface{}
}

type flagSummary struct {
	defaultValue interface{}
	counters     map[counterKey]*counterValue
}

// eventSummarizer accumulates per-flag evaluation counters for the current flush interval. It is
// a from-scratch, User-keyed rewrite of launchdarkly-go-server-sdk/ldevents's (source-absent,
// Context-keyed) eventSummarizer, whose behavior is pinned down by that package's
// event_summarizer_test.go: same startDate/endDate tracking, same counter identity rules.
type eventSummarizer struct {
	startDate int64
	endDate   int64
	flags     map[string]*flagSummary
}

func newEventSummarizer() *eventSummarizer {
	return &eventSummarizer{flags: make(map[string]*flagSummary)}
}

func (s *eventSummarizer) summarizeEvent(e interfaces.FeatureRequestEvent) {
	if s.startDate == 0 || e.CreationDate < s.startDate {
		s.startDate = e.CreationDate
	}
	if e.CreationDate > s.endDate {
		s.endDate = e.CreationDate
	}

	fs, ok := s.flags[e.FlagKey]
	if !ok {
		fs = &flagSummary{defaultValue: e.Default, counters: make(map[counterKey]*counterValue)}
		s.flags[e.FlagKey] = fs
	}

	key := counterKey{hasVariation: e.HasVariation, variation: e.Variation, version: e.FlagVersion}
	if c, ok := fs.counters[key]; ok {
		c.count++
	} else {
		fs.counters[key] = &counterValue{count: 1, value: e.Value}
	}
}

// snapshot returns the accumulated state and resets the summarizer, per spec.md 4.5 ("The
// summarizer is reset on flush.").
func (s *eventSummarizer) snapshot() *eventSummarizer {
	if len(s.flags) == 0 {
		return nil
	}
	out := *s
	s.startDate = 0
	s.endDate = 0
	s.flags = make(map[string]*flagSummary)
	return &out
}
