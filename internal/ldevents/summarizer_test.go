package ldevents

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/flagkit/flagkit-go/interfaces"
	"github.com/flagkit/flagkit-go/lduser"
)

func featureEvent(creationDate int64, flagKey string, version int, variation int, value, def string) interfaces.FeatureRequestEvent {
	return interfaces.FeatureRequestEvent{
		CreationDate: creationDate,
		FlagKey:      flagKey,
		FlagVersion:  version,
		HasVariation: true,
		Variation:    variation,
		Value:        value,
		Default:      def,
		User:         lduser.NewUser("key"),
	}
}

func TestSummarizeEventSetsStartAndEndDates(t *testing.T) {
	s := newEventSummarizer()
	s.summarizeEvent(featureEvent(2000, "flag", 1, 0, "", ""))
	s.summarizeEvent(featureEvent(1000, "flag", 1, 0, "", ""))
	s.summarizeEvent(featureEvent(1500, "flag", 1, 0, "", ""))

	snap := s.snapshot()
	assert.Equal(t, int64(1000), snap.startDate)
	assert.Equal(t, int64(2000), snap.endDate)
}

func TestSummarizeEventIncrementsCounters(t *testing.T) {
	s := newEventSummarizer()
	s.summarizeEvent(featureEvent(0, "flag1", 11, 1, "value1", "default1"))
	s.summarizeEvent(featureEvent(0, "flag1", 11, 2, "value2", "default1"))
	s.summarizeEvent(featureEvent(0, "flag2", 22, 1, "value99", "default2"))
	s.summarizeEvent(featureEvent(0, "flag1", 11, 1, "value1", "default1"))

	snap := s.snapshot()
	flag1 := snap.flags["flag1"]
	assert.Equal(t, "default1", flag1.defaultValue)
	assert.Equal(t, 2, flag1.counters[counterKey{hasVariation: true, variation: 1, version: 11}].count)
	assert.Equal(t, 1, flag1.counters[counterKey{hasVariation: true, variation: 2, version: 11}].count)

	flag2 := snap.flags["flag2"]
	assert.Equal(t, "default2", flag2.defaultValue)
	assert.Equal(t, 1, flag2.counters[counterKey{hasVariation: true, variation: 1, version: 22}].count)
}

func TestCounterForMissingVariationIsDistinctFromOthers(t *testing.T) {
	s := newEventSummarizer()
	s.summarizeEvent(featureEvent(0, "flag", 11, 1, "value1", "default1"))
	noVariation := interfaces.FeatureRequestEvent{
		CreationDate: 0, FlagKey: "flag", FlagVersion: 11, HasVariation: false,
		Value: "default1", Default: "default1", User: lduser.NewUser("key"),
	}
	s.summarizeEvent(noVariation)

	snap := s.snapshot()
	flag := snap.flags["flag"]
	assert.Len(t, flag.counters, 2)
	assert.Equal(t, 1, flag.counters[counterKey{hasVariation: true, variation: 1, version: 11}].count)
	assert.Equal(t, 1, flag.counters[counterKey{hasVariation: false, version: 11}].count)
}

func TestSnapshotResetsSummarizer(t *testing.T) {
	s := newEventSummarizer()
	s.summarizeEvent(featureEvent(100, "flag", 1, 0, "v", "d"))
	first := s.snapshot()
	assert.NotNil(t, first)

	assert.Nil(t, s.snapshot())
	assert.Equal(t, int64(0), s.startDate)
}
