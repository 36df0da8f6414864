package eval

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/flagkit/flagkit-go/ldmodel"
	"github.com/flagkit/flagkit-go/ldreason"
	"github.com/flagkit/flagkit-go/lduser"
)

type fakeProvider struct {
	flags    map[string]ldmodel.FeatureFlag
	segments map[string]ldmodel.Segment
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{flags: map[string]ldmodel.FeatureFlag{}, segments: map[string]ldmodel.Segment{}}
}

func (p *fakeProvider) GetFlag(key string) (*ldmodel.FeatureFlag, bool) {
	f, ok := p.flags[key]
	if !ok {
		return nil, false
	}
	return &f, true
}

func (p *fakeProvider) GetSegment(key string) (*ldmodel.Segment, bool) {
	s, ok := p.segments[key]
	if !ok {
		return nil, false
	}
	return &s, true
}

func TestOffFlagReturnsOffValue(t *testing.T) {
	flag := ldmodel.FeatureFlag{
		Key:          "flag",
		On:           false,
		OffVariation: 1,
		Variations:   []interface{}{"red", "green"},
	}
	detail, events := Evaluate(flag, lduser.NewUser("u"), newFakeProvider())
	assert.Equal(t, "green", detail.Value)
	assert.Equal(t, 1, detail.VariationIndex)
	assert.Equal(t, ldreason.KindOff, detail.Reason.Kind())
	assert.Empty(t, events)
}

func TestOffFlagWithNoOffVariationYieldsNullNotError(t *testing.T) {
	flag := ldmodel.FeatureFlag{
		Key:          "flag",
		On:           false,
		OffVariation: -1,
		Variations:   []interface{}{"red", "green"},
	}
	detail, _ := Evaluate(flag, lduser.NewUser("u"), newFakeProvider())
	assert.Nil(t, detail.Value)
	assert.Equal(t, ldreason.NoVariation, detail.VariationIndex)
	assert.Equal(t, ldreason.KindOff, detail.Reason.Kind())
}

func TestTargetHitShortCircuitsRules(t *testing.T) {
	flag := ldmodel.FeatureFlag{
		Key:        "flag",
		On:         true,
		Variations: []interface{}{"A", "B", "C"},
		Targets: []ldmodel.Target{
			{Variation: 0, Values: []string{"alice"}},
		},
		Rules: []ldmodel.Rule{
			{
				Clauses: []ldmodel.Clause{
					{Attribute: "key", Op: ldmodel.OperatorIn, Values: []interface{}{"alice"}},
				},
				VariationOrRollout: ldmodel.VariationOrRollout{HasVariation: true, Variation: 1},
			},
		},
		Fallthrough: ldmodel.VariationOrRollout{HasVariation: true, Variation: 2},
	}
	detail, _ := Evaluate(flag, lduser.NewUser("alice"), newFakeProvider())
	assert.Equal(t, "A", detail.Value)
	assert.Equal(t, 0, detail.VariationIndex)
	assert.Equal(t, ldreason.KindTargetMatch, detail.Reason.Kind())
}

func TestPrerequisiteFailureReturnsOff(t *testing.T) {
	provider := newFakeProvider()
	provider.flags["G"] = ldmodel.FeatureFlag{
		Key:          "G",
		On:           false,
		OffVariation: 1,
		Variations:   []interface{}{"g0", "g1"},
	}
	flagF := ldmodel.FeatureFlag{
		Key:          "F",
		On:           true,
		OffVariation: 0,
		Variations:   []interface{}{"off-value", "on-value"},
		Prerequisites: []ldmodel.Prerequisite{
			{Key: "G", Variation: 0},
		},
		Fallthrough: ldmodel.VariationOrRollout{HasVariation: true, Variation: 1},
	}

	detail, events := Evaluate(flagF, lduser.NewUser("u"), provider)
	assert.Equal(t, "off-value", detail.Value)
	assert.Equal(t, ldreason.KindPrerequisiteFailed, detail.Reason.Kind())
	assert.Equal(t, "G", detail.Reason.PrerequisiteKey())

	if assert.Len(t, events, 1) {
		assert.Equal(t, "F", events[0].PrereqOfFlagKey)
		assert.Equal(t, "G", events[0].Flag.Key)
	}
}

func TestPrerequisiteCycleIsMalformed(t *testing.T) {
	provider := newFakeProvider()
	provider.flags["A"] = ldmodel.FeatureFlag{
		Key: "A", On: true, Variations: []interface{}{"x"},
		Prerequisites: []ldmodel.Prerequisite{{Key: "B", Variation: 0}},
		Fallthrough:   ldmodel.VariationOrRollout{HasVariation: true, Variation: 0},
	}
	flagB := ldmodel.FeatureFlag{
		Key: "B", On: true, Variations: []interface{}{"y"},
		Prerequisites: []ldmodel.Prerequisite{{Key: "A", Variation: 0}},
		Fallthrough:   ldmodel.VariationOrRollout{HasVariation: true, Variation: 0},
	}
	detail, _ := Evaluate(flagB, lduser.NewUser("u"), provider)
	assert.Equal(t, ldreason.KindError, detail.Reason.Kind())
	assert.Equal(t, ldreason.ErrorMalformedFlag, detail.Reason.ErrorKind())
}

func TestRolloutIsDeterministic(t *testing.T) {
	flag := ldmodel.FeatureFlag{
		Key:        "k",
		On:         true,
		Salt:       "s",
		Variations: []interface{}{"v0", "v1"},
		Fallthrough: ldmodel.VariationOrRollout{
			Rollout: ldmodel.Rollout{
				Variations: []ldmodel.WeightedVariation{
					{Variation: 0, Weight: 20000},
					{Variation: 1, Weight: 80000},
				},
			},
		},
	}
	user := lduser.NewUser("userA")
	detail1, _ := Evaluate(flag, user, newFakeProvider())
	detail2, _ := Evaluate(flag, user, newFakeProvider())
	assert.Equal(t, detail1.VariationIndex, detail2.VariationIndex, "identical inputs must bucket identically")
}

func TestRolloutOverflowRoutesToLastVariation(t *testing.T) {
	rollout := ldmodel.Rollout{
		Variations: []ldmodel.WeightedVariation{
			{Variation: 0, Weight: 10000},
			{Variation: 1, Weight: 10000},
		},
	}
	index, ok := variationIndexForBucket(rollout, 0.99)
	assert.True(t, ok)
	assert.Equal(t, 1, index, "weights summing below 100000 must route overflow to the last variation")
}

func TestClauseOnMissingAttributeIsFalseBeforeNegate(t *testing.T) {
	clause := ldmodel.Clause{Attribute: "nope", Op: ldmodel.OperatorIn, Values: []interface{}{"x"}, Negate: false}
	assert.False(t, clauseMatchesUserNoSegments(clause, lduser.NewUser("u")))

	negated := clause
	negated.Negate = true
	assert.True(t, clauseMatchesUserNoSegments(negated, lduser.NewUser("u")))
}

func TestSegmentMatchClause(t *testing.T) {
	provider := newFakeProvider()
	provider.segments["seg"] = ldmodel.Segment{
		Key:      "seg",
		Included: []string{"alice"},
	}
	flag := ldmodel.FeatureFlag{
		Key:        "flag",
		On:         true,
		Variations: []interface{}{"no", "yes"},
		Rules: []ldmodel.Rule{
			{
				Clauses: []ldmodel.Clause{
					{Attribute: "key", Op: ldmodel.OperatorSegmentMatch, Values: []interface{}{"seg"}},
				},
				VariationOrRollout: ldmodel.VariationOrRollout{HasVariation: true, Variation: 1},
			},
		},
		Fallthrough: ldmodel.VariationOrRollout{HasVariation: true, Variation: 0},
	}
	detail, _ := Evaluate(flag, lduser.NewUser("alice"), provider)
	assert.Equal(t, "yes", detail.Value)

	detail, _ = Evaluate(flag, lduser.NewUser("bob"), provider)
	assert.Equal(t, "no", detail.Value)
}

func TestMissingUserKeyIsError(t *testing.T) {
	flag := ldmodel.FeatureFlag{Key: "f", On: true, Variations: []interface{}{"a"}}
	detail, _ := Evaluate(flag, lduser.User{}, newFakeProvider())
	assert.Equal(t, ldreason.ErrorUserNotSpecified, detail.Reason.ErrorKind())
}
