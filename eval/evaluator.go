// Package eval implements the deterministic flag evaluation algorithm described in spec.md 4.1:
// prerequisite chaining, target lists, ordered rule evaluation, percentage rollouts, and typed
// value coercion with structured reasons.
package eval

import (
	"github.com/flagkit/flagkit-go/ldmodel"
	"github.com/flagkit/flagkit-go/ldreason"
	"github.com/flagkit/flagkit-go/lduser"
)

// DataProvider is the read-only view of the Data Store the Evaluator needs: flags by key (for
// prerequisites) and segments by key (for segmentMatch clauses). It is satisfied by a thin
// adapter over interfaces.DataStore (datastore.DataProvider) that type-asserts the stored items.
type DataProvider interface {
	GetFlag(key string) (*ldmodel.FeatureFlag, bool)
	GetSegment(key string) (*ldmodel.Segment, bool)
}

// PrerequisiteEvent is emitted once per prerequisite evaluated, pass or fail, per spec.md 4.1
// step 2 ("Emit an event for every prerequisite evaluated, pass or fail.").
type PrerequisiteEvent struct {
	PrereqOfFlagKey string
	Flag            ldmodel.FeatureFlag
	Detail          ldreason.EvaluationDetail
}

// Evaluate is the Evaluator's sole entry point: evaluate(flag, user, store) -> (detail,
// prerequisiteEvents). It is pure aside from synchronous provider reads and must never panic;
// every exceptional path becomes an ERROR reason.
func Evaluate(
	flag ldmodel.FeatureFlag,
	user lduser.User,
	provider DataProvider,
) (ldreason.EvaluationDetail, []PrerequisiteEvent) {
	if user.Key == "" {
		return errorDetail(ldreason.ErrorUserNotSpecified), nil
	}

	visited := map[string]bool{flag.Key: true}
	return evaluateInternal(flag, user, provider, visited)
}

func evaluateInternal(
	flag ldmodel.FeatureFlag,
	user lduser.User,
	provider DataProvider,
	visited map[string]bool,
) (ldreason.EvaluationDetail, []PrerequisiteEvent) {
	if !flag.On {
		return offResult(flag, ldreason.NewEvalReasonOff()), nil
	}

	var events []PrerequisiteEvent
	for _, prereq := range flag.Prerequisites {
		if visited[prereq.Key] {
			return errorDetail(ldreason.ErrorMalformedFlag), events
		}
		prereqFlag, ok := provider.GetFlag(prereq.Key)
		if !ok {
			return offResult(flag, ldreason.NewEvalReasonPrerequisiteFailed(prereq.Key)), events
		}

		childVisited := make(map[string]bool, len(visited)+1)
		for k := range visited {
			childVisited[k] = true
		}
		childVisited[prereq.Key] = true

		prereqDetail, prereqEvents := evaluateInternal(*prereqFlag, user, provider, childVisited)
		events = append(events, prereqEvents...)
		events = append(events, PrerequisiteEvent{
			PrereqOfFlagKey: flag.Key,
			Flag:            *prereqFlag,
			Detail:          prereqDetail,
		})

		// A malformed prerequisite (including one that closes a cycle) makes this flag malformed too.
		if prereqDetail.Reason.Kind() == ldreason.KindError &&
			prereqDetail.Reason.ErrorKind() == ldreason.ErrorMalformedFlag {
			return errorDetail(ldreason.ErrorMalformedFlag), events
		}

		if !prereqFlag.On || prereqDetail.VariationIndex != prereq.Variation {
			return offResult(flag, ldreason.NewEvalReasonPrerequisiteFailed(prereq.Key)), events
		}
	}

	for _, target := range flag.Targets {
		for _, key := range target.Values {
			if key == user.Key {
				detail, ok := variationDetail(flag, target.Variation, ldreason.NewEvalReasonTargetMatch())
				if !ok {
					return errorDetail(ldreason.ErrorMalformedFlag), events
				}
				return detail, events
			}
		}
	}

	for i, rule := range flag.Rules {
		if ruleMatchesUser(rule, user, provider) {
			variation, ok := variationOrRolloutIndex(rule.VariationOrRollout, user, flag.Key, flag.Salt)
			if !ok {
				return errorDetail(ldreason.ErrorMalformedFlag), events
			}
			detail, ok := variationDetail(flag, variation, ldreason.NewEvalReasonRuleMatch(i, rule.ID))
			if !ok {
				return errorDetail(ldreason.ErrorMalformedFlag), events
			}
			return detail, events
		}
	}

	variation, ok := variationOrRolloutIndex(flag.Fallthrough, user, flag.Key, flag.Salt)
	if !ok {
		return errorDetail(ldreason.ErrorMalformedFlag), events
	}
	detail, ok := variationDetail(flag, variation, ldreason.NewEvalReasonFallthrough())
	if !ok {
		return errorDetail(ldreason.ErrorMalformedFlag), events
	}
	return detail, events
}

// offResult returns the flag's off-variation result, or a null value with no variation index
// (but still reason OFF, not an error) if there is no off variation.
func offResult(flag ldmodel.FeatureFlag, reason ldreason.Reason) ldreason.EvaluationDetail {
	if !flag.HasOffVariation() {
		return ldreason.EvaluationDetail{Value: nil, VariationIndex: ldreason.NoVariation, Reason: reason}
	}
	detail, ok := variationDetail(flag, flag.OffVariation, reason)
	if !ok {
		return errorDetail(ldreason.ErrorMalformedFlag)
	}
	return detail
}

func variationDetail(flag ldmodel.FeatureFlag, index int, reason ldreason.Reason) (ldreason.EvaluationDetail, bool) {
	if index < 0 || index >= len(flag.Variations) {
		return ldreason.EvaluationDetail{}, false
	}
	return ldreason.EvaluationDetail{
		Value:          flag.Variations[index],
		VariationIndex: index,
		Reason:         reason,
	}, true
}

func errorDetail(kind ldreason.ErrorKind) ldreason.EvaluationDetail {
	return ldreason.EvaluationDetail{
		Value:          nil,
		VariationIndex: ldreason.NoVariation,
		Reason:         ldreason.NewEvalReasonError(kind),
	}
}

func ruleMatchesUser(rule ldmodel.Rule, user lduser.User, provider DataProvider) bool {
	for _, clause := range rule.Clauses {
		if !clauseMatchesUser(clause, user, provider) {
			return false
		}
	}
	return true
}

func clauseMatchesUser(clause ldmodel.Clause, user lduser.User, provider DataProvider) bool {
	if clause.Op == ldmodel.OperatorSegmentMatch {
		matched := false
		for _, v := range clause.Values {
			segKey, ok := v.(string)
			if !ok {
				continue
			}
			segment, ok := provider.GetSegment(segKey)
			if !ok {
				continue
			}
			if segmentContainsUser(*segment, user) {
				matched = true
				break
			}
		}
		return matched != clause.Negate
	}
	return clauseMatchesUserNoSegments(clause, user)
}

func clauseMatchesUserNoSegments(clause ldmodel.Clause, user lduser.User) bool {
	userValue, ok := user.GetAttribute(clause.Attribute)
	if !ok {
		// An absent attribute is false before negation is applied, per spec.md 4.1.
		return false != clause.Negate
	}

	fn, ok := operatorFns[clause.Op]
	if !ok {
		return false != clause.Negate
	}

	matched := matchAny(fn, userValue, clause.Values)
	return matched != clause.Negate
}

// matchAny implements the multi-valued-attribute rule: the clause matches if ANY element of a
// multi-valued user attribute matches ANY literal in the clause.
func matchAny(fn opFn, userValue interface{}, clauseValues []interface{}) bool {
	values := asSlice(userValue)
	for _, uv := range values {
		for _, cv := range clauseValues {
			if fn(uv, cv) {
				return true
			}
		}
	}
	return false
}

func asSlice(v interface{}) []interface{} {
	switch val := v.(type) {
	case []interface{}:
		return val
	case []string:
		out := make([]interface{}, len(val))
		for i, s := range val {
			out[i] = s
		}
		return out
	default:
		return []interface{}{v}
	}
}
