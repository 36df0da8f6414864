package eval

import (
	"github.com/flagkit/flagkit-go/ldmodel"
	"github.com/flagkit/flagkit-go/lduser"

	"golang.org/x/exp/slices"
)

// segmentContainsUser implements spec.md 4.1's Segment match algorithm: excluded wins over
// included, then rules are tried in order.
func segmentContainsUser(segment ldmodel.Segment, user lduser.User) bool {
	if user.Key == "" {
		return false
	}
	if slices.Contains(segment.Excluded, user.Key) {
		return false
	}
	if slices.Contains(segment.Included, user.Key) {
		return true
	}
	for _, rule := range segment.Rules {
		if segmentRuleMatchesUser(rule, user, segment.Key, segment.Salt) {
			return true
		}
	}
	return false
}

func segmentRuleMatchesUser(rule ldmodel.SegmentRule, user lduser.User, segmentKey, salt string) bool {
	for _, clause := range rule.Clauses {
		if !clauseMatchesUserNoSegments(clause, user) {
			return false
		}
	}
	if rule.Weight == nil {
		return true
	}
	bucketBy := rule.BucketBy
	bucket := bucketValue(user, bucketBy, segmentKey, salt)
	return bucket < float64(*rule.Weight)/100000.0
}
