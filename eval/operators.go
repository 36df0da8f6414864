package eval

import (
	"regexp"
	"strings"
	"time"

	"github.com/blang/semver"

	"github.com/flagkit/flagkit-go/ldmodel"
)

// opFn compares a single user attribute value against a single clause literal. Incompatible types
// yield false rather than an error, per spec.md 4.1.
type opFn func(userValue, clauseValue interface{}) bool

var operatorFns = map[ldmodel.Operator]opFn{
	ldmodel.OperatorIn:                 operatorIn,
	ldmodel.OperatorEndsWith:           stringOp(strings.HasSuffix),
	ldmodel.OperatorStartsWith:         stringOp(strings.HasPrefix),
	ldmodel.OperatorContains:           stringOp(strings.Contains),
	ldmodel.OperatorMatches:            operatorMatches,
	ldmodel.OperatorLessThan:           numericOp(func(a, b float64) bool { return a < b }),
	ldmodel.OperatorLessThanOrEqual:    numericOp(func(a, b float64) bool { return a <= b }),
	ldmodel.OperatorGreaterThan:        numericOp(func(a, b float64) bool { return a > b }),
	ldmodel.OperatorGreaterThanOrEqual: numericOp(func(a, b float64) bool { return a >= b }),
	ldmodel.OperatorBefore:             dateOp(func(a, b time.Time) bool { return a.Before(b) }),
	ldmodel.OperatorAfter:              dateOp(func(a, b time.Time) bool { return a.After(b) }),
	ldmodel.OperatorSemVerEqual:        semVerOp(func(c int) bool { return c == 0 }),
	ldmodel.OperatorSemVerLessThan:     semVerOp(func(c int) bool { return c < 0 }),
	ldmodel.OperatorSemVerGreaterThan:  semVerOp(func(c int) bool { return c > 0 }),
}

func operatorIn(userValue, clauseValue interface{}) bool {
	return deepEqual(userValue, clauseValue)
}

func deepEqual(a, b interface{}) bool {
	if a == b {
		return true
	}
	// numbers decoded from JSON literals in clause values may be float64 while a user's custom
	// attribute might be int, or vice versa; compare numerically when both sides are numeric.
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if aok && bok {
		return af == bf
	}
	return false
}

func stringOp(f func(s, substr string) bool) opFn {
	return func(userValue, clauseValue interface{}) bool {
		s, ok1 := userValue.(string)
		sub, ok2 := clauseValue.(string)
		if !ok1 || !ok2 {
			return false
		}
		return f(s, sub)
	}
}

func operatorMatches(userValue, clauseValue interface{}) bool {
	s, ok1 := userValue.(string)
	pattern, ok2 := clauseValue.(string)
	if !ok1 || !ok2 {
		return false
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return false
	}
	return re.FindStringIndex(s) != nil
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func numericOp(f func(a, b float64) bool) opFn {
	return func(userValue, clauseValue interface{}) bool {
		a, ok1 := toFloat(userValue)
		b, ok2 := toFloat(clauseValue)
		if !ok1 || !ok2 {
			return false
		}
		return f(a, b)
	}
}

func parseDateTime(v interface{}) (time.Time, bool) {
	switch val := v.(type) {
	case string:
		t, err := time.Parse(time.RFC3339Nano, val)
		if err != nil {
			t, err = time.Parse(time.RFC3339, val)
			if err != nil {
				return time.Time{}, false
			}
		}
		return t.UTC(), true
	case float64:
		return time.UnixMilli(int64(val)).UTC(), true
	case int64:
		return time.UnixMilli(val).UTC(), true
	case int:
		return time.UnixMilli(int64(val)).UTC(), true
	default:
		return time.Time{}, false
	}
}

func dateOp(f func(a, b time.Time) bool) opFn {
	return func(userValue, clauseValue interface{}) bool {
		a, ok1 := parseDateTime(userValue)
		b, ok2 := parseDateTime(clauseValue)
		if !ok1 || !ok2 {
			return false
		}
		return f(a, b)
	}
}

// semVerZeroPadRegex recognizes a version that's missing its minor and/or patch group, the same
// tolerance a hand-rolled semver comparator applies before delegating to a real
// parser.
var semVerZeroPadRegex = regexp.MustCompile(`^\d+(\.\d+)?(\.\d+)?`)

func parseSemVer(v interface{}) (semver.Version, bool) {
	s, ok := v.(string)
	if !ok {
		return semver.Version{}, false
	}
	if !semVerZeroPadRegex.MatchString(s) {
		return semver.Version{}, false
	}
	match := semVerZeroPadRegex.FindString(s)
	rest := s[len(match):]
	groups := strings.Count(match, ".")
	padded := match
	for groups < 2 {
		padded += ".0"
		groups++
	}
	parsed, err := semver.Parse(padded + rest)
	if err != nil {
		return semver.Version{}, false
	}
	return parsed, true
}

func semVerOp(f func(cmp int) bool) opFn {
	return func(userValue, clauseValue interface{}) bool {
		a, ok1 := parseSemVer(userValue)
		b, ok2 := parseSemVer(clauseValue)
		if !ok1 || !ok2 {
			return false
		}
		return f(a.Compare(b))
	}
}
