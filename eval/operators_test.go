package eval

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStringOperators(t *testing.T) {
	assert.True(t, operatorFns["endsWith"]("foobar", "bar"))
	assert.False(t, operatorFns["endsWith"]("foobar", "baz"))
	assert.True(t, operatorFns["startsWith"]("foobar", "foo"))
	assert.True(t, operatorFns["contains"]("foobar", "oob"))
	assert.True(t, operatorFns["matches"]("foo123", `\d+`))
}

func TestNumericOperators(t *testing.T) {
	assert.True(t, operatorFns["lessThan"](1.0, 2.0))
	assert.True(t, operatorFns["lessThanOrEqual"](2.0, 2.0))
	assert.True(t, operatorFns["greaterThan"](3, 2.0))
	assert.False(t, operatorFns["greaterThan"]("not-a-number", 2.0))
}

func TestDateOperators(t *testing.T) {
	assert.True(t, operatorFns["before"]("2020-01-01T00:00:00Z", "2021-01-01T00:00:00Z"))
	assert.True(t, operatorFns["after"]("2021-01-01T00:00:00Z", "2020-01-01T00:00:00Z"))
	// epoch millis form
	assert.True(t, operatorFns["before"](float64(0), float64(1000)))
}

func TestSemVerOperatorsToleratesTrailingZeroGroups(t *testing.T) {
	assert.True(t, operatorFns["semVerEqual"]("2.0", "2.0.0"))
	assert.True(t, operatorFns["semVerLessThan"]("1.0.0", "1.1"))
	assert.True(t, operatorFns["semVerGreaterThan"]("2.0.1", "2.0.0"))
	assert.False(t, operatorFns["semVerEqual"]("not-a-version", "1.0.0"))
}

func TestInOperatorDeepEqual(t *testing.T) {
	assert.True(t, operatorFns["in"]("a", "a"))
	assert.True(t, operatorFns["in"](1, 1.0))
	assert.False(t, operatorFns["in"]("a", "b"))
}
