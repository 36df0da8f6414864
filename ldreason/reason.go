// Package ldreason defines the structured explanation attached to every flag evaluation result.
package ldreason

import "encoding/json"

// Kind identifies which branch of the evaluation algorithm produced a result.
type Kind string

// Kind values, one per branch of the algorithm described in spec.md 4.1.
const (
	KindOff               Kind = "OFF"
	KindFallthrough       Kind = "FALLTHROUGH"
	KindTargetMatch       Kind = "TARGET_MATCH"
	KindRuleMatch         Kind = "RULE_MATCH"
	KindPrerequisiteFailed Kind = "PREREQUISITE_FAILED"
	KindError             Kind = "ERROR"
)

// ErrorKind identifies why an evaluation produced an ERROR reason.
type ErrorKind string

// ErrorKind values.
const (
	ErrorClientNotReady   ErrorKind = "CLIENT_NOT_READY"
	ErrorFlagNotFound     ErrorKind = "FLAG_NOT_FOUND"
	ErrorMalformedFlag    ErrorKind = "MALFORMED_FLAG"
	ErrorUserNotSpecified ErrorKind = "USER_NOT_SPECIFIED"
	ErrorWrongType        ErrorKind = "WRONG_TYPE"
	ErrorException        ErrorKind = "EXCEPTION"
)

// Reason is an immutable tagged union describing how an evaluation result was reached.
type Reason struct {
	kind            Kind
	ruleIndex       int
	ruleID          string
	prerequisiteKey string
	errorKind       ErrorKind
}

// Kind returns which branch of the algorithm produced this reason.
func (r Reason) Kind() Kind { return r.kind }

// RuleIndex returns the zero-based index of the matched rule. Only meaningful for RULE_MATCH.
func (r Reason) RuleIndex() int { return r.ruleIndex }

// RuleID returns the stable identifier of the matched rule. Only meaningful for RULE_MATCH.
func (r Reason) RuleID() string { return r.ruleID }

// PrerequisiteKey returns the key of the prerequisite flag that failed. Only meaningful for
// PREREQUISITE_FAILED.
func (r Reason) PrerequisiteKey() string { return r.prerequisiteKey }

// ErrorKind returns the specific error kind. Only meaningful for ERROR.
func (r Reason) ErrorKind() ErrorKind { return r.errorKind }

// NewEvalReasonOff returns a reason indicating the flag was off.
func NewEvalReasonOff() Reason { return Reason{kind: KindOff} }

// NewEvalReasonFallthrough returns a reason indicating the fallthrough was used.
func NewEvalReasonFallthrough() Reason { return Reason{kind: KindFallthrough} }

// NewEvalReasonTargetMatch returns a reason indicating an explicit per-user target matched.
func NewEvalReasonTargetMatch() Reason { return Reason{kind: KindTargetMatch} }

// NewEvalReasonRuleMatch returns a reason indicating the given rule matched.
func NewEvalReasonRuleMatch(ruleIndex int, ruleID string) Reason {
	return Reason{kind: KindRuleMatch, ruleIndex: ruleIndex, ruleID: ruleID}
}

// NewEvalReasonPrerequisiteFailed returns a reason indicating the named prerequisite failed.
func NewEvalReasonPrerequisiteFailed(key string) Reason {
	return Reason{kind: KindPrerequisiteFailed, prerequisiteKey: key}
}

// NewEvalReasonError returns a reason indicating evaluation could not complete normally.
func NewEvalReasonError(kind ErrorKind) Reason {
	return Reason{kind: KindError, errorKind: kind}
}

// EvaluationDetail bundles a value with the index of the variation it came from and the reason
// it was selected.
type EvaluationDetail struct {
	Value                interface{}
	VariationIndex       int
	IsDefaultVariation   bool
	Reason               Reason
}

// NoVariation is used for VariationIndex when no variation index applies (off with no
// offVariation, or an error).
const NoVariation = -1

// MarshalJSON renders Reason as the wire shape spec.md 6 expects for a feature event's "reason"
// field: a "kind" discriminator plus whichever of the kind-specific fields apply.
func (r Reason) MarshalJSON() ([]byte, error) {
	m := map[string]interface{}{"kind": string(r.kind)}
	switch r.kind {
	case KindRuleMatch:
		m["ruleIndex"] = r.ruleIndex
		m["ruleId"] = r.ruleID
	case KindPrerequisiteFailed:
		m["prerequisiteKey"] = r.prerequisiteKey
	case KindError:
		m["errorKind"] = string(r.errorKind)
	}
	return json.Marshal(m)
}
