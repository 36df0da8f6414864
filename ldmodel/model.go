// Package ldmodel defines the versioned flag and segment data types that flow through the data
// store and the evaluator.
package ldmodel

import "encoding/json"

// Prerequisite is a (flagKey, requiredVariationIndex) pair. A prerequisite passes iff the named
// flag is on and evaluates to the required variation index.
type Prerequisite struct {
	Key       string `json:"key"`
	Variation int    `json:"variation"`
}

// Target is an exact-match fast path: every user key in Values receives Variation.
type Target struct {
	Variation int      `json:"variation"`
	Values    []string `json:"values"`
}

// WeightedVariation is one entry of a rollout: Variation gets Weight parts of 100000 of the
// bucket space.
type WeightedVariation struct {
	Variation int `json:"variation"`
	Weight    int `json:"weight"`
}

// Rollout is a set of weighted variations bucketed on BucketBy (default "key" when empty).
type Rollout struct {
	Variations []WeightedVariation `json:"variations"`
	BucketBy   string              `json:"bucketBy,omitempty"`
}

// VariationOrRollout resolves to exactly one of a fixed Variation index or a Rollout. HasVariation
// distinguishes a legitimately-zero Variation from "use the rollout instead".
type VariationOrRollout struct {
	HasVariation bool    `json:"-"`
	Variation    int     `json:"variation,omitempty"`
	Rollout      Rollout `json:"rollout,omitempty"`
}

// UnmarshalJSON treats presence of the "variation" key (as opposed to "rollout") as HasVariation,
// since the wire format uses "exactly one of" encoding rather than a discriminator tag.
func (v *VariationOrRollout) UnmarshalJSON(data []byte) error {
	var raw struct {
		Variation *int    `json:"variation"`
		Rollout   Rollout `json:"rollout"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Variation != nil {
		v.HasVariation = true
		v.Variation = *raw.Variation
	} else {
		v.HasVariation = false
		v.Rollout = raw.Rollout
	}
	return nil
}

// Operator names a clause comparison. See the eval package for their semantics.
type Operator string

// Clause operators, matching spec.md 4.1.
const (
	OperatorIn                 Operator = "in"
	OperatorEndsWith           Operator = "endsWith"
	OperatorStartsWith         Operator = "startsWith"
	OperatorContains           Operator = "contains"
	OperatorMatches            Operator = "matches"
	OperatorLessThan           Operator = "lessThan"
	OperatorLessThanOrEqual    Operator = "lessThanOrEqual"
	OperatorGreaterThan        Operator = "greaterThan"
	OperatorGreaterThanOrEqual Operator = "greaterThanOrEqual"
	OperatorBefore             Operator = "before"
	OperatorAfter              Operator = "after"
	OperatorSemVerEqual        Operator = "semVerEqual"
	OperatorSemVerLessThan     Operator = "semVerLessThan"
	OperatorSemVerGreaterThan  Operator = "semVerGreaterThan"
	OperatorSegmentMatch       Operator = "segmentMatch"
)

// Clause is a single condition: Attribute Operator any-of(Values), optionally Negated.
type Clause struct {
	Attribute string        `json:"attribute"`
	Op        Operator      `json:"op"`
	Values    []interface{} `json:"values"`
	Negate    bool          `json:"negate,omitempty"`
}

// Rule is an ordered list of clauses (AND-composed) plus the variation it resolves to when all
// clauses match.
type Rule struct {
	ID                 string             `json:"id,omitempty"`
	Clauses            []Clause           `json:"clauses"`
	VariationOrRollout VariationOrRollout `json:"variationOrRollout"`
	TrackEvents        bool               `json:"trackEvents,omitempty"`
}

// FeatureFlag is a keyed, versioned flag definition.
type FeatureFlag struct {
	Key           string        `json:"key"`
	Version       int           `json:"version"`
	On            bool          `json:"on"`
	Prerequisites []Prerequisite `json:"prerequisites,omitempty"`
	Targets       []Target      `json:"targets,omitempty"`
	Rules         []Rule        `json:"rules,omitempty"`
	Fallthrough   VariationOrRollout `json:"fallthrough"`
	// OffVariation is the variation served when On is false. -1 means "no off variation" (the
	// flag evaluates to a null value with no variation index, but reason OFF, not an error).
	OffVariation           int           `json:"offVariation"`
	Variations             []interface{} `json:"variations"`
	Salt                   string        `json:"salt,omitempty"`
	TrackEvents            bool          `json:"trackEvents,omitempty"`
	TrackEventsFallthrough bool          `json:"trackEventsFallthrough,omitempty"`
	// DebugEventsUntilDate, if non-zero, is an epoch-millisecond deadline until which matching
	// FeatureRequest events are also emitted as Debug events.
	DebugEventsUntilDate int64 `json:"debugEventsUntilDate,omitempty"`
	ClientSide           bool  `json:"clientSide,omitempty"`
	Deleted              bool  `json:"deleted,omitempty"`
}

// HasOffVariation reports whether OffVariation addresses a real variation.
func (f *FeatureFlag) HasOffVariation() bool {
	return f.OffVariation >= 0 && f.OffVariation < len(f.Variations)
}

// SegmentRule is an ordered rule within a Segment: all Clauses must match, and if Weight is
// non-nil the match is additionally gated by a bucket comparison.
type SegmentRule struct {
	Clauses  []Clause `json:"clauses"`
	Weight   *int     `json:"weight,omitempty"` // parts of 100000, nil means "no weight gate"
	BucketBy string   `json:"bucketBy,omitempty"`
}

// Segment is a keyed, versioned named set of users.
type Segment struct {
	Key      string        `json:"key"`
	Version  int           `json:"version"`
	Included []string      `json:"included,omitempty"`
	Excluded []string      `json:"excluded,omitempty"`
	Rules    []SegmentRule `json:"rules,omitempty"`
	Salt     string        `json:"salt,omitempty"`
	Deleted  bool          `json:"deleted,omitempty"`
}

// Kind identifies one of the two namespaces the data store holds (spec.md 9: "Polymorphism over
// kinds"). Code branches on the descriptor rather than on concrete item type.
type Kind struct {
	// Name is the store namespace, and the streaming "path" prefix segment (e.g. "/flags/<key>").
	Name string
}

// Features is the flag namespace.
var Features = Kind{Name: "features"}

// Segments is the segment namespace.
var Segments = Kind{Name: "segments"}

// AllKinds enumerates every namespace the store understands.
var AllKinds = []Kind{Features, Segments}
