// Package flagstate holds the return type of Client.AllFlagsState: a snapshot of every flag's
// evaluated value for one user, plus the metadata a client-side bootstrap payload needs. Grounded
// on launchdarkly-go-server-sdk/interfaces/flagstate/flags_state.go, trimmed to plain
// encoding/json (no streaming JSON writer) since SPEC_FULL.md has no wire-volume requirement here.
package flagstate

import (
	"encoding/json"
	"time"

	"github.com/flagkit/flagkit-go/ldreason"
	"github.com/flagkit/flagkit-go/ldvalue"
)

// FlagState is one flag's evaluation result as of the moment AllFlagsState was called.
type FlagState struct {
	Value                ldvalue.Value
	Variation            int // -1 means "no variation index" (ldreason.NoVariation)
	Version              int
	Reason               ldreason.Reason
	TrackEvents          bool
	DebugEventsUntilDate int64
}

// AllFlags is a snapshot of every flag's FlagState for one user.
type AllFlags struct {
	flags map[string]FlagState
	valid bool
}

// IsValid reports whether AllFlagsState succeeded. A false value (with an empty flag set) means
// the data store was unavailable or the client was offline.
func (a AllFlags) IsValid() bool {
	return a.valid
}

// GetFlag looks up one flag's recorded state.
func (a AllFlags) GetFlag(flagKey string) (FlagState, bool) {
	f, ok := a.flags[flagKey]
	return f, ok
}

// ToValuesMap returns a flat map of flag key to value, discarding all other metadata.
func (a AllFlags) ToValuesMap() map[string]ldvalue.Value {
	ret := make(map[string]ldvalue.Value, len(a.flags))
	for k, v := range a.flags {
		ret[k] = v.Value
	}
	return ret
}

type jsonFlagMeta struct {
	Variation            *int             `json:"variation,omitempty"`
	Version              int              `json:"version"`
	Reason               *ldreason.Reason `json:"reason,omitempty"`
	TrackEvents          bool             `json:"trackEvents,omitempty"`
	DebugEventsUntilDate int64            `json:"debugEventsUntilDate,omitempty"`
}

// MarshalJSON produces the flat-values-plus-"$flagsState"-metadata shape the client-side JS SDK
// bootstrap expects: every flag key at the top level holding its value, plus "$valid" and
// "$flagsState" siblings.
func (a AllFlags) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(a.flags)+2)
	meta := make(map[string]jsonFlagMeta, len(a.flags))
	for key, flag := range a.flags {
		out[key] = flag.Value
		m := jsonFlagMeta{
			Version:              flag.Version,
			TrackEvents:          flag.TrackEvents,
			DebugEventsUntilDate: flag.DebugEventsUntilDate,
		}
		if flag.Reason.Kind() != "" {
			r := flag.Reason
			m.Reason = &r
		}
		if flag.Variation != ldreason.NoVariation {
			v := flag.Variation
			m.Variation = &v
		}
		meta[key] = m
	}
	out["$valid"] = a.valid
	out["$flagsState"] = meta
	return json.Marshal(out)
}

// Option configures an AllFlagsBuilder.
type Option interface {
	apply(*allFlagsOptions)
}

type allFlagsOptions struct {
	clientSideOnly       bool
	withReasons          bool
	detailsOnlyIfTracked bool
}

type optionFunc func(*allFlagsOptions)

func (f optionFunc) apply(o *allFlagsOptions) { f(o) }

// OptionClientSideOnly restricts the snapshot to flags marked for client-side use.
func OptionClientSideOnly() Option {
	return optionFunc(func(o *allFlagsOptions) { o.clientSideOnly = true })
}

// OptionWithReasons includes each flag's evaluation reason in the snapshot.
func OptionWithReasons() Option {
	return optionFunc(func(o *allFlagsOptions) { o.withReasons = true })
}

// OptionDetailsOnlyForTrackedFlags, combined with OptionWithReasons, omits the reason for flags
// that have neither TrackEvents nor an active debug window. Version and variation metadata are
// still included for every flag.
func OptionDetailsOnlyForTrackedFlags() Option {
	return optionFunc(func(o *allFlagsOptions) { o.detailsOnlyIfTracked = true })
}

// AllFlagsBuilder accumulates FlagState entries into an AllFlags snapshot.
type AllFlagsBuilder struct {
	flags   map[string]FlagState
	valid   bool
	options allFlagsOptions
}

// NewAllFlagsBuilder constructs a builder. ClientSideOnly filtering must be applied by the caller
// before calling AddFlag, since only the caller knows each flag's ClientSide bit.
func NewAllFlagsBuilder(options ...Option) *AllFlagsBuilder {
	b := &AllFlagsBuilder{flags: make(map[string]FlagState), valid: true}
	for _, o := range options {
		o.apply(&b.options)
	}
	return b
}

// Options returns the resolved option set, so callers can check ClientSideOnly before deciding
// whether to call AddFlag for a given flag.
func (b *AllFlagsBuilder) Options() (clientSideOnly, withReasons, detailsOnlyIfTracked bool) {
	return b.options.clientSideOnly, b.options.withReasons, b.options.detailsOnlyIfTracked
}

// AddFlag records one flag's state, dropping its Reason if the builder's options say it
// shouldn't be included.
func (b *AllFlagsBuilder) AddFlag(flagKey string, flag FlagState) *AllFlagsBuilder {
	wantReason := b.options.withReasons
	if wantReason && b.options.detailsOnlyIfTracked {
		nowMillis := time.Now().UnixNano() / int64(time.Millisecond)
		tracked := flag.TrackEvents || flag.DebugEventsUntilDate > nowMillis
		wantReason = tracked
	}
	if !wantReason {
		flag.Reason = ldreason.Reason{}
	}
	b.flags[flagKey] = flag
	return b
}

// Invalidate marks the snapshot as failed; no flags will be included.
func (b *AllFlagsBuilder) Invalidate() *AllFlagsBuilder {
	b.valid = false
	b.flags = map[string]FlagState{}
	return b
}

// Build returns the accumulated, immutable AllFlags snapshot.
func (b *AllFlagsBuilder) Build() AllFlags {
	flags := make(map[string]FlagState, len(b.flags))
	for k, v := range b.flags {
		flags[k] = v
	}
	return AllFlags{flags: flags, valid: b.valid}
}
