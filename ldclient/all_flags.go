package ldclient

import (
	"github.com/flagkit/flagkit-go/eval"
	"github.com/flagkit/flagkit-go/interfaces/flagstate"
	"github.com/flagkit/flagkit-go/ldmodel"
	"github.com/flagkit/flagkit-go/ldreason"
	"github.com/flagkit/flagkit-go/ldvalue"
	"github.com/flagkit/flagkit-go/lduser"
)

// AllFlagsState returns a snapshot of every flag's evaluated value for user, intended for
// bootstrapping a client-side SDK (spec.md 4.6). It returns an invalid AllFlags if the client is
// offline, not yet initialized with no stored data, or the Data Store returns an error.
func (c *Client) AllFlagsState(user lduser.User, options ...flagstate.Option) flagstate.AllFlags {
	builder := flagstate.NewAllFlagsBuilder(options...)

	if c.IsOffline() {
		c.loggers.Warn("AllFlagsState called when client is offline; returning invalid state")
		return builder.Invalidate().Build()
	}
	if !c.Initialized() {
		if !c.store.IsInitialized() {
			c.loggers.Warn("AllFlagsState called before client initialization and data store has no data")
			return builder.Invalidate().Build()
		}
		c.loggers.Warn("AllFlagsState called before client initialization; using last known values")
	}

	items, err := c.store.GetAll(ldmodel.Features)
	if err != nil {
		c.loggers.Warnf("AllFlagsState failed to read data store: %s", err)
		return builder.Invalidate().Build()
	}

	clientSideOnly, _, _ := builder.Options()
	for _, item := range items {
		flag, ok := item.Item.Item.(*ldmodel.FeatureFlag)
		if !ok || item.Item.Deleted() {
			continue
		}
		if clientSideOnly && !flag.ClientSide {
			continue
		}

		detail, _ := eval.Evaluate(*flag, user, c.evalProvider)
		variation := detail.VariationIndex
		if detail.IsDefaultVariation {
			variation = ldreason.NoVariation
		}
		builder.AddFlag(flag.Key, flagstate.FlagState{
			Value:                ldvalue.ValueCopy(detail.Value),
			Variation:            variation,
			Version:              flag.Version,
			Reason:               detail.Reason,
			TrackEvents:          flag.TrackEvents,
			DebugEventsUntilDate: flag.DebugEventsUntilDate,
		})
	}

	return builder.Build()
}
