package ldclient

import (
	"fmt"

	"github.com/flagkit/flagkit-go/eval"
	"github.com/flagkit/flagkit-go/interfaces"
	"github.com/flagkit/flagkit-go/ldmodel"
	"github.com/flagkit/flagkit-go/ldreason"
	"github.com/flagkit/flagkit-go/lduser"
)

// BoolVariation returns the value of a boolean flag for user, or defaultVal if the flag doesn't
// exist, is off with no off variation, or evaluates to a non-bool value.
func (c *Client) BoolVariation(key string, user lduser.User, defaultVal bool) bool {
	detail, _ := c.variation(key, user, defaultVal)
	if v, ok := detail.Value.(bool); ok {
		return v
	}
	return defaultVal
}

// BoolVariationDetail is BoolVariation plus the EvaluationDetail describing how the value was
// reached.
func (c *Client) BoolVariationDetail(key string, user lduser.User, defaultVal bool) (bool, ldreason.EvaluationDetail) {
	detail, _ := c.variation(key, user, defaultVal)
	v, ok := detail.Value.(bool)
	if !ok {
		return defaultVal, wrongTypeDetail(defaultVal)
	}
	return v, detail
}

// IntVariation returns the value of a numeric flag for user, truncated toward zero, or
// defaultVal if the flag doesn't exist or evaluates to a non-numeric value.
func (c *Client) IntVariation(key string, user lduser.User, defaultVal int) int {
	detail, _ := c.variation(key, user, defaultVal)
	if v, ok := asFloat64(detail.Value); ok {
		return int(v)
	}
	return defaultVal
}

// IntVariationDetail is IntVariation plus the EvaluationDetail.
func (c *Client) IntVariationDetail(key string, user lduser.User, defaultVal int) (int, ldreason.EvaluationDetail) {
	detail, _ := c.variation(key, user, defaultVal)
	v, ok := asFloat64(detail.Value)
	if !ok {
		return defaultVal, wrongTypeDetail(defaultVal)
	}
	return int(v), detail
}

// Float64Variation returns the value of a numeric flag for user, or defaultVal if the flag
// doesn't exist or evaluates to a non-numeric value.
func (c *Client) Float64Variation(key string, user lduser.User, defaultVal float64) float64 {
	detail, _ := c.variation(key, user, defaultVal)
	if v, ok := asFloat64(detail.Value); ok {
		return v
	}
	return defaultVal
}

// Float64VariationDetail is Float64Variation plus the EvaluationDetail.
func (c *Client) Float64VariationDetail(key string, user lduser.User, defaultVal float64) (float64, ldreason.EvaluationDetail) {
	detail, _ := c.variation(key, user, defaultVal)
	v, ok := asFloat64(detail.Value)
	if !ok {
		return defaultVal, wrongTypeDetail(defaultVal)
	}
	return v, detail
}

// StringVariation returns the value of a string flag for user, or defaultVal if the flag doesn't
// exist or evaluates to a non-string value.
func (c *Client) StringVariation(key string, user lduser.User, defaultVal string) string {
	detail, _ := c.variation(key, user, defaultVal)
	if v, ok := detail.Value.(string); ok {
		return v
	}
	return defaultVal
}

// StringVariationDetail is StringVariation plus the EvaluationDetail.
func (c *Client) StringVariationDetail(key string, user lduser.User, defaultVal string) (string, ldreason.EvaluationDetail) {
	detail, _ := c.variation(key, user, defaultVal)
	v, ok := detail.Value.(string)
	if !ok {
		return defaultVal, wrongTypeDetail(defaultVal)
	}
	return v, detail
}

// JSONVariation returns the value of a flag for user without any type coercion, allowing
// variations of any JSON type. Returns defaultVal if the flag doesn't exist or its evaluation
// ends in an error; a flag that is off with no off variation yields nil.
func (c *Client) JSONVariation(key string, user lduser.User, defaultVal interface{}) interface{} {
	detail, _ := c.variation(key, user, defaultVal)
	return detail.Value
}

// JSONVariationDetail is JSONVariation plus the EvaluationDetail.
func (c *Client) JSONVariationDetail(key string, user lduser.User, defaultVal interface{}) (interface{}, ldreason.EvaluationDetail) {
	return c.variation(key, user, defaultVal)
}

func asFloat64(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	default:
		return 0, false
	}
}

func wrongTypeDetail(defaultVal interface{}) ldreason.EvaluationDetail {
	return ldreason.EvaluationDetail{
		Value:          defaultVal,
		VariationIndex: ldreason.NoVariation,
		Reason:         ldreason.NewEvalReasonError(ldreason.ErrorWrongType),
	}
}

// variation performs a complete evaluation of key for user, falling back to defaultVal on every
// error path, and always records a FeatureRequestEvent (spec.md 4.1/4.5).
func (c *Client) variation(
	key string,
	user lduser.User,
	defaultVal interface{},
) (ldreason.EvaluationDetail, error) {
	if c.IsOffline() {
		detail := errorDetail(defaultVal, ldreason.ErrorClientNotReady)
		c.recordFeatureRequest(nil, key, user, detail, defaultVal)
		return detail, nil
	}

	if user.Key == "" {
		c.loggers.Warnf("evaluation called with empty user key for flag: %s", key)
	}

	if !c.Initialized() {
		if !c.store.IsInitialized() {
			detail := errorDetail(defaultVal, ldreason.ErrorClientNotReady)
			c.recordFeatureRequest(nil, key, user, detail, defaultVal)
			return detail, fmt.Errorf("client not initialized and data store has no data")
		}
		c.loggers.Warn("evaluation called before client initialization; using last known values")
	}

	flag, found, storeErr := c.getFlag(key)
	if storeErr != nil {
		detail := errorDetail(defaultVal, ldreason.ErrorException)
		c.recordFeatureRequest(nil, key, user, detail, defaultVal)
		return detail, storeErr
	}
	if !found {
		detail := errorDetail(defaultVal, ldreason.ErrorFlagNotFound)
		if c.config.LogEvaluationErrors {
			c.loggers.Warnf("unknown flag key: %s. Returning default value", key)
		}
		c.recordFeatureRequest(nil, key, user, detail, defaultVal)
		return detail, nil
	}

	detail, prereqEvents := eval.Evaluate(*flag, user, c.evalProvider)
	for _, pe := range prereqEvents {
		c.recordPrerequisiteEvent(pe, user)
	}
	if detail.Reason.Kind() == ldreason.KindError && c.config.LogEvaluationErrors {
		c.loggers.Warnf("flag evaluation for %s failed with error %s, default value returned",
			key, detail.Reason.ErrorKind())
	}
	if detail.IsDefaultVariation || detail.Reason.Kind() == ldreason.KindError {
		detail.Value = defaultVal
		detail.VariationIndex = ldreason.NoVariation
	}
	c.recordFeatureRequest(flag, key, user, detail, defaultVal)
	return detail, nil
}

func (c *Client) recordFeatureRequest(
	flag *ldmodel.FeatureFlag,
	key string,
	user lduser.User,
	detail ldreason.EvaluationDetail,
	defaultVal interface{},
) {
	event := interfaces.FeatureRequestEvent{
		CreationDate: nowMillis(),
		FlagKey:      key,
		Value:        detail.Value,
		Default:      defaultVal,
		User:         user,
		Reason:       detail.Reason,
	}
	if flag != nil {
		event.FlagVersion = flag.Version
		event.TrackEvents = flag.TrackEvents
		event.DebugEventsUntilDate = flag.DebugEventsUntilDate
		if detail.VariationIndex != ldreason.NoVariation {
			event.HasVariation = true
			event.Variation = detail.VariationIndex
		}
	}
	c.eventProcessor.RecordFeatureRequestEvent(event)
}

func (c *Client) recordPrerequisiteEvent(pe eval.PrerequisiteEvent, user lduser.User) {
	event := interfaces.FeatureRequestEvent{
		CreationDate: nowMillis(),
		FlagKey:      pe.Flag.Key,
		FlagVersion:  pe.Flag.Version,
		User:         user,
		TrackEvents:  pe.Flag.TrackEvents,
		Reason:       pe.Detail.Reason,
		PrereqOf:     pe.PrereqOfFlagKey,
		Value:        pe.Detail.Value,
	}
	if pe.Detail.VariationIndex != ldreason.NoVariation {
		event.HasVariation = true
		event.Variation = pe.Detail.VariationIndex
	}
	c.eventProcessor.RecordFeatureRequestEvent(event)
}

func errorDetail(defaultVal interface{}, kind ldreason.ErrorKind) ldreason.EvaluationDetail {
	return ldreason.EvaluationDetail{
		Value:          defaultVal,
		VariationIndex: ldreason.NoVariation,
		Reason:         ldreason.NewEvalReasonError(kind),
	}
}
