package ldclient

import (
	"github.com/flagkit/flagkit-go/interfaces"
	"github.com/flagkit/flagkit-go/lduser"
)

// Identify reports that user was seen, without evaluating any flag. The Event Processor discards
// the event when the client is offline.
func (c *Client) Identify(user lduser.User) error {
	if user.Key == "" {
		c.loggers.Warn("Identify called with empty user key")
	}
	c.eventProcessor.RecordIdentifyEvent(interfaces.IdentifyEvent{
		CreationDate: nowMillis(),
		User:         user,
	})
	return nil
}

// TrackEvent records that user caused a custom event identified by eventName, with no attached
// data or metric value.
func (c *Client) TrackEvent(eventName string, user lduser.User) error {
	return c.TrackData(eventName, user, nil)
}

// TrackData records a custom event with an arbitrary JSON-serializable data payload.
func (c *Client) TrackData(eventName string, user lduser.User, data interface{}) error {
	if user.Key == "" {
		c.loggers.Warn("TrackData called with empty user key")
	}
	c.eventProcessor.RecordCustomEvent(interfaces.CustomEvent{
		CreationDate: nowMillis(),
		Key:          eventName,
		User:         user,
		Data:         data,
	})
	return nil
}

// TrackMetric records a custom event with a numeric metric value in addition to its data payload,
// for experimentation analysis.
func (c *Client) TrackMetric(eventName string, user lduser.User, metricValue float64, data interface{}) error {
	if user.Key == "" {
		c.loggers.Warn("TrackMetric called with empty user key")
	}
	c.eventProcessor.RecordCustomEvent(interfaces.CustomEvent{
		CreationDate: nowMillis(),
		Key:          eventName,
		User:         user,
		Data:         data,
		HasMetric:    true,
		MetricValue:  metricValue,
	})
	return nil
}
