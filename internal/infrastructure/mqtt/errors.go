package mqtt

import "errors"

// Sentinel errors for broker operations, matched with errors.Is.
var (
	ErrNotConnected      = errors.New("mqtt: client not connected")
	ErrConnectionFailed  = errors.New("mqtt: connection failed")
	ErrPublishFailed     = errors.New("mqtt: publish failed")
	ErrSubscribeFailed   = errors.New("mqtt: subscribe failed")
	ErrUnsubscribeFailed = errors.New("mqtt: unsubscribe failed")
	ErrInvalidQoS        = errors.New("mqtt: invalid QoS level (must be 0, 1, or 2)")
	ErrInvalidTopic      = errors.New("mqtt: topic cannot be empty")
	ErrTimeout           = errors.New("mqtt: operation timed out")

	// ErrMalformedTopic marks an inbound topic that does not match the
	// {namespace}/{deviceID}/{kind}[/{token}] scheme. The ingest
	// pipeline counts and drops these.
	ErrMalformedTopic = errors.New("mqtt: malformed topic")
)
