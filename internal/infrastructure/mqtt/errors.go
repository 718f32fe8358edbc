package mqtt

import "errors"

// Sentinel errors for broker operations; match with errors.Is.
var (
	// ErrNotConnected reports an operation attempted while disconnected.
	ErrNotConnected = errors.New("mqtt: client not connected")

	// ErrConnectionFailed reports a failed initial connection.
	ErrConnectionFailed = errors.New("mqtt: connection failed")

	// ErrPublishFailed reports a failed or timed-out publish.
	ErrPublishFailed = errors.New("mqtt: publish failed")

	// ErrSubscribeFailed reports a failed or timed-out subscribe.
	ErrSubscribeFailed = errors.New("mqtt: subscribe failed")

	// ErrInvalidQoS reports a QoS level outside 0-2.
	ErrInvalidQoS = errors.New("mqtt: invalid QoS level (must be 0, 1, or 2)")

	// ErrInvalidTopic reports an empty topic.
	ErrInvalidTopic = errors.New("mqtt: topic cannot be empty")
)
