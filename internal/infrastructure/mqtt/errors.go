package mqtt

import "errors"

// Domain-specific errors for MQTT operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrNotConnected is returned when attempting operations on a session
	// that is not connected.
	ErrNotConnected = errors.New("mqtt: session not connected")

	// ErrInvalidState is returned when Connect is called on a session that
	// has already been used.
	ErrInvalidState = errors.New("mqtt: operation not valid in current session state")

	// ErrConnectionFailed is returned when the connect attempt fails
	// (refused, TLS failure, unreachable, or timeout).
	ErrConnectionFailed = errors.New("mqtt: connection failed")

	// ErrConnectionLost is returned by Listen when the broker drops the
	// connection.
	ErrConnectionLost = errors.New("mqtt: connection lost")

	// ErrPublishFailed is returned when a publish operation fails.
	ErrPublishFailed = errors.New("mqtt: publish failed")

	// ErrSubscribeFailed is returned when a subscribe operation fails or the
	// broker rejects the filter.
	ErrSubscribeFailed = errors.New("mqtt: subscribe failed")

	// ErrInvalidQoS is returned when an invalid QoS level is specified.
	// Valid QoS levels are 0, 1, or 2.
	ErrInvalidQoS = errors.New("mqtt: invalid QoS level (must be 0, 1, or 2)")

	// ErrInvalidTopic is returned when an empty or invalid topic is provided.
	ErrInvalidTopic = errors.New("mqtt: invalid topic")

	// ErrInvalidTransport is returned for a protocol tag or URL scheme that
	// does not map to a secure transport.
	ErrInvalidTransport = errors.New("mqtt: invalid transport")

	// ErrTimeout is returned when an operation times out.
	ErrTimeout = errors.New("mqtt: operation timed out")
)
