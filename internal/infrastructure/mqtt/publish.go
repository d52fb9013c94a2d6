package mqtt

import (
	"fmt"
)

// Maximum payload size for MQTT messages (1MB).
// This prevents resource exhaustion and aligns with typical broker limits.
const maxPayloadSize = 1 << 20 // 1MB

// Publish sends one message to a concrete topic using the configured QoS
// and retain flag (retained QoS 0 by default).
//
// Parameters:
//   - topic: The topic to publish to (e.g., "todevice/sensors/room1/test").
//     Wildcards are rejected.
//   - payload: The message payload (max 1MB)
//
// Retained Messages:
//   - When true, broker stores the last message for the topic
//   - The device receives it even if it subscribes after this run ends
//
// Returns:
//   - error: nil on success, or ErrPublishFailed wrapping the cause. The
//     session stays connected either way; a publish failure is not fatal.
//
// Example:
//
//	topic := mqtt.Topics{}.Downlink(baseTopic, "test")
//	err := session.Publish(topic, []byte("Hello World!"))
func (s *Session) Publish(topic string, payload []byte) error {
	if err := validatePublishTopic(topic); err != nil {
		return fmt.Errorf("%w: %w: %q", ErrPublishFailed, err, topic)
	}
	if len(payload) > maxPayloadSize {
		return fmt.Errorf("%w: payload size %d exceeds maximum %d bytes", ErrPublishFailed, len(payload), maxPayloadSize)
	}

	client, err := s.currentClient()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}
	if !s.transition(StateConnected, StatePublishing) {
		return fmt.Errorf("%w: %w", ErrPublishFailed, ErrNotConnected)
	}
	defer s.transition(StatePublishing, StateConnected)

	qos := byte(s.cfg.QoS)
	token := client.Publish(topic, qos, s.cfg.Retain, payload)
	if err := s.waitToken(token); err != nil {
		s.logger.Warn("publish failed", "topic", topic, "error", err)
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}

	s.logger.Info("message published",
		"topic", topic,
		"bytes", len(payload),
		"qos", qos,
		"retained", s.cfg.Retain,
	)
	return nil
}

// PublishString is a convenience method that publishes a string payload.
//
// This is equivalent to calling Publish with []byte(payload).
func (s *Session) PublishString(topic, payload string) error {
	return s.Publish(topic, []byte(payload))
}
