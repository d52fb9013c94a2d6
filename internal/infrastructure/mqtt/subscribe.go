package mqtt

import (
	"fmt"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
)

// subackFailure is the SUBACK return code for a rejected filter.
const subackFailure = 0x80

// Subscribe registers handler for messages matching filter at the
// configured QoS.
//
// Filters can include MQTT wildcards:
//   - + (single-level): "sensors/+/temperature"
//   - # (multi-level): "sensors/room1/#" matches every subtopic
//
// The handler is called from a single dispatch goroutine in arrival order,
// with panic recovery. Only one subscription is active per session; a second
// call replaces the handler.
//
// Parameters:
//   - filter: The topic filter to subscribe to
//   - handler: Called for each inbound message
//
// Returns:
//   - byte: The QoS granted by the broker. A grant below the requested level
//     is logged and is not an error.
//   - error: ErrSubscribeFailed wrapping the cause, including a broker
//     rejection of the filter
//
// Example:
//
//	granted, err := session.Subscribe(mqtt.Topics{}.AllUplink(baseTopic),
//	    mqtt.HandlerFunc(func(msg mqtt.Message) error {
//	        log.Printf("Received: %s = %s", msg.Topic, msg.Payload)
//	        return nil
//	    }))
func (s *Session) Subscribe(filter string, handler Handler) (byte, error) {
	if err := validateFilter(filter); err != nil {
		return 0, fmt.Errorf("%w: %w: %q", ErrSubscribeFailed, err, filter)
	}
	if handler == nil {
		return 0, fmt.Errorf("%w: handler cannot be nil", ErrSubscribeFailed)
	}

	client, err := s.currentClient()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrSubscribeFailed, err)
	}
	if !s.transition(StateConnected, StateSubscribing) {
		return 0, fmt.Errorf("%w: %w", ErrSubscribeFailed, ErrNotConnected)
	}
	defer s.transition(StateSubscribing, StateConnected)

	s.mu.Lock()
	s.handler = handler
	s.mu.Unlock()

	requested := byte(s.cfg.QoS)
	token := client.Subscribe(filter, requested, s.onMessage)
	if err := s.waitToken(token); err != nil {
		s.clearHandler()
		return 0, fmt.Errorf("%w: %w", ErrSubscribeFailed, err)
	}

	granted := requested
	if st, ok := token.(*pahomqtt.SubscribeToken); ok {
		if code, found := st.Result()[filter]; found {
			granted = code
		}
	}

	if granted == subackFailure {
		s.clearHandler()
		return 0, fmt.Errorf("%w: broker rejected filter %q", ErrSubscribeFailed, filter)
	}
	if granted < requested {
		s.logger.Warn("subscription granted with lower QoS",
			"filter", filter,
			"requested_qos", requested,
			"granted_qos", granted,
		)
	}

	s.logger.Info("subscribed", "filter", filter, "qos", granted)
	return granted, nil
}

func (s *Session) clearHandler() {
	s.mu.Lock()
	s.handler = nil
	s.mu.Unlock()
}
