package mqtt

// Message is one inbound message delivered to a Handler.
type Message struct {
	// Topic is the concrete topic the message arrived on (wildcards expanded).
	Topic string

	// Payload is the raw message payload.
	Payload []byte

	// QoS is the delivery level the message arrived with.
	QoS byte

	// Retained is set when the broker replayed a stored message.
	Retained bool
}

// Handler receives inbound messages.
//
// HandleMessage is called from a single dispatch goroutine in arrival
// order. It should not block for long: a slow handler delays every later
// message. A returned error is logged and does not affect acknowledgment.
type Handler interface {
	HandleMessage(msg Message) error
}

// HandlerFunc adapts an ordinary function to the Handler interface.
type HandlerFunc func(msg Message) error

// HandleMessage calls f(msg).
func (f HandlerFunc) HandleMessage(msg Message) error {
	return f(msg)
}
