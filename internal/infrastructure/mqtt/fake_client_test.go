package mqtt

import (
	"fmt"
	"strings"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
)

// =============================================================================
// Fake paho client
// =============================================================================

// fakeToken is a paho Token that completes when done is closed.
type fakeToken struct {
	done chan struct{}
	err  error
}

func completedToken(err error) *fakeToken {
	t := &fakeToken{done: make(chan struct{}), err: err}
	close(t.done)
	return t
}

func pendingToken() *fakeToken {
	return &fakeToken{done: make(chan struct{})}
}

func (t *fakeToken) Wait() bool {
	<-t.done
	return true
}

func (t *fakeToken) WaitTimeout(d time.Duration) bool {
	select {
	case <-t.done:
		return true
	case <-time.After(d):
		return false
	}
}

func (t *fakeToken) Done() <-chan struct{} { return t.done }
func (t *fakeToken) Error() error          { return t.err }

// fakeMessage implements pahomqtt.Message.
type fakeMessage struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

func (m *fakeMessage) Duplicate() bool   { return false }
func (m *fakeMessage) Qos() byte         { return m.qos }
func (m *fakeMessage) Retained() bool    { return m.retained }
func (m *fakeMessage) Topic() string     { return m.topic }
func (m *fakeMessage) MessageID() uint16 { return 1 }
func (m *fakeMessage) Payload() []byte   { return m.payload }
func (m *fakeMessage) Ack()              {}

// fakeBroker is an in-memory broker shared by fake clients. It keeps
// retained messages and routes publishes to matching subscriptions.
type fakeBroker struct {
	mu       sync.Mutex
	retained map[string]*fakeMessage
}

func newFakeBroker() *fakeBroker {
	return &fakeBroker{retained: make(map[string]*fakeMessage)}
}

// fakeClient implements pahomqtt.Client against a fakeBroker.
type fakeClient struct {
	broker *fakeBroker
	opts   *pahomqtt.ClientOptions

	// Behaviour knobs, set before Connect.
	connectToken   pahomqtt.Token
	publishErr     error
	subscribeErr   error
	publishPending bool

	mu           sync.Mutex
	connected    bool
	connects     int
	disconnects  int
	published    []*fakeMessage
	subFilter    string
	subQoS       byte
	subCallback  pahomqtt.MessageHandler
	messagesSent sync.WaitGroup
}

func newFakeClient(broker *fakeBroker) *fakeClient {
	return &fakeClient{broker: broker}
}

// factory returns a newClient function that records the options and hands
// back c.
func (c *fakeClient) factory() func(*pahomqtt.ClientOptions) pahomqtt.Client {
	return func(opts *pahomqtt.ClientOptions) pahomqtt.Client {
		c.opts = opts
		return c
	}
}

func (c *fakeClient) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *fakeClient) IsConnectionOpen() bool { return c.IsConnected() }

func (c *fakeClient) Connect() pahomqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connects++

	if c.connectToken != nil {
		return c.connectToken
	}
	c.connected = true
	return completedToken(nil)
}

func (c *fakeClient) Disconnect(uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disconnects++
	c.connected = false
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) pahomqtt.Token {
	if c.publishPending {
		return pendingToken()
	}
	if c.publishErr != nil {
		return completedToken(c.publishErr)
	}

	data, ok := payload.([]byte)
	if !ok {
		return completedToken(fmt.Errorf("unknown payload type %T", payload))
	}
	msg := &fakeMessage{topic: topic, payload: data, qos: qos}

	c.mu.Lock()
	c.published = append(c.published, msg)
	filter, cb := c.subFilter, c.subCallback
	c.mu.Unlock()

	if retained {
		c.broker.mu.Lock()
		c.broker.retained[topic] = &fakeMessage{topic: topic, payload: data, qos: qos, retained: true}
		c.broker.mu.Unlock()
	}

	if cb != nil && topicMatches(filter, topic) {
		c.deliver(cb, msg)
	}
	return completedToken(nil)
}

func (c *fakeClient) Subscribe(topic string, qos byte, callback pahomqtt.MessageHandler) pahomqtt.Token {
	if c.subscribeErr != nil {
		return completedToken(c.subscribeErr)
	}

	c.mu.Lock()
	c.subFilter = topic
	c.subQoS = qos
	c.subCallback = callback
	c.mu.Unlock()

	c.broker.mu.Lock()
	var replay []*fakeMessage
	for t, m := range c.broker.retained {
		if topicMatches(topic, t) {
			replay = append(replay, m)
		}
	}
	c.broker.mu.Unlock()

	for _, m := range replay {
		c.deliver(callback, m)
	}
	return completedToken(nil)
}

func (c *fakeClient) SubscribeMultiple(map[string]byte, pahomqtt.MessageHandler) pahomqtt.Token {
	return completedToken(nil)
}

func (c *fakeClient) Unsubscribe(...string) pahomqtt.Token {
	return completedToken(nil)
}

func (c *fakeClient) AddRoute(string, pahomqtt.MessageHandler) {}

func (c *fakeClient) OptionsReader() pahomqtt.ClientOptionsReader {
	return pahomqtt.ClientOptionsReader{}
}

// deliver invokes the callback on its own goroutine as paho's router does.
func (c *fakeClient) deliver(cb pahomqtt.MessageHandler, msg *fakeMessage) {
	c.messagesSent.Add(1)
	go func() {
		defer c.messagesSent.Done()
		cb(c, msg)
	}()
}

// receive simulates an inbound message on the active subscription.
func (c *fakeClient) receive(topic string, payload []byte) {
	c.mu.Lock()
	filter, cb := c.subFilter, c.subCallback
	c.mu.Unlock()

	if cb != nil && topicMatches(filter, topic) {
		c.messagesSent.Add(1)
		// Inline delivery keeps arrival order for ordering tests.
		cb(c, &fakeMessage{topic: topic, payload: payload})
		c.messagesSent.Done()
	}
}

// dropConnection simulates the broker closing the network connection.
func (c *fakeClient) dropConnection(err error) {
	c.mu.Lock()
	c.connected = false
	c.mu.Unlock()
	c.opts.OnConnectionLost(c, err)
}

func (c *fakeClient) counts() (connects, disconnects int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connects, c.disconnects
}

// topicMatches reports whether an MQTT filter matches a concrete topic.
func topicMatches(filter, topic string) bool {
	fl := strings.Split(filter, "/")
	tl := strings.Split(topic, "/")

	for i, f := range fl {
		if f == "#" {
			return true
		}
		if i >= len(tl) {
			return false
		}
		if f != "+" && f != tl[i] {
			return false
		}
	}
	return len(fl) == len(tl)
}

// =============================================================================
// Recording logger
// =============================================================================

type logEntry struct {
	level string
	msg   string
}

type recordingLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

func (l *recordingLogger) record(level, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, logEntry{level: level, msg: msg})
}

func (l *recordingLogger) Debug(msg string, _ ...any) { l.record("debug", msg) }
func (l *recordingLogger) Info(msg string, _ ...any)  { l.record("info", msg) }
func (l *recordingLogger) Warn(msg string, _ ...any)  { l.record("warn", msg) }
func (l *recordingLogger) Error(msg string, _ ...any) { l.record("error", msg) }

func (l *recordingLogger) has(level, msg string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.entries {
		if e.level == level && e.msg == msg {
			return true
		}
	}
	return false
}
