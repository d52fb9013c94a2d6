package mqtt

import (
	"context"
	"crypto/tls"
	"fmt"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/nerrad567/netfield-connect/internal/infrastructure/config"
)

// inboundBuffer is the number of messages queued between paho and the handler.
const inboundBuffer = 64

// Logger interface for session logging.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Session owns one broker connection for the lifetime of a run.
//
// Thread Safety:
//   - Connect, Publish, Subscribe, Listen and Disconnect are meant to be
//     called by one goroutine in sequence.
//   - Connection-lost notifications and inbound messages arrive on paho's
//     goroutines at any time; state is guarded accordingly.
//   - State and ClientID are safe to call from any goroutine.
type Session struct {
	cfg       config.MQTTConfig
	tlsConfig *tls.Config
	logger    Logger

	keepAlive        time.Duration
	connectTimeout   time.Duration
	operationTimeout time.Duration

	// newClient and newClientID are replaced in tests.
	newClient   func(*pahomqtt.ClientOptions) pahomqtt.Client
	newClientID func() string

	mu       sync.RWMutex
	state    State
	client   pahomqtt.Client
	clientID string
	handler  Handler

	// lost receives at most one connection-lost error.
	lost chan error

	inbound      chan Message
	done         chan struct{}
	dispatchDone chan struct{}
	stopOnce     sync.Once
}

// NewSession creates an idle session from MQTT configuration.
//
// Parameters:
//   - cfg: MQTT configuration from config.yaml
//   - logger: destination for session events
//
// Returns:
//   - *Session: idle session, not yet connected
//   - error: if the TLS configuration cannot be built (unreadable CA file)
func NewSession(cfg config.MQTTConfig, logger Logger) (*Session, error) {
	if cfg.QoS < 0 || cfg.QoS > maxQoS {
		return nil, ErrInvalidQoS
	}

	tlsConfig, err := buildTLSConfig(cfg.TLS)
	if err != nil {
		return nil, fmt.Errorf("mqtt: building TLS config: %w", err)
	}

	return &Session{
		cfg:              cfg,
		tlsConfig:        tlsConfig,
		logger:           logger,
		keepAlive:        cfg.KeepAliveDuration(),
		connectTimeout:   cfg.ConnectTimeoutDuration(),
		operationTimeout: defaultOperationTimeout,
		newClient:        pahomqtt.NewClient,
		newClientID:      uuid.NewString,
		state:            StateIdle,
		lost:             make(chan error, 1),
	}, nil
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// ClientID returns the client ID of the current connection attempt, or ""
// before Connect.
func (s *Session) ClientID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.clientID
}

// transition moves from one state to another only if the session is still
// in the expected state. It reports whether the move happened.
func (s *Session) transition(from, to State) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != from {
		return false
	}
	s.state = to
	return true
}

// Connect establishes the broker connection.
//
// A fresh client ID is generated for the attempt. TLS is always negotiated;
// the transport decides between raw TLS and WebSocket framing. The attempt
// is bounded by the configured connect timeout and by ctx.
//
// Returns:
//   - error: ErrInvalidState if the session was already used, or
//     ErrConnectionFailed wrapping the cause. On failure the session moves
//     to StateFailed and cannot be reused.
func (s *Session) Connect(ctx context.Context, ep Endpoint, creds Credentials) error {
	if !s.transition(StateIdle, StateConnecting) {
		return fmt.Errorf("%w: connect from %s", ErrInvalidState, s.State())
	}

	clientID := s.newClientID()
	opts := s.buildClientOptions(ep, creds, clientID)

	s.inbound = make(chan Message, inboundBuffer)
	s.done = make(chan struct{})
	s.dispatchDone = make(chan struct{})

	client := s.newClient(opts)

	s.mu.Lock()
	s.clientID = clientID
	s.mu.Unlock()

	s.logger.Info("connecting to MQTT broker",
		"broker", brokerURL(ep, s.cfg.WebSocketPath),
		"client_id", clientID,
		"username", creds.Username,
	)

	token := client.Connect()
	if err := s.waitConnect(ctx, token); err != nil {
		// Stop any attempt still in flight in paho.
		client.Disconnect(0)
		s.mu.Lock()
		s.state = StateFailed
		s.mu.Unlock()
		s.logger.Error("cannot connect to MQTT broker", "broker", ep.String(), "error", err)
		return err
	}

	s.mu.Lock()
	if s.state != StateConnecting {
		// Lost between CONNACK and here.
		s.mu.Unlock()
		client.Disconnect(0)
		return fmt.Errorf("%w: connection dropped during connect", ErrConnectionFailed)
	}
	s.client = client
	s.state = StateConnected
	go s.dispatch()
	s.mu.Unlock()

	s.logger.Info("connected to MQTT broker", "broker", ep.String(), "client_id", clientID)
	return nil
}

// waitConnect waits for the CONNACK, the connect timeout, or ctx.
func (s *Session) waitConnect(ctx context.Context, token pahomqtt.Token) error {
	timer := time.NewTimer(s.connectTimeout)
	defer timer.Stop()

	select {
	case <-token.Done():
	case <-timer.C:
		return fmt.Errorf("%w: %w after %v", ErrConnectionFailed, ErrTimeout, s.connectTimeout)
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrConnectionFailed, ctx.Err())
	}

	if err := token.Error(); err != nil {
		if ct, ok := token.(*pahomqtt.ConnectToken); ok && ct.ReturnCode() != 0 {
			return fmt.Errorf("%w: %s: %w", ErrConnectionFailed, refusalReason(ct.ReturnCode()), err)
		}
		return fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	return nil
}

// handleConnectionLost is called by paho when the connection drops.
func (s *Session) handleConnectionLost(err error) {
	s.mu.Lock()
	switch s.state {
	case StateDisconnecting, StateClosed, StateFailed:
		s.mu.Unlock()
		return
	}
	s.state = StateFailed
	s.mu.Unlock()

	s.logger.Warn("MQTT connection lost", "error", err)

	select {
	case s.lost <- err:
	default:
	}
}

// Disconnect closes the connection gracefully and releases the dispatch
// goroutine.
//
// Disconnect is idempotent: calling it on an idle, failed-to-connect or
// already closed session is a no-op and returns nil.
func (s *Session) Disconnect() error {
	s.mu.Lock()
	client := s.client
	if client == nil || s.state == StateClosed || s.state == StateDisconnecting {
		s.mu.Unlock()
		return nil
	}
	s.state = StateDisconnecting
	s.client = nil
	s.mu.Unlock()

	if client.IsConnectionOpen() {
		client.Disconnect(defaultDisconnectQuiesce)
	}
	s.stopDispatch()

	s.mu.Lock()
	s.state = StateClosed
	s.mu.Unlock()

	s.logger.Info("disconnected from MQTT broker", "client_id", s.ClientID())
	return nil
}

// currentClient returns the live client when the session is connected.
func (s *Session) currentClient() (pahomqtt.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state != StateConnected || s.client == nil {
		return nil, fmt.Errorf("%w (state %s)", ErrNotConnected, s.state)
	}
	return s.client, nil
}

// waitToken waits for a publish or subscribe acknowledgment.
func (s *Session) waitToken(token pahomqtt.Token) error {
	if !token.WaitTimeout(s.operationTimeout) {
		return fmt.Errorf("%w after %v", ErrTimeout, s.operationTimeout)
	}
	return token.Error()
}

// onMessage is the paho callback for the subscription. It only queues.
func (s *Session) onMessage(_ pahomqtt.Client, msg pahomqtt.Message) {
	m := Message{
		Topic:    msg.Topic(),
		Payload:  msg.Payload(),
		QoS:      msg.Qos(),
		Retained: msg.Retained(),
	}

	select {
	case s.inbound <- m:
	case <-s.done:
	}
}

// dispatch delivers queued messages to the handler in arrival order.
func (s *Session) dispatch() {
	defer close(s.dispatchDone)

	for {
		select {
		case m := <-s.inbound:
			s.deliver(m)
		case <-s.done:
			// Deliver what already arrived before stopping.
			for {
				select {
				case m := <-s.inbound:
					s.deliver(m)
				default:
					return
				}
			}
		}
	}
}

// deliver calls the handler with panic recovery and error logging.
func (s *Session) deliver(m Message) {
	s.mu.RLock()
	handler := s.handler
	s.mu.RUnlock()
	if handler == nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("MQTT handler panic recovered",
				"topic", m.Topic,
				"panic", r,
			)
		}
	}()

	if err := handler.HandleMessage(m); err != nil {
		s.logger.Warn("MQTT handler returned error",
			"topic", m.Topic,
			"error", err,
		)
	}
}

// stopDispatch stops the dispatch goroutine and waits for it to drain.
func (s *Session) stopDispatch() {
	s.stopOnce.Do(func() {
		close(s.done)
		<-s.dispatchDone
	})
}
