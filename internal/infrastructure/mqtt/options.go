package mqtt

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/netfield-connect/internal/infrastructure/config"
)

// Connection constants.
const (
	// defaultOperationTimeout bounds publish and subscribe acknowledgments.
	defaultOperationTimeout = 5 * time.Second

	// defaultDisconnectQuiesce is the time to wait for pending operations on disconnect.
	defaultDisconnectQuiesce = 250 // milliseconds

	// maxQoS is the maximum QoS level supported.
	maxQoS = 2

	// protocolVersion is MQTT 3.1.1.
	protocolVersion = 4

	// tlsMinVersion is the minimum TLS version for broker connections.
	tlsMinVersion = tls.VersionTLS12
)

// Transport selects the framing used to reach the broker. Both variants
// always run over TLS.
type Transport int

const (
	// TransportTLS is MQTT over a raw TLS socket ("mqtts").
	TransportTLS Transport = iota

	// TransportWebSocket is MQTT over a WebSocket over TLS ("mqtt-wss").
	TransportWebSocket
)

// String returns the broker URL scheme used for the transport.
func (t Transport) String() string {
	if t == TransportWebSocket {
		return "wss"
	}
	return "ssl"
}

// TransportForProtocol maps a data service protocol tag to a Transport.
func TransportForProtocol(protocol string) (Transport, error) {
	switch protocol {
	case config.ProtocolMQTTS:
		return TransportTLS, nil
	case config.ProtocolMQTTWSS:
		return TransportWebSocket, nil
	default:
		return 0, fmt.Errorf("%w: unknown protocol %q", ErrInvalidTransport, protocol)
	}
}

// TransportForScheme maps a broker URL scheme to a Transport. Only secure
// schemes are accepted.
func TransportForScheme(scheme string) (Transport, error) {
	switch strings.ToLower(scheme) {
	case "ssl", "tls", "mqtts", "tcps":
		return TransportTLS, nil
	case "wss":
		return TransportWebSocket, nil
	default:
		return 0, fmt.Errorf("%w: scheme %q is not a TLS transport", ErrInvalidTransport, scheme)
	}
}

// Endpoint is the broker address for one connect attempt.
type Endpoint struct {
	Host      string
	Port      int
	Transport Transport

	// Path is the WebSocket path. Empty falls back to the configured
	// websocket_path. Ignored for TransportTLS.
	Path string
}

// ParseEndpoint builds an Endpoint from a broker URL such as
// "ssl://localhost:8883" or "wss://broker:443/mqtt".
func ParseEndpoint(rawURL string) (Endpoint, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return Endpoint{}, fmt.Errorf("%w: %q: %w", ErrInvalidTransport, rawURL, err)
	}

	transport, err := TransportForScheme(u.Scheme)
	if err != nil {
		return Endpoint{}, err
	}

	port := 8883
	if transport == TransportWebSocket {
		port = 443
	}
	if p := u.Port(); p != "" {
		n, convErr := strconv.Atoi(p)
		if convErr != nil || n < 1 || n > 65535 {
			return Endpoint{}, fmt.Errorf("%w: %q: invalid port", ErrInvalidTransport, rawURL)
		}
		port = n
	}
	if u.Hostname() == "" {
		return Endpoint{}, fmt.Errorf("%w: %q: missing host", ErrInvalidTransport, rawURL)
	}

	return Endpoint{
		Host:      u.Hostname(),
		Port:      port,
		Transport: transport,
		Path:      u.Path,
	}, nil
}

// String returns the address as host:port.
func (e Endpoint) String() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

// Credentials authenticate the session with the broker.
type Credentials struct {
	Username string
	Password string
}

// brokerURL formats the paho broker URL for an endpoint.
func brokerURL(ep Endpoint, defaultPath string) string {
	if ep.Transport != TransportWebSocket {
		return fmt.Sprintf("%s://%s", ep.Transport, ep.String())
	}

	path := ep.Path
	if path == "" {
		path = defaultPath
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return fmt.Sprintf("%s://%s%s", ep.Transport, ep.String(), path)
}

// buildTLSConfig creates the TLS configuration used for every connection.
// A CA file, when given, is added to the system roots.
func buildTLSConfig(cfg config.MQTTTLSConfig) (*tls.Config, error) {
	tlsConfig := &tls.Config{
		MinVersion: tlsMinVersion,
	}

	if cfg.CAFile != "" {
		pool, err := x509.SystemCertPool()
		if err != nil || pool == nil {
			pool = x509.NewCertPool()
		}
		pem, err := os.ReadFile(cfg.CAFile)
		if err != nil {
			return nil, fmt.Errorf("reading CA file: %w", err)
		}
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("CA file %s contains no certificates", cfg.CAFile)
		}
		tlsConfig.RootCAs = pool
	}

	if cfg.InsecureSkipVerify {
		tlsConfig.InsecureSkipVerify = true //nolint:gosec // opt-in for development brokers
	}

	return tlsConfig, nil
}

// buildClientOptions creates paho MQTT options for one connect attempt.
//
// This configures:
//   - Broker URL (ssl:// or wss:// based on transport)
//   - A fresh client ID
//   - Authentication credentials (if provided)
//   - Clean session, no auto-reconnect, no connect retry
//   - Keep-alive and connect timeout
//   - TLS configuration (always)
func (s *Session) buildClientOptions(ep Endpoint, creds Credentials, clientID string) *pahomqtt.ClientOptions {
	opts := pahomqtt.NewClientOptions()

	opts.AddBroker(brokerURL(ep, s.cfg.WebSocketPath))
	opts.SetClientID(clientID)
	opts.SetProtocolVersion(protocolVersion)

	if creds.Username != "" {
		opts.SetUsername(creds.Username)
		opts.SetPassword(creds.Password)
	}

	// Single-shot session: the caller decides what to do after a failure.
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(false)
	opts.SetConnectRetry(false)

	opts.SetConnectTimeout(s.connectTimeout)
	opts.SetKeepAlive(s.keepAlive)
	opts.SetWriteTimeout(s.operationTimeout)

	opts.SetTLSConfig(s.tlsConfig)

	// Callbacks run in order on paho's router; they only hand off to
	// the dispatch goroutine.
	opts.SetOrderMatters(true)

	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		s.handleConnectionLost(err)
	})

	return opts
}

// connackReasons holds operator-facing text for MQTT 3.1.1 CONNACK codes.
var connackReasons = map[byte]string{
	1: "connection refused - incorrect protocol version",
	2: "connection refused - invalid client identifier",
	3: "connection refused - server unavailable",
	4: "connection refused - bad username or password",
	5: "connection refused - not authorised",
}

// refusalReason returns the text for a CONNACK return code.
func refusalReason(code byte) string {
	if reason, ok := connackReasons[code]; ok {
		return reason
	}
	return fmt.Sprintf("connection refused - unknown return code %d", code)
}
