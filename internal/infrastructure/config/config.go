package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Transport protocol tags as reported by the data service info endpoint.
const (
	// ProtocolMQTTS is MQTT over a TLS socket.
	ProtocolMQTTS = "mqtts"

	// ProtocolMQTTWSS is MQTT over a WebSocket over TLS.
	ProtocolMQTTWSS = "mqtt-wss"
)

// Config is the root configuration structure for netfield-connect.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	API     APIConfig     `yaml:"api"`
	Device  DeviceConfig  `yaml:"device"`
	MQTT    MQTTConfig    `yaml:"mqtt"`
	Broker  BrokerConfig  `yaml:"broker"`
	Session SessionConfig `yaml:"session"`
	Logging LoggingConfig `yaml:"logging"`
	Stub    StubConfig    `yaml:"stub"`
}

// APIConfig contains data service API settings.
type APIConfig struct {
	// BaseURL is the API root, e.g. "https://api.netfield.io". The
	// /v1/keys/dataservice/... paths are appended to it.
	BaseURL string `yaml:"base_url"`

	// APIKey is the long-lived key sent as the authorization header.
	// Prefer NETFIELD_API_KEY over putting it in the file.
	APIKey string `yaml:"api_key"`

	// Timeout is the per-request timeout in seconds.
	Timeout int `yaml:"timeout"`
}

// DeviceConfig selects the device to talk to and the topics used for it.
type DeviceConfig struct {
	ID             string `yaml:"id"`
	PublishTopic   string `yaml:"publish_topic"`
	PublishMessage string `yaml:"publish_message"`
	SubscribeTopic string `yaml:"subscribe_topic"`
}

// MQTTConfig contains broker session settings.
type MQTTConfig struct {
	Protocol       string        `yaml:"protocol"`
	QoS            int           `yaml:"qos"`
	Retain         bool          `yaml:"retain"`
	KeepAlive      int           `yaml:"keep_alive"`
	ConnectTimeout int           `yaml:"connect_timeout"`
	WebSocketPath  string        `yaml:"websocket_path"`
	TLS            MQTTTLSConfig `yaml:"tls"`
}

// MQTTTLSConfig contains TLS settings for the broker connection.
// TLS itself cannot be disabled.
type MQTTTLSConfig struct {
	// CAFile is an optional PEM bundle appended to the system roots.
	CAFile string `yaml:"ca_file"`

	// InsecureSkipVerify disables certificate verification. Development only.
	InsecureSkipVerify bool `yaml:"insecure_skip_verify"`
}

// BrokerConfig enables direct mode: connect straight to a broker (for
// example the one inside a device container) without asking the data
// service for credentials.
type BrokerConfig struct {
	DirectURL string `yaml:"direct_url"`
	Username  string `yaml:"username"`
	Password  string `yaml:"password"`
}

// SessionConfig contains listen phase settings.
type SessionConfig struct {
	// ListenDuration is how long to stay subscribed, in seconds.
	ListenDuration int `yaml:"listen_duration"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// StubConfig contains settings for the local data service stub.
type StubConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Fixtures string `yaml:"fixtures"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults), skipped when path is empty
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: NETFIELD_SECTION_KEY
// For example: NETFIELD_API_KEY, NETFIELD_DEVICE_ID. LOG_LEVEL is also
// honoured for the log level.
//
// Parameters:
//   - path: Path to the YAML configuration file, or "" for defaults and env only
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg, err := load(path)
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// LoadStub is Load for the stub server, which only needs the stub and
// logging sections.
func LoadStub(path string) (*Config, error) {
	cfg, err := load(path)
	if err != nil {
		return nil, err
	}

	if err := cfg.ValidateStub(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func load(path string) (*Config, error) {
	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		API: APIConfig{
			Timeout: 20,
		},
		Device: DeviceConfig{
			PublishTopic:   "test",
			PublishMessage: "Hello World!",
			SubscribeTopic: "#",
		},
		MQTT: MQTTConfig{
			Protocol:       ProtocolMQTTWSS,
			QoS:            0,
			Retain:         true,
			KeepAlive:      10,
			ConnectTimeout: 5,
			WebSocketPath:  "/",
		},
		Session: SessionConfig{
			ListenDuration: 3600,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stdout",
		},
		Stub: StubConfig{
			Host: "127.0.0.1",
			Port: 8090,
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: NETFIELD_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// API
	if v := os.Getenv("NETFIELD_API_URL"); v != "" {
		cfg.API.BaseURL = v
	}
	if v := os.Getenv("NETFIELD_API_KEY"); v != "" {
		cfg.API.APIKey = v
	}

	// Device
	if v := os.Getenv("NETFIELD_DEVICE_ID"); v != "" {
		cfg.Device.ID = v
	}

	// MQTT
	if v := os.Getenv("NETFIELD_MQTT_PROTOCOL"); v != "" {
		cfg.MQTT.Protocol = v
	}

	// Broker (direct mode)
	if v := os.Getenv("NETFIELD_BROKER_URL"); v != "" {
		cfg.Broker.DirectURL = v
	}
	if v := os.Getenv("NETFIELD_BROKER_USERNAME"); v != "" {
		cfg.Broker.Username = v
	}
	if v := os.Getenv("NETFIELD_BROKER_PASSWORD"); v != "" {
		cfg.Broker.Password = v
	}

	// Session
	if v := os.Getenv("NETFIELD_LISTEN_DURATION"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Session.ListenDuration = n
		}
	}

	// Logging
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("NETFIELD_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// DirectMode reports whether the data service bootstrap is bypassed.
func (c *Config) DirectMode() bool {
	return c.Broker.DirectURL != ""
}

// Validate checks the client configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if !c.DirectMode() {
		if c.API.BaseURL == "" {
			errs = append(errs, "api.base_url is required (set NETFIELD_API_URL environment variable)")
		}
		if c.API.APIKey == "" {
			errs = append(errs, "api.api_key is required (set NETFIELD_API_KEY environment variable)")
		}
		if c.Device.ID == "" {
			errs = append(errs, "device.id is required (set NETFIELD_DEVICE_ID environment variable)")
		}
		if c.MQTT.Protocol != ProtocolMQTTS && c.MQTT.Protocol != ProtocolMQTTWSS {
			errs = append(errs, fmt.Sprintf("mqtt.protocol must be %q or %q", ProtocolMQTTS, ProtocolMQTTWSS))
		}
	}

	if c.API.Timeout < 1 {
		errs = append(errs, "api.timeout must be at least 1 second")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.MQTT.KeepAlive < 1 {
		errs = append(errs, "mqtt.keep_alive must be at least 1 second")
	}
	if c.MQTT.ConnectTimeout < 1 {
		errs = append(errs, "mqtt.connect_timeout must be at least 1 second")
	}

	if c.Device.SubscribeTopic == "" {
		errs = append(errs, "device.subscribe_topic is required")
	}

	if c.Session.ListenDuration < 0 {
		errs = append(errs, "session.listen_duration cannot be negative")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// ValidateStub checks the settings used by the data service stub.
func (c *Config) ValidateStub() error {
	if c.Stub.Port < 1 || c.Stub.Port > 65535 {
		return errors.New("configuration errors: stub.port must be between 1 and 65535")
	}
	if c.Stub.Fixtures == "" {
		return errors.New("configuration errors: stub.fixtures is required")
	}
	return nil
}

// APITimeout returns the API request timeout as a Duration.
func (c *Config) APITimeout() time.Duration {
	return time.Duration(c.API.Timeout) * time.Second
}

// ListenDuration returns the listen phase duration as a Duration.
func (c *Config) ListenDuration() time.Duration {
	return time.Duration(c.Session.ListenDuration) * time.Second
}

// KeepAliveDuration returns the MQTT keep-alive interval as a Duration.
func (m MQTTConfig) KeepAliveDuration() time.Duration {
	return time.Duration(m.KeepAlive) * time.Second
}

// ConnectTimeoutDuration returns the MQTT connect timeout as a Duration.
func (m MQTTConfig) ConnectTimeoutDuration() time.Duration {
	return time.Duration(m.ConnectTimeout) * time.Second
}
