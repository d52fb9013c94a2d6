package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/nerrad567/netfield-connect/internal/dataservice"
	"github.com/nerrad567/netfield-connect/internal/infrastructure/config"
	"github.com/nerrad567/netfield-connect/internal/infrastructure/logging"
	"github.com/nerrad567/netfield-connect/internal/infrastructure/mqtt"
)

// Directory is the part of the data service API used by a run.
// *dataservice.Client satisfies it.
type Directory interface {
	FetchCredentials(ctx context.Context) (*dataservice.Info, error)
	ResolveDevices(ctx context.Context, deviceIDs []string) ([]dataservice.Device, error)
}

// Session is the broker session used by a run. *mqtt.Session satisfies it.
type Session interface {
	Connect(ctx context.Context, ep mqtt.Endpoint, creds mqtt.Credentials) error
	Publish(topic string, payload []byte) error
	Subscribe(filter string, handler mqtt.Handler) (byte, error)
	Listen(ctx context.Context, d time.Duration) error
	Disconnect() error
}

// SessionFactory creates the Session for a run.
type SessionFactory func(cfg config.MQTTConfig, logger mqtt.Logger) (Session, error)

// Option configures a Runner.
type Option func(*Runner)

// WithDirectory replaces the data service client built from cfg.API.
func WithDirectory(d Directory) Option {
	return func(r *Runner) { r.directory = d }
}

// WithSessionFactory replaces the default mqtt.NewSession factory.
func WithSessionFactory(f SessionFactory) Option {
	return func(r *Runner) { r.newSession = f }
}

// WithHandler replaces the default handler, which logs every message.
func WithHandler(h mqtt.Handler) Option {
	return func(r *Runner) { r.handler = h }
}

// Runner executes a single bootstrap-and-connect run.
type Runner struct {
	cfg        *config.Config
	logger     *logging.Logger
	directory  Directory
	newSession SessionFactory
	handler    mqtt.Handler
}

// New creates a Runner from validated configuration.
func New(cfg *config.Config, logger *logging.Logger, opts ...Option) *Runner {
	r := &Runner{
		cfg:        cfg,
		logger:     logger,
		newSession: defaultSessionFactory,
	}
	for _, opt := range opts {
		opt(r)
	}

	if r.directory == nil && !cfg.DirectMode() {
		r.directory = dataservice.New(dataservice.Config{
			BaseURL: cfg.API.BaseURL,
			APIKey:  cfg.API.APIKey,
			Timeout: cfg.APITimeout(),
		})
	}
	if r.handler == nil {
		r.handler = mqtt.HandlerFunc(r.logMessage)
	}
	return r
}

func defaultSessionFactory(cfg config.MQTTConfig, logger mqtt.Logger) (Session, error) {
	return mqtt.NewSession(cfg, logger)
}

// plan is everything the session phase needs.
type plan struct {
	endpoint     mqtt.Endpoint
	credentials  mqtt.Credentials
	publishTopic string
	subscribe    string
}

// Run performs the whole run and returns the first fatal error.
//
// Cancelling ctx during the listen phase ends the run normally.
func (r *Runner) Run(ctx context.Context) error {
	var (
		p   plan
		err error
	)
	if r.cfg.DirectMode() {
		p, err = r.directPlan()
	} else {
		p, err = r.apiPlan(ctx)
	}
	if err != nil {
		return err
	}

	return r.runSession(ctx, p)
}

// apiPlan fetches credentials and the device, then selects the endpoint.
func (r *Runner) apiPlan(ctx context.Context) (plan, error) {
	r.logger.Info("contacting data service", "base_url", r.cfg.API.BaseURL, "device_id", r.cfg.Device.ID)

	// Devices are resolved only with a key the info endpoint accepted.
	info, err := r.directory.FetchCredentials(ctx)
	if err != nil {
		return plan{}, fmt.Errorf("fetching credentials: %w", err)
	}

	r.logger.Info("fetched broker credentials",
		"username", info.Credentials.Username,
		"endpoints", len(info.Endpoints),
	)

	devices, err := r.directory.ResolveDevices(ctx, []string{r.cfg.Device.ID})
	if err != nil {
		return plan{}, fmt.Errorf("resolving device: %w", err)
	}
	for _, d := range devices {
		r.logger.Info("device available", "device_id", d.ID, "name", d.Name, "has_base_topic", d.HasBaseTopic())
	}

	device, err := dataservice.FindDevice(devices, r.cfg.Device.ID)
	if err != nil {
		return plan{}, err
	}

	addr, err := dataservice.SelectEndpoint(info.Endpoints, r.cfg.MQTT.Protocol)
	if err != nil {
		return plan{}, err
	}

	transport, err := mqtt.TransportForProtocol(addr.Protocol)
	if err != nil {
		return plan{}, fmt.Errorf("%w: %w", dataservice.ErrInvalidEndpoint, err)
	}

	base := *device.BaseTopic
	topics := mqtt.Topics{}

	return plan{
		endpoint: mqtt.Endpoint{
			Host:      addr.Host,
			Port:      addr.Port,
			Transport: transport,
			Path:      addr.Path,
		},
		credentials: mqtt.Credentials{
			Username: info.Credentials.Username,
			Password: info.Credentials.Password,
		},
		publishTopic: topics.Downlink(base, r.cfg.Device.PublishTopic),
		subscribe:    topics.UplinkFilter(base, r.cfg.Device.SubscribeTopic),
	}, nil
}

// directPlan connects straight to the configured broker with raw topics.
func (r *Runner) directPlan() (plan, error) {
	ep, err := mqtt.ParseEndpoint(r.cfg.Broker.DirectURL)
	if err != nil {
		return plan{}, fmt.Errorf("parsing broker.direct_url: %w", err)
	}

	r.logger.Info("direct broker mode", "broker", ep.String())

	return plan{
		endpoint: ep,
		credentials: mqtt.Credentials{
			Username: r.cfg.Broker.Username,
			Password: r.cfg.Broker.Password,
		},
		publishTopic: r.cfg.Device.PublishTopic,
		subscribe:    r.cfg.Device.SubscribeTopic,
	}, nil
}

// runSession drives the broker session. The session is always disconnected.
func (r *Runner) runSession(ctx context.Context, p plan) error {
	session, err := r.newSession(r.cfg.MQTT, r.logger.With("component", "mqtt"))
	if err != nil {
		return fmt.Errorf("creating MQTT session: %w", err)
	}
	defer func() {
		if err := session.Disconnect(); err != nil {
			r.logger.Warn("disconnect failed", "error", err)
		}
	}()

	if err := session.Connect(ctx, p.endpoint, p.credentials); err != nil {
		return err
	}

	if err := session.Publish(p.publishTopic, []byte(r.cfg.Device.PublishMessage)); err != nil {
		r.logger.Warn("failed to send message", "topic", p.publishTopic, "error", err)
	} else {
		r.logger.Info("published message", "topic", p.publishTopic, "message", r.cfg.Device.PublishMessage)
	}

	granted, err := session.Subscribe(p.subscribe, r.handler)
	if err != nil {
		r.logger.Error("subscription error", "filter", p.subscribe, "error", err)
		return err
	}
	r.logger.Info("subscribed to device topic",
		"device_id", r.cfg.Device.ID,
		"filter", p.subscribe,
		"qos", granted,
	)

	return session.Listen(ctx, r.cfg.ListenDuration())
}

// logMessage is the default handler.
func (r *Runner) logMessage(msg mqtt.Message) error {
	r.logger.Info("received message",
		"topic", msg.Topic,
		"payload", string(msg.Payload),
		"retained", msg.Retained,
	)
	return nil
}
