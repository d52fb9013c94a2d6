package dataservice

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// API paths relative to the base URL.
const (
	InfoPath    = "/v1/keys/dataservice/info"
	DevicesPath = "/v1/keys/dataservice/devices"
)

const (
	// defaultTimeout applies when Config.Timeout is zero.
	defaultTimeout = 20 * time.Second

	// maxResponseSize bounds how much of a response body is read.
	maxResponseSize = 1 << 20 // 1MB

	// maxErrorBodySize bounds how much of an error body is kept in APIError.
	maxErrorBodySize = 4 << 10
)

// Config holds the settings for a Client.
type Config struct {
	// BaseURL is the API root; a trailing slash is tolerated.
	BaseURL string

	// APIKey is sent verbatim in the authorization header. It never
	// reaches the broker.
	APIKey string

	// Timeout bounds each request. Zero means 20 seconds.
	Timeout time.Duration

	// HTTPClient overrides the default client. Timeout is ignored when set.
	HTTPClient *http.Client
}

// Client talks to the data service API.
//
// Thread Safety:
//   - A Client holds no mutable state, so FetchCredentials and
//     ResolveDevices may run concurrently.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// New creates a Client. No request is made until a method is called.
func New(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: httpClient,
	}
}

// FetchCredentials requests broker credentials and the endpoint list.
//
// Returns:
//   - *Info: credentials plus every endpoint the service returned
//   - error: ErrInvalidRequest, or an *APIError / wrapped sentinel for
//     ErrUnauthorized, ErrNotFound or ErrUnavailable
func (c *Client) FetchCredentials(ctx context.Context) (*Info, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("%w: api key is empty", ErrInvalidRequest)
	}

	var resp infoResponse
	if err := c.do(ctx, "info", http.MethodGet, InfoPath, nil, &resp); err != nil {
		return nil, err
	}

	return &Info{
		Credentials: Credentials{
			Username: resp.Username,
			Password: resp.Password,
		},
		Endpoints: resp.Endpoints,
	}, nil
}

// ResolveDevices asks the directory for the given device ids.
//
// The service omits ids the caller cannot access, so the result may be
// shorter than deviceIDs. Use FindDevice to check for a specific id.
// Duplicate ids are sent as given.
func (c *Client) ResolveDevices(ctx context.Context, deviceIDs []string) ([]Device, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("%w: api key is empty", ErrInvalidRequest)
	}
	if len(deviceIDs) == 0 {
		return nil, fmt.Errorf("%w: no device ids requested", ErrInvalidRequest)
	}

	body, err := json.Marshal(devicesRequest{DeviceIDs: deviceIDs})
	if err != nil {
		return nil, fmt.Errorf("encoding devices request: %w", err)
	}

	var resp devicesResponse
	if err := c.do(ctx, "devices", http.MethodPost, DevicesPath, body, &resp); err != nil {
		return nil, err
	}

	return resp.Devices, nil
}

// do performs one authenticated request and decodes a 200 body into out.
func (c *Client) do(ctx context.Context, op, method, path string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("%w: building %s request: %w", ErrUnavailable, op, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s request: %w", ErrUnavailable, op, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("%w: reading %s response: %w", ErrUnavailable, op, err)
	}

	if resp.StatusCode != http.StatusOK {
		if len(data) > maxErrorBodySize {
			data = data[:maxErrorBodySize]
		}
		return statusError(op, resp.StatusCode, data)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: decoding %s response: %w", ErrUnavailable, op, err)
	}

	return nil
}

// FindDevice returns the descriptor for deviceID from a directory result.
//
// A device that is missing from the result and a device that is present
// without a base topic both yield ErrDeviceUnavailable; the message tells
// them apart. If the id appears more than once the first entry wins.
func FindDevice(devices []Device, deviceID string) (Device, error) {
	for _, d := range devices {
		if d.ID != deviceID {
			continue
		}
		if !d.HasBaseTopic() {
			return Device{}, fmt.Errorf("%w: no device found or no access to device with id %s", ErrDeviceUnavailable, deviceID)
		}
		return d, nil
	}

	return Device{}, fmt.Errorf("%w: requested device with id %s not available", ErrDeviceUnavailable, deviceID)
}
