package dataservice

import (
	"github.com/goccy/go-json"
)

// Credentials are the short-lived broker username and password issued by
// the info endpoint. They live for one connection attempt and are never
// persisted.
type Credentials struct {
	Username string
	Password string
}

// Endpoint is one broker endpoint offered by the info endpoint.
type Endpoint struct {
	// Protocol is the transport tag, "mqtts" or "mqtt-wss".
	Protocol string `json:"protocol"`

	// URL is the broker URL, e.g. "wss://broker.example.com:443/mqtt".
	URL string `json:"url"`
}

// UnmarshalJSON accepts the URL under "endpoint", "endpointUrl" or "url".
// The service has used all three.
func (e *Endpoint) UnmarshalJSON(data []byte) error {
	var raw struct {
		Protocol    string `json:"protocol"`
		Endpoint    string `json:"endpoint"`
		EndpointURL string `json:"endpointUrl"`
		URL         string `json:"url"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	e.Protocol = raw.Protocol
	switch {
	case raw.EndpointURL != "":
		e.URL = raw.EndpointURL
	case raw.Endpoint != "":
		e.URL = raw.Endpoint
	default:
		e.URL = raw.URL
	}
	return nil
}

// Info is the decoded body of the info endpoint. Endpoints is the complete
// list as returned, never filtered.
type Info struct {
	Credentials Credentials
	Endpoints   []Endpoint
}

// infoResponse is the wire shape of the info endpoint body.
type infoResponse struct {
	Username  string     `json:"username"`
	Password  string     `json:"password"`
	Endpoints []Endpoint `json:"endpoints"`
}

// Device describes one entry of the device directory.
type Device struct {
	ID   string `json:"deviceId"`
	Name string `json:"name"`

	// BaseTopic is the topic namespace prefix for the device. Nil means the
	// caller has no access or the device is not registered.
	BaseTopic *string `json:"baseTopic"`
}

// HasBaseTopic reports whether the device carries a base topic.
func (d Device) HasBaseTopic() bool {
	return d.BaseTopic != nil
}

// devicesRequest is the wire shape of the devices endpoint request body.
type devicesRequest struct {
	DeviceIDs []string `json:"deviceIds"`
}

// devicesResponse is the wire shape of the devices endpoint response body.
type devicesResponse struct {
	Devices []Device `json:"devices"`
}
