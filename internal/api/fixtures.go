package api

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Fixtures is the data served by the stub, loaded from YAML.
//
//	keys:
//	  - api_key: "dev-key"
//	    username: "broker-user"    # empty: a fresh UUID per request
//	    password: ""               # empty: a fresh UUID per request
//	    devices: ["device-1"]      # ids this key may see
//	    endpoints:
//	      - protocol: "mqtt-wss"
//	        url: "wss://localhost:443/mqtt"
//	  - api_key: "no-dataservice-key"
//	    disabled: true             # answered with 404
//	devices:
//	  - id: "device-1"
//	    name: "Test device"
//	    base_topic: "sensors/room1/"
type Fixtures struct {
	Keys    []KeyFixture    `yaml:"keys"`
	Devices []DeviceFixture `yaml:"devices"`
}

// KeyFixture is one API key known to the stub.
type KeyFixture struct {
	APIKey    string            `yaml:"api_key"`
	Username  string            `yaml:"username"`
	Password  string            `yaml:"password"`
	Disabled  bool              `yaml:"disabled"`
	Devices   []string          `yaml:"devices"`
	Endpoints []EndpointFixture `yaml:"endpoints"`
}

// EndpointFixture is one broker endpoint advertised by the info route.
type EndpointFixture struct {
	Protocol string `yaml:"protocol" json:"protocol"`
	URL      string `yaml:"url" json:"endpointUrl"`
}

// DeviceFixture is one device in the directory.
type DeviceFixture struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`

	// BaseTopic nil is served as null.
	BaseTopic *string `yaml:"base_topic"`
}

// LoadFixtures reads and validates a fixture file.
func LoadFixtures(path string) (*Fixtures, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading fixtures: %w", err)
	}

	var f Fixtures
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing fixtures: %w", err)
	}

	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Validate checks for empty and duplicate keys and device ids.
func (f *Fixtures) Validate() error {
	var errs []error

	keys := make(map[string]bool)
	for i, k := range f.Keys {
		if k.APIKey == "" {
			errs = append(errs, fmt.Errorf("keys[%d]: api_key is required", i))
			continue
		}
		if keys[k.APIKey] {
			errs = append(errs, fmt.Errorf("keys[%d]: duplicate api_key", i))
		}
		keys[k.APIKey] = true
	}

	ids := make(map[string]bool)
	for i, d := range f.Devices {
		if d.ID == "" {
			errs = append(errs, fmt.Errorf("devices[%d]: id is required", i))
			continue
		}
		if ids[d.ID] {
			errs = append(errs, fmt.Errorf("devices[%d]: duplicate id %q", i, d.ID))
		}
		ids[d.ID] = true
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid fixtures: %w", err)
	}
	return nil
}

// key returns the fixture for an API key.
func (f *Fixtures) key(apiKey string) (KeyFixture, bool) {
	for _, k := range f.Keys {
		if k.APIKey == apiKey {
			return k, true
		}
	}
	return KeyFixture{}, false
}

// device returns the directory entry for an id.
func (f *Fixtures) device(id string) (DeviceFixture, bool) {
	for _, d := range f.Devices {
		if d.ID == id {
			return d, true
		}
	}
	return DeviceFixture{}, false
}

// canSee reports whether the key has access to the device.
func (k KeyFixture) canSee(deviceID string) bool {
	for _, id := range k.Devices {
		if id == deviceID {
			return true
		}
	}
	return false
}
