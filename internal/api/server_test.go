package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/nerrad567/netfield-connect/internal/dataservice"
	"github.com/nerrad567/netfield-connect/internal/infrastructure/config"
	"github.com/nerrad567/netfield-connect/internal/infrastructure/logging"
)

func strPtr(s string) *string { return &s }

// testFixtures returns a small directory with one enabled key, one key
// without data service access, and three devices.
func testFixtures() *Fixtures {
	return &Fixtures{
		Keys: []KeyFixture{
			{
				APIKey:   "good-key",
				Username: "broker-user",
				Password: "broker-pass",
				Devices:  []string{"device-1", "device-nil"},
				Endpoints: []EndpointFixture{
					{Protocol: "mqtts", URL: "mqtts://broker.example.com:8883"},
					{Protocol: "mqtt-wss", URL: "wss://broker.example.com:443/mqtt"},
				},
			},
			{APIKey: "fresh-key"},
			{APIKey: "disabled-key", Disabled: true},
		},
		Devices: []DeviceFixture{
			{ID: "device-1", Name: "Room 1", BaseTopic: strPtr("sensors/room1/")},
			{ID: "device-2", Name: "Room 2", BaseTopic: strPtr("sensors/room2/")},
			{ID: "device-nil", Name: "Unassigned"},
		},
	}
}

// testServer creates a Server backed by testFixtures.
func testServer(t *testing.T) *Server {
	t.Helper()

	srv, err := New(Deps{
		Config:   config.StubConfig{Host: "127.0.0.1", Port: 0},
		Logger:   logging.Discard(),
		Fixtures: testFixtures(),
		Version:  "test",
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return srv
}

func doRequest(t *testing.T, h http.Handler, method, path, apiKey, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if apiKey != "" {
		req.Header.Set("Authorization", apiKey)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestNew_MissingDeps(t *testing.T) {
	if _, err := New(Deps{Fixtures: testFixtures()}); err == nil {
		t.Error("New() without logger: expected error")
	}
	if _, err := New(Deps{Logger: logging.Discard()}); err == nil {
		t.Error("New() without fixtures: expected error")
	}
}

func TestHealth(t *testing.T) {
	rec := doRequest(t, testServer(t).Handler(), http.MethodGet, "/health", "", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("X-Request-ID header missing")
	}
}

func TestInfo_StatusMapping(t *testing.T) {
	h := testServer(t).Handler()

	tests := []struct {
		name   string
		apiKey string
		want   int
	}{
		{name: "valid key", apiKey: "good-key", want: http.StatusOK},
		{name: "missing key", apiKey: "", want: http.StatusUnauthorized},
		{name: "unknown key", apiKey: "nope", want: http.StatusUnauthorized},
		{name: "key without data service", apiKey: "disabled-key", want: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, h, http.MethodGet, dataservice.InfoPath, tt.apiKey, "")
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

func TestInfo_Body(t *testing.T) {
	rec := doRequest(t, testServer(t).Handler(), http.MethodGet, dataservice.InfoPath, "good-key", "")

	var body infoResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if body.Username != "broker-user" || body.Password != "broker-pass" {
		t.Errorf("credentials = %q/%q", body.Username, body.Password)
	}
	if len(body.Endpoints) != 2 {
		t.Errorf("endpoints = %d, want 2", len(body.Endpoints))
	}
}

func TestInfo_FreshCredentials(t *testing.T) {
	h := testServer(t).Handler()

	var first, second infoResponse
	for _, out := range []*infoResponse{&first, &second} {
		rec := doRequest(t, h, http.MethodGet, dataservice.InfoPath, "fresh-key", "")
		if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
			t.Fatalf("decoding body: %v", err)
		}
	}

	if first.Username == "" || first.Password == "" {
		t.Fatal("generated credentials are empty")
	}
	if first.Password == second.Password {
		t.Error("password reused across info calls")
	}
	if first.Endpoints == nil {
		t.Error("endpoints encoded as null, want []")
	}
}

func TestDevices(t *testing.T) {
	h := testServer(t).Handler()

	rec := doRequest(t, h, http.MethodPost, dataservice.DevicesPath, "good-key",
		`{"deviceIds":["device-1","device-2","device-nil","missing"]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body devicesResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}

	got := make(map[string]deviceEntry)
	for _, d := range body.Devices {
		got[d.DeviceID] = d
	}

	if len(got) != 3 {
		t.Fatalf("devices = %d, want 3 (unknown id omitted)", len(got))
	}
	if d := got["device-1"]; d.BaseTopic == nil || *d.BaseTopic != "sensors/room1/" {
		t.Errorf("device-1 baseTopic = %v, want sensors/room1/", d.BaseTopic)
	}
	if d := got["device-2"]; d.BaseTopic != nil {
		t.Errorf("device-2 baseTopic = %q, want null (no access)", *d.BaseTopic)
	}
	if d := got["device-nil"]; d.BaseTopic != nil {
		t.Errorf("device-nil baseTopic = %q, want null", *d.BaseTopic)
	}
}

func TestDevices_BadRequest(t *testing.T) {
	h := testServer(t).Handler()

	for _, body := range []string{"", "{", `{"deviceIds":[]}`} {
		rec := doRequest(t, h, http.MethodPost, dataservice.DevicesPath, "good-key", body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("body %q: status = %d, want 400", body, rec.Code)
		}
	}
}

func TestDevices_Unauthorized(t *testing.T) {
	rec := doRequest(t, testServer(t).Handler(), http.MethodPost, dataservice.DevicesPath, "nope", `{"deviceIds":["device-1"]}`)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

// TestClientAgainstStub checks the dataservice client decodes what the stub serves.
func TestClientAgainstStub(t *testing.T) {
	ts := httptest.NewServer(testServer(t).Handler())
	defer ts.Close()

	ctx := context.Background()
	client := dataservice.New(dataservice.Config{BaseURL: ts.URL, APIKey: "good-key", Timeout: 5 * time.Second})

	info, err := client.FetchCredentials(ctx)
	if err != nil {
		t.Fatalf("FetchCredentials() error = %v", err)
	}
	addr, err := dataservice.SelectEndpoint(info.Endpoints, "mqtt-wss")
	if err != nil {
		t.Fatalf("SelectEndpoint() error = %v", err)
	}
	if addr.Host != "broker.example.com" || addr.Port != 443 || addr.Path != "/mqtt" {
		t.Errorf("SelectEndpoint() = %+v", addr)
	}

	devices, err := client.ResolveDevices(ctx, []string{"device-1"})
	if err != nil {
		t.Fatalf("ResolveDevices() error = %v", err)
	}
	if _, err := dataservice.FindDevice(devices, "device-1"); err != nil {
		t.Errorf("FindDevice() error = %v", err)
	}

	bad := dataservice.New(dataservice.Config{BaseURL: ts.URL, APIKey: "disabled-key"})
	if _, err := bad.FetchCredentials(ctx); !errors.Is(err, dataservice.ErrNotFound) {
		t.Errorf("FetchCredentials(disabled) error = %v, want ErrNotFound", err)
	}
}

func TestStartClose(t *testing.T) {
	srv := testServer(t)

	if err := srv.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if srv.Addr() == "" {
		t.Fatal("Addr() empty after Start")
	}

	resp, err := http.Get("http://" + srv.Addr() + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}

	if err := srv.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if err := srv.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}
