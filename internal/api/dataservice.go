package api

import (
	"net/http"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// infoResponse is the body of the info route.
type infoResponse struct {
	Username  string            `json:"username"`
	Password  string            `json:"password"`
	Endpoints []EndpointFixture `json:"endpoints"`
}

// devicesRequest is the body of the devices route.
type devicesRequest struct {
	DeviceIDs []string `json:"deviceIds"`
}

// deviceEntry is one device in the devices route response.
type deviceEntry struct {
	DeviceID  string  `json:"deviceId"`
	Name      string  `json:"name"`
	BaseTopic *string `json:"baseTopic"`
}

// devicesResponse is the body of the devices route response.
type devicesResponse struct {
	Devices []deviceEntry `json:"devices"`
}

// handleInfo issues broker credentials and the endpoint list for the key.
//
// Empty fixture credentials are replaced by fresh UUIDs on every call.
func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	key, ok := keyFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "invalid api key")
		return
	}

	resp := infoResponse{
		Username:  key.Username,
		Password:  key.Password,
		Endpoints: key.Endpoints,
	}
	if resp.Username == "" {
		resp.Username = uuid.NewString()
	}
	if resp.Password == "" {
		resp.Password = uuid.NewString()
	}
	if resp.Endpoints == nil {
		resp.Endpoints = []EndpointFixture{}
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleDevices resolves requested device ids.
//
// Unknown ids are omitted. Ids the key cannot access are returned with a
// null baseTopic.
func (s *Server) handleDevices(w http.ResponseWriter, r *http.Request) {
	key, ok := keyFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "invalid api key")
		return
	}

	var req devicesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if len(req.DeviceIDs) == 0 {
		writeBadRequest(w, "deviceIds is required")
		return
	}

	resp := devicesResponse{Devices: make([]deviceEntry, 0, len(req.DeviceIDs))}
	for _, id := range req.DeviceIDs {
		d, found := s.fixtures.device(id)
		if !found {
			continue
		}

		entry := deviceEntry{DeviceID: d.ID}
		if key.canSee(d.ID) {
			entry.Name = d.Name
			entry.BaseTopic = d.BaseTopic
		}
		resp.Devices = append(resp.Devices, entry)
	}

	writeJSON(w, http.StatusOK, resp)
}
