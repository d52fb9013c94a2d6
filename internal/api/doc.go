// Package api implements a local HTTP stand-in for the data service API.
//
// This package provides:
//   - GET /v1/keys/dataservice/info: broker credentials and endpoints for an API key
//   - POST /v1/keys/dataservice/devices: device directory lookup
//   - GET /health: liveness
//   - Middleware stack (request ID, logging, recovery, body limit, API key)
//
// All data comes from a YAML fixture file (see Fixtures). Status codes
// follow the hosted service: 401 for a missing or unknown key, 404 for a key
// without data service access.
//
// The server follows the same lifecycle pattern as other components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
package api
