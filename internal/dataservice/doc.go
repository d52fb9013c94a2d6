// Package dataservice is the HTTP side of the bootstrap: it trades an API
// key for short-lived broker credentials and resolves device base topics.
//
// Two endpoints are used, both authenticated with the raw API key in the
// authorization header:
//
//	GET  {base}/v1/keys/dataservice/info     -> username, password, endpoints
//	POST {base}/v1/keys/dataservice/devices  -> devices with base topics
//
// Status codes map onto sentinel errors: 401 is ErrUnauthorized, 404 is
// ErrNotFound, and anything else that is not 200 (or a transport failure)
// is ErrUnavailable. None of them are retried.
//
// # Usage
//
//	client := dataservice.New(dataservice.Config{
//	    BaseURL: cfg.API.BaseURL,
//	    APIKey:  cfg.API.APIKey,
//	    Timeout: cfg.APITimeout(),
//	})
//
//	info, err := client.FetchCredentials(ctx)
//	devices, err := client.ResolveDevices(ctx, []string{deviceID})
//	device, err := dataservice.FindDevice(devices, deviceID)
//	addr, err := dataservice.SelectEndpoint(info.Endpoints, "mqtt-wss")
package dataservice
