package dataservice

import (
	"errors"
	"fmt"
	"net/http"
)

// Domain errors for the dataservice package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, dataservice.ErrUnauthorized) {
//	    // the API key was rejected
//	}
var (
	// ErrUnauthorized is returned when the API rejects the key (HTTP 401).
	ErrUnauthorized = errors.New("dataservice: api key not authorized")

	// ErrNotFound is returned when the API surface itself is missing (HTTP 404).
	ErrNotFound = errors.New("dataservice: api not found")

	// ErrUnavailable is returned for any other non-200 status, transport
	// failure, or unreadable response body.
	ErrUnavailable = errors.New("dataservice: api unavailable")

	// ErrDeviceUnavailable is returned when a requested device is absent from
	// the directory result or has no base topic.
	ErrDeviceUnavailable = errors.New("dataservice: device unavailable")

	// ErrNoMatchingEndpoint is returned when no endpoint carries the requested
	// protocol tag.
	ErrNoMatchingEndpoint = errors.New("dataservice: no matching endpoint")

	// ErrInvalidEndpoint is returned when the selected endpoint URL cannot be
	// decomposed into host and port.
	ErrInvalidEndpoint = errors.New("dataservice: invalid endpoint")

	// ErrInvalidRequest is returned for an empty API key or device id set.
	ErrInvalidRequest = errors.New("dataservice: invalid request")
)

// APIError carries the response context of a failed API call so operators
// can see what the service said. It unwraps to one of ErrUnauthorized,
// ErrNotFound or ErrUnavailable.
type APIError struct {
	// Op names the call, e.g. "info" or "devices".
	Op string

	// StatusCode is the HTTP status returned by the service.
	StatusCode int

	// Body is the (truncated) response body.
	Body string

	kind error
}

// Error implements error.
func (e *APIError) Error() string {
	return fmt.Sprintf("%v: %s request returned status %d, response: %s", e.kind, e.Op, e.StatusCode, e.Body)
}

// Unwrap returns the sentinel for the status class.
func (e *APIError) Unwrap() error {
	return e.kind
}

// statusError maps a non-200 HTTP status onto an APIError.
func statusError(op string, status int, body []byte) *APIError {
	var kind error
	switch status {
	case http.StatusUnauthorized:
		kind = ErrUnauthorized
	case http.StatusNotFound:
		kind = ErrNotFound
	default:
		kind = ErrUnavailable
	}

	return &APIError{
		Op:         op,
		StatusCode: status,
		Body:       string(body),
		kind:       kind,
	}
}
