package dataservice

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Address is a selected broker endpoint decomposed for the session.
type Address struct {
	// Protocol is the tag that matched.
	Protocol string

	// Scheme is the URL scheme as given ("mqtts", "wss", ...).
	Scheme string

	Host string
	Port int

	// Path is the URL path, relevant for WebSocket endpoints. May be empty.
	Path string
}

// defaultPorts is used when an endpoint URL carries no explicit port.
var defaultPorts = map[string]int{
	"mqtts": 8883,
	"ssl":   8883,
	"tls":   8883,
	"wss":   443,
	"https": 443,
}

// SelectEndpoint picks the first endpoint whose protocol tag equals
// protocol and splits its URL into host and port.
//
// Returns:
//   - Address: the decomposed endpoint
//   - error: ErrNoMatchingEndpoint if no tag matches, ErrInvalidEndpoint if
//     the URL is malformed. There is no fallback to another protocol.
func SelectEndpoint(endpoints []Endpoint, protocol string) (Address, error) {
	for _, ep := range endpoints {
		if ep.Protocol != protocol {
			continue
		}
		return parseEndpoint(ep)
	}

	offered := make([]string, 0, len(endpoints))
	for _, ep := range endpoints {
		offered = append(offered, ep.Protocol)
	}
	return Address{}, fmt.Errorf("%w: protocol %q not offered (available: %s)",
		ErrNoMatchingEndpoint, protocol, strings.Join(offered, ", "))
}

func parseEndpoint(ep Endpoint) (Address, error) {
	u, err := url.Parse(ep.URL)
	if err != nil {
		return Address{}, fmt.Errorf("%w: %q: %w", ErrInvalidEndpoint, ep.URL, err)
	}

	host := u.Hostname()
	if u.Scheme == "" || host == "" {
		return Address{}, fmt.Errorf("%w: %q: missing scheme or host", ErrInvalidEndpoint, ep.URL)
	}

	scheme := strings.ToLower(u.Scheme)
	port, ok := defaultPorts[scheme]
	if p := u.Port(); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil || n < 1 || n > 65535 {
			return Address{}, fmt.Errorf("%w: %q: port out of range", ErrInvalidEndpoint, ep.URL)
		}
		port, ok = n, true
	}
	if !ok {
		return Address{}, fmt.Errorf("%w: %q: no port and no default for scheme %q", ErrInvalidEndpoint, ep.URL, scheme)
	}

	return Address{
		Protocol: ep.Protocol,
		Scheme:   scheme,
		Host:     host,
		Port:     port,
		Path:     u.Path,
	}, nil
}
