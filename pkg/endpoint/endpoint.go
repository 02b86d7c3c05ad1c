// Package endpoint parses and carries the service endpoint descriptors the
// plugin runtime exchanges between host and plugin processes.
package endpoint

import (
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/plugrpc/plugrpc/pkg/plugin"
)

// Recognized endpoint transport kinds.
const (
	NetworkTCP  = "tcp"
	NetworkUnix = "unix"
)

// Endpoint describes where a brokered service can be reached.
type Endpoint struct {
	Network string `json:"network"`
	Address string `json:"address"`
}

// Parse turns an endpoint descriptor into an Endpoint. Accepted forms are
// "tcp://ip:port", "unix:///path/to/socket", and a bare "ip:port" which is
// taken as TCP. TCP hosts must be IP literals; endpoints are negotiated, not
// resolved.
func Parse(raw string) (Endpoint, error) {
	if !strings.Contains(raw, "://") {
		return parseHostPort(raw)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return Endpoint{}, plugin.FromErr(err)
	}
	switch u.Scheme {
	case NetworkTCP:
		return parseHostPort(u.Host)
	case NetworkUnix:
		// unix://tmp/sock parses the first segment as a host.
		path := u.Path
		if u.Host != "" {
			path = u.Host + u.Path
		}
		if path == "" {
			return Endpoint{}, plugin.Generic("unix endpoint has an empty socket path")
		}
		return Endpoint{Network: NetworkUnix, Address: path}, nil
	default:
		return Endpoint{}, plugin.UnknownEndpointType(u.Scheme)
	}
}

func parseHostPort(hostport string) (Endpoint, error) {
	host, port, err := net.SplitHostPort(hostport)
	if err != nil {
		return Endpoint{}, plugin.FromErr(err)
	}
	if host != "" && net.ParseIP(host) == nil {
		return Endpoint{}, plugin.FromErr(&net.AddrError{Err: "invalid IP address", Addr: host})
	}
	if _, err := strconv.ParseUint(port, 10, 16); err != nil {
		return Endpoint{}, plugin.FromErr(&net.AddrError{Err: "invalid port", Addr: hostport})
	}
	return Endpoint{Network: NetworkTCP, Address: net.JoinHostPort(host, port)}, nil
}

// Listen opens a listener on the endpoint.
func (e Endpoint) Listen() (net.Listener, error) {
	ln, err := net.Listen(e.Network, e.Address)
	if err != nil {
		return nil, plugin.FromErr(err)
	}
	return ln, nil
}

// Target returns the gRPC dial target for the endpoint.
func (e Endpoint) Target() string {
	if e.Network == NetworkUnix {
		return "unix://" + e.Address
	}
	return e.Address
}

func (e Endpoint) String() string {
	return e.Network + "://" + e.Address
}

// FromListener describes the endpoint a live listener is bound to.
func FromListener(ln net.Listener) Endpoint {
	addr := ln.Addr()
	return Endpoint{Network: addr.Network(), Address: addr.String()}
}
