// Package server runs the plugin-side gRPC server: it binds a port from the
// negotiated range, registers the standard health service, and serves until
// stopped.
package server

import (
	"context"
	"net"
	"strconv"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/plugrpc/plugrpc/pkg/endpoint"
	"github.com/plugrpc/plugrpc/pkg/plugin"
)

// Default port range scanned for a free port, mirroring the range plugin
// hosts conventionally allow their children.
const (
	DefaultMinPort = 10000
	DefaultMaxPort = 25000
)

// Config controls where the plugin server binds.
type Config struct {
	// Endpoint, when non-empty, is served directly and the port range is
	// ignored. Useful for unix-domain sockets.
	Endpoint string

	// MinPort and MaxPort bound the TCP port scan. Zero values fall back to
	// the defaults.
	MinPort uint16
	MaxPort uint16

	// Host is the address the TCP listener binds to, loopback by default.
	Host string

	// Logger receives server lifecycle logs. Nil disables them.
	Logger *zerolog.Logger
}

// Server is a plugin-side gRPC server with the health service registered.
type Server struct {
	id     uuid.UUID
	cfg    Config
	grpc   *grpc.Server
	health *health.Server
	log    zerolog.Logger

	ln net.Listener
	ep endpoint.Endpoint
}

// New builds a Server from cfg. Additional gRPC services can be registered
// through Registrar before Serve is called.
func New(cfg Config) *Server {
	if cfg.MinPort == 0 {
		cfg.MinPort = DefaultMinPort
	}
	if cfg.MaxPort == 0 {
		cfg.MaxPort = DefaultMaxPort
	}
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	s := &Server{
		id:     uuid.New(),
		cfg:    cfg,
		grpc:   grpc.NewServer(),
		health: health.NewServer(),
	}
	log := zerolog.Nop()
	if cfg.Logger != nil {
		log = *cfg.Logger
	}
	s.log = log.With().Str("server_id", s.id.String()).Logger()
	healthpb.RegisterHealthServer(s.grpc, s.health)
	return s
}

// ID returns the server's instance identifier.
func (s *Server) ID() uuid.UUID { return s.id }

// Registrar exposes the underlying gRPC server for service registration.
// Must not be called after Serve.
func (s *Server) Registrar() *grpc.Server { return s.grpc }

// Listen binds the server and returns the bound endpoint. With an explicit
// Endpoint configured it parses and listens there; otherwise it scans the
// port range and binds the first free TCP port.
func (s *Server) Listen() (endpoint.Endpoint, error) {
	if s.ln != nil {
		return s.ep, nil
	}
	ln, ep, err := s.bind()
	if err != nil {
		return endpoint.Endpoint{}, err
	}
	s.ln = ln
	s.ep = ep
	s.log.Info().Str("endpoint", ep.String()).Msg("plugin server bound")
	return ep, nil
}

func (s *Server) bind() (net.Listener, endpoint.Endpoint, error) {
	if s.cfg.Endpoint != "" {
		ep, err := plugin.Escalate(endpoint.Parse(s.cfg.Endpoint))
		if err != nil {
			return nil, endpoint.Endpoint{}, err
		}
		ln, err := plugin.Escalate(ep.Listen())
		if err != nil {
			return nil, endpoint.Endpoint{}, err
		}
		return ln, endpoint.FromListener(ln), nil
	}
	for port := int(s.cfg.MinPort); port <= int(s.cfg.MaxPort); port++ {
		addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(port))
		ln, err := net.Listen("tcp", addr)
		if err != nil {
			continue
		}
		return ln, endpoint.FromListener(ln), nil
	}
	return nil, endpoint.Endpoint{}, plugin.NoPortAvailable()
}

// Serve marks the server healthy and serves gRPC on the bound listener,
// binding first if Listen was not called. It blocks until ctx is cancelled
// or the transport fails.
func (s *Server) Serve(ctx context.Context) error {
	if _, err := s.Listen(); err != nil {
		return err
	}
	s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	stop := context.AfterFunc(ctx, func() {
		s.log.Info().Msg("plugin server stopping")
		s.health.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
		s.grpc.GracefulStop()
	})
	defer stop()

	if err := s.grpc.Serve(s.ln); err != nil {
		return plugin.EscalateErr(plugin.TransportSetup(err))
	}
	return nil
}

// Stop immediately stops the server and closes its listener.
func (s *Server) Stop() {
	s.grpc.Stop()
}
