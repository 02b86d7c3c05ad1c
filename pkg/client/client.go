// Package client is the host-side view of a plugin: it dials the endpoint a
// plugin announced and verifies the plugin is serving.
package client

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/plugrpc/plugrpc/pkg/endpoint"
	"github.com/plugrpc/plugrpc/pkg/plugin"
)

// Dial parses an endpoint descriptor and opens a client connection to it.
// Plugin traffic stays on loopback or unix sockets, so the connection is
// plaintext.
func Dial(raw string, opts ...grpc.DialOption) (*grpc.ClientConn, error) {
	ep, err := plugin.Escalate(endpoint.Parse(raw))
	if err != nil {
		return nil, err
	}
	return DialEndpoint(ep, opts...)
}

// DialEndpoint opens a client connection to an already-parsed endpoint.
func DialEndpoint(ep endpoint.Endpoint, opts ...grpc.DialOption) (*grpc.ClientConn, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(ep.Target(), opts...)
	if err != nil {
		return nil, plugin.EscalateErr(plugin.TransportSetup(err))
	}
	return conn, nil
}

// Probe checks the plugin's health service and returns its serving status.
func Probe(ctx context.Context, conn *grpc.ClientConn) (healthpb.HealthCheckResponse_ServingStatus, error) {
	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{})
	if err != nil {
		return healthpb.HealthCheckResponse_UNKNOWN, plugin.FromErr(err)
	}
	return resp.GetStatus(), nil
}
