//go:build acceptance

package acceptance

import (
	"context"
	"testing"
	"time"

	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/plugrpc/plugrpc/pkg/broker"
	"github.com/plugrpc/plugrpc/pkg/client"
	"github.com/plugrpc/plugrpc/pkg/server"
)

func startPlugin(t *testing.T) (*server.Server, context.CancelFunc) {
	t.Helper()
	srv := server.New(server.Config{})
	if _, err := srv.Listen(); err != nil {
		t.Fatalf("Listen: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()
	t.Cleanup(func() {
		cancel()
		if err := <-done; err != nil {
			t.Errorf("Serve: %v", err)
		}
	})
	return srv, cancel
}

// The full host/plugin round trip: the plugin binds a port from the default
// range, announces it through the broker, and the host accepts the endpoint,
// dials it, and sees a serving health check.
func TestHostProbesBrokeredPlugin(t *testing.T) {
	srv, _ := startPlugin(t)

	b := broker.New()
	id := b.NextID()

	ep, err := srv.Listen()
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	if err := b.Dispense(id, ep); err != nil {
		t.Fatalf("Dispense: %v", err)
	}

	accepted, err := b.Accept(context.Background(), id)
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if accepted != ep {
		t.Fatalf("accepted endpoint = %v, want %v", accepted, ep)
	}

	conn, err := client.DialEndpoint(accepted)
	if err != nil {
		t.Fatalf("DialEndpoint: %v", err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	st, err := client.Probe(ctx, conn)
	if err != nil {
		t.Fatalf("Probe: %v", err)
	}
	if st != healthpb.HealthCheckResponse_SERVING {
		t.Errorf("status = %v, want SERVING", st)
	}
}

func TestStoppedPluginStopsServing(t *testing.T) {
	srv, cancel := startPlugin(t)

	ep, err := srv.Listen()
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	conn, err := client.DialEndpoint(ep)
	if err != nil {
		t.Fatalf("DialEndpoint: %v", err)
	}
	defer conn.Close()

	ctx, probeCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer probeCancel()
	if _, err := client.Probe(ctx, conn); err != nil {
		t.Fatalf("initial Probe: %v", err)
	}

	cancel()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		checkCtx, checkCancel := context.WithTimeout(context.Background(), time.Second)
		st, err := client.Probe(checkCtx, conn)
		checkCancel()
		if err != nil || st != healthpb.HealthCheckResponse_SERVING {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Error("plugin still serving after shutdown")
}
