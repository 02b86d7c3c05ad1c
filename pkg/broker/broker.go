// Package broker tracks the extra services a plugin and its host expose to
// each other over dedicated endpoints, keyed by numeric service ID.
package broker

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/plugrpc/plugrpc/pkg/endpoint"
	"github.com/plugrpc/plugrpc/pkg/plugin"
)

// DefaultAcceptTimeout bounds how long Accept waits for a service to be
// dispensed before the lookup is reported as not found.
const DefaultAcceptTimeout = 5 * time.Second

// Broker is a registry of brokered service endpoints. Each service ID owns a
// single-element buffered channel: the side that binds the service dispenses
// its endpoint, the other side accepts it. Safe for concurrent use.
type Broker struct {
	nextID  atomic.Uint32
	timeout time.Duration

	mu      sync.Mutex
	streams map[uint32]chan endpoint.Endpoint
}

// New returns a Broker with DefaultAcceptTimeout.
func New() *Broker {
	return NewWithTimeout(DefaultAcceptTimeout)
}

// NewWithTimeout returns a Broker whose Accept waits at most d.
func NewWithTimeout(d time.Duration) *Broker {
	return &Broker{
		timeout: d,
		streams: make(map[uint32]chan endpoint.Endpoint),
	}
}

// NextID allocates the next service ID. IDs are never reused.
func (b *Broker) NextID() uint32 {
	return b.nextID.Add(1)
}

// Dispense publishes the endpoint a service with the given ID is reachable
// at. Each ID holds at most one undelivered endpoint; dispensing a second
// before the first is accepted fails with a channel-send error.
func (b *Broker) Dispense(id uint32, ep endpoint.Endpoint) error {
	select {
	case b.stream(id) <- ep:
		return nil
	default:
		return plugin.ChannelSend[endpoint.Endpoint]()
	}
}

// Accept waits for the endpoint of service id. If nothing is dispensed
// within the broker's timeout the lookup fails with ServiceIDNotFound.
func (b *Broker) Accept(ctx context.Context, id uint32) (endpoint.Endpoint, error) {
	t := time.NewTimer(b.timeout)
	defer t.Stop()
	select {
	case ep := <-b.stream(id):
		return ep, nil
	case <-t.C:
		return endpoint.Endpoint{}, plugin.ServiceIDNotFound(id)
	case <-ctx.Done():
		return endpoint.Endpoint{}, plugin.FromErr(ctx.Err())
	}
}

func (b *Broker) stream(id uint32) chan endpoint.Endpoint {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch, ok := b.streams[id]
	if !ok {
		ch = make(chan endpoint.Endpoint, 1)
		b.streams[id] = ch
	}
	return ch
}
