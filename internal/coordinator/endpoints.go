package coordinator

import (
	"errors"
	"sync/atomic"

	"golang.org/x/exp/slices"
)

// EndpointPool hands out worker base URLs round robin. The cursor is shared
// by all requests, so consecutive dispatches cycle through the pool no matter
// which request or partition they belong to.
type EndpointPool struct {
	endpoints []string
	next      atomic.Uint64
}

// NewEndpointPool returns a pool over a fixed, non-empty endpoint list.
func NewEndpointPool(endpoints []string) (*EndpointPool, error) {
	if len(endpoints) == 0 {
		return nil, errors.New("endpoint pool needs at least one worker")
	}
	for _, e := range endpoints {
		if e == "" {
			return nil, errors.New("worker endpoint cannot be empty")
		}
	}
	return &EndpointPool{endpoints: slices.Clone(endpoints)}, nil
}

// Next returns the endpoint after the one handed out last, wrapping around.
func (p *EndpointPool) Next() string {
	n := p.next.Add(1) - 1
	return p.endpoints[n%uint64(len(p.endpoints))]
}

// Endpoints returns a copy of the configured endpoints in order.
func (p *EndpointPool) Endpoints() []string {
	return slices.Clone(p.endpoints)
}

// Len returns the number of endpoints.
func (p *EndpointPool) Len() int {
	return len(p.endpoints)
}
