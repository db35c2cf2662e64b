// Package tpuconfig implements the GetTpuConfigs RPC's backing data: a fixed
// pool of transaction/transaction-forward endpoints, handed out round-robin
// across calls, with the port offset by -6 so the relay advertises its own
// forwarding ports rather than the validator's underlying TPU ports.
package tpuconfig

import (
	"sync/atomic"

	"github.com/blockrelay/relayer/relayerpb"
)

const portOffset = 6

// Endpoint is one configured transaction/transaction-forward pool entry.
type Endpoint struct {
	TpuIP          string
	TpuPort        int32
	TpuForwardIP   string
	TpuForwardPort int32
}

// Pool hands out configured endpoints round-robin.
type Pool struct {
	endpoints []Endpoint
	next      uint64
}

// New creates a Pool over a fixed set of endpoints. An empty set is
// accepted; Next then reports false.
func New(endpoints []Endpoint) *Pool {
	return &Pool{endpoints: endpoints}
}

// Next returns the next endpoint in round-robin order, with ports already
// offset by -6, or false if the pool is empty.
func (p *Pool) Next() (relayerpb.TpuConfigsResponse, bool) {
	if len(p.endpoints) == 0 {
		return relayerpb.TpuConfigsResponse{}, false
	}
	ix := atomic.AddUint64(&p.next, 1) - 1
	e := p.endpoints[ix%uint64(len(p.endpoints))]
	return relayerpb.TpuConfigsResponse{
		Tpu:        relayerpb.TpuEndpoint{IP: e.TpuIP, Port: e.TpuPort - portOffset},
		TpuForward: relayerpb.TpuEndpoint{IP: e.TpuForwardIP, Port: e.TpuForwardPort - portOffset},
	}, true
}
