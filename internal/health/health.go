// Package health implements the health supervisor: it republishes a slot
// stream and maintains a Healthy/Unhealthy flag based on slot freshness,
// ticking every threshold/2 rather than on edges.
package health

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/blockrelay/relayer/internal/metrics"
)

// State is the health flag's value.
type State int32

const (
	// Unhealthy means no slot has been observed within the threshold.
	Unhealthy State = iota
	// Healthy means a slot arrived within the threshold.
	Healthy
)

func (s State) String() string {
	if s == Healthy {
		return "Healthy"
	}
	return "Unhealthy"
}

// DefaultThreshold is the default slot-freshness threshold.
const DefaultThreshold = 10 * time.Second

// Supervisor republishes an inbound slot stream and maintains HealthState.
type Supervisor struct {
	threshold time.Duration
	in        <-chan uint64
	out       chan uint64

	lastUpdate atomic.Int64 // unix nanos
	state      atomic.Int32
}

// New creates a Supervisor reading from in and republishing to a buffered
// channel of the same capacity pattern as the rest of the fan-out pipeline.
func New(in <-chan uint64, threshold time.Duration) *Supervisor {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	s := &Supervisor{
		threshold: threshold,
		in:        in,
		out:       make(chan uint64, 100),
	}
	s.lastUpdate.Store(time.Now().UnixNano())
	s.state.Store(int32(Unhealthy))
	return s
}

// Slots returns the republished slot stream.
func (s *Supervisor) Slots() <-chan uint64 {
	return s.out
}

// State returns the current health flag.
func (s *Supervisor) State() State {
	return State(s.state.Load())
}

// Healthy reports whether the current health flag is Healthy, satisfying the
// HealthSource/HealthChecker interfaces consumed by the relayer core and the
// auth service.
func (s *Supervisor) Healthy() bool {
	return s.State() == Healthy
}

// Run drives the select loop until ctx is done: forward slots as they
// arrive, and re-evaluate health every threshold/2.
func (s *Supervisor) Run(ctx context.Context) {
	ticker := time.NewTicker(s.threshold / 2)
	defer ticker.Stop()
	defer close(s.out)

	for {
		select {
		case <-ctx.Done():
			return
		case slot, ok := <-s.in:
			if !ok {
				return
			}
			s.lastUpdate.Store(time.Now().UnixNano())
			select {
			case s.out <- slot:
			case <-ctx.Done():
				return
			}
		case <-ticker.C:
			s.evaluate()
		}
	}
}

func (s *Supervisor) evaluate() {
	last := time.Unix(0, s.lastUpdate.Load())
	if time.Since(last) <= s.threshold {
		s.state.Store(int32(Healthy))
		metrics.HealthState.Set(1)
	} else {
		s.state.Store(int32(Unhealthy))
		metrics.HealthState.Set(0)
	}
}
