// Package selector implements the upstream selector: it
// tracks several remote data sources, each exposing a request client and an
// event stream of slots, and publishes the freshest client plus a strictly
// increasing slot stream downstream.
//
// Grounded on the reconnect-with-backoff shape in
// beacon-chain/sync/initial-sync/blocks_fetcher.go (context-scoped retry
// loops reporting failures as metrics rather than terminating).
package selector

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/blockrelay/relayer/internal/metrics"
)

var log = logrus.WithField("prefix", "selector")

const (
	inactivityTimeout = 30 * time.Second
	reconnectBackoff  = 1 * time.Second
	outboundCapacity  = 100
)

// RequestClient is an opaque handle to one upstream source's RPC-style
// client; the wire protocol is out of this module's scope.
type RequestClient interface{}

// EventSubscriber opens a persistent subscription to one source's slot
// events. It must return a channel that is closed when the connection ends.
type EventSubscriber func(ctx context.Context) (<-chan uint64, error)

// Source is one paired (request endpoint, event endpoint) upstream.
type Source struct {
	Name      string
	Client    RequestClient
	Subscribe EventSubscriber
}

type sourceState struct {
	name string
	slot uint64 // atomic
}

// Selector tracks N sources and exposes the freshest client plus a monotone
// slot stream.
type Selector struct {
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	sources []Source
	states  []*sourceState

	globalMax int64 // atomic, -1 == unset

	mu          sync.RWMutex
	maxSourceIx int

	outbound chan uint64
}

// New creates a Selector over the given sources. Call Start to begin the
// per-source connection loops.
func New(sources []Source) *Selector {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Selector{
		ctx:         ctx,
		cancel:      cancel,
		sources:     sources,
		states:      make([]*sourceState, len(sources)),
		globalMax:   -1,
		maxSourceIx: -1,
		outbound:    make(chan uint64, outboundCapacity),
	}
	for i, src := range sources {
		s.states[i] = &sourceState{name: src.Name}
	}
	return s
}

// Start launches one goroutine per source; each runs until Shutdown is called.
func (s *Selector) Start() {
	for i := range s.sources {
		s.wg.Add(1)
		go s.runSource(i)
	}
}

// Shutdown tears down every source loop and closes the outbound channel.
func (s *Selector) Shutdown() {
	s.cancel()
	s.wg.Wait()
	close(s.outbound)
}

// Slots returns the bounded channel of strictly increasing slots. A slow
// consumer stalls the whole selector intentionally, to surface health
// regressions rather than silently falling behind.
func (s *Selector) Slots() <-chan uint64 {
	return s.outbound
}

// PickClient returns the request client of the source currently holding the
// maximum observed slot. Returns false if no source has reported yet.
func (s *Selector) PickClient() (RequestClient, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.maxSourceIx < 0 {
		return nil, false
	}
	return s.sources[s.maxSourceIx].Client, true
}

func (s *Selector) runSource(ix int) {
	defer s.wg.Done()
	src := s.sources[ix]
	state := s.states[ix]

	for {
		select {
		case <-s.ctx.Done():
			return
		default:
		}

		events, err := src.Subscribe(s.ctx)
		if err != nil {
			log.WithError(err).WithField("source", src.Name).Warn("could not subscribe to upstream, retrying")
			metrics.UpstreamReconnects.WithLabelValues(src.Name).Inc()
			if !s.sleepOrDone(reconnectBackoff) {
				return
			}
			continue
		}

		if !s.drain(ix, state, events) {
			return
		}
		metrics.UpstreamReconnects.WithLabelValues(src.Name).Inc()
		if !s.sleepOrDone(reconnectBackoff) {
			return
		}
	}
}

// drain consumes events until the channel closes or goes quiet for
// inactivityTimeout. Returns false if the selector is shutting down.
func (s *Selector) drain(ix int, state *sourceState, events <-chan uint64) bool {
	timer := time.NewTimer(inactivityTimeout)
	defer timer.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return false
		case <-timer.C:
			log.WithField("source", state.name).Warn("upstream inactivity timeout, reconnecting")
			return true
		case slot, ok := <-events:
			if !ok {
				return true
			}
			if !timer.Stop() {
				<-timer.C
			}
			timer.Reset(inactivityTimeout)
			s.observe(ix, state, slot)
		}
	}
}

func (s *Selector) observe(ix int, state *sourceState, slot uint64) {
	atomic.StoreUint64(&state.slot, slot)
	metrics.UpstreamSlot.WithLabelValues(state.name).Set(float64(slot))

	for {
		prev := atomic.LoadInt64(&s.globalMax)
		if prev >= 0 && slot <= uint64(prev) {
			return
		}
		if atomic.CompareAndSwapInt64(&s.globalMax, prev, int64(slot)) {
			s.mu.Lock()
			s.maxSourceIx = ix
			s.mu.Unlock()
			select {
			case s.outbound <- slot:
			case <-s.ctx.Done():
			}
			return
		}
	}
}

func (s *Selector) sleepOrDone(d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-s.ctx.Done():
		return false
	}
}
