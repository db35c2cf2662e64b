// Package forward implements the forward/delay stage: it stamps each
// upstream batch with its reception instant, enqueues it for the
// relayer core, and tees a copy to the block-engine's outbound queue.
package forward

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/blockrelay/relayer/internal/blockengine"
	"github.com/blockrelay/relayer/internal/types"
)

var log = logrus.WithField("prefix", "forward")

// DelayQueueCapacity is the delay queue's fixed depth.
const DelayQueueCapacity = 10_000

// Mode picks how the configured delay is realized.
type Mode int

const (
	// ModeDownstream enforces the delay by holding a batch in the stage
	// until now-receivedAt >= delay, then enqueuing it. This is the mode
	// this relayer implements: it keeps the upstream-facing enqueue path
	// non-blocking (upstream ingestion never stalls on the delay), at the
	// cost of the delay stage itself doing the waiting.
	ModeDownstream Mode = iota
)

// Stage consumes verified batches from upstream and fans them out to the
// relayer core's delay_queue and the block-engine's outbound queue.
type Stage struct {
	delay       time.Duration
	out         chan types.DelayedBatch
	pending     chan types.DelayedBatch
	blockEngine *blockengine.Queue
	startOnce   sync.Once
}

// New creates a Stage with the given forwarding delay.
func New(delay time.Duration, blockEngine *blockengine.Queue) *Stage {
	return &Stage{
		delay:       delay,
		out:         make(chan types.DelayedBatch, DelayQueueCapacity),
		pending:     make(chan types.DelayedBatch, DelayQueueCapacity),
		blockEngine: blockEngine,
	}
}

// Out is the channel the relayer core dequeues delayed batches from.
func (s *Stage) Out() <-chan types.DelayedBatch {
	return s.out
}

// Ingest stamps batch with the current instant, enqueues it for the block
// engine (drop-on-full, never blocking), and hands it to the single release
// worker that enforces the configured delay. All callers of Ingest must
// share ctx's lifetime so the one release worker started from it can be
// reused across calls without reordering batches.
func (s *Stage) Ingest(ctx context.Context, batch types.PacketBatch) {
	db := types.DelayedBatch{ReceivedAt: time.Now(), Batch: batch}

	if !s.blockEngine.TryEnqueue(db) {
		log.Debug("block-engine queue full, dropping tee'd batch")
	}

	s.startOnce.Do(func() { go s.releaseLoop(ctx) })

	select {
	case s.pending <- db:
	case <-ctx.Done():
	}
}

// releaseLoop is the single worker that dequeues pending batches strictly in
// arrival order and releases each in turn, so two batches ingested back to
// back can never reach the core's delay_queue out of order.
func (s *Stage) releaseLoop(ctx context.Context) {
	for {
		select {
		case db := <-s.pending:
			s.release(ctx, db)
		case <-ctx.Done():
			return
		}
	}
}

// release waits out the configured delay (ModeDownstream) and then enqueues
// onto the core's delay_queue, itself never blocking past that wait.
func (s *Stage) release(ctx context.Context, db types.DelayedBatch) {
	if s.delay > 0 {
		wait := s.delay - time.Since(db.ReceivedAt)
		if wait > 0 {
			timer := time.NewTimer(wait)
			defer timer.Stop()
			select {
			case <-timer.C:
			case <-ctx.Done():
				return
			}
		}
	}
	select {
	case s.out <- db:
	case <-ctx.Done():
	}
}
