// Package blockengine provides the bounded outbound queue the forward/delay
// stage tees packet batches into for the external MEV block-engine
// collaborator. The collaborator itself lives outside this module; this
// is only the producer-facing side of its queue interface, a bounded
// drop-on-full channel in the same shape as the rest of the relayer's
// internal queues.
package blockengine

import (
	"github.com/blockrelay/relayer/internal/metrics"
	"github.com/blockrelay/relayer/internal/types"
)

// QueueCapacity bounds the outbound queue; overflow drops rather than blocks.
const QueueCapacity = 10_000

// Queue is a bounded, drop-on-full channel of batches destined for the
// block-engine client.
type Queue struct {
	ch chan types.DelayedBatch
}

// New creates an empty Queue.
func New() *Queue {
	return &Queue{ch: make(chan types.DelayedBatch, QueueCapacity)}
}

// TryEnqueue attempts a non-blocking send; returns false if the queue is full.
func (q *Queue) TryEnqueue(db types.DelayedBatch) bool {
	select {
	case q.ch <- db:
		return true
	default:
		metrics.PacketsDropped.WithLabelValues("block-engine").Add(float64(len(db.Batch.Packets)))
		return false
	}
}

// Out returns the consumer-facing channel for the block-engine client.
func (q *Queue) Out() <-chan types.DelayedBatch {
	return q.ch
}
