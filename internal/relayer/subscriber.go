// Package relayer implements the relayer core event loop: the
// single-threaded select loop that fans filtered packet batches out to
// per-validator subscriber queues using the live leader schedule.
package relayer

import (
	"sync/atomic"

	"github.com/blockrelay/relayer/internal/types"
)

// SubscriberQueueCapacity is each subscriber queue's fixed capacity.
const SubscriberQueueCapacity = 50_000

// Message is one item on a subscriber's outbound stream: either a batch or
// a heartbeat, matching the external interface's stream<Either<...>> shape.
type Message struct {
	Batch       *types.PacketBatch
	IsHeartbeat bool
}

// SendResult is the outcome of a single non-blocking send attempt.
type SendResult int

const (
	// SendOK means the message was enqueued.
	SendOK SendResult = iota
	// SendFull means the queue was at capacity; the message was dropped.
	SendFull
	// SendClosed means the subscriber's stream has ended; it should be
	// removed from the routing table.
	SendClosed
)

// SubscriberQueue is the bounded outbound queue for one validator.
// The event loop is the sole sender and the
// sole closer; the owning outbound gRPC stream is the sole reader and marks
// the queue closed when the client disconnects.
type SubscriberQueue struct {
	ch     chan Message
	closed int32
}

// NewSubscriberQueue allocates a fresh bounded queue.
func NewSubscriberQueue() *SubscriberQueue {
	return &SubscriberQueue{ch: make(chan Message, SubscriberQueueCapacity)}
}

// TrySend performs a single non-blocking enqueue attempt.
func (q *SubscriberQueue) TrySend(m Message) SendResult {
	if atomic.LoadInt32(&q.closed) == 1 {
		return SendClosed
	}
	select {
	case q.ch <- m:
		return SendOK
	default:
		return SendFull
	}
}

// MarkClosed records that the consumer has gone away; subsequent TrySend
// calls report SendClosed without touching the channel.
func (q *SubscriberQueue) MarkClosed() {
	atomic.StoreInt32(&q.closed, 1)
}

// Closed reports whether MarkClosed or shutdown has been called.
func (q *SubscriberQueue) Closed() bool {
	return atomic.LoadInt32(&q.closed) == 1
}

// Receive returns the channel the owning outbound stream reads from.
func (q *SubscriberQueue) Receive() <-chan Message {
	return q.ch
}

// shutdown closes the underlying channel so the consumer observes
// end-of-stream, mirroring "outbound senders are dropped" on global
// shutdown and on subscription replacement. It also marks the queue closed,
// so later TrySend calls report SendClosed.
func (q *SubscriberQueue) shutdown() {
	atomic.StoreInt32(&q.closed, 1)
	defer func() { recover() }() // guards a racing double-close
	close(q.ch)
}

// Depth reports the current queue occupancy, for the metrics arm.
func (q *SubscriberQueue) Depth() int {
	return len(q.ch)
}
