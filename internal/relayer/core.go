package relayer

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/blockrelay/relayer/internal/metrics"
	"github.com/blockrelay/relayer/internal/types"
)

var log = logrus.WithField("prefix", "relayer")

const (
	heartbeatInterval = 500 * time.Millisecond
	metricsInterval   = 1 * time.Second
)

// ScheduleSource resolves which validators lead a set of upcoming slots.
type ScheduleSource interface {
	LeadersOf(slots []uint64) map[types.ValidatorIdentity]struct{}
}

// Denylist decides whether a decoded transaction is suppressed.
type Denylist interface {
	Enabled() bool
	IsDenied(tx *types.Transaction) bool
}

// HealthSource reports the current health flag the heartbeat arm gates on.
type HealthSource interface {
	Healthy() bool
}

// SubscriptionRequest is submitted to the event loop's subscription arm.
type SubscriptionRequest struct {
	ID    types.ValidatorIdentity
	Queue *SubscriberQueue
}

// Config bundles the Core's dependencies and tunables.
type Config struct {
	Schedule   ScheduleSource
	Decoder    types.Decoder
	Denylist   Denylist
	Health     HealthSource
	Slots      <-chan uint64
	Batches    <-chan types.DelayedBatch
	ForwardAll bool
	Lookahead  uint64
	BatchSize  int
}

type counters struct {
	forwarded int64
	dropped   int64
}

// Core is the relayer's single-threaded fan-out event loop.
type Core struct {
	cfg Config

	mu          sync.RWMutex
	subscribers map[types.ValidatorIdentity]*SubscriberQueue
	counters    map[types.ValidatorIdentity]*counters

	currentSlot atomic.Uint64
	slotLeaders map[types.ValidatorIdentity]struct{}

	subscriptions chan SubscriptionRequest
}

// New creates a Core ready to Run.
func New(cfg Config) *Core {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 64
	}
	return &Core{
		cfg:           cfg,
		subscribers:   make(map[types.ValidatorIdentity]*SubscriberQueue),
		counters:      make(map[types.ValidatorIdentity]*counters),
		slotLeaders:   make(map[types.ValidatorIdentity]struct{}),
		subscriptions: make(chan SubscriptionRequest, 256),
	}
}

// Subscriptions returns the channel the Subscribe RPC posts new
// subscriptions onto.
func (c *Core) Subscriptions() chan<- SubscriptionRequest {
	return c.subscriptions
}

// SubscriberCount reports the number of currently connected subscribers.
func (c *Core) SubscriberCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.subscribers)
}

// CurrentSlot returns the most recently processed slot.
func (c *Core) CurrentSlot() uint64 {
	return c.currentSlot.Load()
}

// Run drives the five-arm select loop until ctx is done.
func (c *Core) Run(ctx context.Context) {
	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()
	metricsTicker := time.NewTicker(metricsInterval)
	defer metricsTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.shutdown()
			return

		case slot, ok := <-c.cfg.Slots:
			if !ok {
				c.shutdown()
				return
			}
			c.handleSlot(slot)

		case batch, ok := <-c.cfg.Batches:
			if !ok {
				c.shutdown()
				return
			}
			c.handleBatch(batch)

		case sub := <-c.subscriptions:
			c.handleSubscription(sub)

		case <-heartbeat.C:
			c.handleHeartbeat()

		case <-metricsTicker.C:
			c.handleMetricsTick()
		}
	}
}

// handleSlot is the slot arm: advance current slot and recompute the
// lookahead leader set.
func (c *Core) handleSlot(slot uint64) {
	c.currentSlot.Store(slot)
	slots := make([]uint64, 0, c.cfg.Lookahead)
	for s := slot; s < slot+c.cfg.Lookahead; s++ {
		slots = append(slots, s)
	}
	c.slotLeaders = c.cfg.Schedule.LeadersOf(slots)
}

// handleBatch is the packet-batch arm: decode, filter, re-chunk, and
// non-blocking-send to every eligible recipient.
func (c *Core) handleBatch(db types.DelayedBatch) {
	metrics.BatchLatency.Observe(time.Since(db.ReceivedAt).Seconds())

	survivors := make([]types.Packet, 0, len(db.Batch.Packets))
	for _, p := range db.Batch.Packets {
		if p.Discard {
			continue
		}
		if c.cfg.Denylist != nil && c.cfg.Denylist.Enabled() {
			tx, err := c.cfg.Decoder.Decode(p.Payload)
			if err != nil {
				log.WithError(err).Debug("could not decode packet payload, dropping")
				continue
			}
			if c.cfg.Denylist.IsDenied(tx) {
				metrics.DenylistHits.Inc()
				continue
			}
		}
		survivors = append(survivors, p)
	}
	if len(survivors) == 0 {
		return
	}

	recipients := c.recipientSet()
	if len(recipients) == 0 {
		return
	}

	var toDisconnect []types.ValidatorIdentity
	for start := 0; start < len(survivors); start += c.cfg.BatchSize {
		end := start + c.cfg.BatchSize
		if end > len(survivors) {
			end = len(survivors)
		}
		chunk := types.PacketBatch{Packets: survivors[start:end]}
		msg := Message{Batch: &chunk}

		for _, id := range recipients {
			queue, ok := c.lookupSubscriber(id)
			if !ok {
				continue
			}
			switch queue.TrySend(msg) {
			case SendOK:
				c.bumpCounter(id, len(chunk.Packets), 0)
				metrics.PacketsForwarded.WithLabelValues(id.String()).Add(float64(len(chunk.Packets)))
			case SendFull:
				c.bumpCounter(id, 0, len(chunk.Packets))
				metrics.PacketsDropped.WithLabelValues(id.String()).Add(float64(len(chunk.Packets)))
			case SendClosed:
				toDisconnect = append(toDisconnect, id)
			}
		}
	}

	if len(toDisconnect) > 0 {
		c.removeSubscribers(toDisconnect)
	}
}

// recipientSet computes the set of validators eligible for this batch:
// everyone under forward_all, otherwise only the lookahead leaders.
func (c *Core) recipientSet() []types.ValidatorIdentity {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.cfg.ForwardAll {
		out := make([]types.ValidatorIdentity, 0, len(c.subscribers))
		for id := range c.subscribers {
			out = append(out, id)
		}
		return out
	}

	out := make([]types.ValidatorIdentity, 0, len(c.slotLeaders))
	for id := range c.slotLeaders {
		if _, ok := c.subscribers[id]; ok {
			out = append(out, id)
		}
	}
	return out
}

func (c *Core) lookupSubscriber(id types.ValidatorIdentity) (*SubscriberQueue, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	q, ok := c.subscribers[id]
	return q, ok
}

// handleSubscription is the subscription arm: insert (or replace) a
// subscriber queue.
func (c *Core) handleSubscription(req SubscriptionRequest) {
	c.mu.Lock()
	prev, existed := c.subscribers[req.ID]
	c.subscribers[req.ID] = req.Queue
	if _, ok := c.counters[req.ID]; !ok {
		c.counters[req.ID] = &counters{}
	}
	c.mu.Unlock()

	if existed {
		prev.shutdown()
		metrics.SubscriptionEvents.WithLabelValues("duplicate").Inc()
	} else {
		metrics.SubscriptionEvents.WithLabelValues("new").Inc()
	}
	metrics.SubscriberCount.Set(float64(c.SubscriberCount()))
}

// handleHeartbeat is the heartbeat arm: if healthy, ping every subscriber;
// if unhealthy, disconnect all of them (mass disconnect).
func (c *Core) handleHeartbeat() {
	if !c.cfg.Health.Healthy() {
		c.mu.RLock()
		all := make([]types.ValidatorIdentity, 0, len(c.subscribers))
		for id := range c.subscribers {
			all = append(all, id)
		}
		c.mu.RUnlock()
		c.removeSubscribers(all)
		return
	}

	c.mu.RLock()
	ids := make([]types.ValidatorIdentity, 0, len(c.subscribers))
	queues := make([]*SubscriberQueue, 0, len(c.subscribers))
	for id, q := range c.subscribers {
		ids = append(ids, id)
		queues = append(queues, q)
	}
	c.mu.RUnlock()

	var toDisconnect []types.ValidatorIdentity
	for i, q := range queues {
		switch q.TrySend(Message{IsHeartbeat: true}) {
		case SendClosed:
			toDisconnect = append(toDisconnect, ids[i])
		case SendFull:
			log.WithField("validator", ids[i].String()).Debug("heartbeat dropped, queue full")
		}
	}
	if len(toDisconnect) > 0 {
		c.removeSubscribers(toDisconnect)
	}
}

// handleMetricsTick is the metrics arm: snapshot and reset per-validator counters.
func (c *Core) handleMetricsTick() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, q := range c.subscribers {
		cnt := c.counters[id]
		log.WithFields(logrus.Fields{
			"validator": id.String(),
			"depth":     q.Depth(),
			"forwarded": atomic.LoadInt64(&cnt.forwarded),
			"dropped":   atomic.LoadInt64(&cnt.dropped),
		}).Debug("relayer metrics snapshot")
		atomic.StoreInt64(&cnt.forwarded, 0)
		atomic.StoreInt64(&cnt.dropped, 0)
	}
}

func (c *Core) bumpCounter(id types.ValidatorIdentity, forwarded, dropped int) {
	c.mu.RLock()
	cnt, ok := c.counters[id]
	c.mu.RUnlock()
	if !ok {
		return
	}
	if forwarded > 0 {
		atomic.AddInt64(&cnt.forwarded, int64(forwarded))
	}
	if dropped > 0 {
		atomic.AddInt64(&cnt.dropped, int64(dropped))
	}
}

func (c *Core) removeSubscribers(ids []types.ValidatorIdentity) {
	c.mu.Lock()
	for _, id := range ids {
		if q, ok := c.subscribers[id]; ok {
			q.shutdown()
			delete(c.subscribers, id)
		}
	}
	c.mu.Unlock()
	metrics.SubscriberCount.Set(float64(c.SubscriberCount()))
}

// shutdown drops every outbound sender, which each subscriber observes as
// end-of-stream.
func (c *Core) shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, q := range c.subscribers {
		q.shutdown()
		delete(c.subscribers, id)
	}
}
