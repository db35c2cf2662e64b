package relayer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/blockrelay/relayer/internal/types"
)

type fakeSchedule struct {
	leaders map[types.ValidatorIdentity]struct{}
}

func (f *fakeSchedule) LeadersOf(slots []uint64) map[types.ValidatorIdentity]struct{} {
	return f.leaders
}

// windowedSchedule is a ScheduleSource that actually honors its slots
// argument, unlike fakeSchedule, so tests can pin down the exact lookahead
// window the core queries.
type windowedSchedule struct {
	bySlot map[uint64]types.ValidatorIdentity
}

func (w *windowedSchedule) LeadersOf(slots []uint64) map[types.ValidatorIdentity]struct{} {
	out := make(map[types.ValidatorIdentity]struct{})
	for _, s := range slots {
		if id, ok := w.bySlot[s]; ok {
			out[id] = struct{}{}
		}
	}
	return out
}

type fakeDecoder struct{}

func (fakeDecoder) Decode(payload []byte) (*types.Transaction, error) {
	return &types.Transaction{AccountKeys: []types.Address{{payload[0]}}}, nil
}

type fakeDenylist struct {
	denied map[types.Address]struct{}
}

func (f *fakeDenylist) Enabled() bool { return len(f.denied) > 0 }
func (f *fakeDenylist) IsDenied(tx *types.Transaction) bool {
	for _, key := range tx.AccountKeys {
		if _, ok := f.denied[key]; ok {
			return true
		}
	}
	return false
}

type fakeHealth struct {
	healthy bool
}

func (f *fakeHealth) Healthy() bool { return f.healthy }

func newTestCore(t *testing.T, cfg Config) (*Core, chan uint64, chan types.DelayedBatch) {
	slots := make(chan uint64, 8)
	batches := make(chan types.DelayedBatch, 8)
	cfg.Slots = slots
	cfg.Batches = batches
	if cfg.Schedule == nil {
		cfg.Schedule = &fakeSchedule{}
	}
	if cfg.Decoder == nil {
		cfg.Decoder = fakeDecoder{}
	}
	if cfg.Health == nil {
		cfg.Health = &fakeHealth{healthy: true}
	}
	return New(cfg), slots, batches
}

func TestCore_ForwardsToLookaheadLeader(t *testing.T) {
	leader := types.ValidatorIdentity{0x01}
	core, slots, batches := newTestCore(t, Config{
		Schedule:  &fakeSchedule{leaders: map[types.ValidatorIdentity]struct{}{leader: {}}},
		Lookahead: 2,
		BatchSize: 10,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go core.Run(ctx)

	queue := NewSubscriberQueue()
	core.Subscriptions() <- SubscriptionRequest{ID: leader, Queue: queue}
	require.Eventually(t, func() bool { return core.SubscriberCount() == 1 }, time.Second, time.Millisecond)

	slots <- 10
	time.Sleep(10 * time.Millisecond)

	batches <- types.DelayedBatch{ReceivedAt: time.Now(), Batch: types.PacketBatch{
		Packets: []types.Packet{{Payload: []byte{0xAA}}},
	}}

	select {
	case msg := <-queue.Receive():
		require.NotNil(t, msg.Batch)
		require.Len(t, msg.Batch.Packets, 1)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for forwarded batch")
	}
}

func TestCore_LookaheadWindowIsHalfOpen(t *testing.T) {
	leaderA := types.ValidatorIdentity{0xA1}
	leaderB := types.ValidatorIdentity{0xB2}
	leaderD := types.ValidatorIdentity{0xD4}
	core, slots, batches := newTestCore(t, Config{
		Schedule: &windowedSchedule{bySlot: map[uint64]types.ValidatorIdentity{
			100: leaderA,
			101: leaderB,
			102: leaderD,
		}},
		Lookahead: 2,
		BatchSize: 10,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go core.Run(ctx)

	queueD := NewSubscriberQueue()
	core.Subscriptions() <- SubscriptionRequest{ID: leaderD, Queue: queueD}
	require.Eventually(t, func() bool { return core.SubscriberCount() == 1 }, time.Second, time.Millisecond)

	slots <- 100
	time.Sleep(10 * time.Millisecond)

	batches <- types.DelayedBatch{ReceivedAt: time.Now(), Batch: types.PacketBatch{
		Packets: []types.Packet{{Payload: []byte{0xAA}}},
	}}

	select {
	case <-queueD.Receive():
		t.Fatal("leader of slot+lookahead must not be in the half-open recipient window")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestCore_NonLeaderSubscriberGetsNothing(t *testing.T) {
	leader := types.ValidatorIdentity{0x01}
	other := types.ValidatorIdentity{0x02}
	core, slots, batches := newTestCore(t, Config{
		Schedule:  &fakeSchedule{leaders: map[types.ValidatorIdentity]struct{}{leader: {}}},
		Lookahead: 0,
		BatchSize: 10,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go core.Run(ctx)

	queue := NewSubscriberQueue()
	core.Subscriptions() <- SubscriptionRequest{ID: other, Queue: queue}
	require.Eventually(t, func() bool { return core.SubscriberCount() == 1 }, time.Second, time.Millisecond)

	slots <- 1
	time.Sleep(10 * time.Millisecond)
	batches <- types.DelayedBatch{ReceivedAt: time.Now(), Batch: types.PacketBatch{
		Packets: []types.Packet{{Payload: []byte{0xAA}}},
	}}

	select {
	case <-queue.Receive():
		t.Fatal("non-leader subscriber should not receive anything")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestCore_ForwardAllIgnoresSchedule(t *testing.T) {
	subscriber := types.ValidatorIdentity{0x03}
	core, _, batches := newTestCore(t, Config{
		ForwardAll: true,
		BatchSize:  10,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go core.Run(ctx)

	queue := NewSubscriberQueue()
	core.Subscriptions() <- SubscriptionRequest{ID: subscriber, Queue: queue}
	require.Eventually(t, func() bool { return core.SubscriberCount() == 1 }, time.Second, time.Millisecond)

	batches <- types.DelayedBatch{ReceivedAt: time.Now(), Batch: types.PacketBatch{
		Packets: []types.Packet{{Payload: []byte{0xAA}}},
	}}

	select {
	case msg := <-queue.Receive():
		require.NotNil(t, msg.Batch)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for forwarded batch under forward_all")
	}
}

func TestCore_DiscardedPacketsDropped(t *testing.T) {
	subscriber := types.ValidatorIdentity{0x04}
	core, _, batches := newTestCore(t, Config{ForwardAll: true, BatchSize: 10})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go core.Run(ctx)

	queue := NewSubscriberQueue()
	core.Subscriptions() <- SubscriptionRequest{ID: subscriber, Queue: queue}
	require.Eventually(t, func() bool { return core.SubscriberCount() == 1 }, time.Second, time.Millisecond)

	batches <- types.DelayedBatch{ReceivedAt: time.Now(), Batch: types.PacketBatch{
		Packets: []types.Packet{{Discard: true, Payload: []byte{0xAA}}},
	}}

	select {
	case <-queue.Receive():
		t.Fatal("discarded packet should never be forwarded")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestCore_DenylistedPacketDropped(t *testing.T) {
	subscriber := types.ValidatorIdentity{0x05}
	denied := types.Address{0xAA}
	core, _, batches := newTestCore(t, Config{
		ForwardAll: true,
		BatchSize:  10,
		Denylist:   &fakeDenylist{denied: map[types.Address]struct{}{denied: {}}},
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go core.Run(ctx)

	queue := NewSubscriberQueue()
	core.Subscriptions() <- SubscriptionRequest{ID: subscriber, Queue: queue}
	require.Eventually(t, func() bool { return core.SubscriberCount() == 1 }, time.Second, time.Millisecond)

	batches <- types.DelayedBatch{ReceivedAt: time.Now(), Batch: types.PacketBatch{
		Packets: []types.Packet{{Payload: []byte{0xAA}}},
	}}

	select {
	case <-queue.Receive():
		t.Fatal("denylisted packet should never be forwarded")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestCore_UnhealthyHeartbeatDisconnectsAll(t *testing.T) {
	subscriber := types.ValidatorIdentity{0x06}
	healthFlag := &fakeHealth{healthy: true}
	core, _, _ := newTestCore(t, Config{ForwardAll: true, BatchSize: 10, Health: healthFlag})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go core.Run(ctx)

	queue := NewSubscriberQueue()
	core.Subscriptions() <- SubscriptionRequest{ID: subscriber, Queue: queue}
	require.Eventually(t, func() bool { return core.SubscriberCount() == 1 }, time.Second, time.Millisecond)

	healthFlag.healthy = false
	require.Eventually(t, func() bool { return core.SubscriberCount() == 0 }, time.Second, time.Millisecond)
	require.True(t, queue.Closed())
}

func TestCore_DuplicateSubscriptionClosesPrevious(t *testing.T) {
	subscriber := types.ValidatorIdentity{0x07}
	core, _, _ := newTestCore(t, Config{ForwardAll: true, BatchSize: 10})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go core.Run(ctx)

	first := NewSubscriberQueue()
	core.Subscriptions() <- SubscriptionRequest{ID: subscriber, Queue: first}
	require.Eventually(t, func() bool { return core.SubscriberCount() == 1 }, time.Second, time.Millisecond)

	second := NewSubscriberQueue()
	core.Subscriptions() <- SubscriptionRequest{ID: subscriber, Queue: second}
	require.Eventually(t, func() bool { return first.Closed() }, time.Second, time.Millisecond)
	require.Equal(t, 1, core.SubscriberCount())
}
