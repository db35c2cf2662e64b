package forward

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/blockrelay/relayer/internal/blockengine"
	"github.com/blockrelay/relayer/internal/types"
)

func TestStage_IngestTeesToBlockEngine(t *testing.T) {
	q := blockengine.New()
	s := New(0, q)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s.Ingest(ctx, types.PacketBatch{Packets: []types.Packet{{Payload: []byte{0x01}}}})

	select {
	case db := <-q.Out():
		require.Len(t, db.Batch.Packets, 1)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for block-engine tee")
	}
}

func TestStage_NoDelayReleasesImmediately(t *testing.T) {
	s := New(0, blockengine.New())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s.Ingest(ctx, types.PacketBatch{Packets: []types.Packet{{Payload: []byte{0x02}}}})

	select {
	case db := <-s.Out():
		require.Len(t, db.Batch.Packets, 1)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for undelayed release")
	}
}

func TestStage_DelayHoldsBatchUntilElapsed(t *testing.T) {
	s := New(100*time.Millisecond, blockengine.New())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	start := time.Now()
	s.Ingest(ctx, types.PacketBatch{Packets: []types.Packet{{Payload: []byte{0x03}}}})

	select {
	case <-s.Out():
		require.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for delayed release")
	}
}

func TestStage_PreservesIngestOrder(t *testing.T) {
	s := New(0, blockengine.New())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	for i := byte(0); i < 20; i++ {
		s.Ingest(ctx, types.PacketBatch{Packets: []types.Packet{{Payload: []byte{i}}}})
	}

	for i := byte(0); i < 20; i++ {
		select {
		case db := <-s.Out():
			require.Equal(t, []byte{i}, db.Batch.Packets[0].Payload)
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for released batch")
		}
	}
}

func TestStage_ContextCancelAbandonsRelease(t *testing.T) {
	s := New(time.Hour, blockengine.New())
	ctx, cancel := context.WithCancel(context.Background())

	s.Ingest(ctx, types.PacketBatch{Packets: []types.Packet{{Payload: []byte{0x04}}}})
	cancel()

	select {
	case <-s.Out():
		t.Fatal("batch should not be released after context cancellation")
	case <-time.After(50 * time.Millisecond):
	}
}
