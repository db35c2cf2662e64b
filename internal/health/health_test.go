package health

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSupervisor_StartsUnhealthy(t *testing.T) {
	in := make(chan uint64)
	s := New(in, 50*time.Millisecond)
	require.Equal(t, Unhealthy, s.State())
	require.False(t, s.Healthy())
}

func TestSupervisor_BecomesHealthyOnSlot(t *testing.T) {
	in := make(chan uint64)
	s := New(in, 40*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	in <- 100
	require.Eventually(t, s.Healthy, time.Second, time.Millisecond)
}

func TestSupervisor_GoesUnhealthyAfterThreshold(t *testing.T) {
	in := make(chan uint64)
	s := New(in, 30*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	in <- 1
	require.Eventually(t, s.Healthy, time.Second, time.Millisecond)
	require.Eventually(t, func() bool { return !s.Healthy() }, time.Second, time.Millisecond)
}

func TestSupervisor_RepublishesSlots(t *testing.T) {
	in := make(chan uint64)
	s := New(in, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	in <- 42
	select {
	case got := <-s.Slots():
		require.Equal(t, uint64(42), got)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for republished slot")
	}
}

func TestSupervisor_DefaultThreshold(t *testing.T) {
	s := New(make(chan uint64), 0)
	require.Equal(t, DefaultThreshold, s.threshold)
}

func TestState_String(t *testing.T) {
	require.Equal(t, "Healthy", Healthy.String())
	require.Equal(t, "Unhealthy", Unhealthy.String())
}
