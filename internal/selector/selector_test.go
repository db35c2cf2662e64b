package selector

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func subscriberOf(events chan uint64) EventSubscriber {
	return func(ctx context.Context) (<-chan uint64, error) {
		return events, nil
	}
}

func TestSelector_PicksFreshestSource(t *testing.T) {
	eventsA := make(chan uint64, 4)
	eventsB := make(chan uint64, 4)

	s := New([]Source{
		{Name: "a", Client: "client-a", Subscribe: subscriberOf(eventsA)},
		{Name: "b", Client: "client-b", Subscribe: subscriberOf(eventsB)},
	})
	s.Start()
	defer s.Shutdown()

	eventsA <- 10
	require.Eventually(t, func() bool {
		c, ok := s.PickClient()
		return ok && c == "client-a"
	}, time.Second, time.Millisecond)

	eventsB <- 20
	require.Eventually(t, func() bool {
		c, ok := s.PickClient()
		return ok && c == "client-b"
	}, time.Second, time.Millisecond)
}

func TestSelector_StaleSourceNeverWins(t *testing.T) {
	eventsA := make(chan uint64, 4)
	eventsB := make(chan uint64, 4)

	s := New([]Source{
		{Name: "a", Client: "client-a", Subscribe: subscriberOf(eventsA)},
		{Name: "b", Client: "client-b", Subscribe: subscriberOf(eventsB)},
	})
	s.Start()
	defer s.Shutdown()

	eventsB <- 50
	require.Eventually(t, func() bool {
		c, ok := s.PickClient()
		return ok && c == "client-b"
	}, time.Second, time.Millisecond)

	eventsA <- 10
	time.Sleep(20 * time.Millisecond)
	c, ok := s.PickClient()
	require.True(t, ok)
	require.Equal(t, "client-b", c)
}

func TestSelector_PublishesMonotoneSlots(t *testing.T) {
	events := make(chan uint64, 4)
	s := New([]Source{{Name: "a", Client: "client-a", Subscribe: subscriberOf(events)}})
	s.Start()
	defer s.Shutdown()

	events <- 1
	events <- 2

	var got []uint64
	for len(got) < 2 {
		select {
		case slot := <-s.Slots():
			got = append(got, slot)
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for slots")
		}
	}
	require.Equal(t, []uint64{1, 2}, got)
}

func TestSelector_PickClientBeforeAnyObservation(t *testing.T) {
	s := New([]Source{{Name: "a", Client: "client-a", Subscribe: subscriberOf(make(chan uint64))}})
	_, ok := s.PickClient()
	require.False(t, ok)
}
