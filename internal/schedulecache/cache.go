// Package schedulecache implements the leader-schedule cache: it
// periodically refreshes the epoch leader schedule and converts it
// into an absolute_slot -> ValidatorIdentity map, swapped in atomically so
// readers always see a complete old or new snapshot.
//
// Grounded on the atomic-snapshot cache shape of
// beacon-chain/cache/sync_committee.go, combined with a ticker-driven
// refresh loop like beacon-chain/sync/initial-sync's polling helpers.
package schedulecache

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/blockrelay/relayer/internal/types"
)

var log = logrus.WithField("prefix", "schedulecache")

const refreshInterval = 10 * time.Second

// EpochInfo describes the current epoch boundaries needed to convert
// relative schedule indices to absolute slots.
type EpochInfo struct {
	AbsoluteSlot uint64
	SlotIndex    uint64
}

// Fetcher is the opaque upstream dependency: fetch current epoch info and
// the leader schedule (relative slot index -> validators for that slot).
type Fetcher interface {
	GetEpochInfo(ctx context.Context) (EpochInfo, error)
	GetLeaderSchedule(ctx context.Context) (map[uint64][]types.ValidatorIdentity, error)
}

type snapshot struct {
	bySlot map[uint64]types.ValidatorIdentity
}

// Cache holds the current leader schedule snapshot, refreshed periodically.
// Failures leave the prior snapshot in place.
type Cache struct {
	fetcher Fetcher
	current atomic.Value // *snapshot
}

// New creates a Cache with an empty initial snapshot.
func New(fetcher Fetcher) *Cache {
	c := &Cache{fetcher: fetcher}
	c.current.Store(&snapshot{bySlot: map[uint64]types.ValidatorIdentity{}})
	return c
}

// Run refreshes the schedule every 10s until ctx is done. Intended to be run
// in its own goroutine/thread.
func (c *Cache) Run(ctx context.Context) {
	ticker := time.NewTicker(refreshInterval)
	defer ticker.Stop()

	c.refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.refresh(ctx)
		}
	}
}

func (c *Cache) refresh(ctx context.Context) {
	info, err := c.fetcher.GetEpochInfo(ctx)
	if err != nil {
		log.WithError(err).Warn("could not fetch epoch info, keeping prior schedule")
		return
	}
	schedule, err := c.fetcher.GetLeaderSchedule(ctx)
	if err != nil {
		log.WithError(err).Warn("could not fetch leader schedule, keeping prior schedule")
		return
	}

	offset := info.AbsoluteSlot - info.SlotIndex
	next := &snapshot{bySlot: make(map[uint64]types.ValidatorIdentity, len(schedule))}
	for relSlot, leaders := range schedule {
		if len(leaders) == 0 {
			continue
		}
		next.bySlot[relSlot+offset] = leaders[0]
	}
	c.current.Store(next)
}

// LeaderOf returns the leader of the given absolute slot, if known.
func (c *Cache) LeaderOf(slot uint64) (types.ValidatorIdentity, bool) {
	snap := c.current.Load().(*snapshot)
	id, ok := snap.bySlot[slot]
	return id, ok
}

// LeadersOf returns the set of distinct leaders across the given slots.
func (c *Cache) LeadersOf(slots []uint64) map[types.ValidatorIdentity]struct{} {
	snap := c.current.Load().(*snapshot)
	out := make(map[types.ValidatorIdentity]struct{})
	for _, slot := range slots {
		if id, ok := snap.bySlot[slot]; ok {
			out[id] = struct{}{}
		}
	}
	return out
}

// IsScheduled reports whether id leads any slot in the current snapshot.
func (c *Cache) IsScheduled(id types.ValidatorIdentity) bool {
	snap := c.current.Load().(*snapshot)
	for _, leader := range snap.bySlot {
		if leader == id {
			return true
		}
	}
	return false
}
