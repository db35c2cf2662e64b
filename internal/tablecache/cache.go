// Package tablecache implements the indirect-address-table cache: a
// concurrent map of table_id -> ordered addresses, refreshed
// periodically with tombstone-by-absence semantics (a full refresh removes
// any table_id not seen in that pass).
//
// Grounded on the mutex+map cache shape of
// beacon-chain/cache/sync_committee.go, with per-entry error tolerance
// mirrored from beacon-chain/sync/initial-sync/blocks_fetcher.go's
// "log and continue" handling of individual failures.
package tablecache

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/blockrelay/relayer/internal/metrics"
	"github.com/blockrelay/relayer/internal/types"
)

var log = logrus.WithField("prefix", "tablecache")

// RawTableAccount is one undecoded address-table account as returned by the
// upstream account enumeration; decoding it is left to a separate decoder.
type RawTableAccount struct {
	TableID [32]byte
	Data    []byte
}

// Decoder turns a raw account into its ordered address list.
type Decoder interface {
	Decode(data []byte) ([]types.Address, error)
}

// Fetcher enumerates every address-table account currently on-chain.
type Fetcher interface {
	ListTableAccounts(ctx context.Context) ([]RawTableAccount, error)
}

// Cache holds the current table_id -> addresses map.
type Cache struct {
	fetcher  Fetcher
	decoder  Decoder
	interval time.Duration

	mu     sync.RWMutex
	tables map[[32]byte][]types.Address
}

// New creates a Cache that refreshes on the given interval.
func New(fetcher Fetcher, decoder Decoder, interval time.Duration) *Cache {
	return &Cache{
		fetcher:  fetcher,
		decoder:  decoder,
		interval: interval,
		tables:   make(map[[32]byte][]types.Address),
	}
}

// Run refreshes the cache on Cache's configured interval until ctx is done.
func (c *Cache) Run(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
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
	accounts, err := c.fetcher.ListTableAccounts(ctx)
	if err != nil {
		log.WithError(err).Warn("could not list address table accounts, keeping prior cache")
		return
	}

	live := make(map[[32]byte][]types.Address, len(accounts))
	for _, acct := range accounts {
		addrs, err := c.decoder.Decode(acct.Data)
		if err != nil {
			log.WithError(err).WithField("table", acct.TableID).Warn("could not decode table account, skipping")
			continue
		}
		live[acct.TableID] = addrs
	}

	c.mu.Lock()
	c.tables = live
	c.mu.Unlock()
	metrics.TableCacheSize.Set(float64(len(live)))
}

// Lookup resolves a table_id to its ordered address list.
func (c *Cache) Lookup(tableID [32]byte) ([]types.Address, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	addrs, ok := c.tables[tableID]
	return addrs, ok
}

// Upsert inserts or replaces a single table's addresses, used by tests and
// by any direct-subscription fast path that bypasses the poll loop.
func (c *Cache) Upsert(tableID [32]byte, addrs []types.Address) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tables[tableID] = addrs
}

// Len reports how many tables are currently cached.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.tables)
}
