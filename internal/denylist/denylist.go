// Package denylist implements the compliance denylist filter: a
// transaction is suppressed if any statically listed account, or
// any address reachable via an address-table lookup, is in the denied set.
package denylist

import (
	"github.com/blockrelay/relayer/internal/tablecache"
	"github.com/blockrelay/relayer/internal/types"
)

// Filter checks transactions against a fixed denied-address set and the
// indirect-address-table cache. An empty denied set bypasses filtering
// entirely (the zero value is usable and inert).
type Filter struct {
	denied map[types.Address]struct{}
	tables *tablecache.Cache
}

// New builds a Filter from a denied address list and the table cache used to
// resolve indirect lookups. A nil or empty denied slice disables filtering.
func New(denied []types.Address, tables *tablecache.Cache) *Filter {
	f := &Filter{tables: tables}
	if len(denied) > 0 {
		f.denied = make(map[types.Address]struct{}, len(denied))
		for _, addr := range denied {
			f.denied[addr] = struct{}{}
		}
	}
	return f
}

// Enabled reports whether the denylist is non-empty.
func (f *Filter) Enabled() bool {
	return len(f.denied) > 0
}

// IsDenied reports whether tx references any denied address, either
// statically or through a table lookup. Missing tables fail open: a
// reference into a table the cache hasn't fetched yet contributes no match.
func (f *Filter) IsDenied(tx *types.Transaction) bool {
	if !f.Enabled() {
		return false
	}

	for _, key := range tx.AccountKeys {
		if _, ok := f.denied[key]; ok {
			return true
		}
	}

	for _, lookup := range tx.AddressTableLookups {
		addrs, ok := f.tables.Lookup(lookup.TableID)
		if !ok {
			continue
		}
		if f.anyIndexDenied(addrs, lookup.WritableIndexes) {
			return true
		}
		if f.anyIndexDenied(addrs, lookup.ReadonlyIndexes) {
			return true
		}
	}
	return false
}

func (f *Filter) anyIndexDenied(addrs []types.Address, indexes []uint8) bool {
	for _, idx := range indexes {
		if int(idx) >= len(addrs) {
			continue
		}
		if _, ok := f.denied[addrs[idx]]; ok {
			return true
		}
	}
	return false
}
