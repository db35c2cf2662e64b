package main

import (
	"strings"

	"github.com/blockrelay/relayer/internal/base58"
	"github.com/blockrelay/relayer/internal/schedulecache"
	"github.com/blockrelay/relayer/internal/types"
)

// scheduleAuthorizer authorizes any pubkey that leads at least one slot in
// the cached epoch leader schedule.
type scheduleAuthorizer struct {
	schedule *schedulecache.Cache
}

func (a scheduleAuthorizer) Authorized(pubkey [32]byte) bool {
	return a.schedule.IsScheduled(types.ValidatorIdentity(pubkey))
}

func parseDenylist(spaceSeparated string) ([]types.Address, error) {
	fields := strings.Fields(spaceSeparated)
	out := make([]types.Address, 0, len(fields))
	for _, f := range fields {
		raw, err := base58.Decode(f)
		if err != nil {
			return nil, err
		}
		if len(raw) != 32 {
			continue
		}
		var addr types.Address
		copy(addr[:], raw)
		out = append(out, addr)
	}
	return out, nil
}
