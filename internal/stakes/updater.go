// Package stakes implements the stake-weight updater: it periodically merges
// on-chain stake with a YAML override file and republishes a {pubkey: stake}
// map. It is metrics/logging-only here; it never gates admission or
// forwarding decisions made elsewhere in the relayer.
package stakes

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/ghodss/yaml"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/blockrelay/relayer/internal/base58"
	"github.com/blockrelay/relayer/internal/types"
)

var log = logrus.WithField("prefix", "stakes")

const refreshInterval = 5 * time.Minute

// Fetcher returns the on-chain stake, keyed by validator identity.
type Fetcher interface {
	GetStakedNodes(ctx context.Context) (map[types.ValidatorIdentity]uint64, error)
}

// overridesFile is the on-disk shape of the stake overrides file:
// { staked_map_id: { base58_pubkey: u64, ... } }.
type overridesFile map[string]map[string]uint64

// Updater periodically republishes a merged stake map for metrics/logging.
type Updater struct {
	fetcher   Fetcher
	overrides map[types.ValidatorIdentity]uint64
	current   atomic.Value // map[types.ValidatorIdentity]uint64
}

// LoadOverrides parses the YAML overrides file consumed at startup only,
// selecting the map keyed by mapID.
func LoadOverrides(data []byte, mapID string) (map[types.ValidatorIdentity]uint64, error) {
	var parsed overridesFile
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, errors.Wrap(err, "stakes: could not parse overrides file")
	}
	raw, ok := parsed[mapID]
	if !ok {
		return map[types.ValidatorIdentity]uint64{}, nil
	}
	out := make(map[types.ValidatorIdentity]uint64, len(raw))
	for pk, stake := range raw {
		id, err := decodeIdentity(pk)
		if err != nil {
			log.WithError(err).WithField("pubkey", pk).Warn("skipping invalid override entry")
			continue
		}
		out[id] = stake
	}
	return out, nil
}

// New creates an Updater with a fixed set of startup overrides.
func New(fetcher Fetcher, overrides map[types.ValidatorIdentity]uint64) *Updater {
	u := &Updater{fetcher: fetcher, overrides: overrides}
	u.current.Store(map[types.ValidatorIdentity]uint64{})
	return u
}

// Run refreshes the merged stake map on refreshInterval until ctx is done.
func (u *Updater) Run(ctx context.Context) {
	ticker := time.NewTicker(refreshInterval)
	defer ticker.Stop()

	u.refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			u.refresh(ctx)
		}
	}
}

func (u *Updater) refresh(ctx context.Context) {
	onChain, err := u.fetcher.GetStakedNodes(ctx)
	if err != nil {
		log.WithError(err).Warn("could not fetch staked nodes, keeping prior snapshot")
		return
	}
	merged := make(map[types.ValidatorIdentity]uint64, len(onChain)+len(u.overrides))
	for id, stake := range onChain {
		merged[id] = stake
	}
	for id, stake := range u.overrides {
		merged[id] = stake
	}

	u.current.Store(merged)
	log.WithField("count", len(merged)).Debug("refreshed stake map")
}

// Current returns the most recently published stake map.
func (u *Updater) Current() map[types.ValidatorIdentity]uint64 {
	return u.current.Load().(map[types.ValidatorIdentity]uint64)
}

func decodeIdentity(pubkeyBase58 string) (types.ValidatorIdentity, error) {
	raw, err := base58.Decode(pubkeyBase58)
	if err != nil {
		return types.ValidatorIdentity{}, err
	}
	if len(raw) != 32 {
		return types.ValidatorIdentity{}, errors.Errorf("stakes: decoded pubkey is %d bytes, want 32", len(raw))
	}
	var id types.ValidatorIdentity
	copy(id[:], raw)
	return id, nil
}
