// Package upstream is a minimal JSON-over-HTTP stand-in for the opaque
// upstream data sources (request/event endpoints with an unspecified wire
// protocol). It satisfies the Fetcher interfaces
// internal/schedulecache, internal/tablecache, and internal/stakes declare,
// and the EventSubscriber signature internal/selector declares, so the
// binary wires end-to-end against any compatible JSON endpoint; production
// deployments can swap in a real upstream client without touching the
// consuming packages' interfaces.
package upstream

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"github.com/blockrelay/relayer/internal/schedulecache"
	"github.com/blockrelay/relayer/internal/tablecache"
	"github.com/blockrelay/relayer/internal/types"
)

const pollInterval = 400 * time.Millisecond

// Client is a named upstream endpoint, doubling as selector.RequestClient.
type Client struct {
	Name    string
	BaseURL string
	http    *http.Client
}

// New creates a Client against baseURL (e.g. "http://127.0.0.1:8899").
func New(name, baseURL string) *Client {
	return &Client{Name: name, BaseURL: baseURL, http: &http.Client{Timeout: 5 * time.Second}}
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("upstream: %s%s returned status %d", c.BaseURL, path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

type epochInfoWire struct {
	AbsoluteSlot uint64 `json:"absolute_slot"`
	SlotIndex    uint64 `json:"slot_index"`
}

// GetEpochInfo implements schedulecache.Fetcher.
func (c *Client) GetEpochInfo(ctx context.Context) (schedulecache.EpochInfo, error) {
	var wire epochInfoWire
	if err := c.get(ctx, "/epoch_info", &wire); err != nil {
		return schedulecache.EpochInfo{}, err
	}
	return schedulecache.EpochInfo{AbsoluteSlot: wire.AbsoluteSlot, SlotIndex: wire.SlotIndex}, nil
}

// GetLeaderSchedule implements schedulecache.Fetcher. The wire map is keyed
// by relative slot index and valued by base64-encoded 32-byte identities.
func (c *Client) GetLeaderSchedule(ctx context.Context) (map[uint64][]types.ValidatorIdentity, error) {
	var wire map[string][]string
	if err := c.get(ctx, "/leader_schedule", &wire); err != nil {
		return nil, err
	}
	out := make(map[uint64][]types.ValidatorIdentity, len(wire))
	for key, encoded := range wire {
		var relSlot uint64
		if _, err := fmt.Sscanf(key, "%d", &relSlot); err != nil {
			continue
		}
		ids := make([]types.ValidatorIdentity, 0, len(encoded))
		for _, e := range encoded {
			id, err := decodeIdentity(e)
			if err != nil {
				continue
			}
			ids = append(ids, id)
		}
		out[relSlot] = ids
	}
	return out, nil
}

// GetStakedNodes implements internal/stakes.Fetcher.
func (c *Client) GetStakedNodes(ctx context.Context) (map[types.ValidatorIdentity]uint64, error) {
	var wire map[string]uint64
	if err := c.get(ctx, "/staked_nodes", &wire); err != nil {
		return nil, err
	}
	out := make(map[types.ValidatorIdentity]uint64, len(wire))
	for encoded, stake := range wire {
		id, err := decodeIdentity(encoded)
		if err != nil {
			continue
		}
		out[id] = stake
	}
	return out, nil
}

type tableAccountWire struct {
	TableID string `json:"table_id"`
	Data    string `json:"data"`
}

// ListTableAccounts implements tablecache.Fetcher.
func (c *Client) ListTableAccounts(ctx context.Context) ([]tablecache.RawTableAccount, error) {
	var wire []tableAccountWire
	if err := c.get(ctx, "/table_accounts", &wire); err != nil {
		return nil, err
	}
	out := make([]tablecache.RawTableAccount, 0, len(wire))
	for _, acct := range wire {
		id, err := decodeIdentity(acct.TableID)
		if err != nil {
			continue
		}
		data, err := base64.StdEncoding.DecodeString(acct.Data)
		if err != nil {
			continue
		}
		out = append(out, tablecache.RawTableAccount{TableID: id, Data: data})
	}
	return out, nil
}

type slotWire struct {
	Slot uint64 `json:"slot"`
}

// Subscribe implements selector.EventSubscriber: it polls /slot on
// pollInterval and publishes every observed value, letting the selector's
// own monotonicity check discard non-advancing reads.
func (c *Client) Subscribe(ctx context.Context) (<-chan uint64, error) {
	out := make(chan uint64, 16)
	go func() {
		defer close(out)
		ticker := time.NewTicker(pollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				var wire slotWire
				if err := c.get(ctx, "/slot", &wire); err != nil {
					return
				}
				select {
				case out <- wire.Slot:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func decodeIdentity(encoded string) (types.ValidatorIdentity, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return types.ValidatorIdentity{}, err
	}
	if len(raw) != 32 {
		return types.ValidatorIdentity{}, errors.Errorf("upstream: identity is %d bytes, want 32", len(raw))
	}
	var id types.ValidatorIdentity
	copy(id[:], raw)
	return id, nil
}
