// Package types defines the data model shared by the relayer's components:
// validator identities, packet batches, and the opaque transaction view the
// denylist filter reasons about.
package types

import (
	"time"

	"github.com/blockrelay/relayer/internal/base58"
)

// ValidatorIdentity is a 32-byte validator public key. It is comparable and
// usable directly as a map key.
type ValidatorIdentity [32]byte

// String renders the identity as the base58 string validators are known by
// on the wire, matching every other pubkey rendering in logs and metric
// labels.
func (v ValidatorIdentity) String() string {
	return base58.Encode(v[:])
}

// IsZero reports whether v is the zero identity (never a valid validator).
func (v ValidatorIdentity) IsZero() bool {
	return v == ValidatorIdentity{}
}

// Packet is a single opaque, already sig-verified transaction packet.
type Packet struct {
	// Discard marks a packet that must never be forwarded (e.g. failed
	// sigverify, duplicate, or otherwise flagged upstream).
	Discard bool
	// Forwarded marks a packet that was already forwarded by an earlier
	// stage (carried through for metrics/accounting only).
	Forwarded bool
	// Payload is the opaque wire-encoded transaction. The relayer core
	// decodes it at most once via a Decoder, and only when the denylist
	// filter is enabled.
	Payload []byte
}

// PacketBatch is an ordered, immutable-after-ingestion sequence of packets.
type PacketBatch struct {
	Packets []Packet
}

// DelayedBatch pairs a batch with the instant it was received upstream, so
// that the forward stage can enforce the configured delay and the relayer
// core can measure the reception-to-dispatch latency.
type DelayedBatch struct {
	ReceivedAt time.Time
	Batch      PacketBatch
}

// AddressTableLookup is a transaction's reference into an on-chain address
// lookup table: indices are resolved against the table's address list.
type AddressTableLookup struct {
	TableID         [32]byte
	WritableIndexes []uint8
	ReadonlyIndexes []uint8
}

// Transaction is the minimal decoded view of a transaction the relayer core
// and the denylist filter need. Its wire codec is intentionally opaque to
// this package; a Decoder produces this from a Packet's opaque Payload.
type Transaction struct {
	// AccountKeys are every statically listed account: fee payer, signers,
	// writable and readonly non-signers, and program ids.
	AccountKeys []Address
	// AddressTableLookups are the transaction's references into indirect
	// address tables, resolved by internal/tablecache.
	AddressTableLookups []AddressTableLookup
}

// Address is a 32-byte account address, comparable for denylist lookups.
type Address [32]byte

// Decoder turns an opaque packet payload into a Transaction. The concrete
// wire codec is deliberately left unspecified here; production wiring
// supplies a real implementation, tests supply a fake one.
type Decoder interface {
	Decode(payload []byte) (*Transaction, error)
}
