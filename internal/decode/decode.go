// Package decode provides minimal stand-in decoders for wire formats that
// are intentionally left opaque elsewhere: a packet payload's transaction
// view, and an address-table account's ordered address list. Both formats
// here are placeholders (a simple length-prefixed encoding) so the binary
// composes end-to-end against a matching upstream; a real deployment
// supplies its own Decoder implementing the same interfaces.
package decode

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/blockrelay/relayer/internal/types"
)

// TransactionDecoder implements types.Decoder.
type TransactionDecoder struct{}

// AddressTableDecoder implements tablecache.Decoder.
type AddressTableDecoder struct{}

// wire layout: uint16 account count, then 32 bytes per account, then a
// uint16 lookup count, then per lookup: 32-byte table id, uint8 writable
// count + that many indexes, uint8 readonly count + that many indexes.
func (TransactionDecoder) Decode(payload []byte) (*types.Transaction, error) {
	buf := payload
	accountCount, buf, err := readUint16(buf)
	if err != nil {
		return nil, err
	}
	tx := &types.Transaction{AccountKeys: make([]types.Address, 0, accountCount)}
	for i := 0; i < int(accountCount); i++ {
		var addr types.Address
		addr, buf, err = readAddress(buf)
		if err != nil {
			return nil, err
		}
		tx.AccountKeys = append(tx.AccountKeys, addr)
	}

	lookupCount, buf, err := readUint16(buf)
	if err != nil {
		return nil, err
	}
	for i := 0; i < int(lookupCount); i++ {
		var lookup types.AddressTableLookup
		var tableAddr types.Address
		tableAddr, buf, err = readAddress(buf)
		if err != nil {
			return nil, err
		}
		lookup.TableID = tableAddr

		lookup.WritableIndexes, buf, err = readIndexes(buf)
		if err != nil {
			return nil, err
		}
		lookup.ReadonlyIndexes, buf, err = readIndexes(buf)
		if err != nil {
			return nil, err
		}
		tx.AddressTableLookups = append(tx.AddressTableLookups, lookup)
	}
	return tx, nil
}

// Decode implements tablecache.Decoder over the same address-list encoding
// used within TransactionDecoder's account section.
func (AddressTableDecoder) Decode(data []byte) ([]types.Address, error) {
	count, buf, err := readUint16(data)
	if err != nil {
		return nil, err
	}
	out := make([]types.Address, 0, count)
	for i := 0; i < int(count); i++ {
		var addr types.Address
		addr, buf, err = readAddress(buf)
		if err != nil {
			return nil, err
		}
		out = append(out, addr)
	}
	return out, nil
}

func readUint16(buf []byte) (uint16, []byte, error) {
	if len(buf) < 2 {
		return 0, nil, errors.New("decode: truncated uint16")
	}
	return binary.BigEndian.Uint16(buf), buf[2:], nil
}

func readAddress(buf []byte) (types.Address, []byte, error) {
	var addr types.Address
	if len(buf) < 32 {
		return addr, nil, errors.New("decode: truncated address")
	}
	copy(addr[:], buf[:32])
	return addr, buf[32:], nil
}

func readIndexes(buf []byte) ([]uint8, []byte, error) {
	if len(buf) < 1 {
		return nil, nil, errors.New("decode: truncated index count")
	}
	count := int(buf[0])
	buf = buf[1:]
	if len(buf) < count {
		return nil, nil, errors.New("decode: truncated index list")
	}
	out := make([]uint8, count)
	copy(out, buf[:count])
	return out, buf[count:], nil
}
