package decode

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func appendUint16(buf []byte, v uint16) []byte {
	var tmp [2]byte
	binary.BigEndian.PutUint16(tmp[:], v)
	return append(buf, tmp[:]...)
}

func TestTransactionDecoder_NoLookups(t *testing.T) {
	var buf []byte
	buf = appendUint16(buf, 2)
	addr1 := make([]byte, 32)
	addr1[0] = 0x01
	addr2 := make([]byte, 32)
	addr2[0] = 0x02
	buf = append(buf, addr1...)
	buf = append(buf, addr2...)
	buf = appendUint16(buf, 0)

	tx, err := TransactionDecoder{}.Decode(buf)
	require.NoError(t, err)
	require.Len(t, tx.AccountKeys, 2)
	require.Equal(t, byte(0x01), tx.AccountKeys[0][0])
	require.Empty(t, tx.AddressTableLookups)
}

func TestTransactionDecoder_WithLookup(t *testing.T) {
	var buf []byte
	buf = appendUint16(buf, 0)
	buf = appendUint16(buf, 1)

	tableID := make([]byte, 32)
	tableID[0] = 0xAA
	buf = append(buf, tableID...)
	buf = append(buf, 2, 0, 1) // 2 writable indexes: 0, 1
	buf = append(buf, 1, 3)    // 1 readonly index: 3

	tx, err := TransactionDecoder{}.Decode(buf)
	require.NoError(t, err)
	require.Len(t, tx.AddressTableLookups, 1)
	lookup := tx.AddressTableLookups[0]
	require.Equal(t, byte(0xAA), lookup.TableID[0])
	require.Equal(t, []uint8{0, 1}, lookup.WritableIndexes)
	require.Equal(t, []uint8{3}, lookup.ReadonlyIndexes)
}

func TestTransactionDecoder_TruncatedPayload(t *testing.T) {
	buf := []byte{0x00} // too short even for the account count
	_, err := TransactionDecoder{}.Decode(buf)
	require.Error(t, err)
}

func TestAddressTableDecoder_Decode(t *testing.T) {
	var buf []byte
	buf = appendUint16(buf, 1)
	addr := make([]byte, 32)
	addr[0] = 0x09
	buf = append(buf, addr...)

	addrs, err := AddressTableDecoder{}.Decode(buf)
	require.NoError(t, err)
	require.Len(t, addrs, 1)
	require.Equal(t, byte(0x09), addrs[0][0])
}

func TestAddressTableDecoder_TruncatedAddress(t *testing.T) {
	var buf []byte
	buf = appendUint16(buf, 1)
	buf = append(buf, make([]byte, 10)...) // too short for a full address

	_, err := AddressTableDecoder{}.Decode(buf)
	require.Error(t, err)
}
