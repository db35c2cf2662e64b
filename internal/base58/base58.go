// Package base58 implements the Bitcoin-alphabet base58 encoding used for
// validator public keys on the wire. No example or teacher dependency in the
// corpus provides this codec, so it is hand-rolled here rather than adding
// an unfamiliar third-party encoder; see DESIGN.md.
package base58

import (
	"math/big"

	"github.com/pkg/errors"
)

const alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

var radix = big.NewInt(58)

var decodeMap = func() [256]int8 {
	var m [256]int8
	for i := range m {
		m[i] = -1
	}
	for i := 0; i < len(alphabet); i++ {
		m[alphabet[i]] = int8(i)
	}
	return m
}()

// Encode returns the base58 encoding of b, preserving leading zero bytes as
// leading '1' characters the way every base58 pubkey codec does.
func Encode(b []byte) string {
	zero := alphabet[0]
	var leading int
	for leading < len(b) && b[leading] == 0 {
		leading++
	}

	x := new(big.Int).SetBytes(b)
	mod := new(big.Int)
	var out []byte
	for x.Sign() > 0 {
		x.DivMod(x, radix, mod)
		out = append(out, alphabet[mod.Int64()])
	}
	for i := 0; i < leading; i++ {
		out = append(out, zero)
	}
	// reverse
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return string(out)
}

// Decode parses a base58 string back into bytes, the inverse of Encode.
func Decode(s string) ([]byte, error) {
	x := new(big.Int)
	mul := new(big.Int)
	for i := 0; i < len(s); i++ {
		digit := decodeMap[s[i]]
		if digit < 0 {
			return nil, errors.Errorf("base58: invalid character %q", s[i])
		}
		x.Mul(x, radix)
		x.Add(x, mul.SetInt64(int64(digit)))
	}

	var leading int
	for leading < len(s) && s[leading] == alphabet[0] {
		leading++
	}

	decoded := x.Bytes()
	out := make([]byte, leading+len(decoded))
	copy(out[leading:], decoded)
	return out, nil
}
